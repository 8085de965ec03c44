package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// MockStoryAgent implements driving.StoryAgent for testing.
type MockStoryAgent struct {
	NewSessionFunc    func() *domain.Session
	LoadPersonaFunc   func(ctx context.Context, session *domain.Session, personaID string) error
	GenerateFunc      func(ctx context.Context, session *domain.Session, idea string, opts driving.GenerateOptions) (*domain.GenerationResult, error)
	GenerateImageFunc func(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error)
}

func (m *MockStoryAgent) NewSession() *domain.Session {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc()
	}
	return domain.NewSession("tui-test-session")
}

func (m *MockStoryAgent) LoadPersona(ctx context.Context, session *domain.Session, personaID string) error {
	if m.LoadPersonaFunc != nil {
		return m.LoadPersonaFunc(ctx, session, personaID)
	}
	session.Load(&domain.Persona{ID: personaID, DisplayName: personaID}, "v1")
	return nil
}

func (m *MockStoryAgent) Generate(
	ctx context.Context,
	session *domain.Session,
	idea string,
	opts driving.GenerateOptions,
) (*domain.GenerationResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, session, idea, opts)
	}
	return &domain.GenerationResult{Story: "a story"}, nil
}

func (m *MockStoryAgent) GenerateImage(
	ctx context.Context,
	prompt string,
	opts domain.ImageOptions,
) (*domain.Image, error) {
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, prompt, opts)
	}
	return nil, nil
}

func (m *MockStoryAgent) PersonaChanged(ctx context.Context, personaID string) error {
	return nil
}

func (m *MockStoryAgent) Close() error {
	return nil
}

// MockPersonaService implements driving.PersonaService for testing.
type MockPersonaService struct {
	ListFunc   func(ctx context.Context) ([]domain.Persona, error)
	GetFunc    func(ctx context.Context, id string) (*domain.Persona, error)
	ImportFunc func(ctx context.Context) (*driving.ImportReport, error)
	RemoveFunc func(ctx context.Context, id string) error
}

func (m *MockPersonaService) List(ctx context.Context) ([]domain.Persona, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockPersonaService) Get(ctx context.Context, id string) (*domain.Persona, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockPersonaService) Import(ctx context.Context) (*driving.ImportReport, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx)
	}
	return nil, nil
}

func (m *MockPersonaService) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *MockPersonaService) Watch(ctx context.Context) error {
	return nil
}

func TestNewPorts(t *testing.T) {
	agent := &MockStoryAgent{}
	personas := &MockPersonaService{}

	ports := NewPorts(agent, personas)

	require.NotNil(t, ports)
	assert.Equal(t, agent, ports.Agent)
	assert.Equal(t, personas, ports.Personas)
}

func TestPorts_Validate_AllSet(t *testing.T) {
	ports := &Ports{
		Agent:    &MockStoryAgent{},
		Personas: &MockPersonaService{},
	}

	err := ports.Validate()

	assert.NoError(t, err)
}

func TestPorts_Validate_MissingAgent(t *testing.T) {
	ports := &Ports{
		Agent:    nil,
		Personas: &MockPersonaService{},
	}

	err := ports.Validate()

	assert.ErrorIs(t, err, ErrMissingStoryAgent)
}

func TestPorts_Validate_MissingPersonas(t *testing.T) {
	ports := &Ports{
		Agent:    &MockStoryAgent{},
		Personas: nil,
	}

	err := ports.Validate()

	assert.ErrorIs(t, err, ErrMissingPersonaService)
}
