package mcp

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// mockStoryAgent is a mock implementation of driving.StoryAgent.
type mockStoryAgent struct {
	result      *domain.GenerationResult
	image       *domain.Image
	loadErr     error
	generateErr error
	imageErr    error
	invalidated []string
}

func (m *mockStoryAgent) NewSession() *domain.Session {
	return domain.NewSession("mcp-test-session")
}

func (m *mockStoryAgent) LoadPersona(_ context.Context, session *domain.Session, personaID string) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	session.Load(&domain.Persona{ID: personaID, DisplayName: personaID}, "v1")
	return nil
}

func (m *mockStoryAgent) Generate(
	_ context.Context,
	_ *domain.Session,
	_ string,
	_ driving.GenerateOptions,
) (*domain.GenerationResult, error) {
	return m.result, m.generateErr
}

func (m *mockStoryAgent) GenerateImage(
	_ context.Context,
	_ string,
	_ domain.ImageOptions,
) (*domain.Image, error) {
	return m.image, m.imageErr
}

func (m *mockStoryAgent) PersonaChanged(_ context.Context, personaID string) error {
	m.invalidated = append(m.invalidated, personaID)
	return nil
}

func (m *mockStoryAgent) Close() error {
	return nil
}

// mockPersonaService is a mock implementation of driving.PersonaService.
type mockPersonaService struct {
	personas []domain.Persona
	persona  *domain.Persona
	report   *driving.ImportReport
	err      error
}

func (m *mockPersonaService) List(_ context.Context) ([]domain.Persona, error) {
	return m.personas, m.err
}

func (m *mockPersonaService) Get(_ context.Context, _ string) (*domain.Persona, error) {
	return m.persona, m.err
}

func (m *mockPersonaService) Import(_ context.Context) (*driving.ImportReport, error) {
	return m.report, m.err
}

func (m *mockPersonaService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockPersonaService) Watch(_ context.Context) error {
	return m.err
}

// mockIndexOrchestrator is a mock implementation of driving.IndexOrchestrator.
type mockIndexOrchestrator struct {
	report  *driving.IndexReport
	reports []driving.IndexReport
	status  *driving.IndexStatus
	err     error
}

func (m *mockIndexOrchestrator) Index(_ context.Context, _ string) (*driving.IndexReport, error) {
	return m.report, m.err
}

func (m *mockIndexOrchestrator) IndexAll(_ context.Context) ([]driving.IndexReport, error) {
	return m.reports, m.err
}

func (m *mockIndexOrchestrator) Status(_ context.Context, _ string) (*driving.IndexStatus, error) {
	return m.status, m.err
}
