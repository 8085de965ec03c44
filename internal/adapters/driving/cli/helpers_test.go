package cli

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// mockStoryAgent implements driving.StoryAgent for testing.
type mockStoryAgent struct {
	loadErr     error
	result      *domain.GenerationResult
	generateErr error
	image       *domain.Image
	imageErr    error
}

func (m *mockStoryAgent) NewSession() *domain.Session {
	return domain.NewSession("cli-test-session")
}

func (m *mockStoryAgent) LoadPersona(_ context.Context, session *domain.Session, personaID string) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	session.Load(&domain.Persona{ID: personaID, DisplayName: personaID}, "v1")
	return nil
}

func (m *mockStoryAgent) Generate(_ context.Context, _ *domain.Session, _ string, _ driving.GenerateOptions) (*domain.GenerationResult, error) {
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.GenerationResult{
		Story:       "The rickshaw stopped at the wrong address.",
		ImagePrompt: "a rickshaw in the rain",
		ModelName:   "gemini-1.5-flash-latest",
	}, nil
}

func (m *mockStoryAgent) GenerateImage(_ context.Context, _ string, _ domain.ImageOptions) (*domain.Image, error) {
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	if m.image != nil {
		return m.image, nil
	}
	return &domain.Image{
		Data:     []byte("fake-image-bytes"),
		MIMEType: "image/jpeg",
		Provider: "pollinations",
		Width:    1024,
		Height:   1024,
	}, nil
}

func (m *mockStoryAgent) PersonaChanged(_ context.Context, _ string) error {
	return nil
}

func (m *mockStoryAgent) Close() error {
	return nil
}

// mockPersonaAdmin implements driving.PersonaService for testing.
type mockPersonaAdmin struct {
	personas  []domain.Persona
	persona   *domain.Persona
	report    *driving.ImportReport
	err       error
	removedID string
}

func (m *mockPersonaAdmin) List(_ context.Context) ([]domain.Persona, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.personas, nil
}

func (m *mockPersonaAdmin) Get(_ context.Context, _ string) (*domain.Persona, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.persona != nil {
		return m.persona, nil
	}
	return nil, domain.ErrPersonaNotFound
}

func (m *mockPersonaAdmin) Import(_ context.Context) (*driving.ImportReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.ImportReport{}, nil
}

func (m *mockPersonaAdmin) Remove(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.removedID = id
	return nil
}

func (m *mockPersonaAdmin) Watch(_ context.Context) error {
	return nil
}

// mockIndexer implements driving.IndexOrchestrator for testing.
type mockIndexer struct {
	report  *driving.IndexReport
	reports []driving.IndexReport
	err     error
}

func (m *mockIndexer) Index(_ context.Context, personaID string) (*driving.IndexReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.IndexReport{PersonaID: personaID, Version: "abcdef123456", Chunks: 4, EmbeddingModel: "text-embedding-004"}, nil
}

func (m *mockIndexer) IndexAll(_ context.Context) ([]driving.IndexReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.reports, nil
}

func (m *mockIndexer) Status(_ context.Context, personaID string) (*driving.IndexStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.IndexStatus{PersonaID: personaID, Indexed: true}, nil
}

// setupAgentTest installs a mock story agent and returns a cleanup func.
// A non-nil agent also keeps ensureAgent from building the real pipeline.
func setupAgentTest(agent driving.StoryAgent) func() {
	oldAgent := storyAgent
	storyAgent = agent
	return func() {
		storyAgent = oldAgent
	}
}

// setupPersonaTest installs a mock persona service and returns a cleanup func.
func setupPersonaTest(service driving.PersonaService) func() {
	oldService := personaService
	personaService = service
	return func() {
		personaService = oldService
	}
}

// setupIndexTest installs a mock index orchestrator and returns a cleanup func.
func setupIndexTest(indexer driving.IndexOrchestrator) func() {
	oldIndex := indexService
	indexService = indexer
	return func() {
		indexService = oldIndex
	}
}
