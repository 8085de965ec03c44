package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
	"github.com/custodia-labs/fabula/internal/logger"
)

// Ensure PersonaService implements the interface.
var _ driving.PersonaService = (*PersonaService)(nil)

// ChangeNotifier receives invalidation callbacks when a stored persona's
// definition changes or the persona is removed.
type ChangeNotifier interface {
	PersonaChanged(ctx context.Context, personaID string) error
}

// PersonaService manages stored personas and imports them from sources.
type PersonaService struct {
	store    driven.PersonaStore
	sources  []driven.PersonaSource
	notifier ChangeNotifier
}

// NewPersonaService creates a new persona service. The notifier is optional;
// when nil, changed personas are stored without invalidation callbacks.
func NewPersonaService(store driven.PersonaStore, sources []driven.PersonaSource, notifier ChangeNotifier) *PersonaService {
	return &PersonaService{
		store:    store,
		sources:  sources,
		notifier: notifier,
	}
}

// List returns all stored personas without document bodies.
func (s *PersonaService) List(ctx context.Context) ([]domain.Persona, error) {
	return s.store.ListPersonas(ctx)
}

// Get retrieves a persona by ID, document included.
func (s *PersonaService) Get(ctx context.Context, id string) (*domain.Persona, error) {
	return s.store.GetPersona(ctx, id)
}

// Import scans the configured sources and stores new or changed persona
// definitions. A failing source is skipped so one broken directory or an
// unreachable repository does not block the rest.
func (s *PersonaService) Import(ctx context.Context) (*driving.ImportReport, error) {
	logger.Section("Persona Import")

	if len(s.sources) == 0 {
		return nil, fmt.Errorf("%w: no persona source configured", domain.ErrInvalidConfig)
	}

	report := &driving.ImportReport{}
	for _, source := range s.sources {
		defs, err := source.Scan(ctx)
		if err != nil {
			logger.Warn("Scanning %s source failed: %v", source.Type(), err)
			continue
		}
		logger.Info("Scanned %s source: %d definition(s)", source.Type(), len(defs))

		for _, def := range defs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := s.importDefinition(ctx, def, report); err != nil {
				logger.Warn("Importing %q failed: %v", def.ID, err)
				report.Failed = append(report.Failed, def.ID)
			}
		}
	}

	logger.Info("Import finished: %d created, %d updated, %d unchanged, %d failed",
		report.Created, report.Updated, report.Unchanged, len(report.Failed))
	return report, nil
}

// importDefinition stores one definition, counting it in the report.
func (s *PersonaService) importDefinition(ctx context.Context, def domain.PersonaDefinition, report *driving.ImportReport) error {
	persona := &domain.Persona{
		ID:          def.ID,
		DisplayName: def.DisplayName,
		Style:       def.Style,
		Params:      def.Params,
	}
	persona.SetDocument(def.Document)
	if err := persona.Validate(); err != nil {
		return err
	}

	existing, err := s.store.GetPersona(ctx, def.ID)
	switch {
	case errors.Is(err, domain.ErrPersonaNotFound):
		if err := s.store.SavePersona(ctx, persona); err != nil {
			return fmt.Errorf("save persona: %w", err)
		}
		report.Created++
		logger.Info("Created persona %q (version %.8s)", persona.ID, persona.DocVersion)
		return nil
	case err != nil:
		return fmt.Errorf("load persona: %w", err)
	}

	if definitionUnchanged(existing, persona) {
		report.Unchanged++
		return nil
	}

	if err := s.store.SavePersona(ctx, persona); err != nil {
		return fmt.Errorf("save persona: %w", err)
	}
	s.invalidate(ctx, persona.ID)
	report.Updated++
	logger.Info("Updated persona %q (version %.8s)", persona.ID, persona.DocVersion)
	return nil
}

// Remove deletes a persona and invalidates its index and cached responses.
func (s *PersonaService) Remove(ctx context.Context, id string) error {
	if _, err := s.store.GetPersona(ctx, id); err != nil {
		return fmt.Errorf("load persona: %w", err)
	}
	if err := s.store.DeletePersona(ctx, id); err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	s.invalidate(ctx, id)
	logger.Info("Removed persona %q", id)
	return nil
}

// Watch runs the source watch loop, importing definition changes as they
// happen. Blocks until ctx is cancelled.
func (s *PersonaService) Watch(ctx context.Context) error {
	events := make(chan domain.PersonaEvent)
	var wg sync.WaitGroup

	watching := 0
	for _, source := range s.sources {
		if !source.Capabilities().SupportsWatch {
			continue
		}
		ch, err := source.Watch(ctx)
		if err != nil {
			logger.Warn("Watching %s source failed: %v", source.Type(), err)
			continue
		}
		watching++
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range ch {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	if watching == 0 {
		return fmt.Errorf("%w: no watchable persona source", domain.ErrInvalidConfig)
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	logger.Info("Watching %d persona source(s) for changes", watching)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)
		}
	}
}

// handleEvent reacts to one source change. Deletions at the source leave
// the stored persona intact: sources feed definitions in, they do not own
// the stored data. Remove is the only delete path.
func (s *PersonaService) handleEvent(ctx context.Context, ev domain.PersonaEvent) {
	switch ev.Type {
	case domain.ChangeDeleted:
		logger.Info("Persona %q removed at source; stored copy kept", ev.PersonaID)
	default:
		logger.Info("Persona %q changed at source, importing", ev.PersonaID)
		if _, err := s.Import(ctx); err != nil {
			logger.Warn("Import after source change failed: %v", err)
		}
	}
}

// invalidate runs the change callback. Failures are logged, not returned:
// the persona is already stored and a missed invalidation only means a
// rebuild on next use.
func (s *PersonaService) invalidate(ctx context.Context, id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PersonaChanged(ctx, id); err != nil {
		logger.Warn("Invalidating %q failed: %v (continuing)", id, err)
	}
}

// definitionUnchanged reports whether the incoming definition matches the
// stored persona. Style and parameter changes count as changes: they alter
// the assembled prompt even when the document is identical.
func definitionUnchanged(stored, incoming *domain.Persona) bool {
	if stored.DocVersion != incoming.DocVersion {
		return false
	}
	if stored.DisplayName != incoming.DisplayName || stored.Style != incoming.Style {
		return false
	}
	return paramsEqual(stored.Params, incoming.Params)
}

// paramsEqual compares optional parameter overrides by value.
func paramsEqual(a, b *domain.GenerationParams) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
