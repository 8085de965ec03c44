package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure PersonaStore implements the interface.
var _ driven.PersonaStore = (*PersonaStore)(nil)

// PersonaStore is an in-memory implementation of driven.PersonaStore.
type PersonaStore struct {
	mu       sync.RWMutex
	personas map[string]domain.Persona
	chunks   map[string][]domain.Chunk
}

// NewPersonaStore creates a new in-memory persona store.
func NewPersonaStore() *PersonaStore {
	return &PersonaStore{
		personas: make(map[string]domain.Persona),
		chunks:   make(map[string][]domain.Chunk),
	}
}

// chunkKey keys a chunk set by persona and document version.
func chunkKey(personaID, docVersion string) string {
	return personaID + "\x00" + docVersion
}

// SavePersona stores or updates a persona. Usage fields of an existing
// record survive updates; RecordUsage is the only writer for them.
func (s *PersonaStore) SavePersona(_ context.Context, persona *domain.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *persona
	if prev, ok := s.personas[persona.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
		stored.UsageCount = prev.UsageCount
		stored.LastUsedAt = prev.LastUsedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	s.personas[persona.ID] = stored
	return nil
}

// GetPersona retrieves a persona by ID, document included.
func (s *PersonaStore) GetPersona(_ context.Context, id string) (*domain.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	persona, ok := s.personas[id]
	if !ok {
		return nil, domain.ErrPersonaNotFound
	}
	return &persona, nil
}

// ListPersonas returns all personas without document bodies, ordered by ID.
func (s *PersonaStore) ListPersonas(_ context.Context) ([]domain.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Persona, 0, len(s.personas))
	for id := range s.personas {
		p := s.personas[id]
		p.Document = ""
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeletePersona removes a persona and its chunk sets.
func (s *PersonaStore) DeletePersona(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.personas, id)
	prefix := id + "\x00"
	for key := range s.chunks {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.chunks, key)
		}
	}
	return nil
}

// SaveChunks replaces the stored chunk set for a document version.
func (s *PersonaStore) SaveChunks(_ context.Context, personaID, docVersion string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)
	s.chunks[chunkKey(personaID, docVersion)] = owned
	return nil
}

// GetChunks retrieves the chunk set for a document version.
func (s *PersonaStore) GetChunks(_ context.Context, personaID, docVersion string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.chunks[chunkKey(personaID, docVersion)]
	if !ok {
		return nil, nil
	}
	result := make([]domain.Chunk, len(stored))
	copy(result, stored)
	return result, nil
}

// RecordUsage increments the persona's usage counter.
func (s *PersonaStore) RecordUsage(_ context.Context, personaID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	persona, ok := s.personas[personaID]
	if !ok {
		return domain.ErrPersonaNotFound
	}
	persona.UsageCount++
	if at.After(persona.LastUsedAt) {
		persona.LastUsedAt = at
	}
	s.personas[personaID] = persona
	return nil
}

// Close releases resources.
func (s *PersonaStore) Close() error {
	return nil
}
