package domain

import (
	"fmt"
	"sync"
	"time"
)

// SessionState is the agent session's position in its lifecycle.
type SessionState string

// Session states.
const (
	// StateNoPersona means no persona is loaded; generation is a usage error.
	StateNoPersona SessionState = "no_persona"

	// StatePersonaLoaded means a persona and its index are ready.
	StatePersonaLoaded SessionState = "persona_loaded"

	// StateGenerating means at least one generation is in flight.
	StateGenerating SessionState = "generating"
)

// Session is an explicit conversation context: which persona is loaded and
// whether generations are in flight. Sessions replace process-global
// "current character" state so concurrent sessions never interfere.
// All methods are safe for concurrent use.
type Session struct {
	// ID is the unique session identifier.
	ID string

	// CreatedAt is when the session was opened.
	CreatedAt time.Time

	mu           sync.Mutex
	persona      *Persona
	indexVersion string
	generating   int
}

// NewSession returns an empty session in StateNoPersona.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
	}
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.persona == nil:
		return StateNoPersona
	case s.generating > 0:
		return StateGenerating
	default:
		return StatePersonaLoaded
	}
}

// Persona returns the loaded persona, or nil.
func (s *Session) Persona() *Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// IndexVersion returns the DocVersion of the index the session is bound to.
func (s *Session) IndexVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexVersion
}

// Load binds a persona and its index version to the session. Loading over
// an existing persona replaces it; that is not an error.
func (s *Session) Load(p *Persona, indexVersion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = p
	s.indexVersion = indexVersion
}

// Unload clears the loaded persona, returning to StateNoPersona.
func (s *Session) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = nil
	s.indexVersion = ""
}

// BeginGenerate marks a generation in flight. It fails with
// ErrNoPersonaLoaded when the session has no persona. Concurrent
// generations on one session are permitted; coalescing of identical
// requests happens above this level.
func (s *Session) BeginGenerate() (*Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persona == nil {
		return nil, fmt.Errorf("%w: load a persona before generating", ErrNoPersonaLoaded)
	}
	s.generating++
	return s.persona, nil
}

// EndGenerate marks a generation as finished.
func (s *Session) EndGenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating > 0 {
		s.generating--
	}
}
