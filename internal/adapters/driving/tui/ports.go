// Package tui provides an interactive story session interface for fabula.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Agent runs persona story sessions.
	Agent driving.StoryAgent

	// Personas manages stored personas.
	Personas driving.PersonaService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(agent driving.StoryAgent, personas driving.PersonaService) *Ports {
	return &Ports{
		Agent:    agent,
		Personas: personas,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Agent == nil {
		return ErrMissingStoryAgent
	}
	if p.Personas == nil {
		return ErrMissingPersonaService
	}
	return nil
}
