package mcp

import (
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Agent runs the story and image generation pipeline.
	Agent driving.StoryAgent

	// Personas lists and loads stored personas.
	Personas driving.PersonaService

	// Index rebuilds persona indexes on request.
	Index driving.IndexOrchestrator
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Agent == nil {
		return ErrMissingAgent
	}
	if p.Personas == nil {
		return ErrMissingPersonaService
	}
	// Index is optional; the reindex tool reports it when absent.
	return nil
}
