// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/fabula/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewPersonas is the persona picker.
	ViewPersonas ViewType = iota
	// ViewSession is the story session view.
	ViewSession
	// ViewDocument shows a persona's reference document.
	ViewDocument
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewPersonas:
		return "personas"
	case ViewSession:
		return "session"
	case ViewDocument:
		return "document"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// PersonasLoaded carries the list of stored personas from the service.
type PersonasLoaded struct {
	Personas []domain.Persona
	Err      error
}

// PersonaSelected signals a persona was chosen for a story session.
type PersonaSelected struct {
	PersonaID string
}

// PersonaLoaded signals a persona finished loading into the session.
// On success Persona carries the stored persona with its full document.
type PersonaLoaded struct {
	Persona *domain.Persona
	Err     error
}

// StoryCompleted carries a generation result back to the session view.
type StoryCompleted struct {
	Result *domain.GenerationResult
	Err    error
}

// DocumentRequested signals the persona's reference document should be shown.
type DocumentRequested struct {
	Persona *domain.Persona
}
