// Package personas provides the persona picker view component for the TUI.
package personas

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// View is the persona picker view.
type View struct {
	styles         *styles.Styles
	personaService driving.PersonaService

	list    *list.PersonaList
	width   int
	height  int
	ready   bool
	err     error
	loading bool
}

// NewView creates a new persona picker view.
func NewView(s *styles.Styles, personaService driving.PersonaService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:         s,
		personaService: personaService,
		list:           list.NewPersonaList(s),
	}
}

// Init initialises the view and loads personas.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadPersonas()
}

// loadPersonas returns a command that loads personas from the service.
func (v *View) loadPersonas() tea.Cmd {
	return func() tea.Msg {
		if v.personaService == nil {
			return messages.PersonasLoaded{Err: fmt.Errorf("persona service not available")}
		}

		personas, err := v.personaService.List(context.Background())
		return messages.PersonasLoaded{Personas: personas, Err: err}
	}
}

// Update handles messages for the persona picker view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.PersonasLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.list.SetPersonas(msg.Personas)
			v.err = nil
		}
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.list.MoveUp()
	case "down", "j":
		v.list.MoveDown()
	case "enter":
		// Open a story session for the selected persona
		if persona := v.list.SelectedPersona(); persona != nil {
			personaID := persona.ID
			return v, func() tea.Msg {
				return messages.PersonaSelected{PersonaID: personaID}
			}
		}
	case "r":
		// Reload personas
		v.loading = true
		return v, v.loadPersonas()
	case "q":
		return v, func() tea.Msg {
			return messages.Quit{}
		}
	}

	return v, nil
}

// View renders the persona picker view.
func (v *View) View() string {
	var b strings.Builder

	// Title
	b.WriteString(v.styles.Title.Render("Fabula"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Choose a persona to start a story session."))
	b.WriteString("\n\n")

	// Loading state
	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading personas..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Error state
	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Empty state
	if v.list.IsEmpty() {
		b.WriteString(v.styles.Muted.Render("No personas stored."))
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Run 'fabula personas create <id>' to add one."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Persona list
	b.WriteString(v.list.View())
	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[enter] start session  [r] reload  [?] help  [q] quit")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, height-8)
}

// Personas returns the current list of personas.
func (v *View) Personas() []domain.Persona {
	return v.list.Personas()
}

// SelectedIndex returns the currently selected persona index.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading returns whether personas are being loaded.
func (v *View) Loading() bool {
	return v.loading
}
