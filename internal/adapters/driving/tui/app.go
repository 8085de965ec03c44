package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/views/document"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/views/personas"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/views/session"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// personasView is the persona picker.
	personasView *personas.View

	// sessionView is the story session view.
	sessionView *session.View

	// documentView shows a persona's reference document.
	documentView *document.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// helpReturn is the view to return to when leaving help.
	helpReturn messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	personasView := personas.NewView(s, ports.Personas)
	sessionView := session.NewView(s, nil, ports.Agent)
	documentView := document.NewView(s)

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		personasView: personasView,
		sessionView:  sessionView,
		documentView: documentView,
		currentView:  messages.ViewPersonas, // Start with the picker
		helpReturn:   messages.ViewPersonas,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.sessionView.WithContext(ctx)
	return a
}

// SetPersona pre-selects a persona so the session opens immediately,
// skipping the picker.
func (a *App) SetPersona(personaID string) {
	a.sessionView.SetPersona(personaID)
	a.currentView = messages.ViewSession
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tea.SetWindowTitle("fabula - Story Sessions"),
	}

	switch a.currentView {
	case messages.ViewSession:
		cmds = append(cmds, a.sessionView.Init())
	case messages.ViewPersonas, messages.ViewDocument, messages.ViewHelp:
		cmds = append(cmds, a.personasView.Init())
	}

	return tea.Batch(cmds...)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocognit,gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		// Forward to all views for proper sizing
		a.personasView.SetDimensions(msg.Width, msg.Height)
		a.sessionView.SetDimensions(msg.Width, msg.Height)
		a.documentView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Forward key messages to active view
		switch a.currentView {
		case messages.ViewPersonas:
			if msg.String() == "?" {
				a.helpReturn = a.currentView
				a.currentView = messages.ViewHelp
				return a, nil
			}
			if msg.Type == tea.KeyEsc {
				return a, tea.Quit
			}
			a.personasView, cmd = a.personasView.Update(msg)
			return a, cmd

		case messages.ViewSession:
			if msg.String() == "?" && !a.sessionView.InputFocused() {
				a.helpReturn = a.currentView
				a.currentView = messages.ViewHelp
				return a, nil
			}
			a.sessionView, cmd = a.sessionView.Update(msg)
			a.err = a.sessionView.Err()
			return a, cmd

		case messages.ViewDocument:
			a.documentView, cmd = a.documentView.Update(msg)
			return a, cmd

		case messages.ViewHelp:
			// Esc from help returns to the previous view
			if msg.Type == tea.KeyEsc {
				a.currentView = a.helpReturn
				return a, nil
			}
			return a, nil
		}
		return a, nil

	case messages.PersonasLoaded:
		a.personasView, cmd = a.personasView.Update(msg)
		return a, cmd

	case messages.PersonaSelected:
		// Navigate from picker to a session for the chosen persona
		a.sessionView.SetPersona(msg.PersonaID)
		a.currentView = messages.ViewSession
		return a, a.sessionView.Init()

	case messages.PersonaLoaded, messages.StoryCompleted:
		a.sessionView, cmd = a.sessionView.Update(msg)
		a.err = a.sessionView.Err()
		return a, cmd

	case messages.DocumentRequested:
		a.documentView.SetPersona(msg.Persona)
		a.currentView = messages.ViewDocument
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		// Initialise views when switching to them
		switch msg.View {
		case messages.ViewPersonas:
			return a, a.personasView.Init()
		case messages.ViewSession, messages.ViewDocument, messages.ViewHelp:
			// Other views don't need special initialisation
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		// Forward to current view
		switch a.currentView {
		case messages.ViewSession:
			a.sessionView, cmd = a.sessionView.Update(msg)
		case messages.ViewPersonas, messages.ViewDocument, messages.ViewHelp:
			// Other views don't handle error messages
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages to active view
	switch a.currentView {
	case messages.ViewPersonas:
		a.personasView, cmd = a.personasView.Update(msg)
	case messages.ViewSession:
		a.sessionView, cmd = a.sessionView.Update(msg)
	case messages.ViewDocument:
		a.documentView, cmd = a.documentView.Update(msg)
	case messages.ViewHelp:
		// Help view doesn't need to handle other messages
	}

	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewPersonas:
		return a.personasView.View()
	case messages.ViewSession:
		return a.sessionView.View()
	case messages.ViewDocument:
		return a.documentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.personasView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back
  ctrl+c      Quit

Personas:
  j/k, ↑/↓    Navigate personas
  enter       Start story session
  r           Reload

Session:
  (type)      Enter a story idea
  enter       Generate
  esc         Back to personas

Story:
  j/k, ↑/↓    Scroll story
  n           New idea
  d           View reference document
  esc         Back to personas

[esc] back`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.personasView.SetDimensions(width, height)
	a.sessionView.SetDimensions(width, height)
	a.documentView.SetDimensions(width, height)
}
