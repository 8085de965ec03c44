// Package session provides the story session view for the TUI.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// View represents the story session view with idea input, story display,
// and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.IdeaInput
	statusbar *status.Bar
	spin      spinner.Model

	agent driving.StoryAgent
	ctx   context.Context

	personaID string
	session   *domain.Session
	persona   *domain.Persona

	result       *domain.GenerationResult
	storyLines   []string
	scrollOffset int

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = story mode (scrolling)
	loading    bool // persona load in flight
	generating bool // generation in flight
}

// NewView creates a new story session view.
func NewView(s *styles.Styles, km *keymap.KeyMap, agent driving.StoryAgent) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewIdeaInput(s),
		statusbar:  status.NewBar(s, km),
		spin:       sp,
		agent:      agent,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		ready:      false,
		focusInput: true, // Start in input mode
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetPersona targets the view at a persona. The persona is loaded when the
// view initialises.
func (v *View) SetPersona(personaID string) {
	v.personaID = personaID
	v.persona = nil
	v.session = nil
	v.Reset()
}

// Init initialises the view and loads the target persona.
func (v *View) Init() tea.Cmd {
	cmds := []tea.Cmd{v.input.Init()}
	if v.personaID != "" && v.persona == nil {
		v.loading = true
		cmds = append(cmds, v.spin.Tick, v.loadPersona())
	}
	return tea.Batch(cmds...)
}

// loadPersona opens a session and loads the persona into it.
func (v *View) loadPersona() tea.Cmd {
	return func() tea.Msg {
		if v.agent == nil {
			return messages.PersonaLoaded{Err: ErrNoStoryAgent}
		}

		session := v.agent.NewSession()
		if err := v.agent.LoadPersona(v.ctx, session, v.personaID); err != nil {
			return messages.PersonaLoaded{Err: err}
		}
		v.session = session
		return messages.PersonaLoaded{Persona: session.Persona()}
	}
}

// Update handles messages for the session view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		if v.loading || v.generating {
			var cmd tea.Cmd
			v.spin, cmd = v.spin.Update(msg)
			return v, cmd
		}
		return v, nil

	case messages.PersonaLoaded:
		v.handlePersonaLoaded(msg)
		return v, nil

	case messages.StoryCompleted:
		v.handleStoryCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	// Forward to input component
	var inputCmd tea.Cmd
	v.input, inputCmd = v.input.Update(msg)
	if inputCmd != nil {
		cmds = append(cmds, inputCmd)
	}

	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Esc always signals to go back to the persona picker
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewPersonas}
		}
	}

	// Enter in input mode submits the idea
	if msg.Type == tea.KeyEnter && v.focusInput {
		idea := strings.TrimSpace(v.input.Value())
		if idea == "" || v.persona == nil || v.generating {
			return v, nil
		}
		v.generating = true
		v.err = nil
		v.statusbar.SetState(status.StateGenerating)
		v.statusbar.SetMessage("")
		v.focusInput = false // Move to story mode once the story lands
		v.input.Blur()
		return v, tea.Batch(v.spin.Tick, v.performGenerate(idea))
	}

	// Input mode: all keys go to the input
	if v.focusInput {
		v.input, _ = v.input.Update(msg)
		return v, nil
	}

	// Story mode: scrolling and actions
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp:
		v.scrollUp(1)
		return v, nil
	case tea.KeyDown:
		v.scrollDown(1)
		return v, nil
	case tea.KeyPgUp:
		v.scrollUp(v.visibleLines())
		return v, nil
	case tea.KeyPgDown:
		v.scrollDown(v.visibleLines())
		return v, nil
	}

	switch msg.String() {
	case "k":
		v.scrollUp(1)
	case "j":
		v.scrollDown(1)
	case "g":
		v.scrollOffset = 0
	case "G":
		v.scrollOffset = v.maxScrollOffset()
	case "n":
		// New idea: clear input and focus it
		v.focusInput = true
		v.input.Focus()
		v.input.SetValue("")
	case "d":
		// Show the persona's reference document
		if v.persona != nil {
			persona := v.persona
			return v, func() tea.Msg {
				return messages.DocumentRequested{Persona: persona}
			}
		}
	}

	return v, nil
}

// performGenerate runs a generation and delivers the result.
func (v *View) performGenerate(idea string) tea.Cmd {
	return func() tea.Msg {
		if v.agent == nil || v.session == nil {
			return messages.StoryCompleted{Err: ErrNoStoryAgent}
		}

		result, err := v.agent.Generate(v.ctx, v.session, idea, driving.GenerateOptions{})
		return messages.StoryCompleted{Result: result, Err: err}
	}
}

// handlePersonaLoaded processes the persona load outcome.
func (v *View) handlePersonaLoaded(msg messages.PersonaLoaded) {
	v.loading = false
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	v.persona = msg.Persona
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// handleStoryCompleted processes a generation outcome.
func (v *View) handleStoryCompleted(msg messages.StoryCompleted) {
	v.generating = false
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		// Stay in input mode so the idea can be adjusted
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.result = msg.Result
	v.scrollOffset = 0
	v.wrapStory()
	v.statusbar.SetState(status.StateStory)
	v.statusbar.SetMessage(summariseResult(msg.Result))
}

// summariseResult builds the status line for a finished generation.
func summariseResult(r *domain.GenerationResult) string {
	if r == nil {
		return ""
	}

	summary := fmt.Sprintf("%s, %d in / %d out tokens", r.ModelName, r.InputTokens, r.OutputTokens)
	if r.HasTag(domain.TagCacheHit) {
		summary = "cached, " + summary
	}
	return summary
}

// wrapStory wraps the story text to fit the view width.
func (v *View) wrapStory() {
	if v.result == nil || v.result.Story == "" {
		v.storyLines = nil
		return
	}
	v.storyLines = wrapText(v.result.Story, v.contentWidth())
}

// contentWidth returns the usable text width.
func (v *View) contentWidth() int {
	w := v.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// wrapText splits text into lines no wider than width.
func wrapText(text string, width int) []string {
	rawLines := strings.Split(text, "\n")
	lines := make([]string, 0, len(rawLines))

	for _, line := range rawLines {
		if len(line) <= width {
			lines = append(lines, line)
			continue
		}
		for len(line) > width {
			lines = append(lines, line[:width])
			line = line[width:]
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// visibleLines returns the number of story lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for header, input, image prompt, tags, and status bar
	reserved := 12
	available := v.height - reserved
	if available < 3 {
		available = 3
	}
	return available
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	maxOffset := len(v.storyLines) - v.visibleLines()
	if maxOffset < 0 {
		maxOffset = 0
	}
	return maxOffset
}

func (v *View) scrollUp(n int) {
	v.scrollOffset -= n
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

func (v *View) scrollDown(n int) {
	maxOffset := v.maxScrollOffset()
	v.scrollOffset += n
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
}

// View renders the session view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)

	// Header: persona name
	title := "Story Session"
	if v.persona != nil {
		title = v.persona.DisplayName
	}
	sections = append(sections, v.styles.Title.Render(title), "")

	// Idea input
	sections = append(sections, v.input.View(), "")

	// Error display
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	// Progress states
	switch {
	case v.loading:
		sections = append(sections, v.spin.View()+v.styles.Muted.Render(" Loading persona..."))
	case v.generating:
		sections = append(sections, v.spin.View()+v.styles.Muted.Render(" Writing..."))
	case v.result != nil:
		sections = append(sections, v.renderStory())
	default:
		sections = append(sections, v.styles.Muted.Render("Type an idea and press enter."))
	}

	// Status bar at bottom
	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStory renders the story window, image prompt, and tags.
func (v *View) renderStory() string {
	var b strings.Builder

	visible := v.visibleLines()
	end := v.scrollOffset + visible
	if end > len(v.storyLines) {
		end = len(v.storyLines)
	}
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.styles.Normal.Render(v.storyLines[i]))
		b.WriteString("\n")
	}

	// Scroll position indicator
	if len(v.storyLines) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [line %d-%d of %d]",
			v.scrollOffset+1, end, len(v.storyLines))))
		b.WriteString("\n")
	}

	if v.result.ImagePrompt != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Subtitle.Render("Image prompt"))
		b.WriteString("\n")
		for _, line := range wrapText(v.result.ImagePrompt, v.contentWidth()) {
			b.WriteString(v.styles.Muted.Render(line))
			b.WriteString("\n")
		}
	}

	if len(v.result.Tags) > 0 {
		b.WriteString("\n")
		b.WriteString(v.styles.Warning.Render("Tags: " + strings.Join(v.result.Tags, ", ")))
	}

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.wrapStory()
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.result = nil
	v.storyLines = nil
	v.scrollOffset = 0
	v.err = nil
	v.generating = false
	v.loading = false
	v.statusbar.Clear()
}

// PersonaID returns the targeted persona ID.
func (v *View) PersonaID() string {
	return v.personaID
}

// Persona returns the loaded persona, or nil before the load completes.
func (v *View) Persona() *domain.Persona {
	return v.persona
}

// Idea returns the current idea input.
func (v *View) Idea() string {
	return v.input.Value()
}

// Result returns the latest generation result.
func (v *View) Result() *domain.GenerationResult {
	return v.result
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Generating returns whether a generation is in flight.
func (v *View) Generating() bool {
	return v.generating
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}
