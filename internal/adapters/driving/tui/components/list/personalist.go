// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fabula/internal/core/domain"
)

// PersonaList displays stored personas in a navigable list.
type PersonaList struct {
	personas []domain.Persona
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewPersonaList creates a new persona list component.
func NewPersonaList(s *styles.Styles) *PersonaList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &PersonaList{
		personas: nil,
		selected: 0,
		styles:   s,
		width:    80,
		height:   10,
	}
}

// Init initialises the persona list.
func (r *PersonaList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *PersonaList) Update(msg tea.Msg) (*PersonaList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			r.MoveUp()
		case tea.KeyDown:
			r.MoveDown()
		default:
			// Handle other keys
		}
		switch msg.String() {
		case "k":
			r.MoveUp()
		case "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the persona list.
func (r *PersonaList) View() string {
	if len(r.personas) == 0 {
		return r.styles.Muted.Render("No personas")
	}

	lines := make([]string, 0, len(r.personas)*2+2)

	// Header
	header := r.styles.Subtitle.Render(fmt.Sprintf("Personas (%d)", len(r.personas)))
	lines = append(lines, header, "")

	// Calculate visible range based on height
	// Each persona takes 2 lines (name + style), so divide by 2
	visibleCount := (r.height - 4) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.personas) {
		end = len(r.personas)
	}

	for i := start; i < end; i++ {
		line := r.renderPersona(i, &r.personas[i])
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// renderPersona formats a single persona with its style summary.
func (r *PersonaList) renderPersona(index int, persona *domain.Persona) string {
	// Indicator for selected item
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	name := persona.DisplayName
	if name == "" {
		name = persona.ID
	}
	title := fmt.Sprintf("%s (%s)", name, persona.ID)

	// Truncate title if too long
	maxTitleLen := r.width - 6
	if maxTitleLen < 10 {
		maxTitleLen = 10
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(indicator + title)
	} else {
		titleLine = r.styles.Normal.Render(indicator + title)
	}

	// Style summary with usage counter
	summary := describeStyle(persona.Style)
	if persona.UsageCount > 0 {
		summary = fmt.Sprintf("%s, used %d times", summary, persona.UsageCount)
	}

	maxSummaryLen := r.width - 6
	if maxSummaryLen < 20 {
		maxSummaryLen = 20
	}
	if len(summary) > maxSummaryLen {
		summary = summary[:maxSummaryLen-3] + "..."
	}

	summaryLine := r.styles.Muted.Render("    " + summary)

	return titleLine + "\n" + summaryLine
}

// describeStyle summarises a persona's style directives on one line.
func describeStyle(style domain.StyleDirectives) string {
	parts := make([]string, 0, 3)
	if style.Genre != "" {
		parts = append(parts, style.Genre)
	}
	parts = append(parts, string(style.Voice), string(style.Tone))
	return strings.Join(parts, ", ")
}

// SetPersonas updates the persona list.
func (r *PersonaList) SetPersonas(personas []domain.Persona) {
	r.personas = personas
	r.selected = 0
}

// Personas returns the current personas.
func (r *PersonaList) Personas() []domain.Persona {
	return r.personas
}

// Selected returns the index of the selected persona.
func (r *PersonaList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *PersonaList) SetSelected(index int) {
	if index >= 0 && index < len(r.personas) {
		r.selected = index
	}
}

// SelectedPersona returns the currently selected persona, or nil if none.
func (r *PersonaList) SelectedPersona() *domain.Persona {
	if len(r.personas) == 0 || r.selected < 0 || r.selected >= len(r.personas) {
		return nil
	}
	return &r.personas[r.selected]
}

// MoveUp moves selection up.
func (r *PersonaList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *PersonaList) MoveDown() {
	if r.selected < len(r.personas)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *PersonaList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *PersonaList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *PersonaList) Height() int {
	return r.height
}

// Count returns the number of personas.
func (r *PersonaList) Count() int {
	return len(r.personas)
}

// IsEmpty returns whether the list is empty.
func (r *PersonaList) IsEmpty() bool {
	return len(r.personas) == 0
}
