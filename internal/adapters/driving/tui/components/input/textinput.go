// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
)

// IdeaInput wraps a bubbles textinput for one-line story ideas.
type IdeaInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewIdeaInput creates a new idea input component.
func NewIdeaInput(s *styles.Styles) *IdeaInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Enter a story idea..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &IdeaInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the idea input.
func (s *IdeaInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (s *IdeaInput) Update(msg tea.Msg) (*IdeaInput, tea.Cmd) {
	var cmd tea.Cmd
	s.textinput, cmd = s.textinput.Update(msg)
	return s, cmd
}

// View renders the idea input.
func (s *IdeaInput) View() string {
	label := s.styles.Title.Render("Idea: ")
	input := s.styles.InputField.Render(s.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, input)
}

// Value returns the current input value.
func (s *IdeaInput) Value() string {
	return s.textinput.Value()
}

// SetValue sets the input value.
func (s *IdeaInput) SetValue(value string) {
	s.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (s *IdeaInput) Focus() tea.Cmd {
	return s.textinput.Focus()
}

// Blur removes focus from the input.
func (s *IdeaInput) Blur() {
	s.textinput.Blur()
}

// Focused returns whether the input is focused.
func (s *IdeaInput) Focused() bool {
	return s.textinput.Focused()
}

// SetWidth sets the width of the input.
func (s *IdeaInput) SetWidth(width int) {
	s.width = width
	// Account for label and padding
	inputWidth := width - 10
	if inputWidth < 20 {
		inputWidth = 20
	}
	s.textinput.Width = inputWidth
}

// Width returns the current width.
func (s *IdeaInput) Width() int {
	return s.width
}

// Reset clears the input.
func (s *IdeaInput) Reset() {
	s.textinput.Reset()
}
