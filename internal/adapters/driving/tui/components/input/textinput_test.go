package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
)

func TestNewIdeaInput(t *testing.T) {
	s := styles.DefaultStyles()
	input := NewIdeaInput(s)

	require.NotNil(t, input)
	assert.Equal(t, "", input.Value())
	assert.True(t, input.Focused())
}

func TestNewIdeaInput_NilStyles(t *testing.T) {
	input := NewIdeaInput(nil)

	require.NotNil(t, input)
	assert.NotNil(t, input.styles)
}

func TestIdeaInput_Init(t *testing.T) {
	input := NewIdeaInput(nil)

	cmd := input.Init()

	// Blink command should be returned
	assert.NotNil(t, cmd)
}

func TestIdeaInput_Update(t *testing.T) {
	input := NewIdeaInput(nil)

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}
	updated, cmd := input.Update(msg)

	assert.Equal(t, input, updated)
	// textinput returns nil cmd for regular key presses
	_ = cmd
	assert.Equal(t, "a", input.Value())
}

func TestIdeaInput_View(t *testing.T) {
	input := NewIdeaInput(nil)

	view := input.View()

	assert.NotEmpty(t, view)
	assert.Contains(t, view, "Idea")
}

func TestIdeaInput_SetValue(t *testing.T) {
	input := NewIdeaInput(nil)

	input.SetValue("a case in an old library")

	assert.Equal(t, "a case in an old library", input.Value())
}

func TestIdeaInput_Focus(t *testing.T) {
	input := NewIdeaInput(nil)
	input.Blur()

	assert.False(t, input.Focused())

	cmd := input.Focus()

	assert.NotNil(t, cmd)
	assert.True(t, input.Focused())
}

func TestIdeaInput_Blur(t *testing.T) {
	input := NewIdeaInput(nil)

	assert.True(t, input.Focused())

	input.Blur()

	assert.False(t, input.Focused())
}

func TestIdeaInput_SetWidth(t *testing.T) {
	input := NewIdeaInput(nil)

	input.SetWidth(100)

	assert.Equal(t, 100, input.Width())
}

func TestIdeaInput_SetWidth_Minimum(t *testing.T) {
	input := NewIdeaInput(nil)

	input.SetWidth(10) // Very small, should use minimum

	assert.Equal(t, 10, input.Width())
	// Internal textinput width should be at least 20
}

func TestIdeaInput_Width(t *testing.T) {
	input := NewIdeaInput(nil)

	assert.Equal(t, 50, input.Width()) // Default width
}

func TestIdeaInput_Reset(t *testing.T) {
	input := NewIdeaInput(nil)
	input.SetValue("some text")

	input.Reset()

	assert.Equal(t, "", input.Value())
}

func TestIdeaInput_Update_MultipleKeys(t *testing.T) {
	input := NewIdeaInput(nil)

	keys := []rune{'h', 'e', 'l', 'l', 'o'}
	for _, k := range keys {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{k}}
		input.Update(msg)
	}

	assert.Equal(t, "hello", input.Value())
}

func TestIdeaInput_Update_Backspace(t *testing.T) {
	input := NewIdeaInput(nil)
	input.SetValue("test")

	msg := tea.KeyMsg{Type: tea.KeyBackspace}
	input.Update(msg)

	assert.Equal(t, "tes", input.Value())
}
