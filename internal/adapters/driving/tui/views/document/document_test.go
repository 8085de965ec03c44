package document

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fabula/internal/core/domain"
)

func testPersona() *domain.Persona {
	return &domain.Persona{
		ID:          "himu",
		DisplayName: "Himu",
		Document:    "Himu walks barefoot through Dhaka.\nHe wears a yellow panjabi.",
	}
}

func TestNewView(t *testing.T) {
	s := styles.DefaultStyles()

	view := NewView(s)

	require.NotNil(t, view)
	assert.Nil(t, view.Persona())
	assert.Empty(t, view.Lines())
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
}

func TestView_Init(t *testing.T) {
	view := NewView(nil)

	cmd := view.Init()

	assert.Nil(t, cmd)
}

func TestView_SetPersona(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)

	view.SetPersona(testPersona())

	require.NotNil(t, view.Persona())
	assert.Equal(t, "himu", view.Persona().ID)
	assert.Len(t, view.Lines(), 2)
}

func TestView_SetPersona_ResetsScroll(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)
	view.scrollOffset = 5

	view.SetPersona(testPersona())

	assert.Equal(t, 0, view.scrollOffset)
}

func TestView_SetPersona_WrapsLongLines(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(44, 24) // Content width 40

	view.SetPersona(&domain.Persona{
		ID:       "long",
		Document: strings.Repeat("a", 100),
	})

	require.Len(t, view.Lines(), 3)
	assert.Len(t, view.Lines()[0], 40)
	assert.Len(t, view.Lines()[2], 20)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil)

	msg := tea.WindowSizeMsg{Width: 100, Height: 40}
	updated, cmd := view.Update(msg)

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
	assert.Equal(t, 40, view.height)
}

func TestView_Update_WindowSize_Rewraps(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(104, 24)
	view.SetPersona(&domain.Persona{ID: "long", Document: strings.Repeat("a", 100)})
	assert.Len(t, view.Lines(), 1)

	view.Update(tea.WindowSizeMsg{Width: 54, Height: 24})

	assert.Len(t, view.Lines(), 2)
}

func TestView_Scroll(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 10) // 4 visible lines
	view.SetPersona(&domain.Persona{
		ID:       "long",
		Document: strings.TrimSuffix(strings.Repeat("line\n", 20), "\n"),
	})

	// Down one line
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, view.scrollOffset)

	// Up one line
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, view.scrollOffset)

	// Up at top stays put
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.scrollOffset)

	// Jump to bottom
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, view.maxScrollOffset(), view.scrollOffset)

	// Down at bottom stays put
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, view.maxScrollOffset(), view.scrollOffset)

	// Jump back to top
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, view.scrollOffset)
}

func TestView_Scroll_PageKeys(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 10) // 4 visible lines
	view.SetPersona(&domain.Persona{
		ID:       "long",
		Document: strings.TrimSuffix(strings.Repeat("line\n", 20), "\n"),
	})

	view.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 4, view.scrollOffset)

	view.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, view.scrollOffset)
}

func TestView_Update_Esc_ReturnsToSession(t *testing.T) {
	view := NewView(nil)
	view.SetPersona(testPersona())

	msg := tea.KeyMsg{Type: tea.KeyEsc}
	_, cmd := view.Update(msg)

	require.NotNil(t, cmd)
	result := cmd()
	changed, ok := result.(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewSession, changed.View)
}

func TestView_View_Empty(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)

	output := view.View()

	assert.Contains(t, output, "Reference Document")
	assert.Contains(t, output, "(No document)")
}

func TestView_View_WithDocument(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)
	view.SetPersona(testPersona())

	output := view.View()

	assert.Contains(t, output, "Himu - Reference Document")
	assert.Contains(t, output, "barefoot through Dhaka")
	assert.Contains(t, output, "yellow panjabi")
}

func TestView_View_ScrollIndicator(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 10)
	view.SetPersona(&domain.Persona{
		ID:       "long",
		Document: strings.TrimSuffix(strings.Repeat("line\n", 20), "\n"),
	})

	output := view.View()

	assert.Contains(t, output, "Line 1-4 of 20")
}

func TestView_View_NamelessPersona(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)
	view.SetPersona(&domain.Persona{ID: "unnamed", Document: "text"})

	output := view.View()

	// Falls back to the persona ID when no display name is set
	assert.Contains(t, output, "unnamed - Reference Document")
}

func TestView_View_ShowsHelp(t *testing.T) {
	view := NewView(nil)
	view.SetDimensions(80, 24)

	output := view.View()

	assert.Contains(t, output, "scroll")
	assert.Contains(t, output, "back")
}

func TestView_SetDimensions(t *testing.T) {
	view := NewView(nil)

	view.SetDimensions(100, 50)

	assert.Equal(t, 100, view.width)
	assert.Equal(t, 50, view.height)
	assert.True(t, view.ready)
}
