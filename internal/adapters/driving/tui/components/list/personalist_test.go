package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fabula/internal/core/domain"
)

func samplePersonas() []domain.Persona {
	return []domain.Persona{
		{
			ID:          "himu",
			DisplayName: "Himu",
			Style: domain.StyleDirectives{
				Genre: "mystery",
				Voice: domain.VoiceFirstPerson,
				Tone:  domain.ToneCasual,
			},
			UsageCount: 7,
		},
		{
			ID:          "misir-ali",
			DisplayName: "Misir Ali",
			Style: domain.StyleDirectives{
				Genre: "psychological",
				Voice: domain.VoiceThirdPerson,
				Tone:  domain.ToneFormal,
			},
		},
		{
			ID:          "baker-street",
			DisplayName: "Baker Street",
			Style: domain.StyleDirectives{
				Voice: domain.VoiceThirdPerson,
				Tone:  domain.ToneNatural,
			},
		},
	}
}

func TestNewPersonaList(t *testing.T) {
	s := styles.DefaultStyles()
	list := NewPersonaList(s)

	require.NotNil(t, list)
	assert.Equal(t, 0, list.Selected())
	assert.True(t, list.IsEmpty())
}

func TestNewPersonaList_NilStyles(t *testing.T) {
	list := NewPersonaList(nil)

	require.NotNil(t, list)
	assert.NotNil(t, list.styles)
}

func TestPersonaList_Init(t *testing.T) {
	list := NewPersonaList(nil)

	cmd := list.Init()

	assert.Nil(t, cmd)
}

func TestPersonaList_SetPersonas(t *testing.T) {
	list := NewPersonaList(nil)
	personas := samplePersonas()

	list.SetPersonas(personas)

	assert.Equal(t, 3, list.Count())
	assert.False(t, list.IsEmpty())
	assert.Equal(t, 0, list.Selected())
}

func TestPersonaList_SetPersonas_ResetsSelection(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())
	list.SetSelected(2)

	list.SetPersonas(samplePersonas())

	assert.Equal(t, 0, list.Selected())
}

func TestPersonaList_Personas(t *testing.T) {
	list := NewPersonaList(nil)
	personas := samplePersonas()
	list.SetPersonas(personas)

	got := list.Personas()

	assert.Equal(t, personas, got)
}

func TestPersonaList_Selected(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	assert.Equal(t, 0, list.Selected())

	list.SetSelected(1)
	assert.Equal(t, 1, list.Selected())
}

func TestPersonaList_SetSelected_OutOfBounds(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	list.SetSelected(99)

	assert.Equal(t, 0, list.Selected()) // Unchanged
}

func TestPersonaList_SetSelected_Negative(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	list.SetSelected(-1)

	assert.Equal(t, 0, list.Selected()) // Unchanged
}

func TestPersonaList_SelectedPersona(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	persona := list.SelectedPersona()

	require.NotNil(t, persona)
	assert.Equal(t, "himu", persona.ID)
}

func TestPersonaList_SelectedPersona_Empty(t *testing.T) {
	list := NewPersonaList(nil)

	persona := list.SelectedPersona()

	assert.Nil(t, persona)
}

func TestPersonaList_MoveUp(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())
	list.SetSelected(1)

	list.MoveUp()

	assert.Equal(t, 0, list.Selected())
}

func TestPersonaList_MoveUp_AtTop(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	list.MoveUp()

	assert.Equal(t, 0, list.Selected()) // Stays at 0
}

func TestPersonaList_MoveDown(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	list.MoveDown()

	assert.Equal(t, 1, list.Selected())
}

func TestPersonaList_MoveDown_AtBottom(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())
	list.SetSelected(2)

	list.MoveDown()

	assert.Equal(t, 2, list.Selected()) // Stays at 2
}

func TestPersonaList_Update_KeyUp(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())
	list.SetSelected(1)

	msg := tea.KeyMsg{Type: tea.KeyUp}
	updated, cmd := list.Update(msg)

	assert.Equal(t, list, updated)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, list.Selected())
}

func TestPersonaList_Update_KeyDown(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	msg := tea.KeyMsg{Type: tea.KeyDown}
	updated, cmd := list.Update(msg)

	assert.Equal(t, list, updated)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, list.Selected())
}

func TestPersonaList_Update_KeyK(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())
	list.SetSelected(1)

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
	list.Update(msg)

	assert.Equal(t, 0, list.Selected())
}

func TestPersonaList_Update_KeyJ(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	list.Update(msg)

	assert.Equal(t, 1, list.Selected())
}

func TestPersonaList_View_Empty(t *testing.T) {
	list := NewPersonaList(nil)

	view := list.View()

	assert.Contains(t, view, "No personas")
}

func TestPersonaList_View_WithPersonas(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	view := list.View()

	assert.Contains(t, view, "Personas (3)")
	assert.Contains(t, view, "Himu (himu)")
	assert.Contains(t, view, "mystery")
}

func TestPersonaList_View_SelectedIndicator(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	view := list.View()

	assert.Contains(t, view, ">") // Selected indicator
}

func TestPersonaList_View_ShowsUsageCount(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())

	view := list.View()

	assert.Contains(t, view, "used 7 times")
}

func TestPersonaList_View_StyleSummary(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas(samplePersonas())
	list.SetDimensions(120, 20)

	view := list.View()

	assert.Contains(t, view, "mystery, first_person, casual")
}

func TestPersonaList_SetDimensions(t *testing.T) {
	list := NewPersonaList(nil)

	list.SetDimensions(100, 20)

	assert.Equal(t, 100, list.Width())
	assert.Equal(t, 20, list.Height())
}

func TestPersonaList_Width(t *testing.T) {
	list := NewPersonaList(nil)

	assert.Equal(t, 80, list.Width()) // Default
}

func TestPersonaList_Height(t *testing.T) {
	list := NewPersonaList(nil)

	assert.Equal(t, 10, list.Height()) // Default
}

func TestPersonaList_Count(t *testing.T) {
	list := NewPersonaList(nil)

	assert.Equal(t, 0, list.Count())

	list.SetPersonas(samplePersonas())
	assert.Equal(t, 3, list.Count())
}

func TestPersonaList_IsEmpty(t *testing.T) {
	list := NewPersonaList(nil)

	assert.True(t, list.IsEmpty())

	list.SetPersonas(samplePersonas())
	assert.False(t, list.IsEmpty())
}

func TestPersonaList_View_NamelessPersona(t *testing.T) {
	list := NewPersonaList(nil)
	list.SetPersonas([]domain.Persona{
		{ID: "unnamed", Style: domain.StyleDirectives{Voice: domain.VoiceThirdPerson, Tone: domain.ToneNatural}},
	})

	view := list.View()

	// Falls back to the persona ID when no display name is set
	assert.Contains(t, view, "unnamed (unnamed)")
}

func TestPersonaList_View_LongName(t *testing.T) {
	list := NewPersonaList(nil)
	longName := "A very long persona display name that should be truncated when rendered in the list"
	list.SetPersonas([]domain.Persona{
		{ID: "long", DisplayName: longName},
	})

	view := list.View()

	// Should be truncated with ellipsis
	assert.Contains(t, view, "...")
}

func TestDescribeStyle(t *testing.T) {
	style := domain.StyleDirectives{
		Genre: "mystery",
		Voice: domain.VoiceFirstPerson,
		Tone:  domain.ToneCasual,
	}

	assert.Equal(t, "mystery, first_person, casual", describeStyle(style))
}

func TestDescribeStyle_NoGenre(t *testing.T) {
	style := domain.StyleDirectives{
		Voice: domain.VoiceThirdPerson,
		Tone:  domain.ToneFormal,
	}

	assert.Equal(t, "third_person, formal", describeStyle(style))
}
