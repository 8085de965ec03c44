package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// TestViewChanged tests the ViewChanged message type
func TestViewChanged(t *testing.T) {
	tests := []struct {
		name string
		view ViewType
	}{
		{"to personas", ViewPersonas},
		{"to session", ViewSession},
		{"to document", ViewDocument},
		{"to help", ViewHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ViewChanged{View: tt.view}
			assert.Equal(t, tt.view, msg.View)
		})
	}
}

// TestViewType_String tests string conversion of view types
func TestViewType_String(t *testing.T) {
	tests := []struct {
		view     ViewType
		expected string
	}{
		{ViewPersonas, "personas"},
		{ViewSession, "session"},
		{ViewDocument, "document"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestPersonasLoaded_WithPersonas(t *testing.T) {
	personas := []domain.Persona{
		{ID: "himu", DisplayName: "Himu"},
		{ID: "watson", DisplayName: "Dr Watson"},
	}
	msg := PersonasLoaded{Personas: personas, Err: nil}

	assert.Len(t, msg.Personas, 2)
	assert.NoError(t, msg.Err)
}

func TestPersonasLoaded_WithError(t *testing.T) {
	err := errors.New("listing failed")
	msg := PersonasLoaded{Personas: nil, Err: err}

	assert.Nil(t, msg.Personas)
	assert.Error(t, msg.Err)
	assert.Equal(t, "listing failed", msg.Err.Error())
}

func TestPersonaSelected(t *testing.T) {
	msg := PersonaSelected{PersonaID: "himu"}

	assert.Equal(t, "himu", msg.PersonaID)
}

func TestPersonaLoaded_Success(t *testing.T) {
	persona := &domain.Persona{ID: "himu", DisplayName: "Himu", Document: "doc"}
	msg := PersonaLoaded{Persona: persona}

	require.NotNil(t, msg.Persona)
	assert.Equal(t, "himu", msg.Persona.ID)
	assert.NoError(t, msg.Err)
}

func TestPersonaLoaded_WithError(t *testing.T) {
	msg := PersonaLoaded{Err: domain.ErrPersonaNotFound}

	assert.Nil(t, msg.Persona)
	assert.ErrorIs(t, msg.Err, domain.ErrPersonaNotFound)
}

func TestStoryCompleted_WithResult(t *testing.T) {
	result := &domain.GenerationResult{
		Story:       "a story",
		ImagePrompt: "a scene",
		ModelName:   "gemini-1.5-flash-latest",
	}
	msg := StoryCompleted{Result: result, Err: nil}

	require.NotNil(t, msg.Result)
	assert.Equal(t, "a story", msg.Result.Story)
	assert.NoError(t, msg.Err)
}

func TestStoryCompleted_WithError(t *testing.T) {
	err := errors.New("generation failed")
	msg := StoryCompleted{Result: nil, Err: err}

	assert.Nil(t, msg.Result)
	assert.Error(t, msg.Err)
	assert.Equal(t, "generation failed", msg.Err.Error())
}

func TestDocumentRequested(t *testing.T) {
	persona := &domain.Persona{ID: "himu", Document: "reference text"}
	msg := DocumentRequested{Persona: persona}

	require.NotNil(t, msg.Persona)
	assert.Equal(t, "reference text", msg.Persona.Document)
}

func TestErrorOccurred(t *testing.T) {
	err := errors.New("something broke")
	msg := ErrorOccurred{Err: err}

	assert.Error(t, msg.Err)
	assert.Equal(t, "something broke", msg.Err.Error())
}

func TestQuit(t *testing.T) {
	// Quit carries no data; constructing it is enough.
	msg := Quit{}
	assert.NotNil(t, msg)
}
