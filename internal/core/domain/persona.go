package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// personaIDPattern constrains persona identifiers to stable slug form.
var personaIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Persona is a named character profile: a reference document plus the
// style directives that shape generated stories.
type Persona struct {
	// ID is the unique, stable identifier (slug form, e.g. "himu").
	ID string `json:"id"`

	// DisplayName is the human-readable character name.
	DisplayName string `json:"display_name"`

	// Document is the full reference text after normalisation.
	// Empty on listings that omit document bodies.
	Document string `json:"document,omitempty"`

	// DocVersion is the sha256 hex of Document. Index reuse is keyed by
	// (ID, DocVersion); any document edit changes the version and forces
	// a full rebuild.
	DocVersion string `json:"doc_version"`

	// Style holds the persona's story-shaping directives.
	Style StyleDirectives `json:"style"`

	// Params optionally overrides the global generation parameters.
	Params *GenerationParams `json:"params,omitempty"`

	// CreatedAt is when the persona was first stored.
	CreatedAt time.Time `json:"created_at"`

	// UsageCount is the number of successful generations for this persona.
	UsageCount int64 `json:"usage_count"`

	// LastUsedAt is the time of the most recent successful generation.
	LastUsedAt time.Time `json:"last_used_at"`
}

// Validate checks the persona is well-formed enough to store and index.
func (p *Persona) Validate() error {
	if !ValidPersonaID(p.ID) {
		return fmt.Errorf("%w: persona id %q", ErrInvalidInput, p.ID)
	}
	if p.DisplayName == "" {
		return fmt.Errorf("%w: persona %q has no display name", ErrInvalidInput, p.ID)
	}
	if err := p.Style.Validate(); err != nil {
		return fmt.Errorf("persona %q: %w", p.ID, err)
	}
	return nil
}

// SetDocument stores the reference text and recomputes DocVersion.
func (p *Persona) SetDocument(text string) {
	p.Document = text
	p.DocVersion = DocumentVersion(text)
}

// ValidPersonaID reports whether id is an acceptable persona identifier.
func ValidPersonaID(id string) bool {
	return id != "" && len(id) <= 64 && personaIDPattern.MatchString(id)
}

// DocumentVersion computes the content version for a reference document.
func DocumentVersion(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// PersonaDefinition is a persona as described by a source (a persona
// directory on disk, a pack in a repository) before it is stored.
type PersonaDefinition struct {
	// ID is the persona identifier derived from the source.
	ID string

	// DisplayName is the human-readable name.
	DisplayName string

	// Document is the raw reference text.
	Document string

	// Style holds the declared style directives.
	Style StyleDirectives

	// Params optionally overrides generation parameters for this persona.
	Params *GenerationParams
}

// PersonaEvent signals that a persona's source definition changed.
type PersonaEvent struct {
	// Type is the kind of change.
	Type ChangeType

	// PersonaID is the affected persona.
	PersonaID string
}

// ChangeType represents the type of persona source change.
type ChangeType int

const (
	// ChangeCreated indicates a new persona definition.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified persona definition.
	ChangeUpdated

	// ChangeDeleted indicates a removed persona definition.
	ChangeDeleted
)

// NarrativeVoice selects the grammatical person of the narration.
type NarrativeVoice string

// Available narrative voices.
const (
	// VoiceFirstPerson narrates as the character ("I").
	VoiceFirstPerson NarrativeVoice = "first_person"

	// VoiceThirdPerson narrates about the character ("he/she/they").
	VoiceThirdPerson NarrativeVoice = "third_person"

	// VoiceMixed allows the narration to shift perspective.
	VoiceMixed NarrativeVoice = "mixed"
)

// IsValid returns true if the narrative voice is recognised.
func (v NarrativeVoice) IsValid() bool {
	switch v {
	case VoiceFirstPerson, VoiceThirdPerson, VoiceMixed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (v NarrativeVoice) String() string {
	return string(v)
}

// Directive returns the instruction sentence injected into prompts.
// The mapping is fixed: assembly must be deterministic.
func (v NarrativeVoice) Directive() string {
	switch v {
	case VoiceFirstPerson:
		return "Narrate in the first person, from the character's own point of view."
	case VoiceThirdPerson:
		return "Narrate in the third person, observing the character from outside."
	case VoiceMixed:
		return "Narrate primarily in the third person, shifting into the character's inner voice where it serves the story."
	default:
		return ""
	}
}

// DialogueTone selects the register of spoken dialogue.
type DialogueTone string

// Available dialogue tones.
const (
	// ToneFormal produces measured, literary dialogue.
	ToneFormal DialogueTone = "formal"

	// ToneNatural produces everyday conversational dialogue.
	ToneNatural DialogueTone = "natural"

	// ToneCasual produces loose, colloquial dialogue.
	ToneCasual DialogueTone = "casual"
)

// IsValid returns true if the dialogue tone is recognised.
func (t DialogueTone) IsValid() bool {
	switch t {
	case ToneFormal, ToneNatural, ToneCasual:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DialogueTone) String() string {
	return string(t)
}

// Directive returns the instruction sentence injected into prompts.
func (t DialogueTone) Directive() string {
	switch t {
	case ToneFormal:
		return "Write dialogue in a formal, literary register."
	case ToneNatural:
		return "Write dialogue the way people actually speak, plain and unforced."
	case ToneCasual:
		return "Write dialogue loosely and colloquially, with contractions and informal phrasing."
	default:
		return ""
	}
}

// StyleDirectives are the closed set of story-shaping options a persona
// carries. Unset voice/tone fall back to defaults at validation time.
type StyleDirectives struct {
	// Genre is a free-text genre hint (e.g. "detective fiction").
	Genre string `json:"genre,omitempty"`

	// Voice is the narrative voice.
	Voice NarrativeVoice `json:"voice"`

	// Tone is the dialogue tone.
	Tone DialogueTone `json:"tone"`
}

// Validate checks the enumerated directives, defaulting unset values.
func (s *StyleDirectives) Validate() error {
	if s.Voice == "" {
		s.Voice = VoiceThirdPerson
	}
	if s.Tone == "" {
		s.Tone = ToneNatural
	}
	if !s.Voice.IsValid() {
		return fmt.Errorf("%w: narrative voice %q", ErrInvalidInput, s.Voice)
	}
	if !s.Tone.IsValid() {
		return fmt.Errorf("%w: dialogue tone %q", ErrInvalidInput, s.Tone)
	}
	return nil
}

// Sentences renders the directives as ordered instruction lines.
func (s StyleDirectives) Sentences() []string {
	lines := make([]string, 0, 3)
	if g := strings.TrimSpace(s.Genre); g != "" {
		lines = append(lines, fmt.Sprintf("Write in the %s genre.", g))
	}
	if d := s.Voice.Directive(); d != "" {
		lines = append(lines, d)
	}
	if d := s.Tone.Directive(); d != "" {
		lines = append(lines, d)
	}
	return lines
}
