package connectors

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// DescriptorFile is the per-persona descriptor filename. Every persona
// source looks for this file inside a persona directory.
const DescriptorFile = "persona.toml"

// Descriptor mirrors a persona.toml file.
type Descriptor struct {
	DisplayName string            `toml:"display_name"`
	Document    string            `toml:"document"`
	Style       DescriptorStyle   `toml:"style"`
	Params      *DescriptorParams `toml:"params"`
}

// DescriptorStyle mirrors the [style] table.
type DescriptorStyle struct {
	Genre string `toml:"genre"`
	Voice string `toml:"voice"`
	Tone  string `toml:"tone"`
}

// DescriptorParams mirrors the optional [params] table. Pointer fields
// distinguish "absent" from zero so partial overrides shadow only the
// values they name.
type DescriptorParams struct {
	Temperature      *float64 `toml:"temperature"`
	TopP             *float64 `toml:"top_p"`
	TopK             *int     `toml:"top_k"`
	MaxOutputTokens  *int     `toml:"max_output_tokens"`
	PresencePenalty  *float64 `toml:"presence_penalty"`
	FrequencyPenalty *float64 `toml:"frequency_penalty"`
}

// ParseDescriptor decodes and validates a persona.toml document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var desc Descriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DescriptorFile, err)
	}
	if desc.DisplayName == "" {
		return nil, fmt.Errorf("%w: %s has no display_name", domain.ErrInvalidInput, DescriptorFile)
	}
	return &desc, nil
}

// Definition builds a persona definition from the descriptor plus the
// normalised document text.
func (d *Descriptor) Definition(id, document string) domain.PersonaDefinition {
	return domain.PersonaDefinition{
		ID:          id,
		DisplayName: d.DisplayName,
		Document:    document,
		Style: domain.StyleDirectives{
			Genre: d.Style.Genre,
			Voice: domain.NarrativeVoice(d.Style.Voice),
			Tone:  domain.DialogueTone(d.Style.Tone),
		},
		Params: d.Params.merge(),
	}
}

// merge produces generation parameters from the optional override table:
// platform defaults with the named values shadowed. A nil table means the
// persona carries no overrides at all.
func (p *DescriptorParams) merge() *domain.GenerationParams {
	if p == nil {
		return nil
	}
	params := domain.DefaultGenerationParams()
	if p.Temperature != nil {
		params.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		params.TopP = *p.TopP
	}
	if p.TopK != nil {
		params.TopK = *p.TopK
	}
	if p.MaxOutputTokens != nil {
		params.MaxOutputTokens = *p.MaxOutputTokens
	}
	if p.PresencePenalty != nil {
		params.PresencePenalty = *p.PresencePenalty
	}
	if p.FrequencyPenalty != nil {
		params.FrequencyPenalty = *p.FrequencyPenalty
	}
	return &params
}

// IsDocumentFile reports whether a filename is a supported persona
// reference document.
func IsDocumentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt", ".text":
		return true
	}
	return false
}
