package postprocessors

import (
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/postprocessors/imageprompt"
	"github.com/custodia-labs/fabula/internal/postprocessors/whitespace"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("imageprompt", buildImagePrompt)
	r.Register("whitespace", buildWhitespace)
}

// DefaultPipeline builds the standard output pipeline: marker extraction
// first, whitespace cleanup second.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		imageprompt.New(),
		whitespace.New(),
	)
}

// buildImagePrompt creates an image prompt processor from generic config.
// Supported config keys:
//   - marker (string): Line prefix to split on (default: "IMAGE PROMPT:")
func buildImagePrompt(cfg map[string]any) (driven.OutputProcessor, error) {
	var opts []imageprompt.Option

	if cfg != nil {
		if marker := getStringFromConfig(cfg, "marker"); marker != "" {
			opts = append(opts, imageprompt.WithMarker(marker))
		}
	}

	return imageprompt.New(opts...), nil
}

// buildWhitespace creates a whitespace processor from generic config.
// Supported config keys:
//   - max_blank_lines (int): Blank lines kept between paragraphs (default: 1)
func buildWhitespace(cfg map[string]any) (driven.OutputProcessor, error) {
	var opts []whitespace.Option

	if cfg != nil {
		if _, ok := cfg["max_blank_lines"]; ok {
			opts = append(opts, whitespace.WithMaxBlankLines(getIntFromConfig(cfg, "max_blank_lines")))
		}
	}

	return whitespace.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getStringFromConfig safely extracts a string from generic config map.
func getStringFromConfig(cfg map[string]any, key string) string {
	val, ok := cfg[key]
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}
