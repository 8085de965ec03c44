package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// GenerationParams are the numeric parameters of a text generation call.
// The zero value is not useful; start from DefaultGenerationParams.
type GenerationParams struct {
	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature"`

	// TopP is the nucleus sampling probability mass.
	TopP float64 `json:"top_p"`

	// TopK limits sampling to the K most likely tokens (0 = provider default).
	TopK int `json:"top_k"`

	// MaxOutputTokens bounds the generated output length.
	MaxOutputTokens int `json:"max_output_tokens"`

	// PresencePenalty discourages reusing tokens already present.
	PresencePenalty float64 `json:"presence_penalty,omitempty"`

	// FrequencyPenalty discourages frequent-token repetition.
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
}

// DefaultGenerationParams returns the platform's standard parameters.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 2500,
	}
}

// Fingerprint returns a deterministic hash of the parameters. Equal
// parameters always produce equal fingerprints; the fingerprint is part
// of the response cache key.
func (p GenerationParams) Fingerprint() string {
	canonical := strings.Join([]string{
		"fp=" + formatFloat(p.FrequencyPenalty),
		"mt=" + strconv.Itoa(p.MaxOutputTokens),
		"pp=" + formatFloat(p.PresencePenalty),
		"t=" + formatFloat(p.Temperature),
		"tk=" + strconv.Itoa(p.TopK),
		"tp=" + formatFloat(p.TopP),
	}, ";")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NormalizeIdea canonicalises a story idea for cache-key purposes:
// lower-cased, trimmed, internal whitespace collapsed to single spaces.
func NormalizeIdea(idea string) string {
	return strings.Join(strings.Fields(strings.ToLower(idea)), " ")
}

// CacheKey derives the response cache key for a generation request.
// Requests that differ only in idea whitespace or letter case share a key.
func CacheKey(personaID, idea string, params GenerationParams) string {
	return personaID + "\n" + NormalizeIdea(idea) + "\n" + params.Fingerprint()
}

// GenerationRequest is the immutable, fully assembled input to the
// generation client. Built fresh per call; never mutated afterwards.
type GenerationRequest struct {
	// PersonaID is the persona the request was assembled for.
	PersonaID string

	// Idea is the user's story idea, verbatim.
	Idea string

	// Context holds the retrieved chunk texts in final rank order.
	Context []string

	// Style are the persona's directives as injected into the prompt.
	Style StyleDirectives

	// Params are the generation parameters.
	Params GenerationParams

	// Blocked lists the safety categories rendered as negative constraints.
	Blocked []SafetyCategory

	// Unreranked is true when the context order came from the retriever
	// because the reranker was unavailable.
	Unreranked bool

	// Prompt is the fully rendered prompt text sent to the model.
	Prompt string
}

// ImagePromptMarker introduces the derived image prompt on the final line
// of model output. The assembler instructs the model to emit it; the output
// pipeline splits on it.
const ImagePromptMarker = "IMAGE PROMPT:"

// SplitStoryOutput separates raw model output into story text and the
// marked image prompt. When the marker is absent the whole text is the
// story and the image prompt is empty.
func SplitStoryOutput(raw string) (story, imagePrompt string) {
	before, after, found := strings.Cut(raw, ImagePromptMarker)
	if !found {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

// Degradation tags carried on generation results. Tags mark reduced-quality
// or shortcut paths; they are observability signals, not errors.
const (
	// TagUnreranked marks context ordered by the retriever alone.
	TagUnreranked = "unreranked"

	// TagNoContext marks generation without any retrieved context.
	TagNoContext = "no_context"

	// TagEstimatedTokens marks token counts estimated locally because the
	// model response omitted usage figures.
	TagEstimatedTokens = "estimated_tokens"

	// TagFallbackModel marks output produced by the fallback model.
	TagFallbackModel = "fallback_model"

	// TagCacheHit marks a result served from the response cache.
	TagCacheHit = "cache_hit"
)

// GenerationResult is the outcome of a successful story generation.
// The caller owns the value; the core keeps no reference.
type GenerationResult struct {
	// Story is the generated narrative.
	Story string `json:"story"`

	// ImagePrompt is the derived image-generation prompt.
	ImagePrompt string `json:"image_prompt"`

	// ModelName is the model that actually produced the output, which is
	// the fallback model's name when the primary failed over.
	ModelName string `json:"model_name"`

	// InputTokens is the prompt token count.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the completion token count.
	OutputTokens int `json:"output_tokens"`

	// Tags carries degradation markers (see Tag* constants).
	Tags []string `json:"tags,omitempty"`
}

// HasTag reports whether the result carries the given tag.
func (r *GenerationResult) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends a tag if not already present.
func (r *GenerationResult) AddTag(tag string) {
	if !r.HasTag(tag) {
		r.Tags = append(r.Tags, tag)
	}
}

// Clone returns a deep copy, so cached results can be handed out without
// sharing the Tags slice.
func (r *GenerationResult) Clone() *GenerationResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return &out
}

// ImageQuality selects the generation effort tier for images.
type ImageQuality string

// Available image quality tiers.
const (
	// QualityStandard is the fast, default tier.
	QualityStandard ImageQuality = "standard"

	// QualityHigh trades latency for detail.
	QualityHigh ImageQuality = "high"

	// QualityUltra is the slowest, most detailed tier.
	QualityUltra ImageQuality = "ultra"
)

// IsValid returns true if the quality tier is recognised.
func (q ImageQuality) IsValid() bool {
	switch q {
	case QualityStandard, QualityHigh, QualityUltra:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (q ImageQuality) String() string {
	return string(q)
}

// ImageSize selects the output aspect preset for images.
type ImageSize string

// Available image size presets.
const (
	// SizeSquare is 1024x1024.
	SizeSquare ImageSize = "square"

	// SizePortrait is 768x1152.
	SizePortrait ImageSize = "portrait"

	// SizeLandscape is 1152x768.
	SizeLandscape ImageSize = "landscape"
)

// IsValid returns true if the size preset is recognised.
func (s ImageSize) IsValid() bool {
	switch s {
	case SizeSquare, SizePortrait, SizeLandscape:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ImageSize) String() string {
	return string(s)
}

// Dimensions returns the pixel width and height of the preset.
func (s ImageSize) Dimensions() (width, height int) {
	switch s {
	case SizePortrait:
		return 768, 1152
	case SizeLandscape:
		return 1152, 768
	default:
		return 1024, 1024
	}
}

// ImageOptions parameterise an image generation call.
type ImageOptions struct {
	// Quality is the effort tier (default: standard).
	Quality ImageQuality

	// Size is the aspect preset (default: square).
	Size ImageSize
}

// Normalise fills unset options with defaults and rejects unknown values.
func (o *ImageOptions) Normalise() error {
	if o.Quality == "" {
		o.Quality = QualityStandard
	}
	if o.Size == "" {
		o.Size = SizeSquare
	}
	if !o.Quality.IsValid() {
		return fmt.Errorf("%w: image quality %q", ErrInvalidInput, o.Quality)
	}
	if !o.Size.IsValid() {
		return fmt.Errorf("%w: image size %q", ErrInvalidInput, o.Size)
	}
	return nil
}

// Image is a generated image with its provenance.
type Image struct {
	// Data is the encoded image bytes.
	Data []byte

	// MIMEType is the encoding (e.g. "image/jpeg", "image/svg+xml").
	MIMEType string

	// Provider is the provider that produced the image.
	Provider string

	// Width and Height are the pixel dimensions.
	Width  int
	Height int
}
