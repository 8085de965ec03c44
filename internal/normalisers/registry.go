package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/normalisers/markdown"
	"github.com/custodia-labs/fabula/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// fallbackPriority is the band ceiling below which a normaliser counts as
// a fallback for unmatched extensions.
const fallbackPriority = 10

// Registry dispatches persona document files to normalisers by extension.
// When several normalisers claim an extension the highest priority wins;
// unmatched extensions go to the best registered fallback.
type Registry struct {
	byExtension map[string][]driven.Normaliser
	fallback    driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		byExtension: make(map[string][]driven.Normaliser),
	}
}

// DefaultRegistry returns a registry with the built-in normalisers:
// markdown for .md files, plaintext as the fallback.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser, indexing it under each extension it supports.
// Low-priority normalisers also compete for the fallback slot.
func (r *Registry) Register(normaliser driven.Normaliser) {
	for _, ext := range normaliser.SupportedExtensions() {
		ext = strings.ToLower(ext)
		list := append(r.byExtension[ext], normaliser)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byExtension[ext] = list
	}

	if normaliser.Priority() < fallbackPriority {
		if r.fallback == nil || normaliser.Priority() > r.fallback.Priority() {
			r.fallback = normaliser
		}
	}
}

// Normalise converts a file using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, filename string, data []byte) (string, error) {
	normaliser := r.lookup(filename)
	if normaliser == nil {
		return "", fmt.Errorf("no normaliser for file %q", filename)
	}

	text, err := normaliser.Normalise(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("normalise %s: %w", filepath.Base(filename), err)
	}
	return text, nil
}

// SupportedExtensions returns all file extensions that can be normalised,
// sorted for stable output.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// lookup selects the normaliser for a filename, or nil when nothing matches
// and no fallback is registered.
func (r *Registry) lookup(filename string) driven.Normaliser {
	ext := strings.ToLower(filepath.Ext(filename))
	if list := r.byExtension[ext]; len(list) > 0 {
		return list[0]
	}
	return r.fallback
}
