// Package plaintext provides the fallback normaliser for plain text files.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text persona documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts file content into plain reference text: the UTF-8 BOM
// is dropped, invalid byte sequences are removed, and line endings are
// normalised to \n.
func (n *Normaliser) Normalise(_ context.Context, _ string, data []byte) (string, error) {
	text := string(data)
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}
