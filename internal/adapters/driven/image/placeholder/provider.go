// Package placeholder provides a local image provider that renders a
// deterministic SVG card. It needs no network and never fails, making it
// the natural last entry in the provider chain.
package placeholder

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.ImageProvider = (*Provider)(nil)

// excerptLimit bounds the prompt excerpt shown on the card, in runes.
const excerptLimit = 80

// Provider renders placeholder cards locally.
type Provider struct{}

// New creates a new placeholder image provider.
func New() *Provider {
	return &Provider{}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "placeholder"
}

// Generate renders an SVG card carrying the prompt excerpt. Identical
// input always yields identical bytes.
func (p *Provider) Generate(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Normalise(); err != nil {
		return nil, err
	}
	width, height := opts.Size.Dimensions()

	svg := renderCard(prompt, width, height)

	return &domain.Image{
		Data:     []byte(svg),
		MIMEType: "image/svg+xml",
		Provider: p.Name(),
		Width:    width,
		Height:   height,
	}, nil
}

// renderCard produces the SVG document: a gradient background with the
// prompt excerpt and dimensions as centred text.
func renderCard(prompt string, width, height int) string {
	excerpt := html.EscapeString(truncate(strings.TrimSpace(prompt)))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, width, height)
	b.WriteString(`<defs><linearGradient id="grad" x1="0%" y1="0%" x2="100%" y2="100%">`)
	b.WriteString(`<stop offset="0%" style="stop-color:#667eea;stop-opacity:1"/>`)
	b.WriteString(`<stop offset="100%" style="stop-color:#764ba2;stop-opacity:1"/>`)
	b.WriteString(`</linearGradient></defs>`)
	b.WriteString(`<rect width="100%" height="100%" fill="url(#grad)"/>`)
	b.WriteString(`<text x="50%" y="40%" text-anchor="middle" fill="white" font-family="Arial" font-size="24" font-weight="bold">Story Illustration</text>`)
	fmt.Fprintf(&b, `<text x="50%%" y="55%%" text-anchor="middle" fill="white" font-family="Arial" font-size="16">%s</text>`, excerpt)
	fmt.Fprintf(&b, `<text x="50%%" y="75%%" text-anchor="middle" fill="rgba(255,255,255,0.8)" font-family="Arial" font-size="12">%dx%d</text>`, width, height)
	b.WriteString(`</svg>`)
	return b.String()
}

// truncate caps the excerpt at excerptLimit runes.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptLimit {
		return s
	}
	return string(runes[:excerptLimit-3]) + "..."
}
