// Package pollinations provides an image provider backed by the
// Pollinations.ai flux endpoint.
package pollinations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.ImageProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://image.pollinations.ai"
	DefaultModel   = "flux"
	DefaultTimeout = 45 * time.Second
)

// Config holds configuration for the Pollinations provider.
type Config struct {
	// BaseURL is the API base URL (default: https://image.pollinations.ai).
	BaseURL string

	// Model is the image model to request (default: flux).
	Model string

	// Timeout is the request timeout (default: 45s).
	Timeout time.Duration
}

// Provider generates images via the Pollinations.ai prompt endpoint.
type Provider struct {
	client  *http.Client
	baseURL string
	model   string
}

// New creates a new Pollinations image provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Provider{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "pollinations"
}

// Generate fetches an image for the prompt. The prompt travels in the URL
// path; quality tiers map to step count and guidance scale.
func (p *Provider) Generate(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error) {
	if err := opts.Normalise(); err != nil {
		return nil, err
	}
	width, height := opts.Size.Dimensions()
	steps, cfg := qualityParams(opts.Quality)

	query := url.Values{}
	query.Set("model", p.model)
	query.Set("width", strconv.Itoa(width))
	query.Set("height", strconv.Itoa(height))
	query.Set("enhance", "true")
	query.Set("steps", strconv.Itoa(steps))
	query.Set("cfg", cfg)

	fullURL := p.baseURL + "/prompt/" + url.PathEscape(prompt) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pollinations error (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pollinations: empty image response")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return &domain.Image{
		Data:     data,
		MIMEType: mimeType,
		Provider: p.Name(),
		Width:    width,
		Height:   height,
	}, nil
}

// qualityParams maps a quality tier to flux step count and guidance scale.
func qualityParams(q domain.ImageQuality) (steps int, cfg string) {
	switch q {
	case domain.QualityUltra:
		return 50, "7.5"
	case domain.QualityHigh:
		return 30, "7.0"
	default:
		return 20, "6.5"
	}
}
