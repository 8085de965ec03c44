package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

func TestExtractPersonaID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid persona URI",
			uri:      "fabula://personas/himu",
			expected: "himu",
		},
		{
			name:     "invalid prefix",
			uri:      "file://personas/himu",
			expected: "",
		},
		{
			name:     "document URI is not a persona URI",
			uri:      "fabula://personas/himu/document",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractPersonaID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExtractDocumentPersonaID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "fabula://personas/himu/document",
			expected: "himu",
		},
		{
			name:     "invalid prefix",
			uri:      "file://personas/himu/document",
			expected: "",
		},
		{
			name:     "missing document suffix",
			uri:      "fabula://personas/himu",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "fabula://personas/himu/extra/document",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentPersonaID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handlePersonasResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns personas successfully", func(t *testing.T) {
		personas := &mockPersonaService{
			personas: []domain.Persona{
				{
					ID:          "himu",
					DisplayName: "Himu",
					Style:       domain.StyleDirectives{Genre: "mystery"},
				},
			},
		}

		ports := &Ports{Agent: &mockStoryAgent{}, Personas: personas}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas")
		result, err := server.handlePersonasResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "himu")
		assert.Contains(t, result.Contents[0].Text, "Himu")
		assert.Contains(t, result.Contents[0].Text, "mystery")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		personas := &mockPersonaService{err: errors.New("database error")}

		ports := &Ports{Agent: &mockStoryAgent{}, Personas: personas}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas")
		_, err = server.handlePersonasResource(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing personas")
	})

	t.Run("handles empty persona list", func(t *testing.T) {
		ports := &Ports{Agent: &mockStoryAgent{}, Personas: &mockPersonaService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas")
		result, err := server.handlePersonasResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})
}

func TestServer_handlePersonaResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns persona details", func(t *testing.T) {
		personas := &mockPersonaService{
			persona: &domain.Persona{
				ID:          "himu",
				DisplayName: "Himu",
				Document:    "Himu walks barefoot through Dhaka.",
				DocVersion:  "abc123",
			},
		}

		ports := &Ports{Agent: &mockStoryAgent{}, Personas: personas}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas/himu")
		result, err := server.handlePersonaResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"doc_version": "abc123"`)
		assert.Contains(t, result.Contents[0].Text, `"doc_length": 34`)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		ports := &Ports{Agent: &mockStoryAgent{}, Personas: &mockPersonaService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://invalid/uri")
		_, err = server.handlePersonaResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("unknown persona returns not found", func(t *testing.T) {
		personas := &mockPersonaService{err: domain.ErrPersonaNotFound}

		ports := &Ports{Agent: &mockStoryAgent{}, Personas: personas}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas/missing")
		_, err = server.handlePersonaResource(ctx, req)

		require.Error(t, err)
	})
}

func TestServer_handlePersonaDocumentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the reference document", func(t *testing.T) {
		personas := &mockPersonaService{
			persona: &domain.Persona{
				ID:          "himu",
				DisplayName: "Himu",
				Document:    "# Himu\n\nHimu walks barefoot through Dhaka.",
			},
		}

		ports := &Ports{Agent: &mockStoryAgent{}, Personas: personas}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas/himu/document")
		result, err := server.handlePersonaDocumentResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
		assert.Equal(t, "# Himu\n\nHimu walks barefoot through Dhaka.", result.Contents[0].Text)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		ports := &Ports{Agent: &mockStoryAgent{}, Personas: &mockPersonaService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas/himu")
		_, err = server.handlePersonaDocumentResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("unknown persona returns not found", func(t *testing.T) {
		personas := &mockPersonaService{err: domain.ErrPersonaNotFound}

		ports := &Ports{Agent: &mockStoryAgent{}, Personas: personas}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("fabula://personas/missing/document")
		_, err = server.handlePersonaDocumentResource(ctx, req)

		require.Error(t, err)
	})
}
