package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Fabula resources.
	uriScheme = "fabula://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing personas.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "personas",
		Name:        "personas",
		Description: "List of all stored character personas",
		MIMEType:    "application/json",
	}, s.handlePersonasResource)

	// Template for persona details.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "personas/{personaId}",
		Name:        "persona",
		Description: "Details of a specific persona",
		MIMEType:    "application/json",
	}, s.handlePersonaResource)

	// Template for persona reference documents.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "personas/{personaId}/document",
		Name:        "persona-document",
		Description: "Reference document of a specific persona",
		MIMEType:    "text/plain",
	}, s.handlePersonaDocumentResource)
}

// handlePersonasResource returns a list of all stored personas.
func (s *Server) handlePersonasResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	personas, err := s.ports.Personas.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing personas: %w", err)
	}

	infos := make([]PersonaInfo, len(personas))
	for i := range personas {
		infos[i] = PersonaInfo{
			ID:          personas[i].ID,
			DisplayName: personas[i].DisplayName,
			Genre:       personas[i].Style.Genre,
			Voice:       string(personas[i].Style.Voice),
			Tone:        string(personas[i].Style.Tone),
			UsageCount:  personas[i].UsageCount,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling personas: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePersonaResource returns one persona's details.
func (s *Server) handlePersonaResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract personaId from URI: fabula://personas/{personaId}
	personaID := extractPersonaID(req.Params.URI)
	if personaID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	persona, err := s.ports.Personas.Get(ctx, personaID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	type personaDetail struct {
		PersonaInfo
		DocVersion string `json:"doc_version"`
		DocLength  int    `json:"doc_length"`
	}

	detail := personaDetail{
		PersonaInfo: PersonaInfo{
			ID:          persona.ID,
			DisplayName: persona.DisplayName,
			Genre:       persona.Style.Genre,
			Voice:       string(persona.Style.Voice),
			Tone:        string(persona.Style.Tone),
			UsageCount:  persona.UsageCount,
		},
		DocVersion: persona.DocVersion,
		DocLength:  len(persona.Document),
	}

	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling persona: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePersonaDocumentResource returns a persona's reference document.
func (s *Server) handlePersonaDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract personaId from URI: fabula://personas/{personaId}/document
	personaID := extractDocumentPersonaID(req.Params.URI)
	if personaID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	persona, err := s.ports.Personas.Get(ctx, personaID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     persona.Document,
		}},
	}, nil
}

// extractPersonaID extracts the persona ID from a URI like
// fabula://personas/{personaId}.
func extractPersonaID(uri string) string {
	const prefix = uriScheme + "personas/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractDocumentPersonaID extracts the persona ID from a URI like
// fabula://personas/{personaId}/document.
func extractDocumentPersonaID(uri string) string {
	const prefix = uriScheme + "personas/"
	const suffix = "/document"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
