package mcp

import (
	"context"
	"encoding/base64"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// GenerateStoryInput is the input schema for the generate_story tool.
type GenerateStoryInput struct {
	PersonaID string `json:"persona_id" jsonschema:"the persona to tell the story as"`
	Idea      string `json:"idea" jsonschema:"the one-line story idea"`
	SkipCache bool   `json:"skip_cache,omitempty" jsonschema:"force a fresh generation even when a cached response exists"`
}

// GenerateStoryOutput is the output schema for the generate_story tool.
type GenerateStoryOutput struct {
	Story        string   `json:"story"`
	ImagePrompt  string   `json:"image_prompt"`
	ModelName    string   `json:"model_name"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	Tags         []string `json:"tags,omitempty"`
}

// GenerateImageInput is the input schema for the generate_image tool.
type GenerateImageInput struct {
	Prompt  string `json:"prompt" jsonschema:"the image description"`
	Quality string `json:"quality,omitempty" jsonschema:"effort tier: draft, standard or high (default standard)"`
	Size    string `json:"size,omitempty" jsonschema:"aspect preset: square, portrait or landscape (default square)"`
}

// GenerateImageOutput is the output schema for the generate_image tool.
type GenerateImageOutput struct {
	MIMEType   string `json:"mime_type"`
	DataBase64 string `json:"data_base64"`
	Provider   string `json:"provider"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// ListPersonasInput is the input schema for the list_personas tool.
type ListPersonasInput struct{}

// ListPersonasOutput is the output schema for the list_personas tool.
type ListPersonasOutput struct {
	Personas []PersonaInfo `json:"personas"`
	Count    int           `json:"count"`
}

// PersonaInfo represents one stored persona.
type PersonaInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Genre       string `json:"genre,omitempty"`
	Voice       string `json:"voice"`
	Tone        string `json:"tone"`
	UsageCount  int64  `json:"usage_count"`
}

// ReindexPersonaInput is the input schema for the reindex_persona tool.
type ReindexPersonaInput struct {
	PersonaID string `json:"persona_id" jsonschema:"the persona whose index to rebuild"`
}

// ReindexPersonaOutput is the output schema for the reindex_persona tool.
type ReindexPersonaOutput struct {
	PersonaID      string `json:"persona_id"`
	Version        string `json:"version"`
	Chunks         int    `json:"chunks"`
	Dropped        int    `json:"dropped,omitempty"`
	Reused         bool   `json:"reused"`
	EmbeddingModel string `json:"embedding_model"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_story",
		Description: "Generate a short story in a persona's voice from a one-line idea",
	}, s.handleGenerateStory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_image",
		Description: "Generate an image from a prompt",
	}, s.handleGenerateImage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_personas",
		Description: "List the stored character personas",
	}, s.handleListPersonas)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex_persona",
		Description: "Rebuild the retrieval index for a persona",
	}, s.handleReindexPersona)
}

// handleGenerateStory handles the generate_story tool invocation.
func (s *Server) handleGenerateStory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateStoryInput,
) (*mcp.CallToolResult, GenerateStoryOutput, error) {
	session := s.ports.Agent.NewSession()
	if err := s.ports.Agent.LoadPersona(ctx, session, input.PersonaID); err != nil {
		return nil, GenerateStoryOutput{}, err
	}

	opts := driving.GenerateOptions{SkipCache: input.SkipCache}
	result, err := s.ports.Agent.Generate(ctx, session, input.Idea, opts)
	if err != nil {
		return nil, GenerateStoryOutput{}, err
	}

	output := GenerateStoryOutput{
		Story:        result.Story,
		ImagePrompt:  result.ImagePrompt,
		ModelName:    result.ModelName,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Tags:         result.Tags,
	}
	return nil, output, nil
}

// handleGenerateImage handles the generate_image tool invocation.
func (s *Server) handleGenerateImage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateImageInput,
) (*mcp.CallToolResult, GenerateImageOutput, error) {
	opts := domain.ImageOptions{
		Quality: domain.ImageQuality(input.Quality),
		Size:    domain.ImageSize(input.Size),
	}

	img, err := s.ports.Agent.GenerateImage(ctx, input.Prompt, opts)
	if err != nil {
		return nil, GenerateImageOutput{}, err
	}

	output := GenerateImageOutput{
		MIMEType:   img.MIMEType,
		DataBase64: base64.StdEncoding.EncodeToString(img.Data),
		Provider:   img.Provider,
		Width:      img.Width,
		Height:     img.Height,
	}
	return nil, output, nil
}

// handleListPersonas handles the list_personas tool invocation.
func (s *Server) handleListPersonas(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListPersonasInput,
) (*mcp.CallToolResult, ListPersonasOutput, error) {
	personas, err := s.ports.Personas.List(ctx)
	if err != nil {
		return nil, ListPersonasOutput{}, err
	}

	output := ListPersonasOutput{
		Personas: make([]PersonaInfo, len(personas)),
		Count:    len(personas),
	}

	for i := range personas {
		output.Personas[i] = PersonaInfo{
			ID:          personas[i].ID,
			DisplayName: personas[i].DisplayName,
			Genre:       personas[i].Style.Genre,
			Voice:       string(personas[i].Style.Voice),
			Tone:        string(personas[i].Style.Tone),
			UsageCount:  personas[i].UsageCount,
		}
	}

	return nil, output, nil
}

// handleReindexPersona handles the reindex_persona tool invocation.
func (s *Server) handleReindexPersona(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReindexPersonaInput,
) (*mcp.CallToolResult, ReindexPersonaOutput, error) {
	if s.ports.Index == nil {
		return nil, ReindexPersonaOutput{}, ErrMissingIndexService
	}

	// Drop the published index first so the build is a real rebuild, not
	// a reuse of the current version.
	if err := s.ports.Agent.PersonaChanged(ctx, input.PersonaID); err != nil {
		return nil, ReindexPersonaOutput{}, err
	}

	report, err := s.ports.Index.Index(ctx, input.PersonaID)
	if err != nil {
		return nil, ReindexPersonaOutput{}, err
	}

	output := ReindexPersonaOutput{
		PersonaID:      report.PersonaID,
		Version:        report.Version,
		Chunks:         report.Chunks,
		Dropped:        report.Dropped,
		Reused:         report.Reused,
		EmbeddingModel: report.EmbeddingModel,
	}
	return nil, output, nil
}
