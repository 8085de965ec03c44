// Package mcp provides an MCP (Model Context Protocol) server adapter for Fabula.
// It lets AI assistants generate persona-grounded stories and browse persona
// reference documents.
package mcp

import "errors"

// ErrMissingAgent is returned when the story agent is not provided.
var ErrMissingAgent = errors.New("mcp: story agent is required")

// ErrMissingPersonaService is returned when the persona service is not provided.
var ErrMissingPersonaService = errors.New("mcp: persona service is required")

// ErrMissingIndexService is returned by the reindex tool when no index
// orchestrator was wired.
var ErrMissingIndexService = errors.New("mcp: index service is not configured")
