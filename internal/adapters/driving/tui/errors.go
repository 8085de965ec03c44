package tui

import "errors"

// ErrMissingStoryAgent is returned when the story agent is not provided.
var ErrMissingStoryAgent = errors.New("tui: story agent is required")

// ErrMissingPersonaService is returned when the persona service is not provided.
var ErrMissingPersonaService = errors.New("tui: persona service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
