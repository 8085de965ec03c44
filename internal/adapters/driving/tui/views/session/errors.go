package session

import "errors"

// ErrNoStoryAgent is returned when no story agent is available.
var ErrNoStoryAgent = errors.New("story agent not available")
