package domain

import "unicode/utf8"

// TokenUsage is the token accounting for one model call.
type TokenUsage struct {
	// InputTokens is the prompt token count.
	InputTokens int

	// OutputTokens is the completion token count.
	OutputTokens int

	// Estimated is true when the counts were derived locally because the
	// model response carried no usage figures.
	Estimated bool
}

// EstimateTokens deterministically approximates the token count of text
// when a model response omits usage figures. The estimate is stable across
// runs: one token per four runes, minimum one for non-empty input.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
