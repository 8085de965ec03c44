package domain

import "strings"

// SafetyCategory identifies a content category that can be blocked.
type SafetyCategory string

// Available safety categories.
const (
	// CategoryHarassment covers demeaning or bullying content.
	CategoryHarassment SafetyCategory = "harassment"

	// CategoryHateSpeech covers attacks on protected groups.
	CategoryHateSpeech SafetyCategory = "hate_speech"

	// CategorySexuallyExplicit covers explicit sexual content.
	CategorySexuallyExplicit SafetyCategory = "sexually_explicit"

	// CategoryDangerousContent covers instructions enabling harm.
	CategoryDangerousContent SafetyCategory = "dangerous_content"

	// CategoryViolence covers graphic violence and gore.
	CategoryViolence SafetyCategory = "violence"
)

// IsValid returns true if the safety category is recognised.
func (c SafetyCategory) IsValid() bool {
	switch c {
	case CategoryHarassment, CategoryHateSpeech, CategorySexuallyExplicit,
		CategoryDangerousContent, CategoryViolence:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c SafetyCategory) String() string {
	return string(c)
}

// AllSafetyCategories returns every recognised safety category.
func AllSafetyCategories() []SafetyCategory {
	return []SafetyCategory{
		CategoryHarassment,
		CategoryHateSpeech,
		CategorySexuallyExplicit,
		CategoryDangerousContent,
		CategoryViolence,
	}
}

// Constraint returns the negative instruction rendered into prompts when
// the category is blocked.
func (c SafetyCategory) Constraint() string {
	switch c {
	case CategoryHarassment:
		return "Do not include harassment, bullying, or demeaning portrayals."
	case CategoryHateSpeech:
		return "Do not include hateful content targeting any group."
	case CategorySexuallyExplicit:
		return "Do not include sexually explicit content."
	case CategoryDangerousContent:
		return "Do not include instructions or encouragement for dangerous acts."
	case CategoryViolence:
		return "Do not include graphic violence or gore."
	default:
		return ""
	}
}

// DefaultSafetyKeywords is the built-in keyword heuristic per category.
// It is a coarse trigger list, not a classifier; deployments extend it
// through configuration.
func DefaultSafetyKeywords() map[SafetyCategory][]string {
	return map[SafetyCategory][]string{
		CategoryHarassment:       {"harass", "bully", "humiliate", "stalk"},
		CategoryHateSpeech:       {"slur", "ethnic cleansing", "racial hatred"},
		CategorySexuallyExplicit: {"explicit sex", "pornographic", "erotica"},
		CategoryDangerousContent: {"build a bomb", "make a weapon", "poison recipe", "self-harm"},
		CategoryViolence:         {"gore", "massacre", "torture", "mutilate", "bloodbath", "brutally kill"},
	}
}

// PolicyMatch records which blocked category a text tripped and the term
// that matched.
type PolicyMatch struct {
	// Category is the blocked category that matched.
	Category SafetyCategory

	// Term is the keyword or phrase that triggered the match.
	Term string
}

// ScreenText checks text against the keyword lists of the blocked
// categories. Matching is case-insensitive on word boundaries; multi-word
// keywords match as phrases. Returns nil when no blocked category matches.
func ScreenText(text string, blocked []SafetyCategory, keywords map[SafetyCategory][]string) *PolicyMatch {
	if text == "" || len(blocked) == 0 {
		return nil
	}

	// Normalise to a space-delimited lower-case token stream so phrase
	// keywords can match across punctuation.
	tokens := tokenise(text)
	if len(tokens) == 0 {
		return nil
	}
	joined := " " + strings.Join(tokens, " ") + " "

	for _, cat := range blocked {
		for _, kw := range keywords[cat] {
			needle := strings.Join(tokenise(kw), " ")
			if needle == "" {
				continue
			}
			if strings.Contains(joined, " "+needle+" ") {
				return &PolicyMatch{Category: cat, Term: kw}
			}
		}
	}
	return nil
}

// tokenise lower-cases and splits on anything that is not a letter,
// digit, apostrophe, or hyphen.
func tokenise(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		case r == '\'' || r == '-':
			return false
		case r >= 0x80:
			// Keep non-ASCII letters intact.
			return false
		default:
			return true
		}
	})
}
