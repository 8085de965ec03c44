package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/logger"
)

// Default prompt templates, used when no prompt store is configured or a
// template is missing.
const (
	defaultStoryTaskPrompt = `Story idea (build the entire story around this):
%s

Write a complete, original short story centred on this idea, fully in character. Absorb the reference material's voice and worldview; never copy its sentences.`

	defaultImageDerivePrompt = `When the story is finished, add one final line that starts with "IMAGE PROMPT: " followed by a single richly detailed visual description of the story's defining scene, written for an image generation model. Write nothing after that line.`
)

// Ensure AssemblerService accepts a prompt store.
var _ driven.PromptStoreAware = (*AssemblerService)(nil)

// AssemblerService builds generation requests from a persona, a story
// idea, and the selected context. Assembly is deterministic: the same
// inputs always produce the same prompt text.
type AssemblerService struct {
	promptStore     driven.PromptStore
	safety          domain.SafetySettings
	keywords        map[domain.SafetyCategory][]string
	maxContextChars int
}

// NewAssemblerService creates an assembler. maxContextChars bounds the
// retrieved context in runes; zero or negative selects the default.
func NewAssemblerService(safety domain.SafetySettings, maxContextChars int) *AssemblerService {
	if maxContextChars <= 0 {
		maxContextChars = domain.DefaultAppSettings().Generation.MaxContextChars
	}
	return &AssemblerService{
		safety:          safety,
		keywords:        safety.KeywordTable(),
		maxContextChars: maxContextChars,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *AssemblerService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Assemble merges the persona, idea, and ranked context into an immutable
// generation request. Ideas matching a blocked safety category are
// rejected with a ContentPolicyError before any request is built.
func (s *AssemblerService) Assemble(
	persona *domain.Persona,
	idea string,
	ranked domain.RankedContext,
	params domain.GenerationParams,
) (*domain.GenerationRequest, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, domain.ErrEmptyIdea
	}

	if match := domain.ScreenText(idea, s.safety.Blocked, s.keywords); match != nil {
		logger.Warn("Idea rejected: blocked category %s (matched %q)", match.Category, match.Term)
		return nil, &domain.ContentPolicyError{Category: match.Category, Term: match.Term}
	}

	contextTexts := s.fitContext(ranked)

	req := &domain.GenerationRequest{
		PersonaID:  persona.ID,
		Idea:       idea,
		Context:    contextTexts,
		Style:      persona.Style,
		Params:     params,
		Blocked:    append([]domain.SafetyCategory(nil), s.safety.Blocked...),
		Unreranked: !ranked.Reranked,
	}
	req.Prompt = s.render(persona, idea, contextTexts)

	logger.Debug("Assembled prompt: %d chars, %d context chunks",
		utf8.RuneCountInString(req.Prompt), len(contextTexts))
	return req, nil
}

// fitContext keeps context chunks whole, dropping from the lowest rank
// upward until the budget is met. Directives and the idea never pay for
// space; only retrieved context does.
func (s *AssemblerService) fitContext(ranked domain.RankedContext) []string {
	texts := ranked.Texts()

	total := 0
	kept := 0
	for _, t := range texts {
		total += utf8.RuneCountInString(t)
		if total > s.maxContextChars {
			break
		}
		kept++
	}
	if kept < len(texts) {
		logger.Debug("Context budget %d: dropped %d of %d chunks", s.maxContextChars, len(texts)-kept, len(texts))
	}
	return texts[:kept]
}

// render produces the prompt text. Section order is fixed: persona
// framing, style directives, safety constraints, character reference,
// story task, output-format instruction.
func (s *AssemblerService) render(persona *domain.Persona, idea string, contextTexts []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the storyteller behind %q. Every sentence should carry the character's voice, outlook, and temperament.\n", persona.DisplayName)

	if lines := persona.Style.Sentences(); len(lines) > 0 {
		b.WriteString("\nStyle:\n")
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if len(s.safety.Blocked) > 0 {
		b.WriteString("\nConstraints:\n")
		for _, cat := range s.safety.Blocked {
			if c := cat.Constraint(); c != "" {
				b.WriteString("- ")
				b.WriteString(c)
				b.WriteByte('\n')
			}
		}
	}

	if len(contextTexts) > 0 {
		b.WriteString("\nCharacter reference:\n")
		for _, text := range contextTexts {
			b.WriteByte('\n')
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf(s.loadPrompt(driven.PromptStoryTask, defaultStoryTaskPrompt), idea))
	b.WriteString("\n\n")
	b.WriteString(s.loadPrompt(driven.PromptImageDerive, defaultImageDerivePrompt))
	b.WriteByte('\n')

	return b.String()
}

// loadPrompt loads a prompt from the store, falling back to the default
// if unavailable.
func (s *AssemblerService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}
