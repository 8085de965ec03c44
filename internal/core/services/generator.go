package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/logger"
)

// GeneratorService is the generation client: it turns assembled requests
// into stories via the configured models, and prompts into images via the
// provider chain. Retry and fallback decisions live here, not in the
// adapters.
type GeneratorService struct {
	primary   driven.StoryModel
	fallback  driven.StoryModel
	pipeline  driven.OutputPipeline
	providers []driven.ImageProvider

	backoff     []time.Duration
	callTimeout time.Duration
	limiter     *rate.Limiter
}

// NewGeneratorService creates a generation client. The fallback model and
// the output pipeline are optional; image providers are tried in slice
// order.
func NewGeneratorService(
	primary driven.StoryModel,
	fallback driven.StoryModel,
	pipeline driven.OutputPipeline,
	providers []driven.ImageProvider,
	settings domain.GenerationSettings,
) *GeneratorService {
	def := domain.DefaultAppSettings().Generation
	if len(settings.Backoff) == 0 {
		settings.Backoff = def.Backoff
	}
	if settings.CallTimeout <= 0 {
		settings.CallTimeout = def.CallTimeout
	}

	var limiter *rate.Limiter
	if settings.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(settings.RequestsPerMinute)/60.0), 1)
	}

	return &GeneratorService{
		primary:     primary,
		fallback:    fallback,
		pipeline:    pipeline,
		providers:   providers,
		backoff:     settings.Backoff,
		callTimeout: settings.CallTimeout,
		limiter:     limiter,
	}
}

// modelPlan is one model's slot in the attempt sequence.
type modelPlan struct {
	model    driven.StoryModel
	fallback bool
}

// abortError marks failures that must surface immediately, skipping any
// remaining attempts and the fallback model.
type abortError struct {
	err error
}

func (e *abortError) Error() string {
	return e.err.Error()
}

// failureClass sorts generation failures by how the retry plan reacts.
type failureClass int

const (
	// failureTransient failures are retried per the backoff table.
	failureTransient failureClass = iota

	// failureModel failures make the current model unusable; remaining
	// attempts are skipped and the fallback takes over.
	failureModel

	// failureAbort failures surface immediately: policy refusals,
	// invalid configuration, cancelled requests.
	failureAbort
)

// classify decides how a model failure is handled.
func classify(err error) failureClass {
	switch {
	case domain.IsContentPolicy(err),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, context.Canceled):
		return failureAbort
	case errors.Is(err, domain.ErrModelUnavailable):
		return failureModel
	default:
		return failureTransient
	}
}

// GenerateText produces a story for the assembled request. The primary
// model gets the full attempt plan, then the fallback model gets the same
// plan; when both are exhausted the caller sees a deliberately generic
// error carrying no provider or model names.
func (s *GeneratorService) GenerateText(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	logger.Section("Story Generation")

	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: empty generation request", domain.ErrInvalidInput)
	}

	plans := s.attemptPlans()
	if len(plans) == 0 {
		return nil, domain.ErrModelUnavailable
	}

	for _, plan := range plans {
		out, err := s.tryModel(ctx, plan, req)
		if err == nil {
			return s.finish(ctx, plan, req, out)
		}

		var abort *abortError
		if errors.As(err, &abort) {
			return nil, abort.err
		}
		logger.Warn("Model %s exhausted: %v", plan.model.ModelName(), err)
	}

	return nil, domain.ErrGenerationUnavailable
}

// attemptPlans lists the models in the order they are tried.
func (s *GeneratorService) attemptPlans() []modelPlan {
	plans := make([]modelPlan, 0, 2)
	if s.primary != nil {
		plans = append(plans, modelPlan{model: s.primary})
	}
	if s.fallback != nil {
		plans = append(plans, modelPlan{model: s.fallback, fallback: s.primary != nil})
	}
	return plans
}

// tryModel runs the attempt plan against one model. The returned error is
// an *abortError when the failure must surface immediately.
func (s *GeneratorService) tryModel(ctx context.Context, plan modelPlan, req *domain.GenerationRequest) (*driven.ModelOutput, error) {
	attempts := len(s.backoff)
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &abortError{err: err}
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, &abortError{err: err}
			}
		}

		out, err := s.call(ctx, plan.model, req)
		if err == nil {
			if attempt > 0 {
				logger.Info("Model %s succeeded on attempt %d", plan.model.ModelName(), attempt+1)
			}
			return out, nil
		}
		lastErr = err

		switch classify(err) {
		case failureAbort:
			return nil, &abortError{err: err}
		case failureModel:
			return nil, err
		}

		logger.Warn("Model %s attempt %d/%d failed: %v", plan.model.ModelName(), attempt+1, attempts, err)
		if attempt < attempts-1 {
			delay := s.backoff[attempt]
			var rle *domain.RateLimitError
			if errors.As(err, &rle) && rle.RetryAfter > delay {
				delay = rle.RetryAfter
			}
			if err := wait(ctx, delay); err != nil {
				return nil, &abortError{err: err}
			}
		}
	}
	return nil, lastErr
}

// call runs one model invocation under the per-call timeout. Empty output
// counts as a failure so the retry plan can react.
func (s *GeneratorService) call(ctx context.Context, model driven.StoryModel, req *domain.GenerationRequest) (*driven.ModelOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	out, err := model.Generate(callCtx, req.Prompt, req.Params)
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Text) == "" {
		return nil, fmt.Errorf("model %s returned no text", model.ModelName())
	}
	return out, nil
}

// finish turns raw model output into the final result: split out the
// image prompt, settle token accounting, and apply degradation tags.
func (s *GeneratorService) finish(ctx context.Context, plan modelPlan, req *domain.GenerationRequest, out *driven.ModelOutput) (*domain.GenerationResult, error) {
	var story, imagePrompt string
	if s.pipeline != nil {
		var err error
		story, imagePrompt, err = s.pipeline.Process(ctx, out.Text)
		if err != nil {
			return nil, fmt.Errorf("process output: %w", err)
		}
	} else {
		story, imagePrompt = domain.SplitStoryOutput(out.Text)
	}
	if imagePrompt == "" {
		imagePrompt = deriveImagePrompt(req)
		logger.Debug("Output carried no image prompt marker; derived one from the idea")
	}

	result := &domain.GenerationResult{
		Story:       story,
		ImagePrompt: imagePrompt,
		ModelName:   plan.model.ModelName(),
	}

	if out.Usage != nil {
		result.InputTokens = out.Usage.InputTokens
		result.OutputTokens = out.Usage.OutputTokens
		if out.Usage.Estimated {
			result.AddTag(domain.TagEstimatedTokens)
		}
	} else {
		result.InputTokens = domain.EstimateTokens(req.Prompt)
		result.OutputTokens = domain.EstimateTokens(out.Text)
		result.AddTag(domain.TagEstimatedTokens)
	}

	if plan.fallback {
		result.AddTag(domain.TagFallbackModel)
	}
	if req.Unreranked {
		result.AddTag(domain.TagUnreranked)
	}
	if len(req.Context) == 0 {
		result.AddTag(domain.TagNoContext)
	}

	logger.Info("Story generated by %s: %d input / %d output tokens",
		result.ModelName, result.InputTokens, result.OutputTokens)
	return result, nil
}

// deriveImagePrompt builds a serviceable image prompt when the model
// omitted the marked line.
func deriveImagePrompt(req *domain.GenerationRequest) string {
	prompt := "A detailed visualization of: " + req.Idea
	if g := strings.TrimSpace(req.Style.Genre); g != "" {
		prompt += ", in the style of " + g
	}
	return prompt
}

// GenerateImage walks the provider chain in priority order. The first
// success wins; each failure is logged and the chain continues.
func (s *GeneratorService) GenerateImage(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error) {
	logger.Section("Image Generation")

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty image prompt", domain.ErrInvalidInput)
	}
	if err := opts.Normalise(); err != nil {
		return nil, err
	}
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", domain.ErrAllProvidersFailed)
	}

	attempted := make([]string, 0, len(s.providers))
	for _, provider := range s.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted = append(attempted, provider.Name())

		img, err := provider.Generate(ctx, prompt, opts)
		if err != nil {
			logger.Warn("Image provider %s failed: %v", provider.Name(), err)
			continue
		}
		logger.Info("Image generated by %s (%dx%d)", provider.Name(), img.Width, img.Height)
		return img, nil
	}

	return nil, fmt.Errorf("%w: attempted %s", domain.ErrAllProvidersFailed, strings.Join(attempted, ", "))
}

// wait sleeps for d unless the context ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
