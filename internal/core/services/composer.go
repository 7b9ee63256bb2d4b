package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure Composer implements the interface.
var _ driving.AnswerService = (*Composer)(nil)

// truncationMarker is appended to context cut at the character limit.
const truncationMarker = "..."

// ComposerConfig configures answer composition. Zero fields take defaults.
type ComposerConfig struct {
	ContextDocs     int
	MaxContextChars int
	Separator       string
	Models          []string
	Temperature     float64
	MaxTokens       int
	ContextWindow   int
	Timeout         time.Duration
}

// Composer builds a prompt from retrieved context and asks candidate models
// for an answer.
type Composer struct {
	llm       driven.LLMService
	retriever driving.RetrievalService
	prompts   driven.PromptStore
	cfg       ComposerConfig
}

// NewComposer creates an answer composer.
// The prompt store is optional; without it built-in templates are used.
func NewComposer(
	llm driven.LLMService,
	retriever driving.RetrievalService,
	prompts driven.PromptStore,
	cfg ComposerConfig,
) *Composer {
	if cfg.ContextDocs <= 0 {
		cfg.ContextDocs = domain.DefaultContextDocs
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = domain.DefaultMaxContextChars
	}
	if cfg.Separator == "" {
		cfg.Separator = domain.DefaultContextSep
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultMaxTokens
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = domain.DefaultContextWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultGenerateTimeout
	}
	return &Composer{
		llm:       llm,
		retriever: retriever,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// BuildContext joins the text of the first n results with sep.
// Context longer than maxChars characters is cut to exactly maxChars
// characters followed by "...".
func BuildContext(results []domain.RetrievalResult, n, maxChars int, sep string) string {
	n = min(n, len(results))
	texts := make([]string, n)
	for i := range n {
		texts[i] = results[i].Text
	}
	joined := strings.Join(texts, sep)

	if utf8.RuneCountInString(joined) <= maxChars {
		return joined
	}
	return string([]rune(joined)[:maxChars]) + truncationMarker
}

// Ask retrieves context for the query and answers it.
func (c *Composer) Ask(ctx context.Context, query string, opts domain.AnswerOptions) (*domain.Answer, error) {
	if c.retriever == nil {
		return nil, fmt.Errorf("retriever: %w", domain.ErrNotImplemented)
	}

	results, err := c.retriever.Retrieve(ctx, query, opts.Retrieval)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return c.Answer(ctx, query, results, opts)
}

// Answer generates an answer grounded in the given results.
// Candidate models are tried in order until one serves the request.
func (c *Composer) Answer(
	ctx context.Context, query string, results []domain.RetrievalResult, opts domain.AnswerOptions,
) (*domain.Answer, error) {
	logger.Section("Answer Composition")

	if len(results) == 0 {
		logger.Info("No relevant documents for query")
		return nil, domain.ErrNoRelevantDocuments
	}
	if c.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	contextDocs := results[:min(c.cfg.ContextDocs, len(results))]
	contextText := BuildContext(contextDocs, len(contextDocs), c.cfg.MaxContextChars, c.cfg.Separator)
	prompt := fmt.Sprintf(c.loadPrompt(driven.PromptAnswer, domain.DefaultAnswerPrompt), contextText, query)
	logger.Debug("Prompt has %d characters from %d context documents", utf8.RuneCountInString(prompt), len(contextDocs))

	genOpts := driven.GenerateOptions{
		System:        c.loadPrompt(driven.PromptSystem, domain.DefaultSystemPrompt),
		MaxTokens:     c.cfg.MaxTokens,
		Temperature:   c.cfg.Temperature,
		ContextWindow: c.cfg.ContextWindow,
	}
	if opts.MaxTokens > 0 {
		genOpts.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		genOpts.Temperature = *opts.Temperature
	}
	timeout := c.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	models := c.candidates(opts)
	answer := &domain.Answer{Sources: uniqueSources(contextDocs)}

	var lastErr error
	for _, model := range models {
		genOpts.Model = model
		outcome := c.attempt(ctx, prompt, genOpts, timeout)
		answer.Attempts = append(answer.Attempts, outcome)

		switch outcome.Kind {
		case domain.OutcomeSuccess:
			logger.Info("Model %s answered", model)
			answer.Text = outcome.Text
			answer.Model = model
			return answer, nil

		case domain.OutcomeModelNotFound:
			logger.Info("Model %s not found, trying next candidate", model)
			lastErr = outcome.Err
			continue

		default:
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, ctxErr
			}
			kind := domain.ClassifyGenerationError(outcome.Err)
			if kind == domain.GenerationRejected && errors.Is(outcome.Err, context.DeadlineExceeded) {
				kind = domain.GenerationTimeout
			}
			logger.Warn("Model %s failed: %v", model, outcome.Err)
			return nil, &domain.GenerationError{Kind: kind, Model: model, Tried: attempted(answer.Attempts), Err: outcome.Err}
		}
	}

	return nil, &domain.GenerationError{
		Kind:  domain.GenerationModelsExhausted,
		Tried: models,
		Err:   lastErr,
	}
}

// attempt asks one model under its own timeout and classifies the result.
func (c *Composer) attempt(
	ctx context.Context, prompt string, opts driven.GenerateOptions, timeout time.Duration,
) domain.GenerationOutcome {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("Trying model %s (timeout %s)", opts.Model, timeout)
	text, err := c.llm.Generate(attemptCtx, prompt, opts)

	switch {
	case err == nil:
		return domain.GenerationOutcome{Model: opts.Model, Kind: domain.OutcomeSuccess, Text: strings.TrimSpace(text)}
	case errors.Is(err, domain.ErrModelNotFound):
		return domain.GenerationOutcome{Model: opts.Model, Kind: domain.OutcomeModelNotFound, Err: err}
	default:
		return domain.GenerationOutcome{Model: opts.Model, Kind: domain.OutcomeError, Err: err}
	}
}

// candidates returns the models to try in priority order.
func (c *Composer) candidates(opts domain.AnswerOptions) []string {
	if len(opts.Models) > 0 {
		return opts.Models
	}
	if len(c.cfg.Models) > 0 {
		return c.cfg.Models
	}
	return []string{c.llm.ModelName()}
}

// loadPrompt returns the named template, falling back to the built-in one.
func (c *Composer) loadPrompt(name, fallback string) string {
	if c.prompts == nil {
		return fallback
	}
	tmpl, err := c.prompts.Load(name)
	if err != nil || strings.TrimSpace(tmpl) == "" {
		logger.Debug("Using built-in %s prompt: %v", name, err)
		return fallback
	}
	return tmpl
}

// uniqueSources returns result sources in order of first appearance.
func uniqueSources(results []domain.RetrievalResult) []string {
	sources := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Source == "" || seen[r.Source] {
			continue
		}
		seen[r.Source] = true
		sources = append(sources, r.Source)
	}
	return sources
}

// attempted lists the models of the given outcomes.
func attempted(outcomes []domain.GenerationOutcome) []string {
	models := make([]string, len(outcomes))
	for i, o := range outcomes {
		models[i] = o.Model
	}
	return models
}
