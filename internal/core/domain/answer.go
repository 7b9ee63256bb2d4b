package domain

import "time"

// Answer composition defaults.
const (
	DefaultContextDocs     = 3
	DefaultMaxContextChars = 2000
	DefaultContextSep      = "\n\n"
	DefaultTemperature     = 0.5
	DefaultMaxTokens       = 256
	DefaultContextWindow   = 2048
	DefaultGenerateTimeout = 120 * time.Second
)

// Answer is generated text grounded in retrieved chunks.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Sources are the source identifiers of the context chunks,
	// deduplicated in order of first appearance.
	Sources []string

	// Model is the candidate model that produced the answer.
	Model string

	// Attempts records the outcome of every candidate tried.
	Attempts []GenerationOutcome
}

// OutcomeKind classifies a single generation attempt.
type OutcomeKind int

// Outcome kinds.
const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeModelNotFound
	OutcomeError
)

// String returns the string representation.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeModelNotFound:
		return "model_not_found"
	case OutcomeError:
		return "error"
	default:
		return unknownDescription
	}
}

// GenerationOutcome is the typed result of asking one candidate model.
type GenerationOutcome struct {
	Model string
	Kind  OutcomeKind
	Text  string
	Err   error
}

// AnswerOptions configures one answer call. Zero fields take settings defaults.
type AnswerOptions struct {
	// Retrieval configures the retrieval step of Ask.
	Retrieval RetrievalOptions

	// Models overrides the candidate model list.
	Models []string

	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64

	// MaxTokens overrides the output token limit.
	MaxTokens int

	// Timeout overrides the per-attempt timeout.
	Timeout time.Duration
}

// Built-in prompt templates.
const (
	// DefaultAnswerPrompt is formatted with the context, then the question.
	DefaultAnswerPrompt = "Answer this question based on the context provided.\n\n" +
		"Context: %s\n\nQuestion: %s\n\nAnswer:"

	// DefaultSystemPrompt is sent to chat-style backends.
	DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context."
)
