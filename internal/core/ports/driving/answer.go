package driving

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// AnswerService composes grounded answers.
type AnswerService interface {
	// Answer generates an answer from already retrieved results.
	// No results returns domain.ErrNoRelevantDocuments without calling the backend.
	Answer(ctx context.Context, query string, results []domain.RetrievalResult, opts domain.AnswerOptions) (*domain.Answer, error)

	// Ask retrieves context for the query and answers it.
	Ask(ctx context.Context, query string, opts domain.AnswerOptions) (*domain.Answer, error)
}
