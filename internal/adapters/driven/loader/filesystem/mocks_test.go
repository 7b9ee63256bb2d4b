package filesystem

import (
	"context"
	"errors"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

var errBrokenPDF = errors.New("broken pdf")

type failingNormaliser struct{}

func (f *failingNormaliser) SupportedMIMETypes() []string { return []string{"application/pdf"} }
func (f *failingNormaliser) Priority() int                 { return 50 }
func (f *failingNormaliser) Normalise(_ context.Context, _ *domain.RawDocument) (*driven.NormaliseResult, error) {
	return nil, errBrokenPDF
}
