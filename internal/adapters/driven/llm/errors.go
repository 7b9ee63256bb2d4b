// Package llm holds helpers shared by the generation adapters.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// TransportError classifies a failed round trip as a timeout or a
// connection failure.
func TransportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, domain.ErrGenerationConnection, err)
}

// StatusError turns a non-200 response into an error. A 404 naming the
// model, or any body mentioning a missing model, maps to ErrModelNotFound.
// 429 maps to ErrRateLimited, 408 and 504 to ErrGenerationTimeout.
func StatusError(provider, model string, status int, body string) error {
	body = strings.TrimSpace(body)
	switch {
	case IsModelNotFound(status, body):
		return fmt.Errorf("%s: model %q: %w (status %d): %s", provider, model, domain.ErrModelNotFound, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w (status %d): %s", provider, domain.ErrRateLimited, status, body)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w (status %d): %s", provider, domain.ErrGenerationTimeout, status, body)
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w (status %d): %s", provider, domain.ErrGenerationConnection, status, body)
	default:
		return fmt.Errorf("%s error (status %d): %s", provider, status, body)
	}
}

// IsModelNotFound reports whether a response says the model does not exist.
func IsModelNotFound(status int, body string) bool {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "model_not_found") || strings.Contains(lower, "not_found_error") {
		return true
	}
	if strings.Contains(lower, "model") && strings.Contains(lower, "not found") {
		return true
	}
	return status == http.StatusNotFound && strings.Contains(lower, "model")
}
