package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: domain.ErrGenerationTimeout},
		{name: "net timeout", err: timeoutErr{}, want: domain.ErrGenerationTimeout},
		{name: "refused", err: errors.New("connection refused"), want: domain.ErrGenerationConnection},
		{name: "cancelled", err: context.Canceled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, TransportError("ollama", tt.err), tt.want)
		})
	}
}

func TestTransportError_Nil(t *testing.T) {
	assert.NoError(t, TransportError("ollama", nil))
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "ollama missing model", status: http.StatusNotFound, body: `{"error":"model 'x' not found"}`, want: domain.ErrModelNotFound},
		{name: "openai model_not_found", status: http.StatusNotFound, body: `{"error":{"code":"model_not_found"}}`, want: domain.ErrModelNotFound},
		{name: "anthropic not_found_error", status: http.StatusNotFound, body: `{"type":"error","error":{"type":"not_found_error","message":"model: x"}}`, want: domain.ErrModelNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow", want: domain.ErrRateLimited},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, body: "", want: domain.ErrGenerationTimeout},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: "", want: domain.ErrGenerationConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, StatusError("p", "x", tt.status, tt.body), tt.want)
		})
	}
}

func TestStatusError_Other(t *testing.T) {
	err := StatusError("p", "x", http.StatusBadRequest, "bad prompt")

	assert.False(t, errors.Is(err, domain.ErrModelNotFound))
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "bad prompt")
}

func TestIsModelNotFound_PlainNotFound(t *testing.T) {
	assert.False(t, IsModelNotFound(http.StatusNotFound, "404 page not found"))
}
