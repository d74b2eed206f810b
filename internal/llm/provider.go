package llm

import (
	"context"
	"errors"
)

// Provider is a multimodal model backend used for transcription and
// evaluation.
type Provider interface {
	// GenerateJSON sends a text prompt and returns the model's raw JSON reply.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	// TranscribeMedia sends a recording with instructions and returns the raw JSON reply.
	TranscribeMedia(ctx context.Context, media []byte, mimeType string, prompt string) (string, error)
	GetProviderName() string
}

// represents an error from an LLM provider
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Common error codes
// For current and future use across different providers
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)

// ErrorCode returns the provider error code carried by err, or "".
func ErrorCode(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return ""
}
