// Package provider defines the LLM provider interface and shared types.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Request represents a completion request to an LLM provider.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int32
	APIKey       string // Injected by the key pool
}

// Response represents a complete completion response.
type Response struct {
	Text         string
	PromptTokens int32
	OutputTokens int32
}

// Provider is the interface that all LLM backends must implement.
type Provider interface {
	// Name returns a human-readable identifier for this provider (e.g. "openai", "gemini").
	Name() string

	// Complete performs a single completion call. The system prompt and
	// user prompt travel as distinct messages where the backend supports
	// them. The context should carry a deadline/timeout.
	Complete(ctx context.Context, req Request) (Response, error)
}

// APIError is a non-2xx response from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 from a provider.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsServerError reports whether err is a rate limit or a 5xx provider
// fault. The retry layer treats both as transient.
func IsServerError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
