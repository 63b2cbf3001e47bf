package ai

import (
	"context"
	"net/http"
)

// Provider is the generic interface that all LLM providers must implement
type Provider interface {
	// SendSingleMessage sends a chat request and returns the response
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	IsStopMessage(message *ChatResponse) bool

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// StreamProvider is implemented by providers that support token-by-token
// delivery of a chat response. Not every Provider implements it; callers
// that need streaming should type-assert and fall back to SendMessage plus
// NewSingleEventStream when the assertion fails.
type StreamProvider interface {
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
