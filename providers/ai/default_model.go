package ai

import (
	"context"
	"net/http"
)

// WithDefaultModel wraps a provider that has no notion of a bound default
// model (OpenAI, Anthropic, and Gemini's constructors all take zero model
// arguments) so a registry factory can hand back a client already defaulted
// to one model id, the same way providers/bedrock.New(runtime, defaultModel)
// binds its model at construction time.
func WithDefaultModel(provider Provider, defaultModel string) Provider {
	return &defaultModelProvider{provider: provider, defaultModel: defaultModel}
}

type defaultModelProvider struct {
	provider     Provider
	defaultModel string
}

func (p *defaultModelProvider) fill(request ChatRequest) ChatRequest {
	if request.Model == "" {
		request.Model = p.defaultModel
	}
	return request
}

func (p *defaultModelProvider) SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	return p.provider.SendMessage(ctx, p.fill(request))
}

func (p *defaultModelProvider) IsStopMessage(message *ChatResponse) bool {
	return p.provider.IsStopMessage(message)
}

func (p *defaultModelProvider) WithAPIKey(apiKey string) Provider {
	p.provider = p.provider.WithAPIKey(apiKey)
	return p
}

func (p *defaultModelProvider) WithBaseURL(baseURL string) Provider {
	p.provider = p.provider.WithBaseURL(baseURL)
	return p
}

func (p *defaultModelProvider) WithHttpClient(httpClient *http.Client) Provider {
	p.provider = p.provider.WithHttpClient(httpClient)
	return p
}

// StreamMessage delegates to the wrapped provider when it implements
// StreamProvider, so WithDefaultModel never hides streaming support.
func (p *defaultModelProvider) StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error) {
	streamer, ok := p.provider.(StreamProvider)
	if !ok {
		return nil, &LlmError{Kind: ErrKindAPI, Message: "provider does not support streaming"}
	}
	return streamer.StreamMessage(ctx, p.fill(request))
}
