package openai

import (
	"context"
	"fmt"

	"github.com/siumai/siumai/providers/ai"
)

// Factory builds OpenAIProvider instances for a registry, structurally
// satisfying registry.ProviderFactory (one method per capability) without
// importing the registry package, following providers/bedrock.Factory.
type Factory struct {
	APIKey  string
	BaseURL string
}

// NewFactory returns a Factory for registration under a provider id such as
// "openai". An empty APIKey/BaseURL falls back to OPENAI_API_KEY /
// OPENAI_API_BASE_URL, exactly like NewOpenAIProvider.
func NewFactory(apiKey, baseURL string) *Factory {
	return &Factory{APIKey: apiKey, BaseURL: baseURL}
}

// LanguageModel returns an OpenAIProvider defaulted to the given model id.
func (f *Factory) LanguageModel(ctx context.Context, model string) (ai.Provider, error) {
	provider := NewOpenAIProvider()
	if f.APIKey != "" {
		provider = provider.WithAPIKey(f.APIKey).(*OpenAIProvider)
	}
	if f.BaseURL != "" {
		provider = provider.WithBaseURL(f.BaseURL).(*OpenAIProvider)
	}
	return ai.WithDefaultModel(provider, model), nil
}

// EmbeddingModel is unsupported: this package only implements the chat
// transform paths (Responses and Chat Completions), not /v1/embeddings.
func (f *Factory) EmbeddingModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("openai: embedding models are not supported by this provider")
}

// ImageModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) ImageModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("openai: image models are not supported by this provider")
}

// SpeechModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) SpeechModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("openai: speech models are not supported by this provider")
}

// TranscriptionModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) TranscriptionModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("openai: transcription models are not supported by this provider")
}
