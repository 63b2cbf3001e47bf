package anthropic

import (
	"context"
	"fmt"

	"github.com/siumai/siumai/providers/ai"
)

// Factory builds AnthropicProvider instances for a registry, structurally
// satisfying registry.ProviderFactory without importing the registry
// package, following providers/bedrock.Factory.
type Factory struct {
	APIKey  string
	BaseURL string
}

// NewFactory returns a Factory for registration under a provider id such as
// "anthropic". An empty APIKey/BaseURL falls back to ANTHROPIC_API_KEY /
// ANTHROPIC_API_BASE_URL, exactly like New.
func NewFactory(apiKey, baseURL string) *Factory {
	return &Factory{APIKey: apiKey, BaseURL: baseURL}
}

// LanguageModel returns an AnthropicProvider defaulted to the given model id.
func (f *Factory) LanguageModel(ctx context.Context, model string) (ai.Provider, error) {
	provider := New()
	if f.APIKey != "" {
		provider = provider.WithAPIKey(f.APIKey).(*AnthropicProvider)
	}
	if f.BaseURL != "" {
		provider = provider.WithBaseURL(f.BaseURL).(*AnthropicProvider)
	}
	return ai.WithDefaultModel(provider, model), nil
}

// EmbeddingModel is unsupported: Anthropic's Messages API has no embeddings
// endpoint; embedding providers in the wild are third parties (Voyage AI).
func (f *Factory) EmbeddingModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("anthropic: embedding models are not supported by this provider")
}

// ImageModel is unsupported: Anthropic has no image-generation endpoint.
func (f *Factory) ImageModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("anthropic: image models are not supported by this provider")
}

// SpeechModel is unsupported for the same reason as ImageModel.
func (f *Factory) SpeechModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("anthropic: speech models are not supported by this provider")
}

// TranscriptionModel is unsupported for the same reason as ImageModel.
func (f *Factory) TranscriptionModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("anthropic: transcription models are not supported by this provider")
}
