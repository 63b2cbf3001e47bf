package gemini

import (
	"context"
	"fmt"

	"github.com/siumai/siumai/providers/ai"
)

// Factory builds GeminiProvider instances for a registry, structurally
// satisfying registry.ProviderFactory without importing the registry
// package, following providers/bedrock.Factory.
type Factory struct {
	APIKey  string
	BaseURL string
}

// NewFactory returns a Factory for registration under a provider id such as
// "gemini". An empty APIKey/BaseURL falls back to GEMINI_API_KEY /
// GEMINI_API_BASE_URL, exactly like New.
func NewFactory(apiKey, baseURL string) *Factory {
	return &Factory{APIKey: apiKey, BaseURL: baseURL}
}

// LanguageModel returns a GeminiProvider defaulted to the given model id.
func (f *Factory) LanguageModel(ctx context.Context, model string) (ai.Provider, error) {
	provider := New()
	if f.APIKey != "" {
		provider = provider.WithAPIKey(f.APIKey).(*GeminiProvider)
	}
	if f.BaseURL != "" {
		provider = provider.WithBaseURL(f.BaseURL).(*GeminiProvider)
	}
	return ai.WithDefaultModel(provider, model), nil
}

// EmbeddingModel is unsupported: this package only implements Gemini's
// generateContent/streamGenerateContent chat transforms, not embedContent.
func (f *Factory) EmbeddingModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("gemini: embedding models are not supported by this provider")
}

// ImageModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) ImageModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("gemini: image models are not supported by this provider")
}

// SpeechModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) SpeechModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("gemini: speech models are not supported by this provider")
}

// TranscriptionModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) TranscriptionModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("gemini: transcription models are not supported by this provider")
}
