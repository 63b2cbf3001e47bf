package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/siumai/siumai/providers/ai"
)

// Factory builds BedrockProvider instances for a registry. It satisfies the
// registry's ProviderFactory interface structurally (one LanguageModel/
// EmbeddingModel/ImageModel/SpeechModel/TranscriptionModel method per
// capability) without importing the registry package, so this provider stays
// usable standalone.
type Factory struct {
	Runtime *bedrockruntime.Client
}

// NewFactory wraps a pre-configured bedrockruntime client for registration
// with a provider registry under a provider id such as "bedrock".
func NewFactory(runtime *bedrockruntime.Client) *Factory {
	return &Factory{Runtime: runtime}
}

// LanguageModel returns a BedrockProvider defaulted to the given model id.
func (f *Factory) LanguageModel(ctx context.Context, model string) (ai.Provider, error) {
	return New(f.Runtime, model), nil
}

// EmbeddingModel is unsupported: Bedrock's Converse API this package wraps
// has no embedding operation. Embeddings go through a separate Bedrock API
// (InvokeModel against an embedding model) not modeled by this package.
func (f *Factory) EmbeddingModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("bedrock: embedding models are not supported by the Converse adapter")
}

// ImageModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) ImageModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("bedrock: image models are not supported by the Converse adapter")
}

// SpeechModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) SpeechModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("bedrock: speech models are not supported by the Converse adapter")
}

// TranscriptionModel is unsupported for the same reason as EmbeddingModel.
func (f *Factory) TranscriptionModel(ctx context.Context, model string) (ai.Provider, error) {
	return nil, fmt.Errorf("bedrock: transcription models are not supported by the Converse adapter")
}
