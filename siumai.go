// Package siumai is the unified facade (spec component C12): a single
// entry point over the provider registry that resolves "provider:model"
// ids to concrete clients and exposes the chat and streaming capabilities
// every registered provider implements.
package siumai

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/siumai/siumai/core/client"
	"github.com/siumai/siumai/providers/ai"
	"github.com/siumai/siumai/providers/ai/anthropic"
	"github.com/siumai/siumai/providers/ai/gemini"
	"github.com/siumai/siumai/providers/ai/openai"
	"github.com/siumai/siumai/providers/bedrock"
	"github.com/siumai/siumai/registry"
)

// Siumai holds a *registry.Registry with the built-in HTTP providers
// registered under their canonical ids ("openai", "anthropic", "gemini"),
// plus any caller-supplied extras (e.g. "bedrock"). Every capability it
// exposes resolves through the registry, so a built client is built once
// and cached regardless of which method reaches it first.
type Siumai struct {
	registry *registry.Registry
}

// Config supplies per-provider credentials/base URLs at construction time.
// A zero-value field falls back to that provider's own environment
// variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, and the
// matching *_API_BASE_URL), matching each provider's New/NewOpenAIProvider
// constructor.
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string

	AnthropicAPIKey  string
	AnthropicBaseURL string

	GeminiAPIKey  string
	GeminiBaseURL string

	// BedrockRuntime, when non-nil, registers a "bedrock" provider backed by
	// this pre-configured Converse client.
	BedrockRuntime *bedrockruntime.Client

	// RegistryOptions passes through to registry.New (cache capacity/TTL,
	// separator, auto-middleware), applied before the built-in providers
	// are registered.
	RegistryOptions []registry.Option
}

// New builds a Siumai with the built-in providers registered under their
// canonical ids. Passing an empty Config registers all three HTTP
// providers reading their credentials from environment variables.
func New(cfg Config) *Siumai {
	r := registry.New(cfg.RegistryOptions...)

	r.Register("openai", openai.NewFactory(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))
	r.Register("anthropic", anthropic.NewFactory(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL))
	r.Register("gemini", gemini.NewFactory(cfg.GeminiAPIKey, cfg.GeminiBaseURL))

	if cfg.BedrockRuntime != nil {
		r.Register("bedrock", bedrock.NewFactory(cfg.BedrockRuntime))
	}

	return &Siumai{registry: r}
}

// Register adds or overrides a provider under providerID, for a custom
// ProviderFactory the caller supplies directly (a proxy, a mock for tests,
// or a provider this module doesn't ship).
func (s *Siumai) Register(providerID string, factory registry.ProviderFactory) {
	s.registry.Register(providerID, factory)
}

// Registry exposes the underlying registry for callers that need a
// capability handle directly (e.g. registry.EmbeddingModel, which this
// facade's Chat/Stream convenience methods don't cover).
func (s *Siumai) Registry() *registry.Registry {
	return s.registry
}

// Chat resolves modelID ("provider:model") to a client and sends request
// through it, building (or reusing) the underlying client via the registry
// cache.
func (s *Siumai) Chat(ctx context.Context, modelID string, request ai.ChatRequest) (*ai.ChatResponse, error) {
	request.Model = modelIDModel(modelID, request.Model)
	return s.registry.LanguageModel(modelID).SendMessage(ctx, request)
}

// Stream resolves modelID to a client and opens a streaming call through
// it. Returns an error if the resolved provider doesn't implement
// ai.StreamProvider.
func (s *Siumai) Stream(ctx context.Context, modelID string, request ai.ChatRequest) (*ai.ChatStream, error) {
	request.Model = modelIDModel(modelID, request.Model)
	return s.registry.LanguageModel(modelID).StreamMessage(ctx, request)
}

// modelIDModel fills request.Model from modelID's model segment when the
// caller left it unset, mirroring ai.WithDefaultModel's behavior so a
// caller never has to repeat the model id in both places.
func modelIDModel(modelID, requestModel string) string {
	if requestModel != "" {
		return requestModel
	}
	_, model, err := registry.ParseModelID(modelID, "")
	if err != nil {
		return requestModel
	}
	return model
}

// Client builds a *client.Client[T] (the orchestration layer: system
// prompt, tools, middlewares, observability) over the provider resolved for
// modelID, for callers that want the richer orchestrator instead of the
// bare Chat/Stream convenience methods.
func Client[T any](ctx context.Context, s *Siumai, modelID string, opts ...func(*client.ClientOptions)) (*client.Client[T], error) {
	provider, err := s.registry.LanguageModel(modelID).ResolveProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("siumai: resolving provider for %q: %w", modelID, err)
	}
	return client.NewClient[T](provider, opts...)
}

// EmbeddingSupported reports whether modelID resolves to a provider with
// embedding support, without blocking the caller on an actual embedding
// call — it tries to build the client and reports success, matching the
// facade's "capability proxies that never block, carry a best-effort
// reported_support flag" contract. Image/Speech/Transcription follow the
// identical shape.
func (s *Siumai) EmbeddingSupported(ctx context.Context, modelID string) bool {
	_, err := s.registry.EmbeddingModel(modelID).Client(ctx)
	return err == nil
}

// ImageSupported mirrors EmbeddingSupported for image-generation models.
func (s *Siumai) ImageSupported(ctx context.Context, modelID string) bool {
	_, err := s.registry.ImageModel(modelID).Client(ctx)
	return err == nil
}

// SpeechSupported mirrors EmbeddingSupported for text-to-speech models.
func (s *Siumai) SpeechSupported(ctx context.Context, modelID string) bool {
	_, err := s.registry.SpeechModel(modelID).Client(ctx)
	return err == nil
}

// TranscriptionSupported mirrors EmbeddingSupported for speech-to-text
// models.
func (s *Siumai) TranscriptionSupported(ctx context.Context, modelID string) bool {
	_, err := s.registry.TranscriptionModel(modelID).Client(ctx)
	return err == nil
}
