package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/siumai/siumai/providers/ai"
)

// InvalidParameterError reports a malformed "provider:model" id.
type InvalidParameterError struct {
	ModelID string
	Reason  string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("registry: invalid model id %q: %s", e.ModelID, e.Reason)
}

// ParseModelID splits a "provider<sep>model" id, defaulting sep to ":". An
// empty provider or model segment is an InvalidParameterError.
func ParseModelID(modelID string, sep string) (provider string, model string, err error) {
	if sep == "" {
		sep = ":"
	}
	idx := strings.Index(modelID, sep)
	if idx < 0 {
		return "", "", &InvalidParameterError{ModelID: modelID, Reason: "missing provider separator"}
	}
	provider = modelID[:idx]
	model = modelID[idx+len(sep):]
	if provider == "" {
		return "", "", &InvalidParameterError{ModelID: modelID, Reason: "empty provider segment"}
	}
	if model == "" {
		return "", "", &InvalidParameterError{ModelID: modelID, Reason: "empty model segment"}
	}
	return provider, model, nil
}

// ProviderFactory builds capability-specific clients for one provider.
// Any method a concrete factory does not need to specialize can simply
// delegate to LanguageModel: the registry never calls a method this
// interface does not expose, so the default-to-language-model behavior
// described by the spec is a matter of how a factory implementation is
// written, not a registry-side fallback.
type ProviderFactory interface {
	LanguageModel(ctx context.Context, model string) (ai.Provider, error)
	EmbeddingModel(ctx context.Context, model string) (ai.Provider, error)
	ImageModel(ctx context.Context, model string) (ai.Provider, error)
	SpeechModel(ctx context.Context, model string) (ai.Provider, error)
	TranscriptionModel(ctx context.Context, model string) (ai.Provider, error)
}

// Middleware rewrites the provider id or model id resolved from a model id
// string before the registry looks up (or builds) a client, and can prepend
// provider+model-specific auto-middlewares ahead of the globals passed by
// the caller (spec §4.7 "Auto-middlewares").
type Middleware interface {
	OverrideProviderID(current string) string
	OverrideModelID(providerID, current string) string
}

// Registry resolves "provider:model" ids to capability-specific clients,
// caching built clients in an LRU+TTL ClientCache keyed by
// "provider:effective_model".
type Registry struct {
	factories  map[string]ProviderFactory
	cache      *ClientCache
	middleware Middleware
	separator  string
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithSeparator overrides the default ":" provider/model separator.
func WithSeparator(sep string) Option {
	return func(r *Registry) { r.separator = sep }
}

// WithCacheCapacity sets the LRU capacity (default 100) and TTL (0 disables
// expiry) of the client cache.
func WithCacheCapacity(maxSize int, ttl time.Duration) Option {
	return func(r *Registry) { r.cache = NewClientCache(maxSize, ttl) }
}

// WithMiddleware installs provider/model id override middleware.
func WithMiddleware(m Middleware) Option {
	return func(r *Registry) { r.middleware = m }
}

// New creates a Registry with no providers registered; call Register to add
// a ProviderFactory under a provider id before resolving any models.
func New(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[string]ProviderFactory),
		separator: ":",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewClientCache(100, 0)
	}
	return r
}

// Register associates a ProviderFactory with a provider id (e.g. "openai").
func (r *Registry) Register(providerID string, factory ProviderFactory) {
	r.factories[providerID] = factory
}

func (r *Registry) resolve(modelID string) (providerID, model string, err error) {
	providerID, model, err = ParseModelID(modelID, r.separator)
	if err != nil {
		return "", "", err
	}
	if r.middleware != nil {
		providerID = r.middleware.OverrideProviderID(providerID)
		model = r.middleware.OverrideModelID(providerID, model)
	}
	return providerID, model, nil
}

func (r *Registry) factoryFor(providerID string) (ProviderFactory, error) {
	factory, ok := r.factories[providerID]
	if !ok {
		return nil, fmt.Errorf("registry: no provider registered under id %q", providerID)
	}
	return factory, nil
}

// LanguageModelHandle implements ai.Provider by retrieving (or building and
// caching) the underlying client for one resolved "provider:model" id and
// delegating every call to it.
type LanguageModelHandle struct {
	registry *Registry
	modelID  string
}

// LanguageModel returns a handle for modelID ("provider:model"). The
// underlying client is not built until the handle is first used.
func (r *Registry) LanguageModel(modelID string) *LanguageModelHandle {
	return &LanguageModelHandle{registry: r, modelID: modelID}
}

// capability namespaces the cache key so a "provider:model" pair resolved
// through two different capability handles (e.g. a language model and an
// embedding model sharing the same underlying model id) never collide.
type capability string

const (
	capChat          capability = "chat"
	capEmbedding     capability = "embed"
	capImage         capability = "image"
	capSpeech        capability = "speech"
	capTranscription capability = "transcribe"
)

func buildClient(ctx context.Context, r *Registry, modelID string, capKind capability, build func(f ProviderFactory, model string) (ai.Provider, error)) (ai.Provider, error) {
	providerID, model, err := r.resolve(modelID)
	if err != nil {
		return nil, err
	}
	factory, err := r.factoryFor(providerID)
	if err != nil {
		return nil, err
	}

	cacheKey := string(capKind) + ":" + providerID + ":" + model
	value, err := r.cache.GetOrBuild(cacheKey, func() (any, error) {
		return build(factory, model)
	})
	if err != nil {
		return nil, err
	}
	return value.(ai.Provider), nil
}

func (h *LanguageModelHandle) client(ctx context.Context) (ai.Provider, error) {
	return buildClient(ctx, h.registry, h.modelID, capChat, func(f ProviderFactory, model string) (ai.Provider, error) {
		return f.LanguageModel(ctx, model)
	})
}

// ResolveProvider returns the underlying (cached or newly built) ai.Provider
// for this handle, for callers that need the raw provider rather than
// SendMessage/StreamMessage delegation — e.g. to hand it to
// core/client.NewClient for the richer orchestration layer.
func (h *LanguageModelHandle) ResolveProvider(ctx context.Context) (ai.Provider, error) {
	return h.client(ctx)
}

// SendMessage resolves (or reuses) the cached client for this handle's model
// id and delegates the call to it.
func (h *LanguageModelHandle) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	client, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return client.SendMessage(ctx, request)
}

// StreamMessage resolves (or reuses) the cached client for this handle's
// model id and delegates the call to it, when the underlying client
// implements ai.StreamProvider.
func (h *LanguageModelHandle) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	client, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	streamer, ok := client.(ai.StreamProvider)
	if !ok {
		return nil, fmt.Errorf("registry: provider for %q does not support streaming", h.modelID)
	}
	return streamer.StreamMessage(ctx, request)
}

// EmbeddingModelHandle, ImageModelHandle, SpeechModelHandle, and
// TranscriptionModelHandle follow LanguageModelHandle's retrieve-cached-or-
// build pattern for their own capability (spec §4.7 "Handles"). A factory
// that doesn't implement a given capability returns an error from its
// corresponding method (see e.g. providers/bedrock.Factory.EmbeddingModel),
// which these handles surface to the caller unchanged.

// EmbeddingModelHandle resolves "provider:model" ids to an embedding-capable
// client, built through the registered factory's EmbeddingModel method.
type EmbeddingModelHandle struct {
	registry *Registry
	modelID  string
}

// EmbeddingModel returns a handle for modelID. The underlying client is not
// built until the handle is first used.
func (r *Registry) EmbeddingModel(modelID string) *EmbeddingModelHandle {
	return &EmbeddingModelHandle{registry: r, modelID: modelID}
}

// Client resolves (or reuses) the cached client for this handle's model id.
func (h *EmbeddingModelHandle) Client(ctx context.Context) (ai.Provider, error) {
	return buildClient(ctx, h.registry, h.modelID, capEmbedding, func(f ProviderFactory, model string) (ai.Provider, error) {
		return f.EmbeddingModel(ctx, model)
	})
}

// ImageModelHandle resolves "provider:model" ids to an image-capable client.
type ImageModelHandle struct {
	registry *Registry
	modelID  string
}

// ImageModel returns a handle for modelID.
func (r *Registry) ImageModel(modelID string) *ImageModelHandle {
	return &ImageModelHandle{registry: r, modelID: modelID}
}

// Client resolves (or reuses) the cached client for this handle's model id.
func (h *ImageModelHandle) Client(ctx context.Context) (ai.Provider, error) {
	return buildClient(ctx, h.registry, h.modelID, capImage, func(f ProviderFactory, model string) (ai.Provider, error) {
		return f.ImageModel(ctx, model)
	})
}

// SpeechModelHandle resolves "provider:model" ids to a speech-capable client.
type SpeechModelHandle struct {
	registry *Registry
	modelID  string
}

// SpeechModel returns a handle for modelID.
func (r *Registry) SpeechModel(modelID string) *SpeechModelHandle {
	return &SpeechModelHandle{registry: r, modelID: modelID}
}

// Client resolves (or reuses) the cached client for this handle's model id.
func (h *SpeechModelHandle) Client(ctx context.Context) (ai.Provider, error) {
	return buildClient(ctx, h.registry, h.modelID, capSpeech, func(f ProviderFactory, model string) (ai.Provider, error) {
		return f.SpeechModel(ctx, model)
	})
}

// TranscriptionModelHandle resolves "provider:model" ids to a
// transcription-capable client.
type TranscriptionModelHandle struct {
	registry *Registry
	modelID  string
}

// TranscriptionModel returns a handle for modelID.
func (r *Registry) TranscriptionModel(modelID string) *TranscriptionModelHandle {
	return &TranscriptionModelHandle{registry: r, modelID: modelID}
}

// Client resolves (or reuses) the cached client for this handle's model id.
func (h *TranscriptionModelHandle) Client(ctx context.Context) (ai.Provider, error) {
	return buildClient(ctx, h.registry, h.modelID, capTranscription, func(f ProviderFactory, model string) (ai.Provider, error) {
		return f.TranscriptionModel(ctx, model)
	})
}
