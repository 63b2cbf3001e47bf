package bedrock

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/siumai/siumai/providers/ai"
)

// runtimeClient mirrors the subset of *bedrockruntime.Client this package
// calls, so tests can substitute a fake without a live AWS connection.
type runtimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// BedrockProvider implements [ai.Provider] and [ai.StreamProvider] for Amazon
// Bedrock's Converse API. Unlike the HTTP-based providers, transport is the
// AWS SDK's bedrockruntime client; WithAPIKey/WithBaseURL/WithHttpClient are
// accepted for interface compatibility but have no effect — AWS credentials
// and region are resolved by the runtime client the caller supplies to New.
type BedrockProvider struct {
	runtime      runtimeClient
	defaultModel string
}

// New creates a BedrockProvider backed by the given bedrockruntime client.
// defaultModel is used when a ChatRequest does not specify one.
func New(runtime *bedrockruntime.Client, defaultModel string) *BedrockProvider {
	return &BedrockProvider{runtime: runtime, defaultModel: defaultModel}
}

func (p *BedrockProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *BedrockProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *BedrockProvider) WithHttpClient(*http.Client) ai.Provider { return p }

// SendMessage issues a non-streaming Converse request and translates the
// output back into a [ai.ChatResponse].
func (p *BedrockProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	modelID := request.Model
	if modelID == "" {
		modelID = p.defaultModel
	}

	parts, err := buildRequestParts(request)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         &modelID,
		Messages:        parts.messages,
		System:          parts.system,
		ToolConfig:      parts.toolConfig,
		InferenceConfig: inferenceConfigFrom(request.GenerationConfig),
	}

	output, err := p.runtime.Converse(ctx, input)
	if err != nil {
		return nil, classifyConverseError(err)
	}

	return translateConverseOutput(output, modelID)
}

// IsStopMessage reports whether the given chat response should be treated as
// a stop/end signal.
func (p *BedrockProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	switch message.FinishReason {
	case ai.FinishStop, ai.FinishLength, ai.FinishContentFilter:
		return true
	}
	return message.Content == "" && len(message.ToolCalls) == 0
}

// classifyConverseError wraps a smithy API error with enough context to
// distinguish throttling from other failures, mirroring the rate-limit
// classification every other provider's transport layer performs.
func classifyConverseError(err error) error {
	var throttling *brtypes.ThrottlingException
	if errors.As(err, &throttling) {
		return fmt.Errorf("bedrock converse: rate limited: %w", err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return fmt.Errorf("bedrock converse: rate limited: %w", err)
		default:
			return fmt.Errorf("bedrock converse: %s: %w", apiErr.ErrorCode(), err)
		}
	}
	return fmt.Errorf("bedrock converse: %w", err)
}
