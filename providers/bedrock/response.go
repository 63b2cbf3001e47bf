package bedrock

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/siumai/siumai/providers/ai"
)

// translateConverseOutput maps a Converse response into an [ai.ChatResponse].
// Tool use blocks addressed to the reserved json tool are surfaced as the
// response's Content (stringified JSON) rather than as a tool call, since
// they represent the model's structured answer, not a real function
// invocation the caller needs to execute.
func translateConverseOutput(output *bedrockruntime.ConverseOutput, modelID string) (*ai.ChatResponse, error) {
	if output == nil {
		return nil, fmt.Errorf("bedrock converse: empty output")
	}

	result := &ai.ChatResponse{
		Model:        modelID,
		Object:       "chat.completion",
		FinishReason: ai.MapFinishReason(string(output.StopReason), ai.BedrockFinishReasons),
	}

	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		if err := appendContentBlocks(result, msg.Value.Content); err != nil {
			return nil, err
		}
	}

	if output.Usage != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     int(ptrInt32(output.Usage.InputTokens)),
			CompletionTokens: int(ptrInt32(output.Usage.OutputTokens)),
			TotalTokens:      int(ptrInt32(output.Usage.TotalTokens)),
			CachedTokens:     int(ptrInt32(output.Usage.CacheReadInputTokens)),
		}
	}

	return result, nil
}

func appendContentBlocks(result *ai.ChatResponse, blocks []brtypes.ContentBlock) error {
	var text, reasoning string
	for _, block := range blocks {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text += v.Value
		case *brtypes.ContentBlockMemberReasoningContent:
			if r, ok := v.Value.(*brtypes.ReasoningContentBlockMemberReasoningText); ok {
				if r.Value.Text != nil {
					reasoning += *r.Value.Text
				}
			}
		case *brtypes.ContentBlockMemberToolUse:
			name := ""
			if v.Value.Name != nil {
				name = *v.Value.Name
			}
			args, err := jsonFromDocument(v.Value.Input)
			if err != nil {
				return fmt.Errorf("bedrock converse: tool_use %q input: %w", name, err)
			}
			if name == jsonToolName {
				result.Content = string(args)
				continue
			}
			id := ""
			if v.Value.ToolUseId != nil {
				id = *v.Value.ToolUseId
			}
			result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
				ID:   id,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      name,
					Arguments: string(args),
				},
			})
		}
	}
	if text != "" {
		result.Content = text
	}
	if reasoning != "" {
		result.Reasoning = reasoning
	}
	return nil
}

func jsonFromDocument(doc interface {
	MarshalSmithyDocument() ([]byte, error)
}) (json.RawMessage, error) {
	if doc == nil {
		return json.RawMessage("{}"), nil
	}
	raw, err := doc.MarshalSmithyDocument()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(raw), nil
}

func ptrInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
