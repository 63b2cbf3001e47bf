package bedrock

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/siumai/siumai/providers/ai"
)

// jsonToolName is the reserved tool Bedrock Converse is given a synthetic
// function to call when the caller requests structured JSON output, since
// Converse has no native response_format.
const jsonToolName = "json"

// requestParts holds the Converse input pieces built from an [ai.ChatRequest].
type requestParts struct {
	messages   []brtypes.Message
	system     []brtypes.SystemContentBlock
	toolConfig *brtypes.ToolConfiguration
}

// buildRequestParts splits request.Messages into a leading contiguous system
// block and an alternating user/assistant conversation, maps tool
// declarations and tool choice, and layers in the reserved json tool when a
// structured ResponseFormat is requested.
func buildRequestParts(request ai.ChatRequest) (*requestParts, error) {
	system := make([]brtypes.SystemContentBlock, 0, 1)
	if request.SystemPrompt != "" {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: request.SystemPrompt})
	}

	messages := make([]brtypes.Message, 0, len(request.Messages))
	for _, m := range request.Messages {
		if m.Role == ai.RoleSystem {
			if m.Content != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
			}
			continue
		}
		block, role, err := convertMessage(m)
		if err != nil {
			return nil, err
		}
		if block == nil {
			continue
		}
		messages = append(messages, brtypes.Message{Role: role, Content: block})
	}

	toolConfig, err := buildToolConfig(request)
	if err != nil {
		return nil, err
	}

	return &requestParts{messages: messages, system: system, toolConfig: toolConfig}, nil
}

// convertMessage maps one ai.Message to a Converse content block list plus
// its conversation role. Tool-role messages become a toolResult block inside
// a user-role message, matching Converse's convention of correlating
// toolUseId through the user turn that follows an assistant tool_use.
func convertMessage(m ai.Message) ([]brtypes.ContentBlock, brtypes.ConversationRole, error) {
	switch m.Role {
	case ai.RoleTool:
		content := []brtypes.ToolResultContentBlock{
			&brtypes.ToolResultContentBlockMemberText{Value: m.Content},
		}
		block := &brtypes.ContentBlockMemberToolResult{
			Value: brtypes.ToolResultBlock{
				ToolUseId: aws.String(m.ToolCallID),
				Content:   content,
			},
		}
		return []brtypes.ContentBlock{block}, brtypes.ConversationRoleUser, nil

	case ai.RoleAssistant:
		blocks := make([]brtypes.ContentBlock, 0, len(m.ToolCalls)+1)
		if m.Reasoning != "" {
			blocks = append(blocks, &brtypes.ContentBlockMemberReasoningContent{
				Value: &brtypes.ReasoningContentBlockMemberReasoningText{
					Value: brtypes.ReasoningTextBlock{Text: aws.String(m.Reasoning)},
				},
			})
		}
		if m.Content != "" {
			blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Content})
		}
		for _, tc := range m.ToolCalls {
			input, err := documentFromJSON(tc.Function.Arguments)
			if err != nil {
				return nil, "", fmt.Errorf("bedrock: tool call %q arguments: %w", tc.Function.Name, err)
			}
			blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
				Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Function.Name),
					Input:     input,
				},
			})
		}
		if len(blocks) == 0 {
			return nil, "", nil
		}
		return blocks, brtypes.ConversationRoleAssistant, nil

	default: // ai.RoleUser and any non-system/tool/assistant role
		blocks, err := convertContent(m)
		if err != nil {
			return nil, "", err
		}
		if len(blocks) == 0 {
			return nil, "", nil
		}
		return blocks, brtypes.ConversationRoleUser, nil
	}
}

// convertContent maps a message's plain Content or multimodal ContentParts to
// Converse content blocks. Image/audio/video/document parts are sent as
// Converse image/document blocks when inline data is available; URI-only
// references are not supported by Converse and are skipped.
func convertContent(m ai.Message) ([]brtypes.ContentBlock, error) {
	if len(m.ContentParts) == 0 {
		if m.Content == "" {
			return nil, nil
		}
		return []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}}, nil
	}

	blocks := make([]brtypes.ContentBlock, 0, len(m.ContentParts))
	for _, part := range m.ContentParts {
		switch part.Type {
		case ai.ContentTypeText:
			if part.Text != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: part.Text})
			}
		case ai.ContentTypeImage:
			if part.Image == nil || part.Image.Data == "" {
				continue
			}
			blocks = append(blocks, &brtypes.ContentBlockMemberImage{
				Value: brtypes.ImageBlock{
					Format: imageFormatFromMimeType(part.Image.MimeType),
					Source: &brtypes.ImageSourceMemberBytes{Value: []byte(part.Image.Data)},
				},
			})
		case ai.ContentTypeDocument:
			if part.Document == nil || part.Document.Data == "" {
				continue
			}
			blocks = append(blocks, &brtypes.ContentBlockMemberDocument{
				Value: brtypes.DocumentBlock{
					Format: brtypes.DocumentFormatPdf,
					Name:   aws.String("document"),
					Source: &brtypes.DocumentSourceMemberBytes{Value: []byte(part.Document.Data)},
				},
			})
		}
	}
	return blocks, nil
}

func imageFormatFromMimeType(mimeType string) brtypes.ImageFormat {
	switch mimeType {
	case "image/png":
		return brtypes.ImageFormatPng
	case "image/gif":
		return brtypes.ImageFormatGif
	case "image/webp":
		return brtypes.ImageFormatWebp
	default:
		return brtypes.ImageFormatJpeg
	}
}

// buildToolConfig translates request.Tools/ToolChoice into a
// ToolConfiguration, layering in the reserved json tool and forced
// toolChoice:{any:{}} when request.ResponseFormat requests structured output.
func buildToolConfig(request ai.ChatRequest) (*brtypes.ToolConfiguration, error) {
	tools := make([]brtypes.Tool, 0, len(request.Tools)+1)
	for _, t := range request.Tools {
		if ai.IsBuiltinTool(t.Name) {
			continue
		}
		schema, err := documentFromSchema(t)
		if err != nil {
			return nil, err
		}
		tools = append(tools, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: schema},
			},
		})
	}

	wantsJSON := request.ResponseFormat != nil && request.ResponseFormat.OutputSchema != nil
	if wantsJSON {
		schemaDoc, err := documentFromValue(request.ResponseFormat.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("bedrock: response_format schema: %w", err)
		}
		tools = append(tools, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(jsonToolName),
				Description: aws.String("Return the final answer as structured JSON matching the given schema."),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: schemaDoc},
			},
		})
	}

	if len(tools) == 0 {
		return nil, nil
	}

	cfg := &brtypes.ToolConfiguration{Tools: tools}

	switch {
	case wantsJSON:
		cfg.ToolChoice = &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
	case request.ToolChoice == nil:
		// Auto is Converse's default; leave ToolChoice unset.
	case request.ToolChoice.Mode == ai.ToolChoiceTool:
		cfg.ToolChoice = &brtypes.ToolChoiceMemberTool{
			Value: brtypes.SpecificToolChoice{Name: aws.String(request.ToolChoice.Name)},
		}
	case request.ToolChoice.Mode == ai.ToolChoiceRequired:
		cfg.ToolChoice = &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
	case request.ToolChoice.Mode == ai.ToolChoiceNone:
		// Converse has no explicit "none" tool choice; omit the tool config
		// entirely so the model is never offered tools to call.
		return nil, nil
	}

	return cfg, nil
}

// inferenceConfigFrom maps the provider-agnostic GenerationConfig onto
// Converse's InferenceConfiguration. Fields Converse does not support
// (top-p/penalties beyond TopP, thinking budgets) are carried separately by
// callers that need them; Converse's InferenceConfiguration only exposes
// MaxTokens/Temperature/TopP/StopSequences.
func inferenceConfigFrom(cfg *ai.GenerationConfig) *brtypes.InferenceConfiguration {
	if cfg == nil {
		return nil
	}
	var out brtypes.InferenceConfiguration
	set := false
	if cfg.MaxTokens > 0 {
		out.MaxTokens = aws.Int32(int32(cfg.MaxTokens))
		set = true
	} else if cfg.MaxOutputTokens > 0 {
		out.MaxTokens = aws.Int32(int32(cfg.MaxOutputTokens))
		set = true
	}
	if cfg.Temperature > 0 {
		out.Temperature = aws.Float32(cfg.Temperature)
		set = true
	}
	if cfg.TopP > 0 {
		out.TopP = aws.Float32(cfg.TopP)
		set = true
	}
	if !set {
		return nil
	}
	return &out
}

func documentFromSchema(t ai.ToolDescription) (document.Interface, error) {
	if t.Parameters == nil {
		return documentFromValue(map[string]any{"type": "object", "properties": map[string]any{}})
	}
	return documentFromValue(t.Parameters)
}

func documentFromValue(v any) (document.Interface, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return document.NewLazyDocument(&generic), nil
}

func documentFromJSON(raw string) (document.Interface, error) {
	if raw == "" {
		return documentFromValue(map[string]any{})
	}
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, err
	}
	return document.NewLazyDocument(&generic), nil
}
