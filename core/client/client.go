package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/siumai/siumai/internal/jsonschema"
	"github.com/siumai/siumai/providers/ai"
	"github.com/siumai/siumai/providers/observability"
)

const (
	envDefaultModel = "AIGO_DEFAULT_LLM_MODEL"
)

// Client is an immutable orchestrator for LLM interactions.
// All configuration must be provided at construction time via Options.
//
// Conversation state (message history) is supplied by the caller on each
// call; the client itself holds no memory of prior turns.
type Client[T any] struct {
	systemPrompt     string
	defaultModel     string
	llmProvider      ai.Provider
	observer         observability.Provider // nil if not set (zero overhead)
	toolDescriptions []ai.ToolDescription
	outputSchema     *jsonschema.Schema
	sendChain        SendFunc
	streamChain      StreamFunc
}

// ClientOptions contains all configuration for a Client.
type ClientOptions struct {
	// Required
	LlmProvider ai.Provider

	// Optional with sensible defaults
	DefaultModel       string                 // Model to use for requests (can be overridden per-request in future)
	Observer           observability.Provider // Defaults to nil (zero overhead)
	SystemPrompt       string                 // System prompt for all requests
	Tools              []ai.ToolDescription   // Tools the provider may call; the caller executes them
	EnrichSystemPrompt bool                   // If true, automatically append tool descriptions to system prompt (default: false)
	Middlewares        []MiddlewareConfig     // Send/stream interceptor chain, outermost first
}

// Functional option pattern for ergonomic API

func WithDefaultModel(model string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.DefaultModel = model
	}
}

func WithObserver(observer observability.Provider) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Observer = observer
	}
}

func WithSystemPrompt(prompt string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.SystemPrompt = prompt
	}
}

func WithTools(tools ...ai.ToolDescription) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Tools = append(o.Tools, tools...)
	}
}

// WithEnrichSystemPrompt enables automatic enrichment of the system prompt
// with tool descriptions. When enabled, the client will append detailed
// information about available tools to the system prompt, helping the LLM
// understand when and how to use them.
//
// This is disabled by default to maintain backward compatibility and give
// users full control over system prompts.
func WithEnrichSystemPrompt() func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.EnrichSystemPrompt = true
	}
}

// WithMiddlewares installs an interceptor chain around every provider call.
// Entries are applied outermost-first, i.e. middlewares[0] runs first on the
// way in and last on the way out. When [WithObserver] is also supplied, the
// observability middleware is prepended ahead of these so it sees the final
// outcome after every other interceptor (retries, timeouts, etc.) has run.
func WithMiddlewares(middlewares ...MiddlewareConfig) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Middlewares = append(o.Middlewares, middlewares...)
	}
}

// NewClient creates a new immutable Client instance.
// The llmProvider is required as the first argument.
// All other configuration is provided via functional options.
func NewClient[T any](llmProvider ai.Provider, opts ...func(*ClientOptions)) (*Client[T], error) {
	options := &ClientOptions{
		LlmProvider: llmProvider,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.LlmProvider == nil {
		return nil, errors.New("llmProvider is required and cannot be nil")
	}

	for i, mw := range options.Middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("middleware[%d] has a nil Send field", i)
		}
	}

	if options.DefaultModel == "" {
		options.DefaultModel = os.Getenv(envDefaultModel)
	}

	systemPrompt := options.SystemPrompt
	if options.EnrichSystemPrompt && len(options.Tools) > 0 {
		systemPrompt = enrichSystemPromptWithTools(options.SystemPrompt, options.Tools)
	}

	middlewares := options.Middlewares
	if options.Observer != nil {
		obs := NewObservabilityMiddleware(options.Observer, options.DefaultModel)
		middlewares = append([]MiddlewareConfig{obs}, middlewares...)
	}

	return &Client[T]{
		systemPrompt:     systemPrompt,
		defaultModel:     options.DefaultModel,
		llmProvider:      options.LlmProvider,
		observer:         options.Observer,
		toolDescriptions: options.Tools,
		outputSchema:     jsonschema.GenerateJSONSchema[T](),
		sendChain:        buildSendChain(options.LlmProvider, middlewares),
		streamChain:      buildStreamChain(options.LlmProvider, middlewares),
	}, nil
}

// Observer returns the observability provider configured for this client.
// Returns nil if no observer is configured (zero overhead mode).
func (c *Client[T]) Observer() observability.Provider {
	return c.observer
}

// enrichSystemPromptWithTools appends tool usage guidance to the system prompt.
// This helps LLMs understand when and how to use available tools.
func enrichSystemPromptWithTools(basePrompt string, tools []ai.ToolDescription) string {
	if len(tools) == 0 {
		return basePrompt
	}

	enrichment := "\n\n## Available Tools\n\n"
	enrichment += "You have access to the following tools. Use them when appropriate to provide accurate and helpful responses:\n\n"

	for i, t := range tools {
		enrichment += strconv.Itoa(i+1) + ". **" + t.Name + "**"
		if t.Description != "" {
			enrichment += "\n   - Description: " + t.Description
		}

		if t.Parameters != nil {
			if paramsJSON, err := json.Marshal(t.Parameters); err == nil {
				enrichment += "\n   - Parameters: " + string(paramsJSON)
			}
		}

		enrichment += "\n"
	}

	enrichment += "\n**Important:** When you need to use a tool, call it using the function calling format. "
	enrichment += "The system will execute the tool and provide you with the results, which you should then use to formulate your final response."

	return basePrompt + enrichment
}

// SendMessage sends the given conversation history to the LLM and returns the
// response. The caller owns conversation state: append the user turn (and any
// tool results from a previous round) to messages before calling.
//
// This method does NOT execute tool calls. Tool execution loops are the
// caller's responsibility; the client only transports tool calls and results.
func (c *Client[T]) SendMessage(ctx context.Context, messages []ai.Message) (*ai.ChatResponse, error) {
	response, err := c.sendChain(ctx, c.buildRequest(messages))
	if err != nil {
		return nil, err
	}

	return c.responseParser(response)
}

// StreamMessage sends the given conversation history and returns a
// [ai.ChatStream] for incremental delivery. It runs the same request
// through the interceptor chain as SendMessage, so observability, retry, and
// timeout middlewares apply equally to streaming calls (those with a
// non-nil Stream field in their MiddlewareConfig).
func (c *Client[T]) StreamMessage(ctx context.Context, messages []ai.Message) (*ai.ChatStream, error) {
	return c.streamChain(ctx, c.buildRequest(messages))
}

func (c *Client[T]) buildRequest(messages []ai.Message) ai.ChatRequest {
	request := ai.ChatRequest{
		Model:        c.defaultModel,
		Messages:     messages,
		SystemPrompt: c.systemPrompt,
		Tools:        c.toolDescriptions,
	}

	if c.outputSchema != nil {
		request.ResponseFormat = &ai.ResponseFormat{
			Type:         "json_schema",
			OutputSchema: c.outputSchema,
		}
	}

	return request
}

// responseParser validates and parses the response content according to the expected type T.
func (c *Client[T]) responseParser(response *ai.ChatResponse) (*ai.ChatResponse, error) {
	var typedVar T
	var err error

	switch reflect.TypeOf(typedVar).Kind().String() {
	case "string":
		return response, nil
	case "bool":
		_, err = strconv.ParseBool(response.Content)
	case "float32", "float64":
		_, err = strconv.ParseFloat(response.Content, 64)
	case "int", "int8", "int16", "int32", "int64":
		_, err = strconv.ParseInt(response.Content, 10, 64)
	default:
		err = json.Unmarshal([]byte(response.Content), &typedVar)
	}

	if err != nil {
		response.Content = "[Warning] Could not parse response: " + err.Error() + " --> providing raw response content as fallback.\n\n" + response.Content
	}

	return response, nil
}
