package openai

import (
	"net/http"
	"os"
)

// Default base URLs for OpenAI-compatible vendors. Each vendor speaks the
// same chat/completions wire format as OpenAI, differing only in capability
// surface (detectCapabilities) and, for some, reasoning/tool-call quirks
// already accounted for there.
const (
	defaultOllamaBaseURL      = "http://localhost:11434/v1"
	defaultDeepSeekBaseURL    = "https://api.deepseek.com/v1"
	defaultOpenRouterBaseURL  = "https://openrouter.ai/api/v1"
	defaultSiliconFlowBaseURL = "https://api.siliconflow.cn/v1"
)

// NewOllamaProvider creates a provider targeting a local Ollama server.
// Ollama does not require an API key; OLLAMA_API_BASE_URL overrides the
// default local endpoint (useful when Ollama runs on a remote host).
func NewOllamaProvider() *OpenAIProvider {
	baseURL := os.Getenv("OLLAMA_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OpenAIProvider{
		baseURL:      baseURL,
		client:       &http.Client{},
		capabilities: detectCapabilities(baseURL),
	}
}

// NewDeepSeekProvider creates a provider targeting DeepSeek's API.
func NewDeepSeekProvider() *OpenAIProvider {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	baseURL := os.Getenv("DEEPSEEK_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultDeepSeekBaseURL
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{},
		capabilities: detectCapabilities(baseURL),
	}
}

// NewOpenRouterProvider creates a provider targeting OpenRouter's model
// aggregation API.
func NewOpenRouterProvider() *OpenAIProvider {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	baseURL := os.Getenv("OPENROUTER_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{},
		capabilities: detectCapabilities(baseURL),
	}
}

// NewSiliconFlowProvider creates a provider targeting SiliconFlow's API.
func NewSiliconFlowProvider() *OpenAIProvider {
	apiKey := os.Getenv("SILICONFLOW_API_KEY")
	baseURL := os.Getenv("SILICONFLOW_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultSiliconFlowBaseURL
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{},
		capabilities: detectCapabilities(baseURL),
	}
}
