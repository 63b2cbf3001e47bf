package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/siumai/siumai/providers/ai"
)

// fakeProvider is a minimal ai.Provider stub for exercising Client without a
// real network call.
type fakeProvider struct {
	response *ai.ChatResponse
	err      error
	lastReq  ai.ChatRequest
}

func (p *fakeProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	p.lastReq = request
	if p.err != nil {
		return nil, p.err
	}
	return p.response, nil
}

func (p *fakeProvider) IsStopMessage(_ *ai.ChatResponse) bool { return false }

func (p *fakeProvider) WithAPIKey(string) ai.Provider            { return p }
func (p *fakeProvider) WithBaseURL(string) ai.Provider           { return p }
func (p *fakeProvider) WithHttpClient(*http.Client) ai.Provider  { return p }

func TestNewClient_RequiresProvider(t *testing.T) {
	_, err := NewClient[string](nil)
	if err == nil {
		t.Fatal("expected error when llmProvider is nil")
	}
}

func TestNewClient_DefaultsAndOptions(t *testing.T) {
	provider := &fakeProvider{}
	c, err := NewClient[string](provider,
		WithDefaultModel("gpt-4"),
		WithSystemPrompt("be helpful"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.defaultModel != "gpt-4" {
		t.Errorf("expected defaultModel gpt-4, got %q", c.defaultModel)
	}
	if c.systemPrompt != "be helpful" {
		t.Errorf("expected systemPrompt to be set, got %q", c.systemPrompt)
	}
	if c.observer != nil {
		t.Error("expected observer to be nil by default")
	}
}

func TestSendMessage_BuildsRequestFromHistory(t *testing.T) {
	provider := &fakeProvider{
		response: &ai.ChatResponse{Content: "hi there", FinishReason: "stop"},
	}
	c, err := NewClient[string](provider, WithDefaultModel("gpt-4"), WithSystemPrompt("sys"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := []ai.Message{{Role: ai.RoleUser, Content: "hello"}}
	resp, err := c.SendMessage(context.Background(), history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("expected response content to pass through, got %q", resp.Content)
	}
	if provider.lastReq.SystemPrompt != "sys" {
		t.Errorf("expected system prompt to be forwarded, got %q", provider.lastReq.SystemPrompt)
	}
	if len(provider.lastReq.Messages) != 1 || provider.lastReq.Messages[0].Content != "hello" {
		t.Errorf("expected caller-supplied history to be forwarded unchanged, got %+v", provider.lastReq.Messages)
	}
}

func TestSendMessage_PropagatesProviderError(t *testing.T) {
	wantErr := errors.New("boom")
	provider := &fakeProvider{err: wantErr}
	c, err := NewClient[string](provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.SendMessage(context.Background(), []ai.Message{{Role: ai.RoleUser, Content: "x"}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestWithTools_EnrichesSystemPrompt(t *testing.T) {
	provider := &fakeProvider{response: &ai.ChatResponse{Content: "ok"}}
	tools := []ai.ToolDescription{{Name: "calculator", Description: "adds numbers"}}

	c, err := NewClient[string](provider,
		WithSystemPrompt("base"),
		WithTools(tools...),
		WithEnrichSystemPrompt(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.systemPrompt == "base" {
		t.Error("expected system prompt to be enriched with tool descriptions")
	}
	if !contains(c.systemPrompt, "calculator") {
		t.Errorf("expected enriched prompt to mention tool name, got %q", c.systemPrompt)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
