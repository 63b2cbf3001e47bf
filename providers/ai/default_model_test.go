package ai

import (
	"context"
	"net/http"
	"testing"
)

type fakeProvider struct {
	lastRequest ChatRequest
}

func (f *fakeProvider) SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	f.lastRequest = request
	return &ChatResponse{Content: "ok"}, nil
}

func (f *fakeProvider) IsStopMessage(message *ChatResponse) bool { return true }
func (f *fakeProvider) WithAPIKey(string) Provider               { return f }
func (f *fakeProvider) WithBaseURL(string) Provider              { return f }
func (f *fakeProvider) WithHttpClient(*http.Client) Provider     { return f }

func TestWithDefaultModel_FillsEmptyModel(t *testing.T) {
	inner := &fakeProvider{}
	wrapped := WithDefaultModel(inner, "gpt-4o-mini")

	if _, err := wrapped.SendMessage(context.Background(), ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastRequest.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want default filled in", inner.lastRequest.Model)
	}
}

func TestWithDefaultModel_PreservesExplicitModel(t *testing.T) {
	inner := &fakeProvider{}
	wrapped := WithDefaultModel(inner, "gpt-4o-mini")

	if _, err := wrapped.SendMessage(context.Background(), ChatRequest{Model: "gpt-4o"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastRequest.Model != "gpt-4o" {
		t.Errorf("Model = %q, want explicit request model preserved", inner.lastRequest.Model)
	}
}

func TestWithDefaultModel_StreamUnsupportedReturnsError(t *testing.T) {
	wrapped := WithDefaultModel(&fakeProvider{}, "gpt-4o-mini")

	if _, err := wrapped.(StreamProvider).StreamMessage(context.Background(), ChatRequest{}); err == nil {
		t.Error("expected an error wrapping a non-streaming provider")
	}
}
