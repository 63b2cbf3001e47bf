// Package streamevt defines the unified streaming event closed sum that every
// provider's stream converter normalizes into (spec "ChatStreamEvent"),
// independent of any one vendor's SSE/JSON-line wire dialect.
package streamevt

import (
	"encoding/json"

	"github.com/siumai/siumai/providers/ai"
)

// Kind identifies which variant of Event is populated. Exactly one of the
// variant-specific fields on Event is meaningful for a given Kind.
type Kind string

const (
	KindStreamStart    Kind = "stream_start"
	KindContentDelta   Kind = "content_delta"
	KindThinkingDelta  Kind = "thinking_delta"
	KindToolCallDelta  Kind = "tool_call_delta"
	KindUsageUpdate    Kind = "usage_update"
	KindCustom         Kind = "custom"
	KindError          Kind = "error"
	KindStreamEnd      Kind = "stream_end"
)

// StartMetadata carries the identifying information emitted with the first
// event of every stream.
type StartMetadata struct {
	ID        string `json:"id"`
	Model     string `json:"model"`
	Created   int64  `json:"created"`
	Provider  string `json:"provider"`
	RequestID string `json:"request_id"`
}

// ToolCallDelta is an incremental update to one in-flight tool call. Index
// disambiguates concurrent tool calls on providers that stream more than one
// at a time; providers that only ever stream one tool call at a time may
// leave it unset (zero value).
type ToolCallDelta struct {
	ID              string `json:"id"`
	FunctionName    string `json:"function_name,omitempty"`
	ArgumentsDelta  string `json:"arguments_delta,omitempty"`
	Index           int    `json:"index,omitempty"`
}

// Custom carries a provider-namespaced payload that has no unified
// representation (e.g. "openai:source", "gemini:reasoning"). EventType is
// always "<provider>:<name>".
type Custom struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event is one unit of the unified stream. Only the field matching Kind is
// populated; the rest are left at their zero value.
type Event struct {
	Kind Kind

	Start     *StartMetadata
	Delta     string // ContentDelta / ThinkingDelta payload
	Index     *int   // optional index for ContentDelta
	ToolCall  *ToolCallDelta
	Usage     *ai.Usage
	Custom    *Custom
	Error     string
	Response  *ai.ChatResponse // populated on StreamEnd
}

// StreamStart constructs a StreamStart event.
func StreamStart(meta StartMetadata) Event { return Event{Kind: KindStreamStart, Start: &meta} }

// ContentDelta constructs a ContentDelta event, optionally tagged with an
// index when the provider streams more than one concurrent content block.
func ContentDelta(delta string, index *int) Event {
	return Event{Kind: KindContentDelta, Delta: delta, Index: index}
}

// ThinkingDelta constructs a ThinkingDelta (reasoning/thought) event.
func ThinkingDelta(delta string) Event { return Event{Kind: KindThinkingDelta, Delta: delta} }

// ToolCall constructs a ToolCallDelta event.
func ToolCall(delta ToolCallDelta) Event { return Event{Kind: KindToolCallDelta, ToolCall: &delta} }

// UsageUpdate constructs a UsageUpdate event.
func UsageUpdate(usage *ai.Usage) Event { return Event{Kind: KindUsageUpdate, Usage: usage} }

// CustomEvent constructs a Custom event. eventType must be namespaced as
// "<provider>:<name>" (e.g. "openai:source").
func CustomEvent(eventType string, data json.RawMessage) Event {
	return Event{Kind: KindCustom, Custom: &Custom{EventType: eventType, Data: data}}
}

// ErrorEvent constructs an Error event.
func ErrorEvent(message string) Event { return Event{Kind: KindError, Error: message} }

// StreamEnd constructs a StreamEnd event carrying the fully accumulated response.
func StreamEnd(response *ai.ChatResponse) Event { return Event{Kind: KindStreamEnd, Response: response} }
