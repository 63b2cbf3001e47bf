package streamevt

import (
	"iter"

	"github.com/google/uuid"

	"github.com/siumai/siumai/providers/ai"
)

// StateTracker owns the per-stream mutable bookkeeping that lets a converter
// honor the unified ordering contract: exactly one StreamStart before any
// other event, and exactly one StreamEnd — synthesized with an Unknown
// finish reason if the transport closes before the provider sent one. A
// StateTracker is created fresh for each stream and never reused.
type StateTracker struct {
	needsStreamStart bool
	needsStreamEnd   bool

	provider string
	model    string

	accumulated ai.ChatResponse
	sawDelta    bool
}

// NewStateTracker creates a tracker for a single stream from the given
// provider against the given model.
func NewStateTracker(provider, model string) *StateTracker {
	return &StateTracker{
		needsStreamStart: true,
		needsStreamEnd:   true,
		provider:         provider,
		model:            model,
	}
}

// Start returns the StreamStart event exactly once; subsequent calls return
// false.
func (t *StateTracker) Start(requestID string) (Event, bool) {
	if !t.needsStreamStart {
		return Event{}, false
	}
	t.needsStreamStart = false
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return StreamStart(StartMetadata{
		ID:        requestID,
		Model:     t.model,
		Provider:  t.provider,
		RequestID: requestID,
	}), true
}

// ObserveContent records that content was seen, so handleStreamEnd knows not
// to synthesize a fallback ContentDelta (spec ordering rule 5).
func (t *StateTracker) ObserveContent(delta string) {
	t.sawDelta = true
	t.accumulated.Content += delta
}

// End returns the StreamEnd event exactly once; subsequent calls return
// false. Call this when the provider signals normal termination.
func (t *StateTracker) End(response *ai.ChatResponse) (Event, bool) {
	if !t.needsStreamEnd {
		return Event{}, false
	}
	t.needsStreamEnd = false
	return StreamEnd(response), true
}

// HandleStreamEnd synthesizes a StreamEnd with finish_reason "unknown" if the
// transport closed without one being emitted already (spec ordering rule 4).
// If finishObserved is true but no content delta was ever seen, it first
// synthesizes a ContentDelta carrying the fully accumulated text (spec
// ordering rule 5, guards against OpenAI Chat-style vendors that only send
// the final message with no incremental deltas).
func (t *StateTracker) HandleStreamEnd(yield func(Event, error) bool) {
	if !t.needsStreamEnd {
		return
	}
	if !t.sawDelta && t.accumulated.Content != "" {
		if !yield(ContentDelta(t.accumulated.Content, nil), nil) {
			return
		}
	}
	response := t.accumulated
	if response.FinishReason == "" {
		response.FinishReason = "unknown"
	}
	end, ok := t.End(&response)
	if ok {
		yield(end, nil)
	}
}

// ConvertLegacyStream adapts a provider's internal ai.ChatStream (the
// per-provider StreamEvent sequence each vendor converter already produces)
// into the unified Event sequence, applying the ordering contract generically:
// one StreamStart first, a fallback ContentDelta before StreamEnd when no
// deltas were observed, and a synthesized Unknown StreamEnd if the legacy
// stream ends abruptly without signaling StreamEventDone.
func ConvertLegacyStream(provider, model, requestID string, legacy *ai.ChatStream) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		tracker := NewStateTracker(provider, model)

		if start, ok := tracker.Start(requestID); ok {
			if !yield(start, nil) {
				return
			}
		}

		for legacyEvent, err := range legacy.Iter() {
			if err != nil {
				yield(Event{}, err)
				return
			}

			switch legacyEvent.Type {
			case ai.StreamEventContent:
				tracker.ObserveContent(legacyEvent.Content)
				if !yield(ContentDelta(legacyEvent.Content, nil), nil) {
					return
				}

			case ai.StreamEventReasoning:
				if !yield(ThinkingDelta(legacyEvent.Reasoning), nil) {
					return
				}

			case ai.StreamEventToolCall:
				if legacyEvent.ToolCall == nil {
					continue
				}
				if !yield(ToolCall(ToolCallDelta{
					ID:             legacyEvent.ToolCall.ID,
					FunctionName:   legacyEvent.ToolCall.Name,
					ArgumentsDelta: legacyEvent.ToolCall.Arguments,
					Index:          legacyEvent.ToolCall.Index,
				}), nil) {
					return
				}

			case ai.StreamEventUsage:
				tracker.accumulated.Usage = legacyEvent.Usage
				if !yield(UsageUpdate(legacyEvent.Usage), nil) {
					return
				}

			case ai.StreamEventError:
				if !yield(ErrorEvent(legacyEvent.Error), nil) {
					return
				}

			case ai.StreamEventDone:
				tracker.accumulated.FinishReason = legacyEvent.FinishReason
				response := tracker.accumulated
				if end, ok := tracker.End(&response); ok {
					yield(end, nil)
				}
				return
			}
		}

		// Transport closed without an explicit done event.
		tracker.HandleStreamEnd(yield)
	}
}
