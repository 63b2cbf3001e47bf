package ai

import (
	"fmt"
	"net/http"
	"strings"
)

// LlmErrorKind is the closed vocabulary a 4xx/5xx provider response is
// sorted into by ClassifyHTTPError. Client-origin errors (configuration,
// invalid parameter, unsupported operation, parse errors) are raised
// directly by callers and never flow through this classifier; this type
// covers only the transport/provider-origin branch of the taxonomy.
type LlmErrorKind string

const (
	ErrKindAuthentication LlmErrorKind = "authentication_error"
	ErrKindRateLimit      LlmErrorKind = "rate_limit"
	ErrKindContentFilter  LlmErrorKind = "content_filter"
	ErrKindTimeout        LlmErrorKind = "timeout"
	ErrKindAPI            LlmErrorKind = "api_error"
)

// LlmError is the structured error ClassifyHTTPError produces. Message is a
// short, human-readable summary; Details (when non-empty) carries the raw
// response body truncated to a safe length for logs.
type LlmError struct {
	Kind       LlmErrorKind
	StatusCode int
	Message    string
	Details    string
}

func (e *LlmError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s: %s", e.Kind, e.StatusCode, e.Message, e.Details)
}

// IsRetryable reports whether the kind of failure this error represents is
// generally safe to retry. RateLimit and Timeout are always retryable;
// ApiError is retryable only for the transient 5xx codes providers use to
// signal overload (500/502/503/529 — Anthropic's own "overloaded" code).
func (e *LlmError) IsRetryable() bool {
	switch e.Kind {
	case ErrKindRateLimit, ErrKindTimeout:
		return true
	case ErrKindAPI:
		switch e.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, 529:
			return true
		}
	}
	return false
}

const errorBodyPreviewLen = 500

// ClassifyHTTPError sorts a non-2xx HTTP response into the LlmError
// taxonomy: 401/403 become AuthenticationError, 429 becomes RateLimit, 408
// and 504 become Timeout, a body containing a content-filter marker becomes
// ContentFilter, and everything else becomes a generic ApiError keyed on the
// HTTP status code (spec's fallback rule for unrecognized 4xx/5xx bodies).
func ClassifyHTTPError(statusCode int, body []byte, headers http.Header) error {
	preview := string(body)
	if len(preview) > errorBodyPreviewLen {
		preview = preview[:errorBodyPreviewLen]
	}

	kind := ErrKindAPI
	message := http.StatusText(statusCode)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrKindAuthentication
	case http.StatusTooManyRequests:
		kind = ErrKindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = ErrKindTimeout
	default:
		if containsContentFilterMarker(preview) {
			kind = ErrKindContentFilter
		}
	}

	return &LlmError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Details:    preview,
	}
}

// containsContentFilterMarker does a cheap substring scan for the vocabulary
// providers use in 4xx bodies to report a safety/content-policy rejection,
// without requiring a full per-provider JSON schema for error bodies.
func containsContentFilterMarker(body string) bool {
	markers := []string{"content_filter", "content_policy", "safety_violation"}
	for _, m := range markers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
