// Package stream implements the Streaming Dispatcher (spec §4.5): the
// error-aware wrapper that turns the agent step loop's ResponseChunk
// channel into the client-facing SSE wire format, plus its optional
// cancellation-aware, background-fan-out, and keepalive layers, and the
// OpenAI chat-completion-chunk transform. Frame encoding here mirrors
// the SSE shape the provider package's ParseSSEStream already consumes
// on the client side (internal/agent/providers/anthropic.go).
package stream

import (
	"encoding/json"
	"fmt"
)

// Error-type vocabulary recognized in an `event: error` payload.
const (
	ErrorTypeLLMTimeout        = "llm_timeout"
	ErrorTypeLLMRateLimit      = "llm_rate_limit"
	ErrorTypeLLMAuthentication = "llm_authentication"
	ErrorTypeLLMError          = "llm_error"
	ErrorTypeInternalError     = "internal_error"
	ErrorTypeStreamIncomplete  = "stream_incomplete"
)

// Stop-reason vocabulary carried on the unnamed terminal frame.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxSteps  = "max_steps"
	StopReasonCancelled = "cancelled"
	StopReasonError     = "error"
	StopReasonLLMAPIErr = "llm_api_error"
	StopReasonRefused   = "refused"
)

// ErrorPayload is the body of a named `event: error` frame.
type ErrorPayload struct {
	RunID     string `json:"run_id"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
}

// StopReasonPayload is the body of the unnamed frame that always
// precedes a terminal `event: error` (or directly precedes `[DONE]` on
// a clean exit).
type StopReasonPayload struct {
	RunID      string `json:"run_id"`
	StopReason string `json:"stop_reason"`
}

// doneFrame is the terminal line of every SSE stream this package
// produces, client-facing or OpenAI-transformed alike.
var doneFrame = []byte("data: [DONE]\n\n")

// dataFrame encodes an unnamed content event: `data: <json>\n\n`.
func dataFrame(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stream: encode data frame: %w", err)
	}
	out := make([]byte, 0, len(b)+8)
	out = append(out, "data: "...)
	out = append(out, b...)
	out = append(out, '\n', '\n')
	return out, nil
}

// namedFrame encodes a named event: `event: <name>\ndata: <json>\n\n`.
func namedFrame(name string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stream: encode %s frame: %w", name, err)
	}
	out := make([]byte, 0, len(b)+len(name)+16)
	out = append(out, "event: "...)
	out = append(out, name...)
	out = append(out, '\n')
	out = append(out, "data: "...)
	out = append(out, b...)
	out = append(out, '\n', '\n')
	return out, nil
}

// pingFrame encodes the keepalive event. Recognized by name, not by SSE
// comment syntax, so that the same dataFrame/namedFrame machinery (and
// any JSON-aware intermediary) handles it uniformly (spec §6: "ping for
// keepalive").
func pingFrame() ([]byte, error) {
	return namedFrame("ping", struct{}{})
}

// errorFrame builds the two-line error payload frame.
func errorFrame(p ErrorPayload) ([]byte, error) {
	return namedFrame("error", p)
}

// stopReasonFrame builds the unnamed terminal stop-reason frame.
func stopReasonFrame(p StopReasonPayload) ([]byte, error) {
	return dataFrame(p)
}
