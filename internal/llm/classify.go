// Package llm provides the LLM request adapter shared by the blocking
// and streaming variants of the agent step loop: request assembly,
// reasoning-content extraction, usage normalization, and the classified
// error taxonomy that governs retry behavior.
package llm

import (
	"errors"

	"github.com/relaymind/agentcore/internal/agent/providers"
)

// ErrorType classifies an LLM request failure so the step loop can
// decide whether to retry, fail the run, or treat it as a non-error.
type ErrorType string

const (
	// ErrInvalidArgument covers malformed requests; never retried.
	ErrInvalidArgument ErrorType = "invalid_argument"

	// ErrTransient covers connection resets, 5xx responses, and other
	// errors expected to clear on their own; retried with a fixed delay.
	ErrTransient ErrorType = "transient"

	// ErrAuthentication covers 401/403 responses; fatal, never retried.
	ErrAuthentication ErrorType = "authentication"

	// ErrTimeout covers a request that exceeded its deadline; not
	// retried within the step loop (the caller decides on the next turn).
	ErrTimeout ErrorType = "timeout"

	// ErrToolExecution covers a failed tool call, contained to that
	// call's result; the LLM itself decides whether to retry.
	ErrToolExecution ErrorType = "tool_execution"

	// ErrCancellation is never treated as an error; the run simply stops.
	ErrCancellation ErrorType = "cancellation"

	// ErrHookBlock covers a hook refusing to let the step proceed.
	ErrHookBlock ErrorType = "hook_block"

	// ErrInternal covers anything that doesn't fit another bucket.
	ErrInternal ErrorType = "internal"

	// ErrStreamIncomplete is synthesized when a stream ends without a
	// terminal stop-reason frame.
	ErrStreamIncomplete ErrorType = "stream_incomplete"

	// ErrPendingApproval covers a tool call awaiting human approval.
	ErrPendingApproval ErrorType = "pending_approval"

	// ErrMaxSteps covers the step loop exhausting its iteration budget.
	// This is a normal termination, not a failure: the run completes
	// with stop reason max_steps rather than failing.
	ErrMaxSteps ErrorType = "max_steps"
)

// Retryable reports whether an error of this type should be retried by
// the request adapter's fixed-delay retry loop. Only transient errors
// are retried; everything else is either fatal or handled elsewhere.
func (t ErrorType) Retryable() bool {
	return t == ErrTransient
}

// ClassifiedError wraps an underlying error with its ErrorType.
type ClassifiedError struct {
	Type ErrorType
	Err  error
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return string(e.Type)
	}
	return string(e.Type) + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify wraps err with the given type. A nil err returns nil.
func Classify(t ErrorType, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Type: t, Err: err}
}

// TypeOf extracts the ErrorType from err if it is (or wraps) a
// *ClassifiedError, defaulting to ErrInternal otherwise.
func TypeOf(err error) ErrorType {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrInternal
}

// IsRetryable is a convenience wrapper around TypeOf(err).Retryable().
func IsRetryable(err error) bool {
	return TypeOf(err).Retryable()
}

// ClassifyProviderError maps a provider-layer FailoverReason (from a raw
// transport or a *providers.ProviderError) onto the adapter's ErrorType,
// so the same transient/fatal distinction made at the wire level governs
// the fixed-delay retry loop up here.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	reason := providers.ClassifyError(err)
	if pe, ok := providers.GetProviderError(err); ok {
		reason = pe.Reason
	}

	switch reason {
	case providers.FailoverRateLimit, providers.FailoverServerError:
		return Classify(ErrTransient, err)
	case providers.FailoverTimeout:
		return Classify(ErrTimeout, err)
	case providers.FailoverAuth, providers.FailoverBilling:
		return Classify(ErrAuthentication, err)
	case providers.FailoverInvalidRequest:
		return Classify(ErrInvalidArgument, err)
	case providers.FailoverContentFilter, providers.FailoverModelUnavailable:
		return Classify(ErrInvalidArgument, err)
	default:
		return Classify(ErrInternal, err)
	}
}
