package chat

import (
	"errors"
	"fmt"
)

// The error taxonomy mirrors how failures are surfaced to the dashboard:
// validation and configuration problems are actionable by the user, provider
// errors wrap whatever the remote service reported, and timeouts are their
// own category so the webhook runner can name them distinctly.

// ValidationError reports bad input: a blank message, a malformed URL, a
// turn already in flight. It is the only error category SendTurn returns to
// the caller, and only before any conversation state has been touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConfigurationError reports a missing credential or an unsupported
// model/provider combination.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Reason }

// ProviderError wraps a network or provider-side failure with a
// human-readable message. Adapters never let a raw transport error escape
// without this wrapper.
type ProviderError struct {
	Provider ProviderKind
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("%s provider request failed", e.Provider)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TimeoutError reports that a bounded request ran out of time. Only the
// webhook runner enforces a deadline; provider streams run until the
// provider ends them.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Op)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ErrTurnInFlight is returned by SendTurn when a turn is already running for
// the same conversation. It is a ValidationError so callers can treat it
// like any other rejected input, but remains a distinct value for callers
// that want to answer it with a "busy" status.
var ErrTurnInFlight = &ValidationError{Reason: "a turn is already in flight for this conversation"}

// ErrNotFound is returned by Store implementations when a conversation ID
// does not exist.
var ErrNotFound = errors.New("conversation not found")
