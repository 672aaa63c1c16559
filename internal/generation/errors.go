package generation

import (
	"context"
	"errors"
	"fmt"

	"reelsmith/internal/ledger"
	"reelsmith/internal/services"
)

// Reason classifies a generation failure.
type Reason string

const (
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonInvalidResponse     Reason = "invalid_response"
	ReasonRateLimited         Reason = "rate_limited"
	ReasonTimeout             Reason = "timeout"
	ReasonRejected            Reason = "rejected"
)

// ErrMissingDependency reports that a required input asset has no content.
var ErrMissingDependency = fmt.Errorf("%w: missing generation input", services.ErrValidation)

// Error is a classified generation failure. Every reason may be retried by
// generating again; Timeout, RateLimited and ProviderUnavailable are also
// transient.
type Error struct {
	Kind   ledger.Kind
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generate %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("generate %s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() []error {
	var markers []error
	switch e.Reason {
	case ReasonTimeout:
		markers = []error{services.ErrTimeout, services.ErrTransient}
	case ReasonRateLimited, ReasonProviderUnavailable:
		markers = []error{services.ErrTransient}
	default:
		markers = []error{services.ErrTerminal}
	}
	if e.Err != nil {
		markers = append([]error{e.Err}, markers...)
	}
	return markers
}

// classify maps a generator failure onto a Reason.
func classify(kind ledger.Kind, err error) *Error {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}
	reason := ReasonProviderUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		reason = ReasonTimeout
	case errors.Is(err, services.ErrRateLimited):
		reason = ReasonRateLimited
	case errors.Is(err, services.ErrInvalidResponse):
		reason = ReasonInvalidResponse
	case errors.Is(err, services.ErrTerminal):
		reason = ReasonRejected
	}
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func invalidResponse(kind ledger.Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: ReasonInvalidResponse, Err: fmt.Errorf(format, args...)}
}
