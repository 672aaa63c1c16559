package ledger

import (
	"errors"
	"fmt"

	"reelsmith/internal/services"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed from
	// the asset's current status.
	ErrInvalidTransition = errors.New("invalid asset transition")
	// ErrAlreadyInProgress rejects a second generation for a kind that is
	// already generating.
	ErrAlreadyInProgress = errors.New("asset generation already in progress")

	ErrUnknownKind      = fmt.Errorf("%w: unknown asset kind", services.ErrValidation)
	ErrInvalidContent   = fmt.Errorf("%w: invalid asset content", services.ErrValidation)
	ErrContentMismatch  = fmt.Errorf("%w: content kind does not match asset", services.ErrValidation)
	errMissingContent   = fmt.Errorf("%w: content is required", services.ErrValidation)
	errDuplicateRestore = fmt.Errorf("%w: duplicate asset kind in snapshot", services.ErrValidation)
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	Kind Kind
	Op   string
	From Status
	Err  error
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Err, ErrAlreadyInProgress) {
		return fmt.Sprintf("ledger: %s: %s generation already in progress", e.Op, e.Kind)
	}
	return fmt.Sprintf("ledger: cannot %s %s asset in status %s", e.Op, e.Kind, e.From)
}

// Unwrap exposes both the ledger sentinel and the shared transition marker.
func (e *TransitionError) Unwrap() []error {
	return []error{e.Err, services.ErrInvalidTransition}
}

func transitionError(kind Kind, op string, from Status) error {
	marker := ErrInvalidTransition
	if from == StatusGenerating && op == opSetGenerating {
		marker = ErrAlreadyInProgress
	}
	return &TransitionError{Kind: kind, Op: op, From: from, Err: marker}
}
