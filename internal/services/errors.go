package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
	ErrTerminal          = errors.New("terminal provider failure")

	// ErrRateLimited marks provider throttling. It is transient.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrTransient)
	// ErrInvalidResponse marks a provider reply that could not be used. It is
	// terminal: repeating the same request is not expected to help.
	ErrInvalidResponse = fmt.Errorf("%w: invalid provider response", ErrTerminal)
)

// Category is the coarse classification callers use to decide whether a
// failure can be retried as-is.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryInvalidTransition Category = "invalid_transition"
	CategoryTransient         Category = "transient"
	CategoryTerminal          Category = "terminal"
	CategoryOther             Category = "other"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto its Category. Timeouts and context deadlines are
// transient; cancellation is not classified.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryOther
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return CategoryValidation
	case errors.Is(err, ErrInvalidTransition):
		return CategoryInvalidTransition
	case errors.Is(err, ErrTerminal):
		return CategoryTerminal
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient
	default:
		return CategoryOther
	}
}

// Retryable reports whether re-invoking the same operation may succeed.
func Retryable(err error) bool {
	return Classify(err) == CategoryTransient
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
