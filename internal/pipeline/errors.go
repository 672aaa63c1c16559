package pipeline

import (
	"fmt"
	"strings"

	"reelsmith/internal/approval"
	"reelsmith/internal/production"
	"reelsmith/internal/services"
)

var (
	// ErrWrongStage rejects an operation that belongs to another stage.
	ErrWrongStage = fmt.Errorf("%w: wrong stage", services.ErrInvalidTransition)
	// ErrFinalStage is returned when advancing past Upload.
	ErrFinalStage = fmt.Errorf("%w: production is already in the final stage", services.ErrInvalidTransition)
	// ErrRenderInProgress rejects a resubmission while a fresh job is running.
	ErrRenderInProgress = fmt.Errorf("%w: render already in progress", services.ErrInvalidTransition)
	// ErrNoRenderJob is returned when polling before anything was submitted.
	ErrNoRenderJob = fmt.Errorf("%w: no render job submitted", services.ErrInvalidTransition)
	// ErrAlreadyPublished rejects a second upload of the same production.
	ErrAlreadyPublished = fmt.Errorf("%w: production already published", services.ErrInvalidTransition)
	// ErrNotReady reports missing upstream data for an in-stage operation.
	ErrNotReady = fmt.Errorf("%w: prerequisite missing", services.ErrValidation)

	errNoResearcher = fmt.Errorf("%w: no researcher configured", services.ErrConfiguration)
	errNoPublisher  = fmt.Errorf("%w: no publisher configured", services.ErrConfiguration)
	errNoRenderer   = fmt.Errorf("%w: no render controller configured", services.ErrConfiguration)
	errNoGateway    = fmt.Errorf("%w: no generation gateway configured", services.ErrConfiguration)
)

// BlockedError reports why a production cannot leave its stage.
type BlockedError struct {
	Stage   production.Stage
	Missing []approval.Requirement
}

func (e *BlockedError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, req := range e.Missing {
		parts[i] = req.String()
	}
	return fmt.Sprintf("cannot leave %s stage: %s", e.Stage, strings.Join(parts, "; "))
}

func (e *BlockedError) Unwrap() error {
	return services.ErrValidation
}

func wrongStage(op string, have, want production.Stage) error {
	return fmt.Errorf("%s: %w: production is in %s, operation requires %s", op, ErrWrongStage, have, want)
}
