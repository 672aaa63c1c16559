package render

import (
	"fmt"

	"reelsmith/internal/services"
)

var (
	// ErrIncompleteStoryboard rejects submission while any scene lacks media.
	ErrIncompleteStoryboard = fmt.Errorf("%w: storyboard has unbound scenes", services.ErrValidation)
	ErrMissingSoundtrack    = fmt.Errorf("%w: soundtrack is required", services.ErrValidation)
	ErrJobNotFound          = fmt.Errorf("render job %w", services.ErrNotFound)
)

// SubmitError reports a submission the compositor did not confirm. The job
// has already been moved to error.
type SubmitError struct {
	JobID string
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("render: submit job %s: %v", e.JobID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// PollTransientError reports a status check that failed without changing the
// job. Polling again later is safe. It always classifies as transient, even
// when Err carries a terminal marker such as an undecodable reply; only a
// provider-reported failure state moves a job to error.
type PollTransientError struct {
	JobID string
	Err   error
}

func (e *PollTransientError) Error() string {
	return fmt.Sprintf("render: poll job %s: %v", e.JobID, e.Err)
}

func (e *PollTransientError) Unwrap() error { return services.ErrTransient }

// Cause returns the underlying status error.
func (e *PollTransientError) Cause() error { return e.Err }
