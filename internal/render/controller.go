package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/storyboard"
)

const (
	defaultSubmitTimeout = 30 * time.Second
	defaultPollTimeout   = 15 * time.Second
)

// Compositor is the remote rendering service.
type Compositor interface {
	Submit(ctx context.Context, bundle Bundle) (externalID string, err error)
	Status(ctx context.Context, externalID string) (ProviderStatus, error)
}

// Options configures a Controller.
type Options struct {
	SubmitTimeout time.Duration
	PollTimeout   time.Duration
	Mapper        StateMapper
	Now           func() time.Time
	Logger        *slog.Logger
}

// Controller tracks render jobs for one process.
type Controller struct {
	compositor    Compositor
	mapper        StateMapper
	submitTimeout time.Duration
	pollTimeout   time.Duration
	now           func() time.Time
	logger        *slog.Logger

	mu    sync.Mutex
	jobs  map[string]*Job
	polls singleflight.Group
}

// NewController constructs a Controller with defaults for unset options.
func NewController(compositor Compositor, opts Options) *Controller {
	c := &Controller{
		compositor:    compositor,
		mapper:        opts.Mapper,
		submitTimeout: opts.SubmitTimeout,
		pollTimeout:   opts.PollTimeout,
		now:           opts.Now,
		logger:        logging.NewComponentLogger(opts.Logger, "render"),
		jobs:          make(map[string]*Job),
	}
	if c.mapper == nil {
		c.mapper = DefaultStateMapper
	}
	if c.submitTimeout <= 0 {
		c.submitTimeout = defaultSubmitTimeout
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = defaultPollTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Submit sends a fully bound storyboard to the compositor. An incomplete
// storyboard is rejected before any job exists. On submission failure or
// timeout the returned job is already in error and the error is a
// *SubmitError.
func (c *Controller) Submit(ctx context.Context, board *storyboard.Board, soundtrack ledger.SoundtrackContent, title string) (Job, error) {
	if board == nil || board.Len() == 0 {
		return Job{}, fmt.Errorf("render: %w: storyboard is empty", ErrIncompleteStoryboard)
	}
	if unbound := board.Unbound(); len(unbound) > 0 {
		ids := make([]string, len(unbound))
		for i, scene := range unbound {
			ids[i] = scene.ID
		}
		return Job{}, fmt.Errorf("render: %w: %s", ErrIncompleteStoryboard, strings.Join(ids, ", "))
	}
	if err := soundtrack.Validate(); err != nil {
		return Job{}, fmt.Errorf("render: %w: %v", ErrMissingSoundtrack, err)
	}

	now := c.now().UTC()
	job := &Job{ID: uuid.NewString(), Status: StatusPending, SubmittedAt: now, UpdatedAt: now}
	c.mu.Lock()
	c.jobs[job.ID] = job
	c.mu.Unlock()

	bundle := Bundle{
		JobID:         job.ID,
		Title:         title,
		Scenes:        board.Scenes(),
		Soundtrack:    soundtrack,
		TotalDuration: board.TotalDuration(),
	}
	logger := c.logger.With(logging.String(logging.FieldJobID, job.ID))
	logger.Info("render submission started",
		logging.String(logging.FieldEventType, "render_submit"),
		logging.Int("scenes", len(bundle.Scenes)),
		logging.Float64("duration_seconds", bundle.TotalDuration),
	)

	submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	externalID, err := c.compositor.Submit(submitCtx, bundle)
	if err == nil && strings.TrimSpace(externalID) == "" {
		err = services.Wrap(services.ErrTerminal, "render", "submit", "compositor returned no job id", nil)
	}
	if err != nil && errors.Is(submitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = services.Wrap(services.ErrTimeout, "render", "submit", fmt.Sprintf("no confirmation within %s", c.submitTimeout), err)
	}
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	now = c.now().UTC()
	job.UpdatedAt = now
	if err != nil {
		job.Status = StatusError
		job.Error = err.Error()
		job.CompletedAt = &now
		logging.WarnWithContext(logger, "render submission failed", "render_submit_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "resubmit the render once the compositor is reachable"),
		)
		return job.clone(), &SubmitError{JobID: job.ID, Err: err}
	}
	job.ExternalID = externalID
	job.Status = StatusRendering
	logger.Info("render submission confirmed",
		logging.String(logging.FieldEventType, "render_submitted"),
		logging.String("external_id", externalID),
	)
	return job.clone(), nil
}

// Poll refreshes a job from the provider. Terminal jobs are returned as-is
// without a provider call. Concurrent polls of one job share a single
// provider request.
func (c *Controller) Poll(ctx context.Context, jobID string) (Job, error) {
	job, ok := c.Get(jobID)
	if !ok {
		return Job{}, fmt.Errorf("render: %q: %w", jobID, ErrJobNotFound)
	}
	if job.Status.Terminal() {
		return job, nil
	}
	value, err, _ := c.polls.Do(jobID, func() (any, error) {
		return c.pollOnce(ctx, jobID)
	})
	if err != nil {
		current, _ := c.Get(jobID)
		return current, err
	}
	return value.(Job), nil
}

func (c *Controller) pollOnce(ctx context.Context, jobID string) (Job, error) {
	job, ok := c.Get(jobID)
	if !ok {
		return Job{}, fmt.Errorf("render: %q: %w", jobID, ErrJobNotFound)
	}
	if job.Status.Terminal() {
		return job, nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	status, err := c.compositor.Status(pollCtx, job.ExternalID)
	deadline := errors.Is(pollCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		if deadline && !errors.Is(err, services.ErrTimeout) {
			err = services.Wrap(services.ErrTimeout, "render", "poll", fmt.Sprintf("no status within %s", c.pollTimeout), err)
		}
		return job, &PollTransientError{JobID: jobID, Err: err}
	}
	return c.apply(jobID, status), nil
}

// apply folds a provider status into the stored job.
func (c *Controller) apply(jobID string, status ProviderStatus) Job {
	mapped, known := c.mapper(status.State)
	if !known {
		c.logger.Debug("unrecognised provider state",
			logging.String(logging.FieldJobID, jobID),
			logging.String("state", status.State),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	job := c.jobs[jobID]
	if job == nil {
		return Job{}
	}
	if job.Status.Terminal() {
		return job.clone()
	}
	now := c.now().UTC()
	job.UpdatedAt = now

	if status.Progress >= 0 {
		job.Progress = max(job.Progress, clampProgress(status.Progress))
	}

	switch mapped {
	case StatusCompleted:
		if strings.TrimSpace(status.URL) == "" {
			job.Status = StatusError
			job.Error = "compositor reported completion without a video url"
			job.CompletedAt = &now
			break
		}
		job.Status = StatusCompleted
		job.Progress = 100
		job.VideoURL = status.URL
		job.CompletedAt = &now
	case StatusError:
		job.Status = StatusError
		job.Error = strings.TrimSpace(status.Error)
		if job.Error == "" {
			job.Error = "render failed"
		}
		job.CompletedAt = &now
	default:
		// A confirmed job never returns to pending.
		job.Status = StatusRendering
	}
	return job.clone()
}

func clampProgress(p float64) int {
	switch {
	case p <= 0:
		return 0
	case p >= 100:
		return 100
	default:
		return int(p)
	}
}

// Track adopts a job loaded from storage. A persisted pending job was never
// confirmed by the provider and is moved to error.
func (c *Controller) Track(job Job) Job {
	job = job.clone()
	if job.Status == StatusPending || (job.Status == StatusRendering && job.ExternalID == "") {
		now := c.now().UTC()
		job.Status = StatusError
		job.Error = "submission was interrupted before the compositor confirmed it"
		job.UpdatedAt = now
		job.CompletedAt = &now
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := job
	c.jobs[job.ID] = &stored
	return job.clone()
}

// Get returns the stored job.
func (c *Controller) Get(jobID string) (Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Forget drops a job from the controller.
func (c *Controller) Forget(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, jobID)
}
