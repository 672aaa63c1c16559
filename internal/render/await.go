package render

import (
	"context"
	"errors"
	"time"

	"reelsmith/internal/logging"
)

// Clock abstracts time for Await.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// AwaitOptions configures Await. Zero values use defaults.
type AwaitOptions struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Clock       Clock
	// OnUpdate is called after each successful poll that changed the job.
	OnUpdate func(Job)
}

const (
	defaultAwaitInterval    = 5 * time.Second
	defaultAwaitMaxInterval = time.Minute
)

// Await polls until the job is terminal or ctx ends. Transient poll errors
// double the delay up to MaxInterval; a successful poll resets it. Any other
// error is returned immediately.
func (c *Controller) Await(ctx context.Context, jobID string, opts AwaitOptions) (Job, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultAwaitInterval
	}
	ceiling := opts.MaxInterval
	if ceiling < interval {
		ceiling = max(interval, defaultAwaitMaxInterval)
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := c.logger.With(logging.String(logging.FieldJobID, jobID))
	sampler := logging.NewProgressSampler(10)

	last, _ := c.Get(jobID)
	delay := interval
	for {
		job, err := c.Poll(ctx, jobID)
		var transient *PollTransientError
		switch {
		case err == nil:
			delay = interval
			if changed(last, job) && opts.OnUpdate != nil {
				opts.OnUpdate(job)
			}
			last = job
			if sampler.ShouldLog(float64(job.Progress), string(job.Status)) {
				logger.Info("render progress",
					logging.String(logging.FieldEventType, "render_progress"),
					logging.String("status", string(job.Status)),
					logging.Int("progress", job.Progress),
				)
			}
			if job.Status.Terminal() {
				return job, nil
			}
		case errors.As(err, &transient):
			delay = min(delay*2, ceiling)
			logger.Debug("render poll failed; backing off",
				logging.Duration("retry_in", delay),
				logging.Error(err),
			)
		default:
			return job, err
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-clock.After(delay):
		}
	}
}

func changed(prev, next Job) bool {
	return prev.Status != next.Status ||
		prev.Progress != next.Progress ||
		prev.VideoURL != next.VideoURL ||
		prev.Error != next.Error
}
