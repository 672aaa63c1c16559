package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
)

// SubmitRender sends the storyboard and approved soundtrack to the
// compositor. A fresh job that is still running blocks resubmission; a
// failed, stale, or completed job may be replaced.
func (o *Orchestrator) SubmitRender(ctx context.Context, p *production.Production) (render.Job, error) {
	var job render.Job
	err := o.run(ctx, p, "submit_render", func(ctx context.Context, logger *slog.Logger) error {
		if err := requireStage("submit render", p, production.StageRender); err != nil {
			return err
		}
		if o.renders == nil {
			return errNoRenderer
		}
		if current := p.RenderJob; current != nil && !current.Status.Terminal() && !p.RenderStale {
			return fmt.Errorf("submit render: %w: job %s is %s", ErrRenderInProgress, current.ID, current.Status)
		}
		if p.StoryboardStale {
			return fmt.Errorf("submit render: %w: storyboard is stale", ErrNotReady)
		}
		soundtrack, _ := p.Ledger.Get(ledger.KindSoundtrack).Content.(ledger.SoundtrackContent)

		submitted, err := o.renders.Submit(ctx, p.Storyboard, soundtrack, p.Title())
		if submitted.ID == "" {
			// Rejected before a job existed.
			return err
		}
		job = submitted
		p.RenderJob = &submitted
		p.RenderStale = false
		if err != nil {
			o.notify(ctx, logger, notifications.EventRenderFailed, notifications.Payload{"title": p.Title(), "error": err})
			return err
		}
		return nil
	})
	return job, err
}

// PollRender refreshes the render job once. A transient provider failure
// leaves the job untouched and returns *render.PollTransientError.
func (o *Orchestrator) PollRender(ctx context.Context, p *production.Production) (render.Job, error) {
	var job render.Job
	err := o.run(ctx, p, "poll_render", func(ctx context.Context, logger *slog.Logger) error {
		jobID, err := o.adoptJob(p, "poll render")
		if err != nil {
			return err
		}
		ctx = services.WithJobID(ctx, jobID)
		before := p.RenderJob.Status
		job, err = o.renders.Poll(ctx, jobID)
		if job.ID != "" {
			o.recordJob(ctx, logger, p, before, job)
		}
		return err
	})
	return job, err
}

// AwaitRender polls until the job is terminal or ctx is cancelled. The
// production's job record is updated after every change so callers observing
// opts.OnUpdate can persist progress.
func (o *Orchestrator) AwaitRender(ctx context.Context, p *production.Production, opts render.AwaitOptions) (render.Job, error) {
	var job render.Job
	err := o.run(ctx, p, "await_render", func(ctx context.Context, logger *slog.Logger) error {
		jobID, err := o.adoptJob(p, "await render")
		if err != nil {
			return err
		}
		ctx = services.WithJobID(ctx, jobID)
		before := p.RenderJob.Status
		onUpdate := opts.OnUpdate
		opts.OnUpdate = func(update render.Job) {
			updated := update
			p.RenderJob = &updated
			if onUpdate != nil {
				onUpdate(update)
			}
		}
		job, err = o.renders.Await(ctx, jobID, opts)
		if job.ID != "" {
			o.recordJob(ctx, logger, p, before, job)
		}
		return err
	})
	return job, err
}

// adoptJob makes sure the controller tracks the production's persisted job.
func (o *Orchestrator) adoptJob(p *production.Production, op string) (string, error) {
	if err := requireStage(op, p, production.StageRender); err != nil {
		return "", err
	}
	if o.renders == nil {
		return "", errNoRenderer
	}
	if p.RenderJob == nil {
		return "", fmt.Errorf("%s: %w", op, ErrNoRenderJob)
	}
	if _, ok := o.renders.Get(p.RenderJob.ID); !ok {
		adopted := o.renders.Track(*p.RenderJob)
		p.RenderJob = &adopted
	}
	return p.RenderJob.ID, nil
}

func (o *Orchestrator) recordJob(ctx context.Context, logger *slog.Logger, p *production.Production, before render.Status, job render.Job) {
	p.RenderJob = &job
	if before.Terminal() || !job.Status.Terminal() {
		return
	}
	switch job.Status {
	case render.StatusCompleted:
		o.notify(ctx, logger, notifications.EventRenderCompleted, notifications.Payload{"title": p.Title(), "url": job.VideoURL})
	case render.StatusError:
		o.notify(ctx, logger, notifications.EventRenderFailed, notifications.Payload{"title": p.Title(), "error": job.Error})
	}
}

// Publish uploads the completed render with metadata from the approved
// assets. privacy overrides the configured default when non-empty.
func (o *Orchestrator) Publish(ctx context.Context, p *production.Production, privacy string) (production.Publication, error) {
	var publication production.Publication
	err := o.run(ctx, p, "publish", func(ctx context.Context, logger *slog.Logger) error {
		if err := requireStage("publish", p, production.StageUpload); err != nil {
			return err
		}
		if p.Publication != nil {
			return fmt.Errorf("publish: %w: %s", ErrAlreadyPublished, p.Publication.URL)
		}
		if o.publisher == nil {
			return errNoPublisher
		}
		if p.RenderJob == nil || p.RenderJob.Status != render.StatusCompleted || p.RenderJob.VideoURL == "" {
			return fmt.Errorf("publish: %w: no completed render", ErrNotReady)
		}
		meta := p.Metadata()
		meta.PrivacyStatus = o.privacy
		if privacy != "" {
			meta.PrivacyStatus = privacy
		}
		result, err := o.publisher.Upload(ctx, p.RenderJob.VideoURL, meta)
		if err != nil {
			return err
		}
		if result.PublishedAt.IsZero() {
			result.PublishedAt = o.now().UTC()
		}
		publication = result
		p.Publication = &result
		logger.Info("video published",
			logging.String(logging.FieldEventType, "published"),
			logging.String("video_id", result.VideoID),
			logging.String("url", result.URL),
		)
		o.notify(ctx, logger, notifications.EventPublished, notifications.Payload{"title": meta.Title, "url": result.URL})
		return nil
	})
	return publication, err
}

// IsBlocked reports whether err is a *BlockedError.
func IsBlocked(err error) (*BlockedError, bool) {
	var blocked *BlockedError
	ok := errors.As(err, &blocked)
	return blocked, ok
}
