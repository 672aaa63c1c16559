package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/approval"
	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/storyboard"
)

// Researcher gathers background material for a theme.
type Researcher interface {
	Research(ctx context.Context, theme, instructions string) (production.Research, error)
}

// Publisher uploads a finished video.
type Publisher interface {
	Upload(ctx context.Context, videoURL string, meta production.Metadata) (production.Publication, error)
}

const defaultResearchTimeout = 3 * time.Minute

// Options wires the orchestrator's collaborators. Nil collaborators make the
// operations that need them fail with a configuration error.
type Options struct {
	Gateway     *generation.Gateway
	Researcher  Researcher
	Storyboards *storyboard.Manager
	Renders     *render.Controller
	Publisher   Publisher
	Notifier    notifications.Service
	Logger      *slog.Logger

	ResearchTimeout time.Duration
	// Sources are the default stock providers for media searches.
	Sources []storyboard.Source
	// Concurrency bounds parallel generation in GenerateAll.
	Concurrency int
	// PrivacyStatus is the default visibility of published videos.
	PrivacyStatus string
	Now           func() time.Time
}

// Orchestrator runs stage operations against productions.
type Orchestrator struct {
	gateway         *generation.Gateway
	researcher      Researcher
	storyboards     *storyboard.Manager
	renders         *render.Controller
	publisher       Publisher
	notifier        notifications.Service
	gate            approval.Gate
	logger          *slog.Logger
	researchTimeout time.Duration
	sources         []storyboard.Source
	concurrency     int
	privacy         string
	now             func() time.Time
}

// New constructs an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		gateway:         opts.Gateway,
		researcher:      opts.Researcher,
		storyboards:     opts.Storyboards,
		renders:         opts.Renders,
		publisher:       opts.Publisher,
		notifier:        opts.Notifier,
		logger:          logging.NewComponentLogger(opts.Logger, "pipeline"),
		researchTimeout: opts.ResearchTimeout,
		sources:         append([]storyboard.Source(nil), opts.Sources...),
		concurrency:     opts.Concurrency,
		privacy:         strings.TrimSpace(opts.PrivacyStatus),
		now:             opts.Now,
	}
	if o.researchTimeout <= 0 {
		o.researchTimeout = defaultResearchTimeout
	}
	if o.concurrency <= 0 {
		o.concurrency = 4
	}
	if o.privacy == "" {
		o.privacy = "private"
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.storyboards == nil {
		o.storyboards = storyboard.NewManager(nil, storyboard.WithLogger(opts.Logger))
	}
	return o
}

// run wraps one operation with stage logging and failure notification. The
// production is touched whether or not the operation succeeds, since failed
// operations may still record state (a failed asset, an errored job).
func (o *Orchestrator) run(ctx context.Context, p *production.Production, op string, fn func(context.Context, *slog.Logger) error) error {
	ctx = services.WithProductionID(ctx, p.ID)
	ctx = services.WithStage(ctx, string(p.Stage))
	logger := logging.WithContext(ctx, o.logger).With(logging.String("operation", op))

	logger.Debug("stage operation started",
		logging.String(logging.FieldEventType, "stage_start"),
	)
	err := fn(ctx, logger)
	p.Touch(o.now())
	if err != nil {
		o.handleFailure(ctx, logger, p, op, err)
		return err
	}
	logger.Info("stage operation completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("stage_after", string(p.Stage)),
	)
	return nil
}

func (o *Orchestrator) handleFailure(ctx context.Context, logger *slog.Logger, p *production.Production, op string, err error) {
	category := services.Classify(err)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("category", string(category)),
		logging.Error(err),
	}
	switch category {
	case services.CategoryValidation, services.CategoryInvalidTransition:
		// Caller mistakes are reported to the caller only.
		logger.Info("stage operation rejected", logging.Args(attrs...)...)
		return
	}
	logger.Error("stage operation failed", logging.Args(attrs...)...)
	if o.notifier == nil {
		return
	}
	label := op + " (" + p.Stage.Label() + ": " + p.Title() + ")"
	if notifyErr := o.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"error":   err,
		"context": label,
	}); notifyErr != nil {
		logger.Debug("error notification failed", logging.Error(notifyErr))
	}
}

func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func requireStage(op string, p *production.Production, want production.Stage) error {
	if p.Stage != want {
		return wrongStage(op, p.Stage, want)
	}
	return nil
}

// Missing reports the unmet requirements for leaving the current stage.
func (o *Orchestrator) Missing(p *production.Production) []approval.Requirement {
	return o.gate.Missing(p.Stage, approval.SnapshotOf(p))
}
