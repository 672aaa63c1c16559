package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/approval"
	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/production"
	"reelsmith/internal/services"
)

// NewProduction starts a production in the Input stage.
func (o *Orchestrator) NewProduction(theme string) *production.Production {
	p := production.New(theme, o.now())
	o.logger.Info("production created",
		logging.String(logging.FieldEventType, "production_created"),
		logging.String(logging.FieldProductionID, p.ID),
		logging.String("theme", p.Theme),
	)
	return p
}

// SetTheme replaces the theme. Changing the theme discards research gathered
// for the old one.
func (o *Orchestrator) SetTheme(p *production.Production, theme string) error {
	return o.run(context.Background(), p, "set_theme", func(context.Context, *slog.Logger) error {
		if err := requireStage("set theme", p, production.StageInput); err != nil {
			return err
		}
		theme = strings.TrimSpace(theme)
		if theme == "" {
			return fmt.Errorf("set theme: %w: theme is empty", services.ErrValidation)
		}
		if theme != p.Theme {
			p.Research = nil
		}
		p.Theme = theme
		return nil
	})
}

// Research gathers background for the theme and stores it on p.
func (o *Orchestrator) Research(ctx context.Context, p *production.Production, instructions string) (production.Research, error) {
	var result production.Research
	err := o.run(ctx, p, "research", func(ctx context.Context, logger *slog.Logger) error {
		if err := requireStage("research", p, production.StageResearch); err != nil {
			return err
		}
		if o.researcher == nil {
			return errNoResearcher
		}
		callCtx, cancel := context.WithTimeout(ctx, o.researchTimeout)
		defer cancel()
		research, err := o.researcher.Research(callCtx, p.Theme, instructions)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return services.Wrap(services.ErrTimeout, "pipeline", "research", fmt.Sprintf("no result within %s", o.researchTimeout), err)
			}
			return err
		}
		p.Research = &research
		result = research
		logger.Info("research gathered",
			logging.String(logging.FieldEventType, "research_complete"),
			logging.Int("key_points", len(research.KeyPoints)),
		)
		return nil
	})
	return result, err
}

// Advance moves p to the next stage when the approval gate allows it. A
// blocked advance returns *BlockedError and leaves p unchanged.
func (o *Orchestrator) Advance(p *production.Production) (*production.Production, error) {
	err := o.run(context.Background(), p, "advance", func(_ context.Context, logger *slog.Logger) error {
		next, ok := p.Stage.Next()
		if !ok {
			return ErrFinalStage
		}
		if missing := o.gate.Missing(p.Stage, approval.SnapshotOf(p)); len(missing) > 0 {
			return &BlockedError{Stage: p.Stage, Missing: missing}
		}
		from := p.Stage
		p.Stage = next
		logger.Info("stage advanced",
			logging.String(logging.FieldEventType, "stage_advanced"),
			logging.String("from", string(from)),
			logging.String("to", string(next)),
		)
		return nil
	})
	return p, err
}

// Rewind returns p to an earlier stage without deleting later data. Going
// back to Proposal or earlier marks the storyboard and render stale; going
// back before Proposal also withdraws every approval.
func (o *Orchestrator) Rewind(p *production.Production, to production.Stage) error {
	return o.run(context.Background(), p, "rewind", func(_ context.Context, logger *slog.Logger) error {
		if to.Index() < 0 {
			return fmt.Errorf("rewind: %w: unknown stage %q", services.ErrValidation, to)
		}
		if !to.Before(p.Stage) {
			return fmt.Errorf("rewind: %w: %s is not before %s", services.ErrInvalidTransition, to, p.Stage)
		}
		if !production.StageProposal.Before(to) {
			p.StoryboardStale = p.Storyboard != nil
			p.RenderStale = p.RenderJob != nil
		}
		revoked := 0
		if to.Before(production.StageProposal) {
			for _, kind := range ledger.Kinds() {
				if p.Ledger.Get(kind).Status != ledger.StatusApproved {
					continue
				}
				if _, err := p.Ledger.Revoke(kind); err != nil {
					return err
				}
				revoked++
			}
		}
		from := p.Stage
		p.Stage = to
		logger.Info("stage rewound",
			logging.String(logging.FieldEventType, "stage_rewound"),
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.Int("approvals_revoked", revoked),
			logging.Bool("storyboard_stale", p.StoryboardStale),
			logging.Bool("render_stale", p.RenderStale),
		)
		return nil
	})
}
