package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/production"
	"reelsmith/internal/storyboard"
)

// BuildStoryboard (re)builds the storyboard from the approved script. Media
// bound to a scene whose ID and text are unchanged is carried over.
func (o *Orchestrator) BuildStoryboard(p *production.Production) (*storyboard.Board, error) {
	err := o.run(context.Background(), p, "build_storyboard", func(_ context.Context, logger *slog.Logger) error {
		if err := requireStage("build storyboard", p, production.StageStudio); err != nil {
			return err
		}
		asset := p.Ledger.Get(ledger.KindScript)
		script, ok := asset.Content.(ledger.ScriptContent)
		if !ok || asset.Status != ledger.StatusApproved {
			return fmt.Errorf("build storyboard: %w: script is %s", ErrNotReady, asset.Status)
		}
		board, err := o.storyboards.BuildFromScript(script)
		if err != nil {
			return err
		}
		kept := 0
		if p.Storyboard != nil {
			for _, old := range p.Storyboard.Scenes() {
				if old.Media == nil {
					continue
				}
				scene, err := board.Scene(old.ID)
				if err != nil || scene.Text != old.Text {
					continue
				}
				if _, err := board.BindMedia(old.ID, *old.Media); err == nil {
					kept++
				}
			}
		}
		p.Storyboard = board
		p.StoryboardStale = false
		o.markStudioChanged(p)
		bound, total := board.Coverage()
		logger.Info("storyboard built",
			logging.String(logging.FieldEventType, "storyboard_built"),
			logging.Int("scenes", total),
			logging.Int("bound", bound),
			logging.Int("media_kept", kept),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Storyboard, nil
}

// SearchMedia starts a lazy stock media search for one scene. Empty sources
// fall back to the configured defaults.
func (o *Orchestrator) SearchMedia(ctx context.Context, p *production.Production, sceneID, query string, sources []storyboard.Source) (*storyboard.Candidates, error) {
	var candidates *storyboard.Candidates
	err := o.run(ctx, p, "search_media", func(ctx context.Context, _ *slog.Logger) error {
		if err := requireStage("search media", p, production.StageStudio); err != nil {
			return err
		}
		if p.Storyboard == nil {
			return fmt.Errorf("search media: %w: build the storyboard first", ErrNotReady)
		}
		if len(sources) == 0 {
			sources = o.sources
		}
		var err error
		candidates, err = o.storyboards.SearchMedia(ctx, p.Storyboard, sceneID, query, sources)
		return err
	})
	return candidates, err
}

// BindMedia assigns media to a scene.
func (o *Orchestrator) BindMedia(p *production.Production, sceneID string, media storyboard.Media) (storyboard.Scene, error) {
	return o.editScene(p, "bind_media", func(board *storyboard.Board) (storyboard.Scene, error) {
		if err := media.Validate(); err != nil {
			return storyboard.Scene{}, err
		}
		return board.BindMedia(sceneID, media)
	})
}

// UnbindMedia clears a scene's media.
func (o *Orchestrator) UnbindMedia(p *production.Production, sceneID string) (storyboard.Scene, error) {
	return o.editScene(p, "unbind_media", func(board *storyboard.Board) (storyboard.Scene, error) {
		return board.UnbindMedia(sceneID)
	})
}

// ReorderScenes applies a full permutation of scene IDs.
func (o *Orchestrator) ReorderScenes(p *production.Production, ids []string) error {
	_, err := o.editScene(p, "reorder_scenes", func(board *storyboard.Board) (storyboard.Scene, error) {
		return storyboard.Scene{}, board.Reorder(ids)
	})
	return err
}

func (o *Orchestrator) editScene(p *production.Production, op string, fn func(*storyboard.Board) (storyboard.Scene, error)) (storyboard.Scene, error) {
	var scene storyboard.Scene
	err := o.run(context.Background(), p, op, func(context.Context, *slog.Logger) error {
		if err := requireStage(op, p, production.StageStudio); err != nil {
			return err
		}
		if p.Storyboard == nil {
			return fmt.Errorf("%s: %w: build the storyboard first", op, ErrNotReady)
		}
		var err error
		scene, err = fn(p.Storyboard)
		if err != nil {
			return err
		}
		o.markStudioChanged(p)
		return nil
	})
	return scene, err
}

// markStudioChanged flags a render made from an older storyboard.
func (o *Orchestrator) markStudioChanged(p *production.Production) {
	if p.RenderJob != nil {
		p.RenderStale = true
	}
}
