package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/generation"
	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/production"
	"reelsmith/internal/services"
)

// RegenerateAsset generates fresh content for kind. Failed assets may be
// regenerated directly. Generation failures are recorded on the ledger and
// returned as *generation.Error.
func (o *Orchestrator) RegenerateAsset(ctx context.Context, p *production.Production, kind ledger.Kind, instructions string) (ledger.Asset, error) {
	var asset ledger.Asset
	err := o.run(ctx, p, "regenerate_asset", func(ctx context.Context, logger *slog.Logger) error {
		if err := requireStage("regenerate asset", p, production.StageProposal); err != nil {
			return err
		}
		var err error
		asset, err = o.generate(ctx, logger, p, kind, instructions)
		return err
	})
	return asset, err
}

func (o *Orchestrator) generate(ctx context.Context, logger *slog.Logger, p *production.Production, kind ledger.Kind, instructions string) (ledger.Asset, error) {
	if !kind.Valid() {
		return ledger.Asset{}, fmt.Errorf("regenerate: %w", ledger.ErrUnknownKind)
	}
	if o.gateway == nil {
		return ledger.Asset{}, errNoGateway
	}
	ctx = services.WithAssetKind(ctx, kind.String())
	logger = logger.With(logging.String(logging.FieldAssetKind, kind.String()))

	gctx, err := o.generationContext(p, kind, instructions)
	if err != nil {
		return p.Ledger.Get(kind), err
	}
	// One ledger step from pending, generated or failed, so a concurrent
	// caller always sees ErrAlreadyInProgress.
	if _, err := p.Ledger.SetGenerating(kind); err != nil {
		return p.Ledger.Get(kind), err
	}

	content, genErr := o.gateway.Generate(ctx, kind, gctx)
	if genErr != nil {
		reason := genErr.Error()
		var classified *generation.Error
		if errors.As(genErr, &classified) && classified.Err != nil {
			reason = string(classified.Reason) + ": " + classified.Err.Error()
		}
		asset, err := p.Ledger.SetFailed(kind, reason)
		if err != nil {
			return asset, errors.Join(genErr, err)
		}
		return asset, genErr
	}

	asset, err := p.Ledger.SetGenerated(kind, content)
	if err != nil {
		return asset, err
	}
	if kind == ledger.KindScript {
		o.markScriptChanged(p)
	}
	logger.Info("asset regenerated",
		logging.String(logging.FieldEventType, "asset_generated"),
		logging.Int("attempts", asset.Attempts),
	)
	return asset, nil
}

func (o *Orchestrator) generationContext(p *production.Production, kind ledger.Kind, instructions string) (generation.Context, error) {
	gctx := generation.Context{
		Theme:        p.Theme,
		Research:     p.Research.Text(),
		Previous:     p.Ledger.Get(kind).Content,
		Instructions: instructions,
	}
	if script, ok := p.Script(); ok {
		gctx.Script = &script
	}
	for _, dep := range generation.Requires(kind) {
		if dep == ledger.KindScript && gctx.Script == nil {
			return gctx, fmt.Errorf("generate %s: %w: generate the script first", kind, ErrNotReady)
		}
	}
	return gctx, nil
}

// markScriptChanged flags downstream data built from an older script.
func (o *Orchestrator) markScriptChanged(p *production.Production) {
	p.MarkDerivedStale()
}

// GenerateAll generates every asset that is not yet approved: the script
// first, then the kinds derived from it in parallel. The returned error joins
// every failure.
func (o *Orchestrator) GenerateAll(ctx context.Context, p *production.Production, instructions string) error {
	return o.run(ctx, p, "generate_all", func(ctx context.Context, logger *slog.Logger) error {
		if err := requireStage("generate all", p, production.StageProposal); err != nil {
			return err
		}
		if p.Ledger.Get(ledger.KindScript).Status != ledger.StatusApproved {
			if _, err := o.generate(ctx, logger, p, ledger.KindScript, instructions); err != nil {
				return err
			}
		}

		var (
			mu   sync.Mutex
			errs []error
		)
		var group errgroup.Group
		group.SetLimit(o.concurrency)
		for _, kind := range ledger.Kinds() {
			if kind == ledger.KindScript || p.Ledger.Get(kind).Status == ledger.StatusApproved {
				continue
			}
			group.Go(func() error {
				if _, err := o.generate(ctx, logger, p, kind, ""); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = group.Wait()
		if err := errors.Join(errs...); err != nil {
			return err
		}
		o.notify(ctx, logger, notifications.EventAssetsGenerated, notifications.Payload{"title": p.Title()})
		return nil
	})
}

// ApproveAsset approves a generated asset.
func (o *Orchestrator) ApproveAsset(p *production.Production, kind ledger.Kind) (ledger.Asset, error) {
	var asset ledger.Asset
	err := o.run(context.Background(), p, "approve_asset", func(context.Context, *slog.Logger) error {
		if err := requireStage("approve asset", p, production.StageProposal); err != nil {
			return err
		}
		var err error
		asset, err = p.Ledger.Approve(kind)
		return err
	})
	return asset, err
}

// RevokeAsset withdraws an approval so the asset can be regenerated.
func (o *Orchestrator) RevokeAsset(p *production.Production, kind ledger.Kind) (ledger.Asset, error) {
	var asset ledger.Asset
	err := o.run(context.Background(), p, "revoke_asset", func(context.Context, *slog.Logger) error {
		if err := requireStage("revoke asset", p, production.StageProposal); err != nil {
			return err
		}
		var err error
		asset, err = p.Ledger.Revoke(kind)
		return err
	})
	return asset, err
}

// EditAsset replaces an asset's content by hand. Editing an approved asset
// demotes it to generated.
func (o *Orchestrator) EditAsset(p *production.Production, kind ledger.Kind, content ledger.Content) (ledger.Asset, error) {
	var asset ledger.Asset
	err := o.run(context.Background(), p, "edit_asset", func(context.Context, *slog.Logger) error {
		if err := requireStage("edit asset", p, production.StageProposal); err != nil {
			return err
		}
		var err error
		asset, err = p.Ledger.EditContent(kind, content)
		if err == nil && kind == ledger.KindScript {
			o.markScriptChanged(p)
		}
		return err
	})
	return asset, err
}
