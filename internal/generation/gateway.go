package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
)

// DefaultTimeout bounds one generation call when no timeout is configured.
const DefaultTimeout = 3 * time.Minute

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Gateway is the uniform entry point for asset generation.
type Gateway struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGateway wraps generator.
func NewGateway(generator Generator, opts GatewayOptions) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		generator: generator,
		timeout:   timeout,
		logger:    logging.NewComponentLogger(opts.Logger, "generation"),
	}
}

// Timeout returns the per-call deadline.
func (g *Gateway) Timeout() time.Duration {
	return g.timeout
}

// Generate produces validated content for kind. Input problems (unknown kind,
// missing script) are validation errors; every other failure is an *Error.
func (g *Gateway) Generate(ctx context.Context, kind ledger.Kind, gctx Context) (ledger.Content, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("generate: %w: %d", ledger.ErrUnknownKind, int(kind))
	}
	for _, dep := range Requires(kind) {
		if dep == ledger.KindScript && gctx.Script == nil {
			return nil, fmt.Errorf("generate %s: %w: %s", kind, ErrMissingDependency, dep)
		}
	}
	if g.generator == nil {
		return nil, &Error{Kind: kind, Reason: ReasonProviderUnavailable, Err: fmt.Errorf("no generator configured")}
	}

	logger := logging.WithContext(ctx, g.logger).With(logging.String(logging.FieldAssetKind, kind.String()))
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	content, err := g.generator.Generate(callCtx, kind, gctx)
	elapsed := time.Since(started)
	if err == nil {
		err = checkContent(kind, content)
	}
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = &Error{Kind: kind, Reason: ReasonTimeout, Err: fmt.Errorf("no result within %s: %w", g.timeout, err)}
		}
		genErr := classify(kind, err)
		logging.WarnWithContext(logger, "asset generation failed", "generation_failed",
			logging.String("reason", string(genErr.Reason)),
			logging.Duration("elapsed", elapsed),
			logging.Error(genErr.Err),
			logging.String(logging.FieldErrorHint, "regenerate the asset once the provider recovers"),
		)
		return nil, genErr
	}
	logger.Info("asset generated",
		logging.String(logging.FieldEventType, "generation_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return content, nil
}

func checkContent(kind ledger.Kind, content ledger.Content) error {
	if content == nil {
		return invalidResponse(kind, "generator returned no content")
	}
	if content.Kind() != kind {
		return invalidResponse(kind, "generator returned %s content", content.Kind())
	}
	if err := content.Validate(); err != nil {
		return invalidResponse(kind, "content rejected: %v", err)
	}
	return nil
}
