package generation

import (
	"context"
	"slices"

	"reelsmith/internal/ledger"
)

// Generator produces content for one asset kind.
type Generator interface {
	Generate(ctx context.Context, kind ledger.Kind, gctx Context) (ledger.Content, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, kind ledger.Kind, gctx Context) (ledger.Content, error)

func (f GeneratorFunc) Generate(ctx context.Context, kind ledger.Kind, gctx Context) (ledger.Content, error) {
	return f(ctx, kind, gctx)
}

// Context is the input available to a generator.
type Context struct {
	Theme    string
	Research string
	// Script is the current script, required by the kinds that derive from it.
	Script *ledger.ScriptContent
	// Previous is the asset's last content, if any, for revision requests.
	Previous     ledger.Content
	Instructions string
}

var dependencies = map[ledger.Kind][]ledger.Kind{
	ledger.KindSoundtrack:      {ledger.KindScript},
	ledger.KindDescription:     {ledger.KindScript},
	ledger.KindTags:            {ledger.KindScript},
	ledger.KindTitlesAndThumbs: {ledger.KindScript},
}

// Requires lists the kinds whose content must exist before kind can be
// generated.
func Requires(kind ledger.Kind) []ledger.Kind {
	return slices.Clone(dependencies[kind])
}
