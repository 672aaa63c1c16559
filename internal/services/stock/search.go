package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/storyboard"
)

// Provider is one stock media backend.
type Provider interface {
	Source() storyboard.Source
	Configured() bool
	Search(ctx context.Context, query string, page, perPage int) (storyboard.SearchPage, error)
}

// ErrNoProviders is returned when no requested source is configured.
var ErrNoProviders = fmt.Errorf("%w: no configured stock media source", services.ErrConfiguration)

// Search dispatches to configured providers. It implements
// storyboard.MediaSearch.
type Search struct {
	providers map[storyboard.Source]Provider
	order     []storyboard.Source
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSearch registers providers in priority order. Providers without
// credentials are skipped. timeout bounds each provider page request.
func NewSearch(timeout time.Duration, logger *slog.Logger, providers ...Provider) *Search {
	s := &Search{
		providers: make(map[storyboard.Source]Provider, len(providers)),
		timeout:   timeout,
		logger:    logging.NewComponentLogger(logger, "stock"),
	}
	for _, p := range providers {
		if p == nil || !p.Configured() {
			continue
		}
		if _, dup := s.providers[p.Source()]; dup {
			continue
		}
		s.providers[p.Source()] = p
		s.order = append(s.order, p.Source())
	}
	return s
}

// Sources lists the configured providers.
func (s *Search) Sources() []storyboard.Source {
	return append([]storyboard.Source(nil), s.order...)
}

// Search queries every requested source for the same page concurrently and
// interleaves the results. A failing source is logged and skipped as long as
// another one answers.
func (s *Search) Search(ctx context.Context, req storyboard.SearchRequest) (storyboard.SearchPage, error) {
	targets, err := s.resolve(req.Sources)
	if err != nil {
		return storyboard.SearchPage{}, err
	}

	pages := make([]storyboard.SearchPage, len(targets))
	errs := make([]error, len(targets))
	// Source failures are collected in errs rather than returned, so one
	// failing source never cancels its siblings.
	var group errgroup.Group
	for i, provider := range targets {
		group.Go(func() error {
			callCtx := ctx
			if s.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, s.timeout)
				defer cancel()
			}
			page, err := provider.Search(callCtx, req.Query, req.Page, req.PerPage)
			if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				err = services.Wrap(services.ErrTimeout, "stock", string(provider.Source()), fmt.Sprintf("no page within %s", s.timeout), err)
			}
			pages[i], errs[i] = page, err
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return storyboard.SearchPage{}, err
	}

	var merged storyboard.SearchPage
	var failed []error
	answered := make([]storyboard.SearchPage, 0, len(targets))
	for i, provider := range targets {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			logging.WarnWithContext(s.logger, "stock provider search failed", "stock_search_failed",
				logging.String("source", string(provider.Source())),
				logging.Int("page", req.Page),
				logging.Error(errs[i]),
				logging.String(logging.FieldErrorHint, "check the provider api key and quota"),
			)
			continue
		}
		answered = append(answered, pages[i])
		merged.HasMore = merged.HasMore || pages[i].HasMore
	}
	if len(answered) == 0 {
		return storyboard.SearchPage{}, errors.Join(failed...)
	}
	merged.Items = interleave(answered)
	return merged, nil
}

func (s *Search) resolve(sources []storyboard.Source) ([]Provider, error) {
	if len(sources) == 0 {
		sources = s.order
	}
	targets := make([]Provider, 0, len(sources))
	seen := make(map[storyboard.Source]struct{}, len(sources))
	for _, source := range sources {
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		provider, ok := s.providers[source]
		if !ok {
			s.logger.Debug("skipping unconfigured stock source", logging.String("source", string(source)))
			continue
		}
		targets = append(targets, provider)
	}
	if len(targets) == 0 {
		return nil, ErrNoProviders
	}
	return targets, nil
}

// interleave alternates results so one provider does not crowd out another
// when the caller caps the total.
func interleave(pages []storyboard.SearchPage) []storyboard.Media {
	total := 0
	longest := 0
	for _, page := range pages {
		total += len(page.Items)
		longest = max(longest, len(page.Items))
	}
	out := make([]storyboard.Media, 0, total)
	for i := range longest {
		for _, page := range pages {
			if i < len(page.Items) {
				out = append(out, page.Items[i])
			}
		}
	}
	return out
}
