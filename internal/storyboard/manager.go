package storyboard

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"reelsmith/internal/ledger"
	"reelsmith/internal/logging"
)

// DefaultMaxResults caps how many candidates one search yields.
const DefaultMaxResults = 50

const defaultPerPage = 15

// SearchRequest asks a stock provider for one page of results.
type SearchRequest struct {
	Query   string
	Sources []Source
	Page    int
	PerPage int
}

// SearchPage is one page of stock results.
type SearchPage struct {
	Items   []Media
	HasMore bool
}

// MediaSearch queries stock media providers.
type MediaSearch interface {
	Search(ctx context.Context, req SearchRequest) (SearchPage, error)
}

// Manager builds storyboards and runs media searches against them.
type Manager struct {
	search     MediaSearch
	maxResults int
	perPage    int
	logger     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxResults caps the number of candidates per search.
func WithMaxResults(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxResults = n
		}
	}
}

// WithPerPage sets the page size requested from the provider.
func WithPerPage(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.perPage = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager constructs a Manager. search may be nil when only board
// construction is needed; SearchMedia then fails.
func NewManager(search MediaSearch, opts ...ManagerOption) *Manager {
	m := &Manager{
		search:     search,
		maxResults: DefaultMaxResults,
		perPage:    defaultPerPage,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "storyboard")
	return m
}

// BuildFromScript creates one scene per script section, preserving order and
// durations. Scene IDs are deterministic (scene-1, scene-2, ...).
func (m *Manager) BuildFromScript(script ledger.ScriptContent) (*Board, error) {
	if len(script.Sections) == 0 {
		return nil, ErrEmptyScript
	}
	scenes := make([]Scene, 0, len(script.Sections))
	for i, section := range script.Sections {
		if !(section.DurationSeconds >= 0) {
			return nil, fmt.Errorf("%w: section %d has %v seconds", ErrInvalidDuration, i+1, section.DurationSeconds)
		}
		scenes = append(scenes, Scene{
			ID:              fmt.Sprintf("scene-%d", i+1),
			Order:           i,
			Heading:         strings.TrimSpace(section.Heading),
			Text:            strings.TrimSpace(section.Narration),
			DurationSeconds: section.DurationSeconds,
		})
	}
	m.logger.Debug("storyboard built",
		logging.Int("scenes", len(scenes)),
		logging.Float64("duration_seconds", script.TotalDuration()),
	)
	return NewBoard(scenes)
}

// SearchMedia starts a candidate search for one scene. No provider call is
// made until the returned sequence is iterated. An empty query falls back to
// the scene's suggested query.
func (m *Manager) SearchMedia(ctx context.Context, board *Board, sceneID, query string, sources []Source) (*Candidates, error) {
	if board == nil {
		return nil, sceneNotFound(sceneID)
	}
	scene, err := board.Scene(sceneID)
	if err != nil {
		return nil, err
	}
	if m.search == nil {
		return nil, fmt.Errorf("storyboard: %w", errSearchUnavailable)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = scene.SuggestedQuery()
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return &Candidates{
		ctx:     ctx,
		search:  m.search,
		query:   query,
		sources: append([]Source(nil), sources...),
		limit:   m.maxResults,
		perPage: m.perPage,
		logger:  m.logger.With(logging.String("scene_id", sceneID)),
	}, nil
}

// Candidates is a lazy, finite, single-use sequence of search results.
type Candidates struct {
	ctx     context.Context
	search  MediaSearch
	query   string
	sources []Source
	limit   int
	perPage int
	logger  *slog.Logger
	used    atomic.Bool
}

// Query returns the effective search query.
func (c *Candidates) Query() string {
	return c.query
}

// All yields candidates page by page until the provider runs out or the cap
// is reached. A provider error is yielded once and ends the sequence. Only
// the first iteration produces values.
func (c *Candidates) All() iter.Seq2[Media, error] {
	return func(yield func(Media, error) bool) {
		if !c.used.CompareAndSwap(false, true) {
			return
		}
		yielded := 0
		for page := 1; yielded < c.limit; page++ {
			if err := c.ctx.Err(); err != nil {
				yield(Media{}, err)
				return
			}
			result, err := c.search.Search(c.ctx, SearchRequest{
				Query:   c.query,
				Sources: c.sources,
				Page:    page,
				PerPage: c.perPage,
			})
			if err != nil {
				c.logger.Debug("media search page failed", logging.Int("page", page), logging.Error(err))
				yield(Media{}, err)
				return
			}
			for _, item := range result.Items {
				if yielded >= c.limit {
					return
				}
				yielded++
				if !yield(item, nil) {
					return
				}
			}
			if !result.HasMore || len(result.Items) == 0 {
				return
			}
		}
	}
}

// Collect drains up to n candidates (all remaining when n <= 0).
func (c *Candidates) Collect(n int) ([]Media, error) {
	var out []Media
	for media, err := range c.All() {
		if err != nil {
			return out, err
		}
		out = append(out, media)
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out, nil
}
