package production

import (
	"fmt"
	"time"

	"reelsmith/internal/ledger"
	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

// Record is the persisted form of a Production.
type Record struct {
	ID              string             `json:"id"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Stage           Stage              `json:"stage"`
	Theme           string             `json:"theme"`
	Research        *Research          `json:"research,omitempty"`
	Assets          []ledger.Asset     `json:"assets"`
	Scenes          []storyboard.Scene `json:"scenes,omitempty"`
	HasStoryboard   bool               `json:"has_storyboard"`
	StoryboardStale bool               `json:"storyboard_stale,omitempty"`
	RenderJob       *render.Job        `json:"render_job,omitempty"`
	RenderStale     bool               `json:"render_stale,omitempty"`
	Publication     *Publication       `json:"publication,omitempty"`
}

// Record captures the production's current state.
func (p *Production) Record() Record {
	p.mu.Lock()
	rec := Record{
		ID:              p.ID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Stage:           p.Stage,
		Theme:           p.Theme,
		StoryboardStale: p.StoryboardStale,
		RenderStale:     p.RenderStale,
	}
	p.mu.Unlock()
	if p.Research != nil {
		research := *p.Research
		rec.Research = &research
	}
	if p.Ledger != nil {
		rec.Assets = p.Ledger.Snapshot()
	}
	if p.Storyboard != nil {
		rec.HasStoryboard = true
		rec.Scenes = p.Storyboard.Snapshot()
	}
	if p.RenderJob != nil {
		job := *p.RenderJob
		rec.RenderJob = &job
	}
	if p.Publication != nil {
		publication := *p.Publication
		rec.Publication = &publication
	}
	return rec
}

// FromRecord rebuilds a Production from its persisted form.
func FromRecord(rec Record) (*Production, error) {
	if rec.Stage.Index() < 0 {
		return nil, fmt.Errorf("production %s: unknown stage %q", rec.ID, rec.Stage)
	}
	p := &Production{
		ID:              rec.ID,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		Stage:           rec.Stage,
		Theme:           rec.Theme,
		Research:        rec.Research,
		Ledger:          ledger.New(),
		StoryboardStale: rec.StoryboardStale,
		RenderJob:       rec.RenderJob,
		RenderStale:     rec.RenderStale,
		Publication:     rec.Publication,
	}
	if err := p.Ledger.Restore(rec.Assets); err != nil {
		return nil, fmt.Errorf("production %s: %w", rec.ID, err)
	}
	if rec.HasStoryboard {
		board, err := storyboard.NewBoard(rec.Scenes)
		if err != nil {
			return nil, fmt.Errorf("production %s: %w", rec.ID, err)
		}
		p.Storyboard = board
	}
	return p, nil
}
