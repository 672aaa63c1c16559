package production

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/ledger"
	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

// Research is the background material gathered for the theme.
type Research struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Angles    []string `json:"angles"`
}

// Empty reports whether no research has been recorded.
func (r *Research) Empty() bool {
	return r == nil || strings.TrimSpace(r.Summary) == "" && len(r.KeyPoints) == 0
}

// Text renders the research as prompt-ready prose.
func (r *Research) Text() string {
	if r.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Summary))
	if len(r.KeyPoints) > 0 {
		b.WriteString("\n\nKey points:")
		for _, point := range r.KeyPoints {
			b.WriteString("\n- ")
			b.WriteString(strings.TrimSpace(point))
		}
	}
	if len(r.Angles) > 0 {
		b.WriteString("\n\nPossible angles:")
		for _, angle := range r.Angles {
			b.WriteString("\n- ")
			b.WriteString(strings.TrimSpace(angle))
		}
	}
	return strings.TrimSpace(b.String())
}

// Publication records where the finished video was uploaded.
type Publication struct {
	VideoID     string    `json:"video_id"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Production is the root aggregate for one video. Asset generation for
// different kinds may run concurrently; those paths only write UpdatedAt and
// the stale flags, through Touch and MarkDerivedStale. Other fields are
// owned by one operation at a time.
type Production struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Stage     Stage
	Theme     string
	Research  *Research
	Ledger    *ledger.Ledger

	Storyboard *storyboard.Board
	// StoryboardStale is set when earlier-stage data changed after the
	// storyboard was built.
	StoryboardStale bool

	RenderJob   *render.Job
	RenderStale bool

	Publication *Publication
}

// New creates a production in the Input stage.
func New(theme string, now time.Time) *Production {
	now = now.UTC()
	return &Production{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Stage:     StageInput,
		Theme:     strings.TrimSpace(theme),
		Ledger:    ledger.New(),
	}
}

// Touch bumps UpdatedAt. It never moves the timestamp backwards.
func (p *Production) Touch(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now = now.UTC(); now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
}

// MarkDerivedStale flags an existing storyboard and render job as built from
// older proposal data.
func (p *Production) MarkDerivedStale() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Storyboard != nil {
		p.StoryboardStale = true
	}
	if p.RenderJob != nil {
		p.RenderStale = true
	}
}

// Script returns the generated script, if any.
func (p *Production) Script() (ledger.ScriptContent, bool) {
	if p.Ledger == nil {
		return ledger.ScriptContent{}, false
	}
	script, ok := p.Ledger.Get(ledger.KindScript).Content.(ledger.ScriptContent)
	return script, ok
}

// Title returns the selected video title, falling back to the script title
// and then the theme.
func (p *Production) Title() string {
	if p.Ledger != nil {
		if titles, ok := p.Ledger.Get(ledger.KindTitlesAndThumbs).Content.(ledger.TitlesAndThumbsContent); ok {
			if title := strings.TrimSpace(titles.SelectedTitle()); title != "" {
				return title
			}
		}
	}
	if script, ok := p.Script(); ok && strings.TrimSpace(script.Title) != "" {
		return strings.TrimSpace(script.Title)
	}
	return p.Theme
}

// Metadata describes the published video.
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	ThumbnailURL  string
	PrivacyStatus string
}

// Metadata assembles publish metadata from the approved assets.
func (p *Production) Metadata() Metadata {
	meta := Metadata{Title: p.Title()}
	if p.Ledger == nil {
		return meta
	}
	if desc, ok := p.Ledger.Get(ledger.KindDescription).Content.(ledger.DescriptionContent); ok {
		meta.Description = strings.TrimSpace(desc.Text)
	}
	if tags, ok := p.Ledger.Get(ledger.KindTags).Content.(ledger.TagsContent); ok {
		meta.Tags = append([]string(nil), tags.Tags...)
	}
	if titles, ok := p.Ledger.Get(ledger.KindTitlesAndThumbs).Content.(ledger.TitlesAndThumbsContent); ok {
		if titles.Selected >= 0 && titles.Selected < len(titles.Options) {
			meta.ThumbnailURL = titles.Options[titles.Selected].ThumbnailURL
		}
	}
	return meta
}
