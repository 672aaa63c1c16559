package approval

import (
	"fmt"
	"strings"

	"reelsmith/internal/ledger"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

// RequirementKind groups outstanding requirements by what they concern.
type RequirementKind string

const (
	RequireTheme      RequirementKind = "theme"
	RequireResearch   RequirementKind = "research"
	RequireAsset      RequirementKind = "asset"
	RequireStoryboard RequirementKind = "storyboard"
	RequireScene      RequirementKind = "scene"
	RequireRender     RequirementKind = "render"
)

// Requirement is one unmet condition for leaving a stage.
type Requirement struct {
	Kind RequirementKind `json:"kind"`
	// Subject names the specific item, such as an asset kind or scene ID.
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
}

func (r Requirement) String() string {
	if r.Subject == "" {
		return fmt.Sprintf("%s: %s", r.Kind, r.Detail)
	}
	return fmt.Sprintf("%s %s: %s", r.Kind, r.Subject, r.Detail)
}

// Snapshot is the read-only view of a production the gate evaluates.
type Snapshot struct {
	Theme           string
	HasResearch     bool
	Ledger          *ledger.Ledger
	Storyboard      *storyboard.Board
	StoryboardStale bool
	RenderJob       *render.Job
	RenderStale     bool
}

// SnapshotOf captures the gate inputs from p.
func SnapshotOf(p *production.Production) Snapshot {
	return Snapshot{
		Theme:           p.Theme,
		HasResearch:     !p.Research.Empty(),
		Ledger:          p.Ledger,
		Storyboard:      p.Storyboard,
		StoryboardStale: p.StoryboardStale,
		RenderJob:       p.RenderJob,
		RenderStale:     p.RenderStale,
	}
}

// Gate evaluates stage exit conditions.
type Gate struct{}

// CanAdvance reports whether every exit condition of from holds. The final
// stage never advances.
func (g Gate) CanAdvance(from production.Stage, snap Snapshot) bool {
	if _, ok := from.Next(); !ok {
		return false
	}
	return len(g.Missing(from, snap)) == 0
}

// Missing lists the unmet exit conditions of from in a stable order.
func (Gate) Missing(from production.Stage, snap Snapshot) []Requirement {
	switch from {
	case production.StageInput:
		if strings.TrimSpace(snap.Theme) == "" {
			return []Requirement{{Kind: RequireTheme, Detail: "no theme set"}}
		}
	case production.StageResearch:
		if !snap.HasResearch {
			return []Requirement{{Kind: RequireResearch, Detail: "research has not been gathered"}}
		}
	case production.StageProposal:
		return missingAssets(snap.Ledger)
	case production.StageStudio:
		return missingScenes(snap)
	case production.StageRender:
		return missingRender(snap)
	}
	return nil
}

func missingAssets(l *ledger.Ledger) []Requirement {
	if l == nil {
		l = ledger.New()
	}
	var out []Requirement
	for _, asset := range l.Unapproved() {
		out = append(out, Requirement{
			Kind:    RequireAsset,
			Subject: asset.Kind.String(),
			Detail:  fmt.Sprintf("not approved (status %s)", asset.Status),
		})
	}
	return out
}

func missingScenes(snap Snapshot) []Requirement {
	if snap.Storyboard == nil {
		return []Requirement{{Kind: RequireStoryboard, Detail: "storyboard has not been built"}}
	}
	var out []Requirement
	if snap.StoryboardStale {
		out = append(out, Requirement{Kind: RequireStoryboard, Detail: "storyboard is stale; rebuild it from the current script"})
	}
	if snap.Storyboard.Len() == 0 {
		out = append(out, Requirement{Kind: RequireStoryboard, Detail: "storyboard has no scenes"})
	}
	for _, scene := range snap.Storyboard.Unbound() {
		out = append(out, Requirement{Kind: RequireScene, Subject: scene.ID, Detail: "no media bound"})
	}
	return out
}

func missingRender(snap Snapshot) []Requirement {
	job := snap.RenderJob
	switch {
	case job == nil:
		return []Requirement{{Kind: RequireRender, Detail: "no render job submitted"}}
	case snap.RenderStale:
		return []Requirement{{Kind: RequireRender, Subject: job.ID, Detail: "render is stale; the storyboard changed after submission"}}
	case job.Status != render.StatusCompleted:
		detail := fmt.Sprintf("render is %s", job.Status)
		if job.Status == render.StatusError && job.Error != "" {
			detail += ": " + job.Error
		}
		return []Requirement{{Kind: RequireRender, Subject: job.ID, Detail: detail}}
	}
	return nil
}
