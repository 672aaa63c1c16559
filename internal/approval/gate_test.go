package approval_test

import (
	"testing"

	"reelsmith/internal/approval"
	"reelsmith/internal/ledger"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

func approveAll(t *testing.T, l *ledger.Ledger, except ...ledger.Kind) {
	t.Helper()
	contents := map[ledger.Kind]ledger.Content{
		ledger.KindScript:          ledger.ScriptContent{Sections: []ledger.ScriptSection{{Narration: "hi", DurationSeconds: 2}}},
		ledger.KindSoundtrack:      ledger.SoundtrackContent{AudioURL: "file:///tmp/a.mp3"},
		ledger.KindDescription:     ledger.DescriptionContent{Text: "desc"},
		ledger.KindTags:            ledger.TagsContent{Tags: []string{"a"}},
		ledger.KindTitlesAndThumbs: ledger.TitlesAndThumbsContent{Options: []ledger.TitleOption{{Title: "t"}}},
	}
	for _, kind := range ledger.Kinds() {
		skip := false
		for _, e := range except {
			skip = skip || e == kind
		}
		if skip {
			continue
		}
		if _, err := l.SetGenerating(kind); err != nil {
			t.Fatalf("SetGenerating(%s): %v", kind, err)
		}
		if _, err := l.SetGenerated(kind, contents[kind]); err != nil {
			t.Fatalf("SetGenerated(%s): %v", kind, err)
		}
		if _, err := l.Approve(kind); err != nil {
			t.Fatalf("Approve(%s): %v", kind, err)
		}
	}
}

func TestInputAndResearchRules(t *testing.T) {
	gate := approval.Gate{}
	if gate.CanAdvance(production.StageInput, approval.Snapshot{Theme: "  "}) {
		t.Fatal("blank theme must block input")
	}
	if !gate.CanAdvance(production.StageInput, approval.Snapshot{Theme: "tides"}) {
		t.Fatal("theme should unblock input")
	}
	missing := gate.Missing(production.StageResearch, approval.Snapshot{Theme: "tides"})
	if len(missing) != 1 || missing[0].Kind != approval.RequireResearch {
		t.Fatalf("unexpected requirements %v", missing)
	}
}

func TestProposalNamesUnapprovedKinds(t *testing.T) {
	l := ledger.New()
	approveAll(t, l, ledger.KindTags)
	gate := approval.Gate{}
	snap := approval.Snapshot{Ledger: l}
	if gate.CanAdvance(production.StageProposal, snap) {
		t.Fatal("unapproved tags must block")
	}
	missing := gate.Missing(production.StageProposal, snap)
	if len(missing) != 1 || missing[0].Subject != "tags" || missing[0].Kind != approval.RequireAsset {
		t.Fatalf("expected tags requirement, got %v", missing)
	}

	approveAll(t, l, ledger.KindScript, ledger.KindSoundtrack, ledger.KindDescription, ledger.KindTitlesAndThumbs)
	if !gate.CanAdvance(production.StageProposal, snap) {
		t.Fatalf("all approved should advance: %v", gate.Missing(production.StageProposal, snap))
	}
}

func TestStudioRequiresEveryScene(t *testing.T) {
	gate := approval.Gate{}
	if missing := gate.Missing(production.StageStudio, approval.Snapshot{}); len(missing) != 1 || missing[0].Kind != approval.RequireStoryboard {
		t.Fatalf("missing storyboard not reported: %v", missing)
	}

	board, err := storyboard.NewBoard([]storyboard.Scene{{ID: "scene-1", Text: "a"}, {ID: "scene-2", Text: "b"}})
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	media := storyboard.Media{ID: "m", Type: storyboard.MediaImage, URL: "https://img.example.com/a.jpg"}
	if _, err := board.BindMedia("scene-1", media); err != nil {
		t.Fatalf("BindMedia: %v", err)
	}
	snap := approval.Snapshot{Storyboard: board}
	missing := gate.Missing(production.StageStudio, snap)
	if len(missing) != 1 || missing[0].Subject != "scene-2" {
		t.Fatalf("expected scene-2 requirement, got %v", missing)
	}
	if _, err := board.BindMedia("scene-2", media); err != nil {
		t.Fatalf("BindMedia: %v", err)
	}
	if !gate.CanAdvance(production.StageStudio, snap) {
		t.Fatal("fully bound storyboard should advance")
	}
	snap.StoryboardStale = true
	if gate.CanAdvance(production.StageStudio, snap) {
		t.Fatal("stale storyboard must block")
	}
}

func TestRenderRequiresCompletedFreshJob(t *testing.T) {
	gate := approval.Gate{}
	job := &render.Job{ID: "job-1", Status: render.StatusRendering}
	snap := approval.Snapshot{RenderJob: job}
	if gate.CanAdvance(production.StageRender, snap) {
		t.Fatal("rendering job must block")
	}
	job.Status = render.StatusCompleted
	if !gate.CanAdvance(production.StageRender, snap) {
		t.Fatal("completed job should advance")
	}
	snap.RenderStale = true
	if gate.CanAdvance(production.StageRender, snap) {
		t.Fatal("stale render must block")
	}
	if gate.CanAdvance(production.StageUpload, snap) {
		t.Fatal("upload is final")
	}
}
