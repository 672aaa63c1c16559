package production_test

import (
	"encoding/json"
	"testing"
	"time"

	"reelsmith/internal/ledger"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

func TestStageOrdering(t *testing.T) {
	stages := production.Stages()
	if len(stages) != 6 || stages[0] != production.StageInput || stages[5] != production.StageUpload {
		t.Fatalf("unexpected stages %v", stages)
	}
	for i := 0; i < len(stages)-1; i++ {
		next, ok := stages[i].Next()
		if !ok || next != stages[i+1] {
			t.Fatalf("%s.Next() = %s, %v", stages[i], next, ok)
		}
		if !stages[i].Before(stages[i+1]) {
			t.Fatalf("%s should come before %s", stages[i], stages[i+1])
		}
	}
	if _, ok := production.StageUpload.Next(); ok {
		t.Fatal("upload has no successor")
	}
	if got := production.StageProposal.Label(); got != "Proposal" {
		t.Fatalf("unexpected label %q", got)
	}
	if stage, err := production.ParseStage(" Studio "); err != nil || stage != production.StageStudio {
		t.Fatalf("ParseStage = %s, %v", stage, err)
	}
	if _, err := production.ParseStage("editing"); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p := production.New("  ocean tides ", now)
	if p.Theme != "ocean tides" || p.Stage != production.StageInput {
		t.Fatalf("unexpected new production %+v", p)
	}
	p.Stage = production.StageRender
	p.Research = &production.Research{Summary: "Tides are caused by the moon.", KeyPoints: []string{"gravity"}}

	script := ledger.ScriptContent{Title: "Tides", Sections: []ledger.ScriptSection{{Heading: "Moon", Narration: "The moon pulls.", DurationSeconds: 4}}}
	_, _ = p.Ledger.SetGenerating(ledger.KindScript)
	_, _ = p.Ledger.SetGenerated(ledger.KindScript, script)
	_, _ = p.Ledger.Approve(ledger.KindScript)

	board, err := storyboard.NewManager(nil).BuildFromScript(script)
	if err != nil {
		t.Fatalf("BuildFromScript: %v", err)
	}
	_, _ = board.BindMedia("scene-1", storyboard.Media{ID: "m1", Type: storyboard.MediaVideo, URL: "https://cdn.example.com/m1.mp4"})
	p.Storyboard = board
	p.RenderJob = &render.Job{ID: "job-1", ExternalID: "ext", Status: render.StatusRendering, Progress: 40}

	data, err := json.Marshal(p.Record())
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	var rec production.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	restored, err := production.FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if restored.ID != p.ID || restored.Stage != production.StageRender || restored.Theme != "ocean tides" {
		t.Fatalf("identity lost: %+v", restored)
	}
	if restored.Ledger.Get(ledger.KindScript).Status != ledger.StatusApproved {
		t.Fatal("ledger state lost")
	}
	if bound, total := restored.Storyboard.Coverage(); bound != 1 || total != 1 {
		t.Fatalf("storyboard coverage lost: %d/%d", bound, total)
	}
	if restored.RenderJob == nil || restored.RenderJob.Progress != 40 {
		t.Fatalf("render job lost: %+v", restored.RenderJob)
	}
	if restored.Research.Text() == "" {
		t.Fatal("research lost")
	}
	if restored.Title() != "Tides" {
		t.Fatalf("expected script title fallback, got %q", restored.Title())
	}
}

func TestFromRecordRejectsUnknownStage(t *testing.T) {
	if _, err := production.FromRecord(production.Record{ID: "x", Stage: "editing"}); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}
