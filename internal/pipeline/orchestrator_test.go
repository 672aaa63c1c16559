package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelsmith/internal/approval"
	"reelsmith/internal/generation"
	"reelsmith/internal/ledger"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/storyboard"
)

func TestAdvanceFromInputRequiresTheme(t *testing.T) {
	h := newHarness(t)
	p := h.orch.NewProduction("  ")
	_, err := h.orch.Advance(p)
	blocked, ok := pipeline.IsBlocked(err)
	if !ok || blocked.Missing[0].Kind != approval.RequireTheme {
		t.Fatalf("expected theme requirement, got %v", err)
	}
	if p.Stage != production.StageInput {
		t.Fatal("blocked advance must not change stage")
	}
	if err := h.orch.SetTheme(p, "volcanoes"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	mustAdvance(t, h.orch, p)
	if err := h.orch.SetTheme(p, "glaciers"); !errors.Is(err, pipeline.ErrWrongStage) {
		t.Fatalf("theme is fixed after input, got %v", err)
	}
}

func TestAdvanceFromProposalNamesUnapprovedKind(t *testing.T) {
	h := newHarness(t)
	p := h.toProposal(t)
	if err := h.orch.GenerateAll(context.Background(), p, ""); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	for _, kind := range ledger.Kinds() {
		if kind == ledger.KindTags {
			continue
		}
		if _, err := h.orch.ApproveAsset(p, kind); err != nil {
			t.Fatalf("ApproveAsset(%s): %v", kind, err)
		}
	}

	_, err := h.orch.Advance(p)
	blocked, ok := pipeline.IsBlocked(err)
	if !ok {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	if len(blocked.Missing) != 1 || blocked.Missing[0].Subject != "tags" {
		t.Fatalf("expected tags to be named, got %v", blocked.Missing)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("blocked advance should classify as validation")
	}
	if p.Stage != production.StageProposal {
		t.Fatalf("stage mutated to %s", p.Stage)
	}
	if !h.notifier.has(notifications.EventAssetsGenerated) {
		t.Fatal("expected assets generated notification")
	}
}

func TestRegenerateAssetOnlyInProposal(t *testing.T) {
	h := newHarness(t)
	p := h.orch.NewProduction("tides")
	_, err := h.orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "")
	if !errors.Is(err, pipeline.ErrWrongStage) || !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected wrong stage, got %v", err)
	}
	if h.generator.calls[ledger.KindScript] != 0 {
		t.Fatal("generator must not run outside proposal")
	}
}

func TestDerivedAssetsNeedScript(t *testing.T) {
	h := newHarness(t)
	p := h.toProposal(t)
	_, err := h.orch.RegenerateAsset(context.Background(), p, ledger.KindDescription, "")
	if !errors.Is(err, pipeline.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if got := p.Ledger.Get(ledger.KindDescription).Status; got != ledger.StatusPending {
		t.Fatalf("asset should stay pending, got %s", got)
	}
}

func TestRegenerateAfterTerminalFailure(t *testing.T) {
	h := newHarness(t)
	p := h.toProposal(t)
	h.generator.failNext(ledger.KindScript, services.Wrap(services.ErrTerminal, "llm", "complete", "refused", nil))

	_, err := h.orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "")
	var genErr *generation.Error
	if !errors.As(err, &genErr) || genErr.Reason != generation.ReasonRejected {
		t.Fatalf("expected rejected generation error, got %v", err)
	}
	failed := p.Ledger.Get(ledger.KindScript)
	if failed.Status != ledger.StatusFailed || failed.FailureReason == "" {
		t.Fatalf("expected failed asset with reason, got %+v", failed)
	}
	if !h.notifier.has(notifications.EventError) {
		t.Fatal("provider failure should notify")
	}

	asset, err := h.orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "try again")
	if err != nil {
		t.Fatalf("second RegenerateAsset: %v", err)
	}
	if asset.Status != ledger.StatusGenerated || asset.ApprovedAt != nil {
		t.Fatalf("expected generated (not approved), got %+v", asset)
	}
	if asset.Attempts != 2 {
		t.Fatalf("expected two attempts, got %d", asset.Attempts)
	}
	if got := h.generator.seen[ledger.KindScript]; got.Instructions != "try again" || got.Research == "" {
		t.Fatalf("generation context not passed through: %+v", got)
	}
}

func TestConcurrentRegenerationOfSameKindIsRejected(t *testing.T) {
	h := newHarness(t)
	p := h.toProposal(t)

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := generation.GeneratorFunc(func(ctx context.Context, kind ledger.Kind, _ generation.Context) (ledger.Content, error) {
		close(started)
		<-release
		return sampleContent(kind), nil
	})
	orch := pipeline.New(pipeline.Options{Gateway: generation.NewGateway(blocking, generation.GatewayOptions{})})

	var wg sync.WaitGroup
	var firstErr error
	wg.Go(func() {
		_, firstErr = orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "")
	})
	<-started
	_, err := orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "")
	close(release)
	wg.Wait()

	if !errors.Is(err, ledger.ErrAlreadyInProgress) {
		t.Fatalf("expected already in progress, got %v", err)
	}
	if firstErr != nil {
		t.Fatalf("first generation failed: %v", firstErr)
	}
	if got := p.Ledger.Get(ledger.KindScript).Status; got != ledger.StatusGenerated {
		t.Fatalf("expected generated, got %s", got)
	}
}

func TestConcurrentRetryOfFailedAssetIsRejected(t *testing.T) {
	h := newHarness(t)
	p := h.toProposal(t)
	h.generator.failNext(ledger.KindScript, services.Wrap(services.ErrTerminal, "llm", "complete", "refused", nil))
	if _, err := h.orch.RegenerateAsset(context.Background(), p, ledger.KindScript, ""); err == nil {
		t.Fatal("expected first generation to fail")
	}

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	blocking := generation.GeneratorFunc(func(ctx context.Context, kind ledger.Kind, _ generation.Context) (ledger.Content, error) {
		once.Do(func() { close(started) })
		<-release
		return sampleContent(kind), nil
	})
	orch := pipeline.New(pipeline.Options{Gateway: generation.NewGateway(blocking, generation.GatewayOptions{})})

	var wg sync.WaitGroup
	var firstErr error
	wg.Go(func() {
		_, firstErr = orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "")
	})
	<-started
	_, err := orch.RegenerateAsset(context.Background(), p, ledger.KindScript, "")
	close(release)
	wg.Wait()

	if !errors.Is(err, ledger.ErrAlreadyInProgress) {
		t.Fatalf("retry racing an in-flight retry should be already in progress, got %v", err)
	}
	if firstErr != nil {
		t.Fatalf("retry failed: %v", firstErr)
	}
	if got := p.Ledger.Get(ledger.KindScript); got.Status != ledger.StatusGenerated || got.Attempts != 2 {
		t.Fatalf("expected generated after two attempts, got %+v", got)
	}
}

func TestConcurrentRegenerationOfDifferentKinds(t *testing.T) {
	h := newHarness(t)
	p := h.toProposal(t)
	if err := h.orch.GenerateAll(context.Background(), p, ""); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	before := p.Record().UpdatedAt

	kinds := []ledger.Kind{ledger.KindScript, ledger.KindDescription, ledger.KindTags}
	var arrived sync.WaitGroup
	arrived.Add(len(kinds))
	barrier := generation.GeneratorFunc(func(ctx context.Context, kind ledger.Kind, _ generation.Context) (ledger.Content, error) {
		arrived.Done()
		arrived.Wait()
		return sampleContent(kind), nil
	})
	orch := pipeline.New(pipeline.Options{Gateway: generation.NewGateway(barrier, generation.GatewayOptions{})})

	errs := make([]error, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Go(func() {
			_, errs[i] = orch.RegenerateAsset(context.Background(), p, kind, "")
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("RegenerateAsset(%s): %v", kinds[i], err)
		}
		if got := p.Ledger.Get(kinds[i]).Status; got != ledger.StatusGenerated {
			t.Fatalf("%s: expected generated, got %s", kinds[i], got)
		}
	}
	if got := p.Ledger.Get(ledger.KindScript).Attempts; got != 2 {
		t.Fatalf("expected a second script attempt, got %d", got)
	}
	if after := p.Record().UpdatedAt; after.Before(before) {
		t.Fatalf("UpdatedAt moved backwards: %s -> %s", before, after)
	}
}

func TestStudioScenarioBlocksOnUnboundScene(t *testing.T) {
	h := newHarness(t)
	p := h.toStudio(t)

	board, err := h.orch.BuildStoryboard(p)
	if err != nil {
		t.Fatalf("BuildStoryboard: %v", err)
	}
	scenes := board.Scenes()
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(scenes))
	}
	for i := range 2 {
		if _, err := h.orch.BindMedia(p, scenes[i].ID, media("clip")); err != nil {
			t.Fatalf("BindMedia: %v", err)
		}
	}
	if bound, total := board.Coverage(); bound != 2 || total != 3 {
		t.Fatalf("coverage = (%d,%d), want (2,3)", bound, total)
	}

	_, err = h.orch.Advance(p)
	blocked, ok := pipeline.IsBlocked(err)
	if !ok || len(blocked.Missing) != 1 || blocked.Missing[0].Subject != scenes[2].ID {
		t.Fatalf("expected block naming %s, got %v", scenes[2].ID, err)
	}

	if _, err := h.orch.BindMedia(p, scenes[2].ID, media("clip")); err != nil {
		t.Fatalf("BindMedia: %v", err)
	}
	mustAdvance(t, h.orch, p)
	if p.Stage != production.StageRender {
		t.Fatalf("expected render stage, got %s", p.Stage)
	}
}

func TestSubmitWithUnboundSceneCreatesNoJob(t *testing.T) {
	h := newHarness(t)
	p := h.toStudio(t)
	board, err := h.orch.BuildStoryboard(p)
	if err != nil {
		t.Fatalf("BuildStoryboard: %v", err)
	}
	scenes := board.Scenes()
	for _, scene := range scenes[:2] {
		if _, err := h.orch.BindMedia(p, scene.ID, media("clip")); err != nil {
			t.Fatalf("BindMedia: %v", err)
		}
	}
	// Force the stage to exercise the controller's own check.
	p.Stage = production.StageRender

	_, err = h.orch.SubmitRender(context.Background(), p)
	if !errors.Is(err, render.ErrIncompleteStoryboard) {
		t.Fatalf("expected incomplete storyboard, got %v", err)
	}
	if p.RenderJob != nil {
		t.Fatalf("no job should exist, got %+v", p.RenderJob)
	}
	if h.compositor.submits != 0 {
		t.Fatal("compositor must not be called")
	}
}

func TestSearchMediaUsesDefaultSourcesAndCap(t *testing.T) {
	h := newHarness(t)
	p := h.toStudio(t)
	if _, err := h.orch.SearchMedia(context.Background(), p, "scene-1", "", nil); !errors.Is(err, pipeline.ErrNotReady) {
		t.Fatalf("search before build should fail, got %v", err)
	}
	if _, err := h.orch.BuildStoryboard(p); err != nil {
		t.Fatalf("BuildStoryboard: %v", err)
	}
	candidates, err := h.orch.SearchMedia(context.Background(), p, "scene-1", "", nil)
	if err != nil {
		t.Fatalf("SearchMedia: %v", err)
	}
	if candidates.Query() != "The moon" {
		t.Fatalf("expected heading as default query, got %q", candidates.Query())
	}
	items, err := candidates.Collect(0)
	if err != nil || len(items) != 12 {
		t.Fatalf("expected capped 12 results, got %d (%v)", len(items), err)
	}
	if _, err := h.orch.SearchMedia(context.Background(), p, "scene-9", "", nil); !errors.Is(err, storyboard.ErrSceneNotFound) {
		t.Fatalf("expected scene not found, got %v", err)
	}
}

func TestRenderAwaitAndPublish(t *testing.T) {
	h := newHarness(t)
	p := h.toRender(t)
	h.compositor.statuses = []render.ProviderStatus{
		{State: "rendering", Progress: 30},
		{State: "rendering", Progress: 70},
		{State: "done", Progress: 100, URL: "https://cdn.example.com/final.mp4"},
	}

	job, err := h.orch.SubmitRender(context.Background(), p)
	if err != nil {
		t.Fatalf("SubmitRender: %v", err)
	}
	if job.Status != render.StatusRendering || p.RenderJob == nil {
		t.Fatalf("unexpected job %+v", job)
	}
	if _, err := h.orch.SubmitRender(context.Background(), p); !errors.Is(err, pipeline.ErrRenderInProgress) {
		t.Fatalf("expected render in progress, got %v", err)
	}

	var progress []int
	final, err := h.orch.AwaitRender(context.Background(), p, render.AwaitOptions{
		Clock:    immediateClock{},
		OnUpdate: func(j render.Job) { progress = append(progress, j.Progress) },
	})
	if err != nil {
		t.Fatalf("AwaitRender: %v", err)
	}
	if final.Status != render.StatusCompleted || p.RenderJob.VideoURL != "https://cdn.example.com/final.mp4" {
		t.Fatalf("unexpected final job %+v", p.RenderJob)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress regressed: %v", progress)
		}
	}
	if !h.notifier.has(notifications.EventRenderCompleted) {
		t.Fatal("expected render completed notification")
	}

	mustAdvance(t, h.orch, p)
	publication, err := h.orch.Publish(context.Background(), p, "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if publication.VideoID != "yt123" || p.Publication == nil || p.Publication.PublishedAt.IsZero() {
		t.Fatalf("publication not recorded: %+v", p.Publication)
	}
	if h.publisher.meta.Title != "Tides explained" || h.publisher.meta.PrivacyStatus != "private" {
		t.Fatalf("unexpected metadata %+v", h.publisher.meta)
	}
	if _, err := h.orch.Publish(context.Background(), p, ""); !errors.Is(err, pipeline.ErrAlreadyPublished) {
		t.Fatalf("expected already published, got %v", err)
	}
	if _, err := h.orch.Advance(p); !errors.Is(err, pipeline.ErrFinalStage) {
		t.Fatalf("expected final stage, got %v", err)
	}
}

func TestPollAdoptsPersistedJob(t *testing.T) {
	h := newHarness(t)
	p := h.toRender(t)
	if _, err := h.orch.SubmitRender(context.Background(), p); err != nil {
		t.Fatalf("SubmitRender: %v", err)
	}

	// A fresh orchestrator simulates a restart with the job loaded from disk.
	restarted := newHarness(t)
	restarted.compositor.statuses = []render.ProviderStatus{{State: "failed", Error: "bad asset"}}
	job, err := restarted.orch.PollRender(context.Background(), p)
	if err != nil {
		t.Fatalf("PollRender: %v", err)
	}
	if job.Status != render.StatusError || p.RenderJob.Error == "" {
		t.Fatalf("expected errored job, got %+v", p.RenderJob)
	}
	if !restarted.notifier.has(notifications.EventRenderFailed) {
		t.Fatal("expected render failed notification")
	}

	resubmitted, err := restarted.orch.SubmitRender(context.Background(), p)
	if err != nil {
		t.Fatalf("resubmit after error: %v", err)
	}
	if resubmitted.ID == job.ID {
		t.Fatal("resubmission should create a new job")
	}
}

func TestSubmitFailureRecordsErroredJob(t *testing.T) {
	h := newHarness(t)
	p := h.toRender(t)
	h.compositor.submitErr = services.Wrap(services.ErrTransient, "compositor", "submit", "503", nil)

	job, err := h.orch.SubmitRender(context.Background(), p)
	var submitErr *render.SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if job.Status != render.StatusError || p.RenderJob == nil || p.RenderJob.Status != render.StatusError {
		t.Fatalf("expected errored job recorded, got %+v", p.RenderJob)
	}
}

func TestRewindMarksDownstreamStale(t *testing.T) {
	h := newHarness(t)
	p := h.toRender(t)
	if _, err := h.orch.SubmitRender(context.Background(), p); err != nil {
		t.Fatalf("SubmitRender: %v", err)
	}

	if err := h.orch.Rewind(p, production.StageRender); err == nil {
		t.Fatal("rewinding to the current stage should fail")
	}
	if err := h.orch.Rewind(p, production.StageProposal); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if !p.StoryboardStale || !p.RenderStale {
		t.Fatalf("expected stale flags, got storyboard=%v render=%v", p.StoryboardStale, p.RenderStale)
	}
	if !p.Ledger.AllApproved() {
		t.Fatal("rewinding to proposal keeps approvals")
	}
	mustAdvance(t, h.orch, p)
	_, err := h.orch.Advance(p)
	blocked, ok := pipeline.IsBlocked(err)
	if !ok || blocked.Missing[0].Kind != approval.RequireStoryboard {
		t.Fatalf("stale storyboard should block studio, got %v", err)
	}
	if _, err := h.orch.BuildStoryboard(p); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if bound, total := p.Storyboard.Coverage(); bound != total {
		t.Fatalf("unchanged scenes should keep media, coverage %d/%d", bound, total)
	}
	mustAdvance(t, h.orch, p)
	if _, err := h.orch.Advance(p); err == nil {
		t.Fatal("stale render must block render stage")
	}

	if err := h.orch.Rewind(p, production.StageResearch); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if len(p.Ledger.Unapproved()) != len(ledger.Kinds()) {
		t.Fatal("rewinding before proposal revokes approvals")
	}
	if p.Ledger.Get(ledger.KindScript).Content == nil {
		t.Fatal("rewind must not delete content")
	}
}

func TestEditApprovedScriptDemotesAndMarksStale(t *testing.T) {
	h := newHarness(t)
	p := h.toRender(t)
	if err := h.orch.Rewind(p, production.StageProposal); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	p.StoryboardStale = false

	edited := threeSectionScript()
	edited.Sections[0].Narration = "The moon tugs the seas."
	asset, err := h.orch.EditAsset(p, ledger.KindScript, edited)
	if err != nil {
		t.Fatalf("EditAsset: %v", err)
	}
	if asset.Status != ledger.StatusGenerated || asset.ApprovedAt != nil {
		t.Fatalf("edit should demote, got %+v", asset)
	}
	if !p.StoryboardStale {
		t.Fatal("script edit should mark the storyboard stale")
	}
}

func TestReorderScenesIsAtomic(t *testing.T) {
	h := newHarness(t)
	p := h.toStudio(t)
	if _, err := h.orch.BuildStoryboard(p); err != nil {
		t.Fatalf("BuildStoryboard: %v", err)
	}
	before := p.Storyboard.Scenes()
	if err := h.orch.ReorderScenes(p, []string{"scene-1", "scene-1", "scene-2"}); !errors.Is(err, storyboard.ErrInvalidPermutation) {
		t.Fatalf("expected invalid permutation, got %v", err)
	}
	after := p.Storyboard.Scenes()
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatal("failed reorder changed the storyboard")
		}
	}
	if err := h.orch.ReorderScenes(p, []string{"scene-3", "scene-1", "scene-2"}); err != nil {
		t.Fatalf("ReorderScenes: %v", err)
	}
	if first := p.Storyboard.Scenes()[0]; first.ID != "scene-3" || first.Order != 0 {
		t.Fatalf("unexpected first scene %+v", first)
	}
}
