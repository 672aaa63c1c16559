package render_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/ledger"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/storyboard"
)

type stubCompositor struct {
	mu          sync.Mutex
	submitErr   error
	submitDelay time.Duration
	externalID  string
	statuses    []render.ProviderStatus
	statusErrs  []error
	statusCalls atomic.Int32
	gate        chan struct{}
	bundles     []render.Bundle
}

func (s *stubCompositor) Submit(ctx context.Context, bundle render.Bundle) (string, error) {
	s.mu.Lock()
	s.bundles = append(s.bundles, bundle)
	s.mu.Unlock()
	if s.submitDelay > 0 {
		select {
		case <-time.After(s.submitDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.submitErr != nil {
		return "", s.submitErr
	}
	if s.externalID == "" {
		return "ext-1", nil
	}
	return s.externalID, nil
}

func (s *stubCompositor) Status(ctx context.Context, _ string) (render.ProviderStatus, error) {
	n := int(s.statusCalls.Add(1)) - 1
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < len(s.statusErrs) && s.statusErrs[n] != nil {
		return render.ProviderStatus{}, s.statusErrs[n]
	}
	if len(s.statuses) == 0 {
		return render.ProviderStatus{State: "rendering", Progress: -1}, nil
	}
	if n >= len(s.statuses) {
		n = len(s.statuses) - 1
	}
	return s.statuses[n], nil
}

func boundBoard(t *testing.T, bindAll bool) *storyboard.Board {
	t.Helper()
	board, err := storyboard.NewBoard([]storyboard.Scene{
		{ID: "scene-1", Text: "one", DurationSeconds: 3},
		{ID: "scene-2", Text: "two", DurationSeconds: 4},
	})
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	for _, scene := range board.Scenes() {
		if !bindAll && scene.ID == "scene-2" {
			continue
		}
		if _, err := board.BindMedia(scene.ID, storyboard.Media{ID: scene.ID, Type: storyboard.MediaImage, URL: "https://cdn.example.com/" + scene.ID + ".jpg"}); err != nil {
			t.Fatalf("BindMedia: %v", err)
		}
	}
	return board
}

var soundtrack = ledger.SoundtrackContent{AudioURL: "https://cdn.example.com/voice.mp3"}

func submitted(t *testing.T, comp *stubCompositor) (*render.Controller, render.Job) {
	t.Helper()
	ctrl := render.NewController(comp, render.Options{})
	job, err := ctrl.Submit(context.Background(), boundBoard(t, true), soundtrack, "Bees")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return ctrl, job
}

func TestSubmitRejectsIncompleteStoryboardWithoutCreatingJob(t *testing.T) {
	comp := &stubCompositor{}
	ctrl := render.NewController(comp, render.Options{})
	job, err := ctrl.Submit(context.Background(), boundBoard(t, false), soundtrack, "Bees")
	if !errors.Is(err, render.ErrIncompleteStoryboard) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrIncompleteStoryboard, got %v", err)
	}
	if job.ID != "" {
		t.Fatalf("no job should be created, got %+v", job)
	}
	if len(comp.bundles) != 0 {
		t.Fatal("compositor must not be called")
	}
}

func TestSubmitConfirmedMovesToRendering(t *testing.T) {
	comp := &stubCompositor{externalID: "render-42"}
	_, job := submitted(t, comp)
	if job.Status != render.StatusRendering || job.ExternalID != "render-42" {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(comp.bundles) != 1 || len(comp.bundles[0].Scenes) != 2 || comp.bundles[0].TotalDuration != 7 {
		t.Fatalf("unexpected bundle %+v", comp.bundles)
	}
}

func TestSubmitFailureAndTimeoutMoveJobToError(t *testing.T) {
	t.Run("failure", func(t *testing.T) {
		comp := &stubCompositor{submitErr: services.Wrap(services.ErrTerminal, "compositor", "submit", "bad timeline", nil)}
		ctrl := render.NewController(comp, render.Options{})
		job, err := ctrl.Submit(context.Background(), boundBoard(t, true), soundtrack, "Bees")
		var submitErr *render.SubmitError
		if !errors.As(err, &submitErr) {
			t.Fatalf("expected SubmitError, got %v", err)
		}
		if job.Status != render.StatusError || job.Error == "" || job.CompletedAt == nil {
			t.Fatalf("expected error job, got %+v", job)
		}
		stored, ok := ctrl.Get(job.ID)
		if !ok || stored.Status != render.StatusError {
			t.Fatalf("stored job should be error, got %+v", stored)
		}
	})
	t.Run("timeout", func(t *testing.T) {
		comp := &stubCompositor{submitDelay: time.Second}
		ctrl := render.NewController(comp, render.Options{SubmitTimeout: 20 * time.Millisecond})
		job, err := ctrl.Submit(context.Background(), boundBoard(t, true), soundtrack, "Bees")
		if !errors.Is(err, services.ErrTimeout) {
			t.Fatalf("expected timeout error, got %v", err)
		}
		if job.Status != render.StatusError {
			t.Fatalf("a timed-out submission must end in error, got %s", job.Status)
		}
	})
}

func TestPollProgressIsMonotonicAndClamped(t *testing.T) {
	comp := &stubCompositor{statuses: []render.ProviderStatus{
		{State: "fetching", Progress: 20},
		{State: "rendering", Progress: 55.7},
		{State: "rendering", Progress: 30},
		{State: "saving", Progress: 250},
		{State: "done", Progress: -1, URL: "https://cdn.example.com/out.mp4"},
	}}
	ctrl, job := submitted(t, comp)

	want := []struct {
		status   render.Status
		progress int
	}{
		{render.StatusRendering, 20},
		{render.StatusRendering, 55},
		{render.StatusRendering, 55},
		{render.StatusRendering, 100},
		{render.StatusCompleted, 100},
	}
	prev := 0
	for i, w := range want {
		got, err := ctrl.Poll(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if got.Status != w.status || got.Progress != w.progress {
			t.Fatalf("poll %d: got %s/%d want %s/%d", i, got.Status, got.Progress, w.status, w.progress)
		}
		if got.Progress < prev {
			t.Fatalf("progress regressed from %d to %d", prev, got.Progress)
		}
		prev = got.Progress
	}
	final, _ := ctrl.Get(job.ID)
	if final.VideoURL != "https://cdn.example.com/out.mp4" || final.CompletedAt == nil {
		t.Fatalf("unexpected completed job %+v", final)
	}
}

func TestPollTerminalJobIsIdempotent(t *testing.T) {
	comp := &stubCompositor{statuses: []render.ProviderStatus{{State: "failed", Progress: -1, Error: "missing asset"}}}
	ctrl, job := submitted(t, comp)

	first, err := ctrl.Poll(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if first.Status != render.StatusError || first.Error != "missing asset" {
		t.Fatalf("unexpected job %+v", first)
	}
	calls := comp.statusCalls.Load()
	for range 3 {
		again, err := ctrl.Poll(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("Poll terminal: %v", err)
		}
		if again.Status != first.Status || again.Error != first.Error || !again.UpdatedAt.Equal(first.UpdatedAt) {
			t.Fatalf("terminal job changed: %+v vs %+v", again, first)
		}
	}
	if comp.statusCalls.Load() != calls {
		t.Fatal("terminal jobs must not call the provider")
	}
}

func TestPollTransientFailureLeavesJobUnchanged(t *testing.T) {
	comp := &stubCompositor{
		statuses:   []render.ProviderStatus{{State: "rendering", Progress: 40}, {State: "rendering", Progress: 40}},
		statusErrs: []error{nil, fmt.Errorf("%w: connection reset", services.ErrTransient)},
	}
	ctrl, job := submitted(t, comp)
	before, _ := ctrl.Poll(context.Background(), job.ID)

	after, err := ctrl.Poll(context.Background(), job.ID)
	var transient *render.PollTransientError
	if !errors.As(err, &transient) || !services.Retryable(err) {
		t.Fatalf("expected PollTransientError, got %v", err)
	}
	if after.Status != before.Status || after.Progress != before.Progress {
		t.Fatalf("transient poll changed job: %+v -> %+v", before, after)
	}
}

func TestPollStatusErrorsNeverFailTheJob(t *testing.T) {
	for _, statusErr := range []error{
		services.Wrap(services.ErrTerminal, "compositor", "status", "unexpected 422", nil),
		services.Wrap(services.ErrInvalidResponse, "compositor", "status", "decode response", nil),
		services.Wrap(services.ErrNotFound, "compositor", "status", "render not found", nil),
	} {
		comp := &stubCompositor{statusErrs: []error{statusErr}}
		ctrl, job := submitted(t, comp)
		got, err := ctrl.Poll(context.Background(), job.ID)
		var transient *render.PollTransientError
		if !errors.As(err, &transient) {
			t.Fatalf("%v: expected PollTransientError, got %v", statusErr, err)
		}
		if !services.Retryable(err) || !errors.Is(transient.Cause(), statusErr) {
			t.Fatalf("%v: poll error should be retryable and keep its cause, got %v", statusErr, err)
		}
		if got.Status != render.StatusRendering {
			t.Fatalf("%v: job status = %s, want rendering", statusErr, got.Status)
		}
	}
}

func TestPollProviderFailureStateMarksJobError(t *testing.T) {
	comp := &stubCompositor{statuses: []render.ProviderStatus{{State: "failed", Progress: -1, Error: "bad codec"}}}
	ctrl, job := submitted(t, comp)
	got, err := ctrl.Poll(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got.Status != render.StatusError || got.Error != "bad codec" {
		t.Fatalf("expected error status with provider message, got %+v", got)
	}
}

func TestConcurrentPollsAreCoalesced(t *testing.T) {
	comp := &stubCompositor{gate: make(chan struct{}), statuses: []render.ProviderStatus{{State: "rendering", Progress: 10}}}
	ctrl, job := submitted(t, comp)

	var wg sync.WaitGroup
	results := make(chan render.Job, 8)
	for range 8 {
		wg.Go(func() {
			got, err := ctrl.Poll(context.Background(), job.ID)
			if err != nil {
				t.Errorf("Poll: %v", err)
			}
			results <- got
		})
	}
	for comp.statusCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(comp.gate)
	wg.Wait()
	close(results)

	if calls := comp.statusCalls.Load(); calls >= 8 {
		t.Fatalf("expected coalesced provider calls, got %d", calls)
	}
	for got := range results {
		if got.Progress != 10 {
			t.Fatalf("unexpected progress %d", got.Progress)
		}
	}
}

func TestTrackMarksUnconfirmedJobsAsError(t *testing.T) {
	ctrl := render.NewController(&stubCompositor{}, render.Options{})
	job := ctrl.Track(render.Job{ID: "job-1", Status: render.StatusPending})
	if job.Status != render.StatusError {
		t.Fatalf("expected unconfirmed job to be error, got %s", job.Status)
	}
	kept := ctrl.Track(render.Job{ID: "job-2", ExternalID: "ext", Status: render.StatusRendering, Progress: 30})
	if kept.Status != render.StatusRendering || kept.Progress != 30 {
		t.Fatalf("expected rendering job kept, got %+v", kept)
	}
	if _, err := ctrl.Poll(context.Background(), "missing"); !errors.Is(err, render.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestDefaultStateMapper(t *testing.T) {
	tests := map[string]render.Status{
		"queued":        render.StatusPending,
		"submitted":     render.StatusPending,
		"fetching":      render.StatusRendering,
		"preprocessing": render.StatusRendering,
		"Rendering":     render.StatusRendering,
		"saving":        render.StatusRendering,
		"done":          render.StatusCompleted,
		"succeeded":     render.StatusCompleted,
		"failed":        render.StatusError,
		"cancelled":     render.StatusError,
	}
	for state, want := range tests {
		got, ok := render.DefaultStateMapper(state)
		if !ok || got != want {
			t.Fatalf("DefaultStateMapper(%q) = %s, %v; want %s", state, got, ok, want)
		}
	}
	if _, ok := render.DefaultStateMapper("teleporting"); ok {
		t.Fatal("unknown state should not be recognised")
	}
}
