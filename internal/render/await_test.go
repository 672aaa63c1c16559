package render_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reelsmith/internal/render"
	"reelsmith/internal/services"
)

// fakeClock fires immediately and records requested delays.
type fakeClock struct {
	delays []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.delays = append(c.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestAwaitPollsUntilTerminalWithBackoff(t *testing.T) {
	transient := fmt.Errorf("%w: 502", services.ErrTransient)
	comp := &stubCompositor{
		statuses: []render.ProviderStatus{
			{State: "rendering", Progress: 10},
			{State: "rendering", Progress: 10},
			{State: "rendering", Progress: 10},
			{State: "rendering", Progress: 60},
			{State: "done", Progress: 100, URL: "https://cdn.example.com/final.mp4"},
		},
		statusErrs: []error{nil, transient, transient},
	}
	ctrl, job := submitted(t, comp)
	clock := &fakeClock{}
	var updates []render.Job

	final, err := ctrl.Await(context.Background(), job.ID, render.AwaitOptions{
		Interval:    time.Second,
		MaxInterval: 3 * time.Second,
		Clock:       clock,
		OnUpdate:    func(j render.Job) { updates = append(updates, j) },
	})
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if final.Status != render.StatusCompleted || final.VideoURL == "" {
		t.Fatalf("unexpected final job %+v", final)
	}
	wantDelays := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, time.Second}
	if len(clock.delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", clock.delays, wantDelays)
	}
	for i := range wantDelays {
		if clock.delays[i] != wantDelays[i] {
			t.Fatalf("delays = %v, want %v", clock.delays, wantDelays)
		}
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 updates (10%%, 60%%, done), got %d", len(updates))
	}
}

func TestAwaitStopsOnContextCancel(t *testing.T) {
	comp := &stubCompositor{}
	ctrl, job := submitted(t, comp)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ctrl.Await(ctx, job.ID, render.AwaitOptions{Interval: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
