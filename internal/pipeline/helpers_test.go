package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/generation"
	"reelsmith/internal/ledger"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/storyboard"
)

func threeSectionScript() ledger.ScriptContent {
	return ledger.ScriptContent{
		Title: "How tides work",
		Sections: []ledger.ScriptSection{
			{Heading: "The moon", Narration: "The moon pulls on the oceans.", DurationSeconds: 4},
			{Heading: "Two bulges", Narration: "Water bulges on both sides of the earth.", DurationSeconds: 5},
			{Heading: "Spring tides", Narration: "When sun and moon align, tides grow.", DurationSeconds: 6},
		},
	}
}

func sampleContent(kind ledger.Kind) ledger.Content {
	switch kind {
	case ledger.KindScript:
		return threeSectionScript()
	case ledger.KindSoundtrack:
		return ledger.SoundtrackContent{AudioURL: "https://cdn.example.com/voice.mp3", Voice: "alloy", DurationSeconds: 15}
	case ledger.KindDescription:
		return ledger.DescriptionContent{Text: "Why the sea rises and falls."}
	case ledger.KindTags:
		return ledger.TagsContent{Tags: []string{"tides", "moon"}}
	case ledger.KindTitlesAndThumbs:
		return ledger.TitlesAndThumbsContent{Options: []ledger.TitleOption{{Title: "Tides explained"}}}
	}
	return nil
}

// scriptedGenerator returns sample content, or queued errors per kind.
type scriptedGenerator struct {
	mu    sync.Mutex
	errs  map[ledger.Kind][]error
	calls map[ledger.Kind]int
	seen  map[ledger.Kind]generation.Context
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		errs:  map[ledger.Kind][]error{},
		calls: map[ledger.Kind]int{},
		seen:  map[ledger.Kind]generation.Context{},
	}
}

func (g *scriptedGenerator) failNext(kind ledger.Kind, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[kind] = append(g.errs[kind], err)
}

func (g *scriptedGenerator) Generate(_ context.Context, kind ledger.Kind, gctx generation.Context) (ledger.Content, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[kind]++
	g.seen[kind] = gctx
	if queued := g.errs[kind]; len(queued) > 0 {
		g.errs[kind] = queued[1:]
		return nil, queued[0]
	}
	return sampleContent(kind), nil
}

type stubResearcher struct{}

func (stubResearcher) Research(_ context.Context, theme, _ string) (production.Research, error) {
	return production.Research{Summary: "Background on " + theme, KeyPoints: []string{"gravity"}}, nil
}

type stubSearch struct{}

func (stubSearch) Search(_ context.Context, req storyboard.SearchRequest) (storyboard.SearchPage, error) {
	items := make([]storyboard.Media, 0, req.PerPage)
	for i := range req.PerPage {
		id := fmt.Sprintf("%s-%d-%d", req.Query, req.Page, i)
		items = append(items, storyboard.Media{ID: id, Source: storyboard.SourcePexels, Type: storyboard.MediaVideo, URL: "https://cdn.example.com/" + id + ".mp4"})
	}
	return storyboard.SearchPage{Items: items, HasMore: req.Page < 3}, nil
}

type stubCompositor struct {
	mu        sync.Mutex
	submitErr error
	submits   int
	statuses  []render.ProviderStatus
}

func (c *stubCompositor) Submit(context.Context, render.Bundle) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return fmt.Sprintf("ext-%d", c.submits), nil
}

func (c *stubCompositor) Status(context.Context, string) (render.ProviderStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statuses) == 0 {
		return render.ProviderStatus{State: "rendering", Progress: -1}, nil
	}
	next := c.statuses[0]
	if len(c.statuses) > 1 {
		c.statuses = c.statuses[1:]
	}
	return next, nil
}

type stubPublisher struct {
	videoURL string
	meta     production.Metadata
}

func (p *stubPublisher) Upload(_ context.Context, videoURL string, meta production.Metadata) (production.Publication, error) {
	p.videoURL = videoURL
	p.meta = meta
	return production.Publication{VideoID: "yt123", URL: "https://www.youtube.com/watch?v=yt123"}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type immediateClock struct{}

func (immediateClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type harness struct {
	orch       *pipeline.Orchestrator
	generator  *scriptedGenerator
	compositor *stubCompositor
	publisher  *stubPublisher
	notifier   *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		generator:  newScriptedGenerator(),
		compositor: &stubCompositor{},
		publisher:  &stubPublisher{},
		notifier:   &recordingNotifier{},
	}
	h.orch = pipeline.New(pipeline.Options{
		Gateway:     generation.NewGateway(h.generator, generation.GatewayOptions{Timeout: time.Second}),
		Researcher:  stubResearcher{},
		Storyboards: storyboard.NewManager(stubSearch{}, storyboard.WithPerPage(5), storyboard.WithMaxResults(12)),
		Renders:     render.NewController(h.compositor, render.Options{}),
		Publisher:   h.publisher,
		Notifier:    h.notifier,
		Sources:     []storyboard.Source{storyboard.SourcePexels},
	})
	return h
}

func media(id string) storyboard.Media {
	return storyboard.Media{ID: id, Source: storyboard.SourcePexels, Type: storyboard.MediaVideo, URL: "https://cdn.example.com/" + id + ".mp4"}
}

// toProposal drives a new production into the Proposal stage.
func (h *harness) toProposal(t *testing.T) *production.Production {
	t.Helper()
	p := h.orch.NewProduction("ocean tides")
	mustAdvance(t, h.orch, p)
	if _, err := h.orch.Research(context.Background(), p, ""); err != nil {
		t.Fatalf("Research: %v", err)
	}
	mustAdvance(t, h.orch, p)
	if p.Stage != production.StageProposal {
		t.Fatalf("expected proposal, got %s", p.Stage)
	}
	return p
}

// toStudio generates and approves every asset and enters Studio.
func (h *harness) toStudio(t *testing.T) *production.Production {
	t.Helper()
	p := h.toProposal(t)
	if err := h.orch.GenerateAll(context.Background(), p, ""); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	for _, kind := range ledger.Kinds() {
		if _, err := h.orch.ApproveAsset(p, kind); err != nil {
			t.Fatalf("ApproveAsset(%s): %v", kind, err)
		}
	}
	mustAdvance(t, h.orch, p)
	return p
}

// toRender builds and fully binds the storyboard and enters Render.
func (h *harness) toRender(t *testing.T) *production.Production {
	t.Helper()
	p := h.toStudio(t)
	board, err := h.orch.BuildStoryboard(p)
	if err != nil {
		t.Fatalf("BuildStoryboard: %v", err)
	}
	for _, scene := range board.Scenes() {
		if _, err := h.orch.BindMedia(p, scene.ID, media("m-"+scene.ID)); err != nil {
			t.Fatalf("BindMedia: %v", err)
		}
	}
	mustAdvance(t, h.orch, p)
	return p
}

func mustAdvance(t *testing.T, orch *pipeline.Orchestrator, p *production.Production) {
	t.Helper()
	if _, err := orch.Advance(p); err != nil {
		t.Fatalf("Advance from %s: %v", p.Stage, err)
	}
}
