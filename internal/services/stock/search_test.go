package stock_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reelsmith/internal/services"
	"reelsmith/internal/services/stock"
	"reelsmith/internal/storyboard"
)

type fakeProvider struct {
	source     storyboard.Source
	configured bool
	err        error
	hasMore    bool
	delay      time.Duration
	queries    []string
}

func (f *fakeProvider) Source() storyboard.Source { return f.source }
func (f *fakeProvider) Configured() bool          { return f.configured }

func (f *fakeProvider) Search(ctx context.Context, query string, page, perPage int) (storyboard.SearchPage, error) {
	f.queries = append(f.queries, query)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return storyboard.SearchPage{}, ctx.Err()
		}
	}
	if f.err != nil {
		return storyboard.SearchPage{}, f.err
	}
	items := make([]storyboard.Media, perPage)
	for i := range perPage {
		id := fmt.Sprintf("%s-%d-%d", f.source, page, i)
		items[i] = storyboard.Media{ID: id, Source: f.source, Type: storyboard.MediaImage, URL: "https://example.com/" + id}
	}
	return storyboard.SearchPage{Items: items, HasMore: f.hasMore}, nil
}

func TestSearchInterleavesSources(t *testing.T) {
	pexels := &fakeProvider{source: storyboard.SourcePexels, configured: true, hasMore: true}
	pixabay := &fakeProvider{source: storyboard.SourcePixabay, configured: true}
	search := stock.NewSearch(time.Second, nil, pexels, pixabay)

	page, err := search.Search(context.Background(), storyboard.SearchRequest{Query: "forest", Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"pexels-1-0", "pixabay-1-0", "pexels-1-1", "pixabay-1-1"}
	if len(page.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(page.Items))
	}
	for i, id := range want {
		if page.Items[i].ID != id {
			t.Fatalf("item %d = %s, want %s", i, page.Items[i].ID, id)
		}
	}
	if !page.HasMore {
		t.Fatal("any source with more pages keeps the search open")
	}
}

func TestSearchRestrictsToRequestedSources(t *testing.T) {
	pexels := &fakeProvider{source: storyboard.SourcePexels, configured: true}
	pixabay := &fakeProvider{source: storyboard.SourcePixabay, configured: true}
	search := stock.NewSearch(0, nil, pexels, pixabay)

	if _, err := search.Search(context.Background(), storyboard.SearchRequest{Query: "sky", Sources: []storyboard.Source{storyboard.SourcePixabay}, Page: 1, PerPage: 3}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(pexels.queries) != 0 || len(pixabay.queries) != 1 {
		t.Fatalf("expected only pixabay to be queried, got pexels=%d pixabay=%d", len(pexels.queries), len(pixabay.queries))
	}
}

func TestSearchToleratesPartialFailure(t *testing.T) {
	broken := &fakeProvider{source: storyboard.SourcePexels, configured: true, err: services.Wrap(services.ErrTransient, "pexels", "search", "http 503", nil)}
	healthy := &fakeProvider{source: storyboard.SourcePixabay, configured: true}
	search := stock.NewSearch(time.Second, nil, broken, healthy)

	page, err := search.Search(context.Background(), storyboard.SearchRequest{Query: "rain", Page: 1, PerPage: 3})
	if err != nil {
		t.Fatalf("one healthy source should be enough: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(page.Items))
	}

	onlyBroken := stock.NewSearch(time.Second, nil, broken)
	if _, err := onlyBroken.Search(context.Background(), storyboard.SearchRequest{Query: "rain", Page: 1, PerPage: 3}); !services.Retryable(err) {
		t.Fatalf("expected retryable failure, got %v", err)
	}
}

func TestSearchTimesOutSlowProvider(t *testing.T) {
	slow := &fakeProvider{source: storyboard.SourcePexels, configured: true, delay: time.Second}
	search := stock.NewSearch(20*time.Millisecond, nil, slow)
	_, err := search.Search(context.Background(), storyboard.SearchRequest{Query: "night", Page: 1, PerPage: 3})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestSearchWithoutConfiguredProviders(t *testing.T) {
	search := stock.NewSearch(time.Second, nil, &fakeProvider{source: storyboard.SourcePexels})
	if got := search.Sources(); len(got) != 0 {
		t.Fatalf("unconfigured providers should be skipped, got %v", got)
	}
	_, err := search.Search(context.Background(), storyboard.SearchRequest{Query: "x", Page: 1, PerPage: 3})
	if !errors.Is(err, stock.ErrNoProviders) {
		t.Fatalf("expected no providers, got %v", err)
	}
}
