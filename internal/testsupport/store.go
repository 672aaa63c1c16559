package testsupport

import (
	"context"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/production"
	"reelsmith/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewProduction creates and persists a production with the given theme.
func NewProduction(t testing.TB, s *store.Store, theme string) *production.Production {
	t.Helper()

	p := production.New(theme, time.Now())
	if err := s.Create(context.Background(), p); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return p
}
