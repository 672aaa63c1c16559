package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/logs"
)

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelsmith.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\npartial"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("offset = %d, want end of last complete line", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("short file: %#v %v", lines, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "missing.log"), 5)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v %d %v", lines, offset, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelsmith.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	received := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 20*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			if line == "later" {
				close(received)
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not emit the appended line")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow returned %v after cancel", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected only the appended line, got %#v", got)
	}
}

func TestFollowRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelsmith.log")
	if err := os.WriteFile(path, []byte("old line one\nold line two\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if err := os.WriteFile(path, []byte("new\n"), 0o644); err != nil {
		t.Fatalf("truncate log: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	received := make(chan string, 1)
	go func() {
		_ = logs.Follow(ctx, path, offset, 20*time.Millisecond, func(line string) {
			select {
			case received <- line:
			default:
			}
		})
	}()

	select {
	case line := <-received:
		if line != "new" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-ctx.Done():
		t.Fatal("follow did not restart after truncation")
	}
}

func TestFilterMatch(t *testing.T) {
	jsonLine := `{"time":"2026-01-01T00:00:00Z","level":"WARN","msg":"poll failed","production_id":"3f2a9c10-aaaa-bbbb-cccc-000000000000"}`
	consoleLine := "2026-01-01 00:00:00 INFO [pipeline] production=3f2a9c10 (studio) media bound"

	cases := []struct {
		name   string
		filter logs.Filter
		line   string
		want   bool
	}{
		{"zero filter", logs.Filter{}, jsonLine, true},
		{"json production prefix", logs.Filter{ProductionID: "3f2a"}, jsonLine, true},
		{"json other production", logs.Filter{ProductionID: "ffff"}, jsonLine, false},
		{"json level at threshold", logs.Filter{MinLevel: "warn"}, jsonLine, true},
		{"json level below threshold", logs.Filter{MinLevel: "error"}, jsonLine, false},
		{"console production", logs.Filter{ProductionID: "3f2a9c10"}, consoleLine, true},
		{"console level below threshold", logs.Filter{MinLevel: "warn"}, consoleLine, false},
		{"console level passes", logs.Filter{MinLevel: "debug"}, consoleLine, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(tc.line); got != tc.want {
			t.Errorf("%s: Match = %v, want %v", tc.name, got, tc.want)
		}
	}
}
