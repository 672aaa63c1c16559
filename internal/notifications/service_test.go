package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
	click    string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			click:    r.Header.Get("Click"),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRenderCompleted, notifications.Payload{"title": "Tides"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name    string
		event   notifications.Event
		payload notifications.Payload
		want    captured
	}{
		{
			name:    "render completed",
			event:   notifications.EventRenderCompleted,
			payload: notifications.Payload{"title": "Tides", "url": "https://cdn.example.com/v.mp4"},
			want: captured{
				title: "Reelsmith - Render Complete",
				body:  "🎬 Render complete: Tides\nhttps://cdn.example.com/v.mp4",
				tags:  "reelsmith,render,completed",
				click: "https://cdn.example.com/v.mp4",
			},
		},
		{
			name:    "render failed",
			event:   notifications.EventRenderFailed,
			payload: notifications.Payload{"title": "Tides", "error": "asset unreachable"},
			want: captured{
				title:    "Reelsmith - Render Failed",
				body:     "❌ Render failed: Tides\nasset unreachable",
				tags:     "reelsmith,render,failed",
				priority: "high",
			},
		},
		{
			name:    "error",
			event:   notifications.EventError,
			payload: notifications.Payload{"error": errors.New("boom"), "context": "proposal"},
			want: captured{
				title:    "Reelsmith - Error",
				body:     "❌ Error with proposal: boom",
				tags:     "reelsmith,error,alert",
				priority: "high",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := newCaptureServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			if (*got)[0] != tc.want {
				t.Fatalf("unexpected notification:\n got %+v\nwant %+v", (*got)[0], tc.want)
			}
		})
	}
}

func TestDisabledCategoriesAreSilent(t *testing.T) {
	srv, got := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Render = false
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRenderCompleted, notifications.Payload{"title": "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("disabled render notifications were sent: %+v", *got)
	}
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("Publish test: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("test notification should always send")
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
