package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "reelsmith/0.1"

// Event identifies a notification type.
type Event string

const (
	EventAssetsGenerated Event = "assets_generated"
	EventRenderCompleted Event = "render_completed"
	EventRenderFailed    Event = "render_failed"
	EventPublished       Event = "published"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed Service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventAssetsGenerated: true,
			EventRenderCompleted: cfg.Notifications.Render,
			EventRenderFailed:    cfg.Notifications.Render,
			EventPublished:       cfg.Notifications.Publish,
			EventError:           cfg.Notifications.Errors,
			EventTest:            true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unsupported notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payloadString(payload, "title")
	switch event {
	case EventAssetsGenerated:
		return message{
			title: "Reelsmith - Proposal Ready",
			body:  fmt.Sprintf("📝 Assets ready for review: %s", title),
			tags:  []string{"reelsmith", "proposal", "ready"},
		}, true
	case EventRenderCompleted:
		url := payloadString(payload, "url")
		body := fmt.Sprintf("🎬 Render complete: %s", title)
		if url != "" {
			body += "\n" + url
		}
		return message{
			title: "Reelsmith - Render Complete",
			body:  body,
			tags:  []string{"reelsmith", "render", "completed"},
			click: url,
		}, true
	case EventRenderFailed:
		return message{
			title:    "Reelsmith - Render Failed",
			body:     fmt.Sprintf("❌ Render failed: %s\n%s", title, payloadString(payload, "error")),
			tags:     []string{"reelsmith", "render", "failed"},
			priority: "high",
		}, true
	case EventPublished:
		url := payloadString(payload, "url")
		return message{
			title:    "Reelsmith - Published",
			body:     fmt.Sprintf("✅ Published: %s\n%s", title, url),
			tags:     []string{"reelsmith", "youtube", "published"},
			priority: "high",
			click:    url,
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if detail := payloadString(payload, "error"); detail != "" {
			b.WriteString(detail)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Reelsmith - Error",
			body:     b.String(),
			tags:     []string{"reelsmith", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Reelsmith - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelsmith", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func payloadString(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}
	if msg.click != "" {
		req.Header.Set("Click", msg.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
