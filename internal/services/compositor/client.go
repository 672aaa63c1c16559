package compositor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
)

// Config holds the connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Format     string
	Resolution string
	// IngestURL defaults to BaseURL with the edit path swapped for ingest.
	IngestURL string
}

// Client implements render.Compositor.
type Client struct {
	baseURL    string
	ingestURL  string
	apiKey     string
	format     string
	resolution string
	client     services.HTTPDoer
	logger     *slog.Logger
	ingestPoll time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client services.HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "compositor")
	}
}

// WithIngestPollInterval sets how often an uploaded source is checked.
func WithIngestPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ingestPoll = d
		}
	}
}

// NewClient constructs a compositor client.
func NewClient(cfg Config, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	ingest := strings.TrimRight(strings.TrimSpace(cfg.IngestURL), "/")
	if ingest == "" {
		ingest = strings.Replace(base, "/edit/", "/ingest/", 1)
	}
	c := &Client{
		baseURL:    base,
		ingestURL:  ingest,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		format:     orDefault(cfg.Format, "mp4"),
		resolution: orDefault(cfg.Resolution, "hd"),
		client:     http.DefaultClient,
		logger:     logging.NewComponentLogger(nil, "compositor"),
		ingestPoll: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

type envelope[T any] struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response T      `json:"response"`
}

type queued struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type renderStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// Submit uploads local audio if needed and queues the render.
func (c *Client) Submit(ctx context.Context, bundle render.Bundle) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "compositor", "submit", "api key not configured", nil)
	}
	audioURL, err := c.publicURL(ctx, bundle.Soundtrack.AudioURL)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(buildEdit(bundle, audioURL, c.format, c.resolution))
	if err != nil {
		return "", fmt.Errorf("encode edit: %w", err)
	}

	var reply envelope[queued]
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/render", body, "submit", &reply); err != nil {
		return "", err
	}
	if strings.TrimSpace(reply.Response.ID) == "" {
		return "", services.Wrap(services.ErrInvalidResponse, "compositor", "submit", "reply carried no render id", nil)
	}
	c.logger.Debug("render queued",
		logging.String(logging.FieldJobID, bundle.JobID),
		logging.String("external_id", reply.Response.ID),
		logging.Int("scenes", len(bundle.Scenes)),
	)
	return reply.Response.ID, nil
}

// Status reads the provider's job state. The edit API does not report a
// percentage, so Progress is always unknown.
func (c *Client) Status(ctx context.Context, externalID string) (render.ProviderStatus, error) {
	if !c.Configured() {
		return render.ProviderStatus{}, services.Wrap(services.ErrConfiguration, "compositor", "status", "api key not configured", nil)
	}
	var reply envelope[renderStatus]
	endpoint := c.baseURL + "/render/" + url.PathEscape(externalID)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, "status", &reply); err != nil {
		return render.ProviderStatus{}, err
	}
	return render.ProviderStatus{
		State:    reply.Response.Status,
		Progress: -1,
		URL:      reply.Response.URL,
		Error:    reply.Response.Error,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, op string, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build compositor %s request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.RequestError("compositor", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.StatusError("compositor", op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return services.Wrap(services.ErrInvalidResponse, "compositor", op, "decode response", err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
		return value
	}
	return fallback
}
