package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"reelsmith/internal/services"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
	defaultSpeechModel    = string(openai.TTSModel1)
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	SpeechModel    string
	Temperature    float64
	TimeoutSeconds int
}

// Client wraps the chat completion and speech endpoints.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			SpeechModel:    strings.TrimSpace(cfg.SpeechModel),
			Temperature:    cfg.Temperature,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Model == "" {
		client.cfg.Model = openai.GPT4oMini
	}
	if client.cfg.SpeechModel == "" {
		client.cfg.SpeechModel = defaultSpeechModel
	}

	apiCfg := openai.DefaultConfig(client.cfg.APIKey)
	if client.cfg.BaseURL != "" {
		apiCfg.BaseURL = client.cfg.BaseURL
	}
	apiCfg.HTTPClient = client.httpClient
	client.api = openai.NewClientWithConfig(apiCfg)
	return client
}

// Model returns the configured chat model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// HealthCheck verifies the API key by listing models.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return errMissingKey("llm health")
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return classify("llm health", err)
	}
	return nil
}

func errMissingKey(op string) error {
	return services.Wrap(services.ErrConfiguration, "llm", op, "api key required (set llm.api_key or OPENAI_API_KEY)", nil)
}

// classify tags err with the shared services markers.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTerminal) ||
		errors.Is(err, services.ErrTimeout) || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "llm", op, "deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if code := statusCode(err); code > 0 {
		switch {
		case code == http.StatusTooManyRequests:
			return services.Wrap(services.ErrRateLimited, "llm", op, fmt.Sprintf("http %d", code), err)
		case code == http.StatusRequestTimeout || code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrTransient, "llm", op, fmt.Sprintf("http %d", code), err)
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, "llm", op, fmt.Sprintf("http %d: check the api key", code), err)
		default:
			return services.Wrap(services.ErrTerminal, "llm", op, fmt.Sprintf("http %d", code), err)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "llm", op, "network timeout", err)
	}
	return services.Wrap(services.ErrTransient, "llm", op, "request failed", err)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
