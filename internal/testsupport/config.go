package testsupport

import (
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

// ConfigOption customises the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory with every
// provider credential filled by a placeholder.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.LLM.APIKey = "test"
	cfgVal.Stock.PexelsAPIKey = "test"
	cfgVal.Stock.PixabayAPIKey = "test"
	cfgVal.Compositor.APIKey = "test"
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithLLMEndpoint points the LLM client at a test server.
func WithLLMEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
	}
}

// WithCompositorEndpoint points the compositor client at a test server.
func WithCompositorEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compositor.BaseURL = baseURL
	}
}

// WithNtfyTopic enables notifications against a test topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithoutCredentials clears every provider key.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = ""
		b.cfg.Stock.PexelsAPIKey = ""
		b.cfg.Stock.PixabayAPIKey = ""
		b.cfg.Compositor.APIKey = ""
		b.cfg.Publish.ClientID = ""
		b.cfg.Publish.ClientSecret = ""
		b.cfg.Publish.RefreshToken = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
