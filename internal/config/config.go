package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// LLM contains the connection settings for the OpenAI-compatible generation API.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	SpeechModel    string  `toml:"speech_model"`
	Voice          string  `toml:"voice"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	PromptsPath    string  `toml:"prompts_path"`
}

// Stock contains configuration for stock media providers.
type Stock struct {
	Sources        []string `toml:"sources"`
	PexelsAPIKey   string   `toml:"pexels_api_key"`
	PexelsBaseURL  string   `toml:"pexels_base_url"`
	PixabayAPIKey  string   `toml:"pixabay_api_key"`
	PixabayBaseURL string   `toml:"pixabay_base_url"`
	PerPage        int      `toml:"per_page"`
	MaxResults     int      `toml:"max_results"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Compositor contains configuration for the remote video rendering service.
type Compositor struct {
	BaseURL                string `toml:"base_url"`
	APIKey                 string `toml:"api_key"`
	Resolution             string `toml:"resolution"`
	Format                 string `toml:"format"`
	SubmitTimeoutSeconds   int    `toml:"submit_timeout_seconds"`
	PollTimeoutSeconds     int    `toml:"poll_timeout_seconds"`
	PollIntervalSeconds    int    `toml:"poll_interval_seconds"`
	PollMaxIntervalSeconds int    `toml:"poll_max_interval_seconds"`
}

// Publish contains configuration for YouTube uploads.
type Publish struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RefreshToken   string `toml:"refresh_token"`
	PrivacyStatus  string `toml:"privacy_status"`
	CategoryID     string `toml:"category_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains timeouts for the suspending pipeline operations.
type Workflow struct {
	GenerationTimeoutSeconds int `toml:"generation_timeout_seconds"`
	ResearchTimeoutSeconds   int `toml:"research_timeout_seconds"`
	SearchTimeoutSeconds     int `toml:"search_timeout_seconds"`
	GenerationConcurrency    int `toml:"generation_concurrency"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Render         bool   `toml:"render"`
	Publish        bool   `toml:"publish"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - LLM: asset generation and narration
//   - Stock: media search providers
//   - Compositor: remote render service
//   - Publish: YouTube upload credentials
//   - Workflow: generation/search timeouts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Stock         Stock         `toml:"stock"`
	Compositor    Compositor    `toml:"compositor"`
	Publish       Publish       `toml:"publish"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reelsmith.db")
}

// LockPath returns the file used to serialise mutating CLI commands on one
// production. Commands on different productions never share a lock.
func (c *Config) LockPath(productionID string) string {
	return filepath.Join(c.Paths.DataDir, "locks", productionID+".lock")
}

// GenerationTimeout bounds a single asset generation call.
func (c *Config) GenerationTimeout() time.Duration {
	return seconds(c.Workflow.GenerationTimeoutSeconds)
}

// ResearchTimeout bounds the research call.
func (c *Config) ResearchTimeout() time.Duration {
	return seconds(c.Workflow.ResearchTimeoutSeconds)
}

// SearchTimeout bounds one stock media page request.
func (c *Config) SearchTimeout() time.Duration {
	return seconds(c.Workflow.SearchTimeoutSeconds)
}

// SubmitTimeout bounds a render submission.
func (c *Config) SubmitTimeout() time.Duration {
	return seconds(c.Compositor.SubmitTimeoutSeconds)
}

// PollTimeout bounds one render status request.
func (c *Config) PollTimeout() time.Duration {
	return seconds(c.Compositor.PollTimeoutSeconds)
}

// PollInterval returns the initial and maximum delay between render polls.
func (c *Config) PollInterval() (time.Duration, time.Duration) {
	return seconds(c.Compositor.PollIntervalSeconds), seconds(c.Compositor.PollMaxIntervalSeconds)
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
