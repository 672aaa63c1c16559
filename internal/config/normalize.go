package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	c.normalizeStock()
	c.normalizeCompositor()
	c.normalizePublish()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() error {
	envOverride(&c.LLM.APIKey, "OPENAI_API_KEY")
	envOverride(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.SpeechModel = strings.TrimSpace(c.LLM.SpeechModel)
	if c.LLM.SpeechModel == "" {
		c.LLM.SpeechModel = defaultLLMSpeechModel
	}
	c.LLM.Voice = strings.ToLower(strings.TrimSpace(c.LLM.Voice))
	if c.LLM.Voice == "" {
		c.LLM.Voice = defaultLLMVoice
	}
	if strings.TrimSpace(c.LLM.PromptsPath) != "" {
		expanded, err := expandPath(c.LLM.PromptsPath)
		if err != nil {
			return fmt.Errorf("llm.prompts_path: %w", err)
		}
		c.LLM.PromptsPath = expanded
	}
	return nil
}

func (c *Config) normalizeStock() {
	envOverride(&c.Stock.PexelsAPIKey, "PEXELS_API_KEY")
	envOverride(&c.Stock.PixabayAPIKey, "PIXABAY_API_KEY")
	c.Stock.PexelsBaseURL = strings.TrimRight(strings.TrimSpace(c.Stock.PexelsBaseURL), "/")
	if c.Stock.PexelsBaseURL == "" {
		c.Stock.PexelsBaseURL = defaultPexelsBaseURL
	}
	c.Stock.PixabayBaseURL = strings.TrimRight(strings.TrimSpace(c.Stock.PixabayBaseURL), "/")
	if c.Stock.PixabayBaseURL == "" {
		c.Stock.PixabayBaseURL = defaultPixabayBaseURL
	}
	sources := make([]string, 0, len(c.Stock.Sources))
	seen := make(map[string]struct{}, len(c.Stock.Sources))
	for _, source := range c.Stock.Sources {
		source = strings.ToLower(strings.TrimSpace(source))
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	c.Stock.Sources = sources
}

func (c *Config) normalizeCompositor() {
	envOverride(&c.Compositor.APIKey, "COMPOSITOR_API_KEY", "SHOTSTACK_API_KEY")
	c.Compositor.BaseURL = strings.TrimRight(strings.TrimSpace(c.Compositor.BaseURL), "/")
	if c.Compositor.BaseURL == "" {
		c.Compositor.BaseURL = defaultCompositorBaseURL
	}
	c.Compositor.Resolution = strings.ToLower(strings.TrimSpace(c.Compositor.Resolution))
	if c.Compositor.Resolution == "" {
		c.Compositor.Resolution = defaultCompositorResolution
	}
	c.Compositor.Format = strings.ToLower(strings.TrimSpace(c.Compositor.Format))
	if c.Compositor.Format == "" {
		c.Compositor.Format = defaultCompositorFormat
	}
}

func (c *Config) normalizePublish() {
	envOverride(&c.Publish.ClientID, "YOUTUBE_CLIENT_ID")
	envOverride(&c.Publish.ClientSecret, "YOUTUBE_CLIENT_SECRET")
	envOverride(&c.Publish.RefreshToken, "YOUTUBE_REFRESH_TOKEN")
	c.Publish.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.Publish.PrivacyStatus))
	if c.Publish.PrivacyStatus == "" {
		c.Publish.PrivacyStatus = defaultPublishPrivacyStatus
	}
	c.Publish.CategoryID = strings.TrimSpace(c.Publish.CategoryID)
	if c.Publish.CategoryID == "" {
		c.Publish.CategoryID = defaultPublishCategoryID
	}
}

func (c *Config) normalizeNotifications() {
	envOverride(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// envOverride replaces dst with the first non-empty environment variable in keys.
func envOverride(dst *string, keys ...string) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
			return
		}
	}
	*dst = strings.TrimSpace(*dst)
}
