package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	supportedStockSources = []string{"pexels", "pixabay"}
	supportedPrivacy      = []string{"private", "unlisted", "public"}
	supportedVoices       = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
)

// Validate ensures the configuration is usable. Provider credentials are not
// required here; the doctor command and each provider client report missing
// keys when they are actually needed.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateStock(); err != nil {
		return err
	}
	if err := c.validateCompositor(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	if err := validateURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if !slices.Contains(supportedVoices, c.LLM.Voice) {
		return fmt.Errorf("llm.voice: unsupported value %q (expected one of %s)", c.LLM.Voice, strings.Join(supportedVoices, ", "))
	}
	return nil
}

func (c *Config) validateStock() error {
	if len(c.Stock.Sources) == 0 {
		return errors.New("stock.sources must list at least one provider")
	}
	for _, source := range c.Stock.Sources {
		if !slices.Contains(supportedStockSources, source) {
			return fmt.Errorf("stock.sources: unsupported provider %q", source)
		}
	}
	if err := validateURL("stock.pexels_base_url", c.Stock.PexelsBaseURL); err != nil {
		return err
	}
	if err := validateURL("stock.pixabay_base_url", c.Stock.PixabayBaseURL); err != nil {
		return err
	}
	if c.Stock.PerPage <= 0 || c.Stock.PerPage > 80 {
		return errors.New("stock.per_page must be between 1 and 80")
	}
	if c.Stock.MaxResults <= 0 {
		return errors.New("stock.max_results must be positive")
	}
	if c.Stock.TimeoutSeconds <= 0 {
		return errors.New("stock.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCompositor() error {
	if err := validateURL("compositor.base_url", c.Compositor.BaseURL); err != nil {
		return err
	}
	if c.Compositor.SubmitTimeoutSeconds <= 0 {
		return errors.New("compositor.submit_timeout_seconds must be positive")
	}
	if c.Compositor.PollTimeoutSeconds <= 0 {
		return errors.New("compositor.poll_timeout_seconds must be positive")
	}
	if c.Compositor.PollIntervalSeconds <= 0 {
		return errors.New("compositor.poll_interval_seconds must be positive")
	}
	if c.Compositor.PollMaxIntervalSeconds < c.Compositor.PollIntervalSeconds {
		return errors.New("compositor.poll_max_interval_seconds must be >= poll_interval_seconds")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !slices.Contains(supportedPrivacy, c.Publish.PrivacyStatus) {
		return fmt.Errorf("publish.privacy_status: unsupported value %q", c.Publish.PrivacyStatus)
	}
	if c.Publish.TimeoutSeconds <= 0 {
		return errors.New("publish.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.GenerationTimeoutSeconds <= 0 {
		return errors.New("workflow.generation_timeout_seconds must be positive")
	}
	if c.Workflow.ResearchTimeoutSeconds <= 0 {
		return errors.New("workflow.research_timeout_seconds must be positive")
	}
	if c.Workflow.SearchTimeoutSeconds <= 0 {
		return errors.New("workflow.search_timeout_seconds must be positive")
	}
	if c.Workflow.GenerationConcurrency <= 0 {
		return errors.New("workflow.generation_concurrency must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, raw)
	}
	return nil
}
