package preflight

import (
	"context"
	"slices"

	"reelsmith/internal/config"
	"reelsmith/internal/storyboard"
)

// MinFreeBytes is the free space wanted in the data directory for
// narration audio and downloaded renders.
const MinFreeBytes = 2 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Data disk", cfg.Paths.DataDir, MinFreeBytes),
		CheckLLM(ctx, "LLM", cfg.LLM),
	}

	if slices.Contains(cfg.Stock.Sources, string(storyboard.SourcePexels)) {
		results = append(results, CheckPexels(ctx, cfg.Stock.PexelsBaseURL, cfg.Stock.PexelsAPIKey))
	}
	if slices.Contains(cfg.Stock.Sources, string(storyboard.SourcePixabay)) {
		results = append(results, CheckCredentials("Pixabay", map[string]string{"api key": cfg.Stock.PixabayAPIKey}))
	}
	results = append(results,
		CheckCredentials("Compositor", map[string]string{"api key": cfg.Compositor.APIKey}),
		CheckCredentials("YouTube", map[string]string{
			"client id":     cfg.Publish.ClientID,
			"client secret": cfg.Publish.ClientSecret,
			"refresh token": cfg.Publish.RefreshToken,
		}),
	)
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, Result{Name: "Notifications", Passed: true, Detail: cfg.Notifications.NtfyTopic})
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
