package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{"OPENAI_API_KEY", "PEXELS_API_KEY", "PIXABAY_API_KEY", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[llm]\napi_key = %q\n\n[stock]\npexels_api_key = %q\npixabay_api_key = %q\n\n[compositor]\napi_key = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.LLM.APIKey,
		cfg.Stock.PexelsAPIKey,
		cfg.Stock.PixabayAPIKey,
		cfg.Compositor.APIKey,
	)
	testsupport.WriteFile(t, path, []byte(content))
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
