package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reelsmith.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerRendersContextHeader(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-context.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithProductionID(context.Background(), "3f2a1b9c-0000-4000-8000-000000000000")
	ctx = services.WithStage(ctx, "studio")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")).Info("media bound", logging.String("scene_id", "scene-2"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"[pipeline]", "production=3f2a1b9c", "(studio)", "media bound", "scene_id=scene-2"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(services.WithAssetKind(context.Background(), "script"), "job-1")
	logging.WithContext(ctx, logger).Info("json entry")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldAssetKind] != "script" || payload[logging.FieldJobID] != "job-1" {
		t.Fatalf("missing context fields: %v", payload)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logger.Error("ignored")
}
