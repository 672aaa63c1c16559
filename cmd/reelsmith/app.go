package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/config"
	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/production"
	"reelsmith/internal/render"
	"reelsmith/internal/services/compositor"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/services/pixabay"
	"reelsmith/internal/services/stock"
	"reelsmith/internal/services/youtube"
	"reelsmith/internal/store"
	"reelsmith/internal/storyboard"
)

// app bundles the wired services for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	orch   *pipeline.Orchestrator
	locks  []*flock.Flock
}

func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	llmOpts := []llm.Option{}
	if cfg.LLM.MaxRetries > 0 {
		llmOpts = append(llmOpts, llm.WithRetryMaxAttempts(cfg.LLM.MaxRetries))
	}
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		SpeechModel:    cfg.LLM.SpeechModel,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llmOpts...)

	prompts := generation.DefaultPrompts()
	if cfg.LLM.PromptsPath != "" {
		prompts, err = generation.LoadPrompts(cfg.LLM.PromptsPath)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	generator := generation.NewLLMGenerator(llmClient, llmClient, generation.LLMOptions{
		Prompts:  prompts,
		Voice:    cfg.LLM.Voice,
		AudioDir: filepath.Join(cfg.Paths.DataDir, "audio"),
		Logger:   logger,
	})
	gateway := generation.NewGateway(generator, generation.GatewayOptions{
		Timeout: cfg.GenerationTimeout(),
		Logger:  logger,
	})

	stockHTTP := &http.Client{Timeout: time.Duration(cfg.Stock.TimeoutSeconds) * time.Second}
	search := stock.NewSearch(cfg.SearchTimeout(), logger,
		pexels.NewClient(cfg.Stock.PexelsBaseURL, cfg.Stock.PexelsAPIKey, stockHTTP),
		pixabay.NewClient(cfg.Stock.PixabayBaseURL, cfg.Stock.PixabayAPIKey, stockHTTP),
	)
	storyboards := storyboard.NewManager(search,
		storyboard.WithPerPage(cfg.Stock.PerPage),
		storyboard.WithMaxResults(cfg.Stock.MaxResults),
		storyboard.WithLogger(logger),
	)

	comp := compositor.NewClient(compositor.Config{
		BaseURL:    cfg.Compositor.BaseURL,
		APIKey:     cfg.Compositor.APIKey,
		Format:     cfg.Compositor.Format,
		Resolution: cfg.Compositor.Resolution,
	}, compositor.WithLogger(logger))
	renders := render.NewController(comp, render.Options{
		SubmitTimeout: cfg.SubmitTimeout(),
		PollTimeout:   cfg.PollTimeout(),
		Logger:        logger,
	})

	publisher := youtube.New(youtube.Config{
		ClientID:     cfg.Publish.ClientID,
		ClientSecret: cfg.Publish.ClientSecret,
		RefreshToken: cfg.Publish.RefreshToken,
		CategoryID:   cfg.Publish.CategoryID,
		TempDir:      cfg.Paths.DataDir,
	}, youtube.WithLogger(logger))

	notifier := notifications.NewService(cfg)

	sources := make([]storyboard.Source, 0, len(cfg.Stock.Sources))
	for _, name := range cfg.Stock.Sources {
		source, err := storyboard.ParseSource(name)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		sources = append(sources, source)
	}

	orch := pipeline.New(pipeline.Options{
		Gateway:         gateway,
		Researcher:      generator,
		Storyboards:     storyboards,
		Renders:         renders,
		Publisher:       publisher,
		Notifier:        notifier,
		Logger:          logger,
		ResearchTimeout: cfg.ResearchTimeout(),
		Sources:         sources,
		Concurrency:     cfg.Workflow.GenerationConcurrency,
		PrivacyStatus:   cfg.Publish.PrivacyStatus,
	})

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		orch:   orch,
	}, nil
}

func (a *app) close() {
	for _, lock := range a.locks {
		if lock.Locked() {
			_ = lock.Unlock()
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// acquire takes the exclusive lock for one production without waiting.
func (a *app) acquire(productionID string) error {
	path := a.cfg.LockPath(productionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another reelsmith command is modifying production %s (lock %s)", shortID(productionID), path)
	}
	a.locks = append(a.locks, lock)
	return nil
}

func (a *app) resolve(ctx context.Context, ref string) (*production.Production, error) {
	if ref == "" {
		return a.store.Current(ctx)
	}
	return a.store.Get(ctx, ref)
}

// withApp runs fn with a wired app and closes it afterwards.
func (c *commandContext) withApp(fn func(*app) error) error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// view loads the referenced production read-only.
func (c *commandContext) view(ctx context.Context, fn func(*app, *production.Production) error) error {
	return c.withApp(func(a *app) error {
		p, err := a.resolve(ctx, c.productionRef())
		if err != nil {
			return err
		}
		return fn(a, p)
	})
}

// mutate locks the referenced production, reloads it so changes saved by an
// earlier holder are seen, runs fn, and saves the result whether or not fn
// succeeded. Other productions stay available to concurrent commands.
func (c *commandContext) mutate(ctx context.Context, fn func(*app, *production.Production) error) error {
	return c.withApp(func(a *app) error {
		ref, err := a.resolve(ctx, c.productionRef())
		if err != nil {
			return err
		}
		if err := a.acquire(ref.ID); err != nil {
			return err
		}
		p, err := a.store.Get(ctx, ref.ID)
		if err != nil {
			return err
		}
		runErr := fn(a, p)
		// Persist even when ctx was cancelled mid-operation.
		if saveErr := a.store.Save(context.WithoutCancel(ctx), p); saveErr != nil {
			return errors.Join(runErr, fmt.Errorf("save production: %w", saveErr))
		}
		return runErr
	})
}
