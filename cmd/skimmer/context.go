package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"skimmer/internal/config"
	"skimmer/internal/linkfetch"
	"skimmer/internal/logging"
	"skimmer/internal/services"
	"skimmer/internal/services/llm"
	"skimmer/internal/store"
	"skimmer/internal/telegram"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) openStore() (*store.Store, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st, cfg, nil
}

func (c *commandContext) llmClient() (*llm.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}), nil
}

func (c *commandContext) fetcher() (*linkfetch.Fetcher, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return linkfetch.NewFetcher(linkfetch.Config{
		TimeoutSeconds:   cfg.LinkFetch.TimeoutSeconds,
		MaxContentLength: cfg.LinkFetch.MaxContentLength,
		UserAgent:        cfg.LinkFetch.UserAgent,
	}), nil
}

func (c *commandContext) sender() (telegram.Sender, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return telegram.NewClient(telegram.Config{
		BotToken:       cfg.Telegram.BotToken,
		BaseURL:        cfg.Telegram.BaseURL,
		RequestTimeout: cfg.Telegram.RequestTimeout,
	})
}

// runStage guards one stage invocation with a per-stage file lock so
// overlapping cron firings of the same stage never run concurrently, tags the
// context with a run id, and wires signal cancellation.
func (c *commandContext) runStage(parent context.Context, stage string, fn func(context.Context, *slog.Logger) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath(stage))
	held, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", stage, err)
	}
	if !held {
		return fmt.Errorf("another %s run is in progress", stage)
	}
	defer lock.Unlock()

	runID := uuid.NewString()
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = services.WithStage(ctx, stage)
	ctx = services.WithRunID(ctx, runID)

	stageLogger := logger.With(
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldRunID, runID),
	)
	return fn(ctx, stageLogger)
}
