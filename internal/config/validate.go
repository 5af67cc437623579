package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEnrich(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateDigest(); err != nil {
		return err
	}
	if err := c.validateBroadcast(); err != nil {
		return err
	}
	if err := c.validateChat(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEnrich() error {
	if c.Enrich.BatchSize <= 0 {
		return errors.New("enrich.batch_size must be positive")
	}
	if c.Enrich.RetryBatchSize < 0 {
		return errors.New("enrich.retry_batch_size must not be negative")
	}
	if c.Enrich.MaxFetchAttempts <= 0 {
		return errors.New("enrich.max_fetch_attempts must be positive")
	}
	if c.Enrich.PromptBudget <= 0 {
		return errors.New("enrich.prompt_budget must be positive")
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.Retrieval.MaxItems <= 0 {
		return errors.New("retrieval.max_items must be positive")
	}
	if c.Retrieval.ContentBudget <= 0 {
		return errors.New("retrieval.content_budget must be positive")
	}
	if c.Retrieval.TitleHitWeight < c.Retrieval.SummaryHitWeight {
		return errors.New("retrieval.title_hit_weight must be at least summary_hit_weight")
	}
	if c.Retrieval.SummaryHitWeight < c.Retrieval.BodyHitWeight {
		return errors.New("retrieval.summary_hit_weight must be at least body_hit_weight")
	}
	if c.Retrieval.DefaultWindowDays <= 0 {
		return errors.New("retrieval.default_window_days must be positive")
	}
	return nil
}

func (c *Config) validateDigest() error {
	if c.Digest.MaxItems <= 0 {
		return errors.New("digest.max_items must be positive")
	}
	if c.Digest.MinSummaryLength < 0 {
		return errors.New("digest.min_summary_length must not be negative")
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	if c.Broadcast.AlertScoreThreshold < 0 {
		return errors.New("broadcast.alert_score_threshold must not be negative")
	}
	if c.Broadcast.AlertWindowHours <= 0 {
		return errors.New("broadcast.alert_window_hours must be positive")
	}
	if c.Broadcast.SendDelayMillis < 0 {
		return errors.New("broadcast.send_delay_millis must not be negative")
	}
	return nil
}

func (c *Config) validateChat() error {
	if c.Chat.MaxHistoryTurns <= 0 {
		return errors.New("chat.max_history_turns must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
