package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Communities lists the source communities items are attributed to. The list is
// informational for status output and digest footers; ingestion accepts any
// community name.
type Communities struct {
	Names []string `toml:"names"`
}

// LLM contains connection settings for the text-generation capability.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LinkFetch contains settings for fetching linked article content.
type LinkFetch struct {
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxContentLength int    `toml:"max_content_length"`
	UserAgent        string `toml:"user_agent"`
}

// Enrich contains settings for the enrichment stage.
type Enrich struct {
	BatchSize        int `toml:"batch_size"`
	RetryBatchSize   int `toml:"retry_batch_size"`
	MaxFetchAttempts int `toml:"max_fetch_attempts"`
	PromptBudget     int `toml:"prompt_budget"`
}

// Retrieval contains settings for semantic retrieval.
type Retrieval struct {
	MaxItems          int `toml:"max_items"`
	ContentBudget     int `toml:"content_budget"`
	TitleHitWeight    int `toml:"title_hit_weight"`
	SummaryHitWeight  int `toml:"summary_hit_weight"`
	BodyHitWeight     int `toml:"body_hit_weight"`
	TopicAreaBonus    int `toml:"topic_area_bonus"`
	RecencyBonusMax   int `toml:"recency_bonus_max"`
	DefaultWindowDays int `toml:"default_window_days"`
}

// Digest contains settings for digest composition.
type Digest struct {
	MaxItems         int `toml:"max_items"`
	MinSummaryLength int `toml:"min_summary_length"`
}

// Telegram contains messaging transport settings.
type Telegram struct {
	BotToken       string `toml:"bot_token"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Broadcast contains settings for recipient fan-out.
type Broadcast struct {
	AlertScoreThreshold int `toml:"alert_score_threshold"`
	AlertWindowHours    int `toml:"alert_window_hours"`
	SendDelayMillis     int `toml:"send_delay_millis"`
}

// Chat contains settings for the conversational assistant.
type Chat struct {
	MaxHistoryTurns int `toml:"max_history_turns"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Skimmer.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Communities: source community names
//   - LLM: text-generation connection settings
//   - LinkFetch: linked article fetching
//   - Enrich: enrichment batch sizing and retry ceiling
//   - Retrieval: ranking weights and context budget
//   - Digest: digest selection thresholds
//   - Telegram: messaging transport credentials
//   - Broadcast: alert thresholds and send pacing
//   - Chat: conversation history bounds
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Communities Communities `toml:"communities"`
	LLM         LLM         `toml:"llm"`
	LinkFetch   LinkFetch   `toml:"link_fetch"`
	Enrich      Enrich      `toml:"enrich"`
	Retrieval   Retrieval   `toml:"retrieval"`
	Digest      Digest      `toml:"digest"`
	Telegram    Telegram    `toml:"telegram"`
	Broadcast   Broadcast   `toml:"broadcast"`
	Chat        Chat        `toml:"chat"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/skimmer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
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
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("skimmer.toml")
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

// EnsureDirectories creates the directories the stages need at runtime.
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
	return filepath.Join(c.Paths.DataDir, "skimmer.db")
}

// LockPath returns the flock path guarding the named stage.
func (c *Config) LockPath(stage string) string {
	return filepath.Join(c.Paths.DataDir, stage+".lock")
}

// CreateSample writes the sample configuration to the given path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath expands a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.BaseURL = strings.TrimSpace(c.Telegram.BaseURL)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if key := os.Getenv("SKIMMER_LLM_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(key)
	}
	if token := os.Getenv("SKIMMER_BOT_TOKEN"); token != "" && c.Telegram.BotToken == "" {
		c.Telegram.BotToken = strings.TrimSpace(token)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
