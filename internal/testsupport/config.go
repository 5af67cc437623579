package testsupport

import (
	"path/filepath"
	"testing"

	"skimmer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.Telegram.BotToken = "test-token"
	cfg.Broadcast.SendDelayMillis = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithLLMKey sets the LLM API key on the test config.
func WithLLMKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.APIKey = key
	}
}

// WithBotToken sets the bot token on the test config.
func WithBotToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Telegram.BotToken = token
	}
}

// WithCommunities replaces the monitored community list.
func WithCommunities(names ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Communities.Names = names
	}
}
