package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skimmer/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("missing file must report exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved %s, want %s", resolved, path)
	}
	if cfg.Enrich.MaxFetchAttempts != 4 {
		t.Fatalf("unexpected default max_fetch_attempts %d", cfg.Enrich.MaxFetchAttempts)
	}
	if cfg.Digest.MaxItems != 5 || cfg.Digest.MinSummaryLength != 40 {
		t.Fatalf("unexpected digest defaults: %+v", cfg.Digest)
	}
	if len(cfg.Communities.Names) == 0 {
		t.Fatal("default community list must not be empty")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[enrich]
batch_size = 25

[telegram]
bot_token = "file-token"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true for a present file")
	}
	if cfg.Enrich.BatchSize != 25 {
		t.Fatalf("override not applied: %d", cfg.Enrich.BatchSize)
	}
	if cfg.Telegram.BotToken != "file-token" {
		t.Fatalf("bot token not loaded: %q", cfg.Telegram.BotToken)
	}
	// Format and level normalize to lowercase.
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	// Untouched sections keep defaults.
	if cfg.Broadcast.AlertScoreThreshold != 250 {
		t.Fatalf("unexpected alert threshold %d", cfg.Broadcast.AlertScoreThreshold)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		section string
		wantErr string
	}{
		{
			name:    "zero batch size",
			section: "[enrich]\nbatch_size = 0\n",
			wantErr: "enrich.batch_size",
		},
		{
			name:    "inverted hit weights",
			section: "[retrieval]\ntitle_hit_weight = 5\nsummary_hit_weight = 25\n",
			wantErr: "title_hit_weight",
		},
		{
			name:    "bad log level",
			section: "[logging]\nlevel = \"verbose\"\n",
			wantErr: "logging.level",
		},
		{
			name:    "zero alert window",
			section: "[broadcast]\nalert_window_hours = 0\n",
			wantErr: "alert_window_hours",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.section), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %s error, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	} else if !exists {
		t.Fatal("sample config not found after writing")
	}
}

func TestEnvironmentFallbackForSecrets(t *testing.T) {
	t.Setenv("SKIMMER_LLM_API_KEY", "env-key")
	t.Setenv("SKIMMER_BOT_TOKEN", "env-token")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("api key not taken from environment: %q", cfg.LLM.APIKey)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Fatalf("bot token not taken from environment: %q", cfg.Telegram.BotToken)
	}
}

func TestDatabaseAndLockPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/skimmer-test"
	if got := cfg.DatabasePath(); got != filepath.Join("/tmp/skimmer-test", "skimmer.db") {
		t.Fatalf("unexpected database path %s", got)
	}
	if got := cfg.LockPath("enrich"); got != filepath.Join("/tmp/skimmer-test", "enrich.lock") {
		t.Fatalf("unexpected lock path %s", got)
	}
}
