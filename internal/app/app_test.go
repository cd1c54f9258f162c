package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pingu/internal/config"
)

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      *config.StorageConfig
		enabled bool
		want    string
		busy    time.Duration
		err     bool
	}{
		{name: "absent"},
		{name: "none", in: &config.StorageConfig{Driver: "none"}},
		{name: "file", in: &config.StorageConfig{Driver: "file", Path: "./pingu"}, enabled: true, want: "file", busy: time.Second},
		{name: "sqlite", in: &config.StorageConfig{Driver: " SQLite ", Path: "./pingu.db", BusyTimeout: "3s"}, enabled: true, want: "sqlite", busy: 3 * time.Second},
		{name: "bad timeout", in: &config.StorageConfig{Driver: "sqlite", Path: "x.db", BusyTimeout: "soon"}, err: true},
	}
	for _, tt := range tests {
		sc, enabled, err := mapStorageConfig(&Config{Storage: tt.in})
		if (err != nil) != tt.err {
			t.Fatalf("%s: err = %v", tt.name, err)
		}
		if enabled != tt.enabled || sc.Driver != tt.want || sc.BusyTimeout != tt.busy {
			t.Fatalf("%s: got %+v enabled=%v", tt.name, sc, enabled)
		}
	}
}

func TestLogTarget(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]int64{"": 0, " -1001234 ": -1001234, "logs": 0} {
		cfg := &Config{}
		cfg.Telegram.GroupLog = in
		if got := logTarget(cfg); got != want {
			t.Fatalf("logTarget(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestMapLogConfig(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	cfg.Logging.File.Enabled = true
	cfg.Logging.File.Path = "bot.log"
	cfg.Logging.Telegram.Enabled = true
	cfg.Logging.Telegram.RatePerSec = 2

	lc := mapLogConfig(cfg)
	if lc.Level != "debug" || !lc.File.Enabled || lc.File.Path != "bot.log" || !lc.Telegram.Enabled || lc.Telegram.RatePerSec != 2 {
		t.Fatalf("unexpected log config: %+v", lc)
	}
}

func TestNewAppRejectsMissingToken(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  token: \"\"\nscheduler:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewApp(path)
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("err = %v", err)
	}
}
