package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"netwarden/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Admission.RequestsPerMinute != 100 {
		t.Errorf("expected requests_per_minute 100, got %d", cfg.Admission.RequestsPerMinute)
	}
	if cfg.Admission.BurstLimit != 20 || cfg.Admission.BurstWindow != 5*time.Second {
		t.Errorf("unexpected burst defaults: %d in %v", cfg.Admission.BurstLimit, cfg.Admission.BurstWindow)
	}
	if cfg.Admission.BlockDuration != 5*time.Minute {
		t.Errorf("expected block_duration 5m, got %v", cfg.Admission.BlockDuration)
	}
	if cfg.Capture.HistorySize != 1000 {
		t.Errorf("expected history_size 1000, got %d", cfg.Capture.HistorySize)
	}
	if cfg.Dashboard.ListenAddr != ":8080" {
		t.Errorf("expected listen_addr :8080, got %s", cfg.Dashboard.ListenAddr)
	}
}

func TestLoadFromFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
admission:
  burst_limit: 50
  block_duration: "10m"
capture:
  interface: lo
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Admission.BurstLimit != 50 {
		t.Errorf("expected burst_limit override 50, got %d", cfg.Admission.BurstLimit)
	}
	if cfg.Admission.BlockDuration != 10*time.Minute {
		t.Errorf("expected block_duration override 10m, got %v", cfg.Admission.BlockDuration)
	}
	if cfg.Capture.Interface != "lo" {
		t.Errorf("expected interface override lo, got %s", cfg.Capture.Interface)
	}
	// Everything not in the file keeps its default.
	if cfg.Admission.RequestsPerMinute != 100 {
		t.Errorf("expected default requests_per_minute, got %d", cfg.Admission.RequestsPerMinute)
	}
	if cfg.Capture.HistorySize != 1000 {
		t.Errorf("expected default history_size, got %d", cfg.Capture.HistorySize)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := config.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("admission: ["), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.LoadFromFile(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero requests_per_minute", func(c *config.Config) { c.Admission.RequestsPerMinute = 0 }},
		{"negative burst_limit", func(c *config.Config) { c.Admission.BurstLimit = -1 }},
		{"zero burst_window", func(c *config.Config) { c.Admission.BurstWindow = 0 }},
		{"zero retention", func(c *config.Config) { c.Admission.Retention = 0 }},
		{"zero top_limit", func(c *config.Config) { c.Admission.TopLimit = 0 }},
		{"empty interface", func(c *config.Config) { c.Capture.Interface = "" }},
		{"zero snaplen", func(c *config.Config) { c.Capture.SnapLen = 0 }},
		{"zero history_size", func(c *config.Config) { c.Capture.HistorySize = 0 }},
		{"zero poll_timeout", func(c *config.Config) { c.Capture.PollTimeout = 0 }},
		{"empty listen_addr", func(c *config.Config) { c.Dashboard.ListenAddr = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.yaml")

	cfg := config.DefaultConfig()
	cfg.Admission.BurstLimit = 42
	cfg.Capture.Interface = "wlan0"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Admission.BurstLimit != 42 || loaded.Capture.Interface != "wlan0" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
