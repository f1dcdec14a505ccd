package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netwarden/pkg/config"
)

func TestLoadConfig(t *testing.T) {
	t.Run("load_existing_config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test_config.yaml")

		configContent := `
capture:
  interface: "test0"
dashboard:
  listen_addr: ":9999"
`

		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if cfg.Capture.Interface != "test0" {
			t.Errorf("Expected interface 'test0', got '%s'", cfg.Capture.Interface)
		}
		if cfg.Dashboard.ListenAddr != ":9999" {
			t.Errorf("Expected listen address ':9999', got '%s'", cfg.Dashboard.ListenAddr)
		}
	})

	t.Run("load_nonexistent_config", func(t *testing.T) {
		// Missing file falls back to defaults rather than failing.
		cfg, err := loadConfig("/nonexistent/path/config.yaml")
		if err != nil {
			t.Fatalf("Expected no error for non-existent config, got: %v", err)
		}
		if cfg == nil {
			t.Fatal("Expected default config to be returned")
		}
		if cfg.Capture.Interface == "" {
			t.Error("Expected default interface to be set")
		}
	})

	t.Run("load_invalid_config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid_config.yaml")

		if err := os.WriteFile(configPath, []byte("invalid: yaml: content: [unclosed"), 0644); err != nil {
			t.Fatalf("Failed to write invalid config: %v", err)
		}

		_, err := loadConfig(configPath)
		if err == nil {
			t.Error("Expected error for invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to load config") {
			t.Errorf("Expected error message to contain 'failed to load config', got: %v", err)
		}
	})
}

func TestVersionConstant(t *testing.T) {
	if version == "" {
		t.Error("Version constant should not be empty")
	}
	if !strings.Contains(version, ".") {
		t.Error("Version should contain dots (semantic versioning)")
	}
}

func TestSetupLogging(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	cfg := config.DefaultConfig()

	// No file configured: logger output is left alone.
	setupLogging(cfg)

	cfg.Logging.FilePath = filepath.Join(t.TempDir(), "netwarden.log")
	setupLogging(cfg)
}
