package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Admission AdmissionConfig `yaml:"admission"`
	Capture   CaptureConfig   `yaml:"capture"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AdmissionConfig contains admission controller parameters
type AdmissionConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	BurstLimit        int           `yaml:"burst_limit"`
	BurstWindow       time.Duration `yaml:"burst_window"`
	BlockDuration     time.Duration `yaml:"block_duration"`
	Retention         time.Duration `yaml:"retention"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	TopLimit          int           `yaml:"top_limit"`
}

// CaptureConfig contains packet capture parameters
type CaptureConfig struct {
	Interface   string        `yaml:"interface"`
	SnapLen     int           `yaml:"snaplen"`
	Promiscuous bool          `yaml:"promiscuous"`
	QueueSize   int           `yaml:"queue_size"`
	HistorySize int           `yaml:"history_size"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// DashboardConfig contains web dashboard configuration
type DashboardConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	FilePath   string `yaml:"file_path"` // empty: stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Admission: AdmissionConfig{
			RequestsPerMinute: 100,
			BurstLimit:        20,
			BurstWindow:       5 * time.Second,
			BlockDuration:     5 * time.Minute,
			Retention:         time.Hour,
			CleanupInterval:   time.Minute,
			TopLimit:          5,
		},
		Capture: CaptureConfig{
			Interface:   "eth0",
			SnapLen:     1600,
			Promiscuous: true,
			QueueSize:   1000,
			HistorySize: 1000,
			PollTimeout: 500 * time.Millisecond,
		},
		Dashboard: DashboardConfig{
			ListenAddr:     ":8080",
			UpdateInterval: time.Second,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Admission.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid requests_per_minute: %d", c.Admission.RequestsPerMinute)
	}
	if c.Admission.BurstLimit <= 0 {
		return fmt.Errorf("invalid burst_limit: %d", c.Admission.BurstLimit)
	}
	if c.Admission.BurstWindow <= 0 || c.Admission.BlockDuration <= 0 {
		return fmt.Errorf("admission windows must be positive")
	}
	if c.Admission.Retention <= 0 || c.Admission.CleanupInterval <= 0 {
		return fmt.Errorf("admission retention and cleanup_interval must be positive")
	}
	if c.Admission.TopLimit <= 0 {
		return fmt.Errorf("invalid top_limit: %d", c.Admission.TopLimit)
	}

	if c.Capture.Interface == "" {
		return fmt.Errorf("capture interface must not be empty")
	}
	if c.Capture.SnapLen <= 0 {
		return fmt.Errorf("invalid snaplen: %d", c.Capture.SnapLen)
	}
	if c.Capture.QueueSize <= 0 || c.Capture.HistorySize <= 0 {
		return fmt.Errorf("capture queue_size and history_size must be positive")
	}
	if c.Capture.PollTimeout <= 0 {
		return fmt.Errorf("invalid poll_timeout: %v", c.Capture.PollTimeout)
	}

	if c.Dashboard.ListenAddr == "" {
		return fmt.Errorf("dashboard listen_addr must not be empty")
	}
	if c.Dashboard.UpdateInterval <= 0 {
		return fmt.Errorf("invalid update_interval: %v", c.Dashboard.UpdateInterval)
	}

	return nil
}
