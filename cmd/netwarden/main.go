package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"netwarden/pkg/admission"
	"netwarden/pkg/capture"
	"netwarden/pkg/config"
	"netwarden/pkg/dashboard"
)

const version = "0.1.0"

func main() {
	var (
		configPath  = flag.String("config", "./configs/netwarden.yaml", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		iface       = flag.String("interface", "", "Network interface to monitor (overrides config)")
		help        = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	if *showVersion {
		fmt.Printf("Netwarden Network Defense Monitor v%s\n", version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *iface != "" {
		cfg.Capture.Interface = *iface
	}

	setupLogging(cfg)

	log.Printf("Starting Netwarden Network Defense Monitor v%s", version)
	log.Printf("Monitoring interface: %s", cfg.Capture.Interface)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	controller := admission.New(cfg)
	if err := controller.Start(ctx); err != nil {
		log.Fatalf("Failed to start admission controller: %v", err)
	}
	defer controller.Close()

	source, err := capture.OpenLive(cfg)
	if err != nil {
		log.Fatalf("Failed to open packet source: %v", err)
	}

	pipeline := capture.New(cfg, source)
	pipeline.StartCapture()
	defer pipeline.StopCapture()

	dashboardServer, err := dashboard.New(cfg, controller, pipeline)
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	if err := dashboardServer.Start(ctx); err != nil {
		log.Fatalf("Failed to start dashboard: %v", err)
	}

	log.Printf("Netwarden is running")
	log.Printf("API available at http://localhost%s/api", cfg.Dashboard.ListenAddr)
	log.Println("Press Ctrl+C to stop...")

	<-sigChan
	log.Println("Shutting down gracefully...")

	cancel()

	if err := dashboardServer.Stop(); err != nil {
		log.Printf("Error stopping dashboard: %v", err)
	}

	log.Println("Shutdown complete")
}

// loadConfig loads configuration from file or returns default config
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Config file %s not found, using defaults", path)
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return cfg, nil
}

// setupLogging routes the standard logger to a rotating file when one is
// configured, keeping stderr in the mix either way.
func setupLogging(cfg *config.Config) {
	if cfg.Logging.FilePath == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}

// showHelp displays usage information
func showHelp() {
	fmt.Printf(`Netwarden - Network Defense Monitor v%s

DESCRIPTION:
    Host-local network defense: watches live traffic, classifies it by
    protocol, and rejects sources that exceed abuse thresholds.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -config string
        Path to configuration file (default: "./configs/netwarden.yaml")

    -interface string
        Network interface to monitor (overrides config file setting)

    -version
        Show version information and exit

    -help
        Show this help message

EXAMPLES:
    # Run with default configuration
    sudo %s

    # Run with custom config file
    sudo %s -config /etc/netwarden/config.yaml

    # Monitor specific interface
    sudo %s -interface eth1

REQUIREMENTS:
    - Root privileges (required for live packet capture)
    - libpcap

API:
    GET  /api/ddos/status        admission controller snapshot
    POST /api/ddos/settings      partial threshold update
    GET  /api/packets/recent     recent classified packets
    GET  /api/packets/stats      protocol/port/address statistics
    POST /api/packets/start|stop|clear
    GET  /ws/packets             live packet feed (websocket)

SIGNALS:
    SIGINT, SIGTERM - Graceful shutdown
`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
