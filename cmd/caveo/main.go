// -----------------------------------------------------------------------
// Last Modified: Tuesday, 18th August 2026 9:42:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/app"
	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	evalOnce     = flag.Bool("once", false, "Run one evaluation batch, export the dashboard, then exit")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("Caveo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Validate the resolved configuration
	// 4. Initialize logger
	// 5. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		// Check current directory first
		if _, err := os.Stat("caveo.toml"); err == nil {
			configFiles = append(configFiles, "caveo.toml")
		} else if _, err := os.Stat("deployments/local/caveo.toml"); err == nil {
			// Fallback: check deployments/local for users running from project root
			configFiles = append(configFiles, "deployments/local/caveo.toml")
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env -> CLI)
	// Later config files override earlier ones
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		if len(configFiles) == 0 {
			tempLogger.Fatal().Err(err).Msg("Failed to load configuration: no config file found")
		} else {
			tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		}
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	// 3. Validate the resolved configuration. The SEC rejects anonymous
	// clients, so a blank edgar.user_agent cannot start.
	if err := config.Validate(); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Configuration validation failed")
		os.Exit(1)
	}

	// 4. Initialize logger with final configuration
	logger = common.SetupLogger(config)
	common.InstallCrashHandler("logs")

	// 5. Print banner
	common.PrintBanner(common.GetFullVersion())

	// Log initialization complete
	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Msg("Application configuration loaded")

	// One-shot runs keep the scheduler out of the way
	if *evalOnce {
		config.Scheduler.Enabled = false
	}

	// Initialize application
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	if *evalOnce {
		code := runOnceEvaluation(application)
		if err := application.Close(); err != nil {
			logger.Error().Err(err).Msg("Shutdown error")
		}
		os.Exit(code)
	}

	defer application.Close()

	// Start server
	logger.Info().
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Msg("Starting Caveo server")

	srv := server.New(application)

	// Start server in goroutine
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	// Graceful shutdown
	logger.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}

// runOnceEvaluation executes a single evaluation batch and dashboard
// export, returning the process exit code. Interrupts cancel the run.
func runOnceEvaluation(application *app.App) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("Running one evaluation batch")

	report, err := application.EvaluatorService.EvaluateAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Evaluation batch failed")
		return 1
	}

	logger.Info().
		Str("run_id", report.RunID).
		Int("evaluated", report.Evaluated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("changed", report.Changed).
		Msg("Evaluation batch complete")

	path, err := application.DashboardService.Export(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Dashboard export failed")
		return 1
	}

	logger.Info().Str("path", path).Msg("Dashboard exported")
	return 0
}
