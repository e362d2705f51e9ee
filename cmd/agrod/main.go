// Agrod is a farm-assistant daemon backed by the Hedera ledger.
//
// This binary starts the agrod HTTP server with full service
// initialization: mirror-node index client, transaction relay client,
// topic reconciliation, and the query-processing agent.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	agrod
//
//	# Configure via environment
//	SERVER_PORT=3200 COMPLETION_API_KEY=sk-or-... agrod
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agrod/internal/agent"
	"github.com/fyrsmithlabs/agrod/internal/config"
	"github.com/fyrsmithlabs/agrod/internal/ledger"
	"github.com/fyrsmithlabs/agrod/internal/llm"
	"github.com/fyrsmithlabs/agrod/internal/logging"
	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"github.com/fyrsmithlabs/agrod/internal/server"
	"github.com/fyrsmithlabs/agrod/internal/topics"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  agrod           Start the agrod daemon\n")
			fmt.Fprintf(os.Stderr, "  agrod version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("agrod\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the agrod server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes logger
//  3. Creates the mirror-node index and relay clients
//  4. Creates the reconciliation engine, verifier, and completion client
//  5. Wires the query-processing agent
//  6. Starts HTTP server
//  7. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting agrod",
		zap.Int("port", cfg.Server.Port),
		zap.String("mirror_url", cfg.Mirror.BaseURL),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	// Ledger index (read side)
	index, err := mirror.NewClient(cfg.Mirror.BaseURL, cfg.Mirror.Timeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create mirror client: %w", err)
	}

	// Ledger relay (write side)
	defaultCreds := ledger.Credentials{
		AccountID:  cfg.Ledger.AccountID,
		PrivateKey: cfg.Ledger.PrivateKey,
	}
	relay, err := ledger.NewRelayClient(cfg.Relay.BaseURL, cfg.Relay.Timeout, defaultCreds, logger)
	if err != nil {
		return fmt.Errorf("failed to create relay client: %w", err)
	}

	// Reconciliation, verification, completion
	engine := topics.NewEngine(index, cfg.Ledger.FallbackTopic, cfg.Mirror.VerifyTimeout, logger)
	verifier := ledger.NewVerifier(index, cfg.Mirror.VerifyTimeout, logger)

	completer, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.Completion.BaseURL,
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	logger.Info("Completion client initialized",
		zap.String("base_url", cfg.Completion.BaseURL),
		zap.String("model", cfg.Completion.Model))

	// Query-processing agent
	store := topics.NewStore()
	processor := agent.New(completer, index, relay, store, logger)

	// Create HTTP server
	srv, err := server.NewServer(processor, engine, verifier, index, relay, store, logger, &server.Config{
		Host: "",
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// Register metrics endpoint
	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server, shut down on context cancellation
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
