package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/ingest"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/queue"
	"github.com/soltixdb/unitmetrics/internal/router"
	"github.com/soltixdb/unitmetrics/internal/services"
	"github.com/soltixdb/unitmetrics/internal/store"
	"github.com/soltixdb/unitmetrics/internal/telemetry"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("unitmetrics starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create data directory", "error", err, "dir", cfg.Storage.DataDir)
	}

	// Open record store
	st, err := store.New(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open store", "error", err, "driver", cfg.Storage.Driver)
	}
	defer func() { _ = st.Close() }()

	metrics := telemetry.New()
	opts := []services.Option{services.WithTelemetry(metrics)}

	// Queue ingest: the HTTP path publishes, the consumer writes
	var consumer *ingest.Consumer
	if cfg.QueueIngest() {
		logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		queueClient, err := queue.NewQueue(cfg.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Queue", "error", err)
		}
		defer func() { _ = queueClient.Close() }()

		codec, err := ingest.NewCodec(cfg.Ingest.Compression)
		if err != nil {
			logger.Fatal("Invalid ingest compression", "error", err)
		}

		opts = append(opts, services.WithQueue(queueClient, codec, cfg.Ingest.Subject))
		consumer = ingest.NewConsumer(logger, queueClient, cfg.Ingest.Subject, st, codec, metrics)
		logger.Info("Queue ingest enabled", "subject", cfg.Ingest.Subject, "compression", cfg.Ingest.Compression)
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	svc := services.NewMetricsService(logger, st, cfg.Query, opts...)
	app := router.New(logger, router.Dependencies{
		Metrics:   svc,
		Store:     st,
		Telemetry: metrics,
		Version:   Version,
	}, *cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		return app.Listen(addr)
	})

	if consumer != nil {
		if err := consumer.Start(); err != nil {
			logger.Fatal("Failed to start ingest consumer", "error", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return consumer.Stop()
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Service stopped with error", "error", err)
	}

	logger.Info("Server exited")
}
