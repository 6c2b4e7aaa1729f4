package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventstream/internal/api"
	"eventstream/internal/config"
	"eventstream/internal/integration/rpc_backend"
	"eventstream/internal/ledger"
	"eventstream/internal/ledger/retry"
	"eventstream/internal/orchestrator"
	"eventstream/internal/sink"
	"eventstream/internal/storage"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	fmt.Println("🌟 Starting Stellar Event Stream...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"rpc_server", cfg.RPCServerURL,
		"mode", cfg.Mode,
		"archive", cfg.Archive,
		"log_level", cfg.LogLevel,
	)

	filters, err := config.LoadFilters(cfg.FiltersFile)
	if err != nil {
		log.Fatalf("❌ Invalid filters: %v", err)
	}
	slog.Info("Filters loaded", "count", len(filters), "file", cfg.FiltersFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Sinks
	var sinks []sink.Sink
	if cfg.LogEvents {
		sinks = append(sinks, sink.NewLogSink(logger))
	}

	var repository storage.Repository
	startLedger := cfg.StartLedger
	if cfg.DatabaseURL != "" {
		repo, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer repo.Close()

		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("❌ Failed to prepare database schema: %v", err)
		}
		slog.Info("Database connected successfully")

		if cfg.Resume {
			stored, err := repo.GetLastProcessedLedger(ctx)
			if err != nil {
				log.Fatalf("❌ Failed to read last processed ledger: %v", err)
			}
			if next := resumeLedger(startLedger, stored); next != startLedger {
				slog.Info("Resuming after stored events", "configured", startLedger, "resume_from", next)
				startLedger = next
			}
		}

		repository = repo
		sinks = append(sinks, sink.NewPostgresSink(repo))
	}

	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to broker: %v", err)
		}
		defer conn.Close()

		publisher, err := sink.NewAMQPSink(conn, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("❌ Failed to set up publisher: %v", err)
		}
		defer publisher.Close()

		slog.Info("Broker connected", "exchange", cfg.AMQPExchange)
		sinks = append(sinks, publisher)
	}

	if len(sinks) == 0 {
		slog.Warn("No sink configured, falling back to log output")
		sinks = append(sinks, sink.NewLogSink(logger))
	}

	orch := orchestrator.New(sinks)
	slog.Info("Orchestrator ready", "sinks", len(orch.Sinks()))

	// 4. RPC sources
	clientConfig := rpc_backend.ClientConfig{
		Endpoint:      cfg.RPCServerURL,
		BufferSize:    cfg.BufferSize,
		TimeoutConfig: rpc_backend.ClientTimeoutConfig{Timeout: cfg.RPCTimeout},
	}
	client, err := rpc_backend.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("❌ Failed to create RPC client: %v", err)
	}
	defer client.Close()

	var archive ledger.ArchiveSource
	switch cfg.Archive {
	case config.ArchiveLedgers:
		archive = rpc_backend.NewLedgersArchive(client)
	case config.ArchiveBackend:
		backendArchive := rpc_backend.NewBackendArchive(&rpc_backend.LedgerBuilder{ClientConfig: clientConfig})
		defer backendArchive.Close()
		archive = backendArchive
	}

	// 5. Create streamer
	streamer, err := ledger.NewStreamer(ledger.Config{
		Name:               cfg.StreamName,
		LiveSource:         rpc_backend.NewEventSource(client),
		ArchiveSource:      archive,
		Filters:            filters,
		PagingInterval:     cfg.PagingInterval,
		LedgerWaitInterval: cfg.LedgerWaitInterval,
		ArchivalInterval:   cfg.ArchivalInterval,
		PageLimit:          cfg.PageLimit,
		Logger:             logger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create streamer: %v", err)
	}

	// 6. API server
	server := api.NewServer(cfg.APIPort, repository, streamer)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	// 7. Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	runner := newStreamRunner(streamer, orch.Handle, cfg.Mode, ledger.StartOptions{
		StartLedger:             startLedger,
		StopLedger:              cfg.StopLedger,
		SkipWaitWhileCatchingUp: cfg.SkipWaitWhileCatchingUp,
	})
	strategy := retry.NewStrategy(cfg.Retry)

	// Start streaming in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- strategy.Execute(ctx, runner.run)
	}()

	// Wait for interrupt or the end of the stream
	exitCode := 0
	select {
	case <-sigChan:
		slog.Warn("Interrupt received, shutting down...")
		streamer.Stop()
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			slog.Error("Streamer error", "error", err, "strategy", strategy.Name())
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}

	slog.Info("Event stream stopped", "last_ledger", runner.last.Load())
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
