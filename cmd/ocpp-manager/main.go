// Package main implements the entry point for the OCPP manager, the
// central system charge points connect to over OCPP 1.6 JSON.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/gitanogama/ocpp-manager/config"
	"github.com/gitanogama/ocpp-manager/connection"
	"github.com/gitanogama/ocpp-manager/engine"
	"github.com/gitanogama/ocpp-manager/events"
	gateway "github.com/gitanogama/ocpp-manager/gateway/http"
	"github.com/gitanogama/ocpp-manager/handler"
	"github.com/gitanogama/ocpp-manager/metric"
	"github.com/gitanogama/ocpp-manager/schema"
	"github.com/gitanogama/ocpp-manager/store"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ocpp-manager"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	slog.Info("Starting OCPP manager",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	schemas, err := schema.NewRegistry()
	if err != nil {
		return fmt.Errorf("compile schemas: %w", err)
	}

	publisher := events.NewPublisher(nil, logger)
	if cfg.NATS.URL != "" {
		publisher, err = events.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		slog.Info("Event publishing enabled", "url", cfg.NATS.URL)
	}
	defer publisher.Close()

	metrics := metric.NewRegistry(appName)
	connections := connection.NewRegistry(logger)

	eng := engine.New(engine.Config{
		Connections: connections,
		Store:       db,
		Schemas:     schemas,
		Handlers: handler.All(handler.Deps{
			Store:   db,
			Schemas: schemas,
			Events:  publisher,
			Logger:  logger,
		}),
		Logger:      logger,
		Registerer:  metrics.Registerer(),
		CallTimeout: cfg.Call.Timeout,
	})
	metrics.TrackConnections(connections)

	server := gateway.NewServer(gateway.Config{
		Addr:        cfg.Server.Addr,
		Engine:      eng,
		Connections: connections,
		Store:       db,
		Logger:      logger,
		Gatherer:    metrics.Gatherer(),
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Run(groupCtx)
	})

	slog.Info("OCPP manager started", "addr", cfg.Server.Addr)
	err = group.Wait()
	slog.Info("OCPP manager shutdown complete")
	return err
}
