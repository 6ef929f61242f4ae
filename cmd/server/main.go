// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package main is the entry point for the Insightd server.
//
// Insightd provides observability intelligence over telemetry data:
// statistical pattern detection on submitted frames, natural language
// query generation for an NRQL-style dialect, chart type
// recommendation, and dashboard layout optimization.
//
// The server initializes in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML file,
//     environment variables)
//  2. Logging: zerolog, JSON or console output
//  3. Core services: pattern engine, query generator, shape analyzer,
//     chart recommender, layout optimizer
//  4. HTTP server: Chi router with the /api/v1 surface and Prometheus
//     metrics on /metrics
//
// All components run under a suture supervision tree and shut down
// gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insightd/insightd/internal/api"
	"github.com/insightd/insightd/internal/config"
	"github.com/insightd/insightd/internal/logging"
	"github.com/insightd/insightd/internal/supervisor"
	"github.com/insightd/insightd/internal/supervisor/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("pattern_detection", cfg.Engine.EnablePatternDetection).
		Bool("anomaly_detection", cfg.Engine.EnableAnomalyDetection).
		Str("optimizer_mode", cfg.Query.OptimizerMode).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	handler := api.NewHandler(cfg, version)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddCoreService(services.NewStatsReporterService(time.Minute, handler.StatsSnapshot))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
