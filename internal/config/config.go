// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package config

import (
	"fmt"
	"time"
)

// Config is the full service configuration. Loaded once at startup and
// passed explicitly into constructors; there are no config singletons.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Engine   EngineConfig   `koanf:"engine"`
	Query    QueryConfig    `koanf:"query"`
	Viz      VizConfig      `koanf:"viz"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig covers the HTTP listener and request scheduling.
type ServerConfig struct {
	Host                  string        `koanf:"host"`
	Port                  int           `koanf:"port"`
	WorkerPoolSize        int           `koanf:"worker_pool_size"`
	MaxConcurrentRequests int           `koanf:"max_concurrent_requests"`
	RequestTimeout        time.Duration `koanf:"request_timeout"`
}

// UpstreamConfig identifies the telemetry backend queries are written
// for. The core never calls it; the settings ride along for clients.
type UpstreamConfig struct {
	APIKey          string `koanf:"api_key"`
	AccountID       string `koanf:"account_id"`
	Region          string `koanf:"region"`
	GraphQLEndpoint string `koanf:"graphql_endpoint"`
}

// EngineConfig covers the pattern engine and its detectors.
type EngineConfig struct {
	EnablePatternDetection bool    `koanf:"enable_pattern_detection"`
	EnableAnomalyDetection bool    `koanf:"enable_anomaly_detection"`
	EnableCaching          bool    `koanf:"enable_caching"`
	MinConfidence          float64 `koanf:"min_confidence"`
	MinSamples             int     `koanf:"min_samples"`
	PatternLimit           int     `koanf:"pattern_limit"`
	Sensitivity            string  `koanf:"sensitivity"`
	Seed                   int64   `koanf:"seed"`
}

// QueryConfig covers the query generation pipeline.
type QueryConfig struct {
	CacheSize             int     `koanf:"cache_size"`
	HistorySize           int     `koanf:"history_size"`
	OptimizerMode         string  `koanf:"optimizer_mode"`
	OptimizerAggressive   bool    `koanf:"optimizer_aggressive"`
	DefaultRecordsPerHour float64 `koanf:"default_records_per_hour"`
}

// VizConfig covers shape analysis, chart recommendation, and layout.
type VizConfig struct {
	SampleSize           int     `koanf:"sample_size"`
	CorrelationThreshold float64 `koanf:"correlation_threshold"`
	MaxRecommendations   int     `koanf:"max_recommendations"`
	DefaultGridColumns   int     `koanf:"default_grid_columns"`
}

// LoggingConfig covers log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// GraphQL endpoints by region.
const (
	endpointUS = "https://api.newrelic.com/graphql"
	endpointEU = "https://api.eu.newrelic.com/graphql"
)

// defaultConfig returns a Config with all defaults applied. Defaults
// load first, then the config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                  "0.0.0.0",
			Port:                  8080,
			WorkerPoolSize:        4,
			MaxConcurrentRequests: 100,
			RequestTimeout:        30 * time.Second,
		},
		Upstream: UpstreamConfig{
			Region: "US",
		},
		Engine: EngineConfig{
			EnablePatternDetection: true,
			EnableAnomalyDetection: true,
			EnableCaching:          true,
			MinConfidence:          0.7,
			MinSamples:             30,
			PatternLimit:           50,
			Sensitivity:            "medium",
			Seed:                   1,
		},
		Query: QueryConfig{
			CacheSize:             100,
			HistorySize:           1000,
			OptimizerMode:         "balanced",
			DefaultRecordsPerHour: 100_000,
		},
		Viz: VizConfig{
			SampleSize:           10_000,
			CorrelationThreshold: 0.5,
			MaxRecommendations:   5,
			DefaultGridColumns:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the loaded configuration for out-of-range values and
// fills the region-derived endpoint default.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.WorkerPoolSize < 1 {
		return fmt.Errorf("server.worker_pool_size must be at least 1")
	}
	if c.Server.MaxConcurrentRequests < 1 {
		return fmt.Errorf("server.max_concurrent_requests must be at least 1")
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence out of range: %g", c.Engine.MinConfidence)
	}
	switch c.Engine.Sensitivity {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("engine.sensitivity must be low, medium, or high")
	}
	switch c.Query.OptimizerMode {
	case "cost", "speed", "balanced":
	default:
		return fmt.Errorf("query.optimizer_mode must be cost, speed, or balanced")
	}
	if c.Upstream.GraphQLEndpoint == "" {
		switch c.Upstream.Region {
		case "EU", "eu":
			c.Upstream.GraphQLEndpoint = endpointEU
		default:
			c.Upstream.GraphQLEndpoint = endpointUS
		}
	}
	return nil
}
