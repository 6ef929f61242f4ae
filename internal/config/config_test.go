// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server defaults = %s:%d, want 0.0.0.0:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if !cfg.Engine.EnablePatternDetection || !cfg.Engine.EnableAnomalyDetection {
		t.Error("detection toggles should default on")
	}
	if cfg.Engine.MinConfidence != 0.7 || cfg.Engine.Sensitivity != "medium" {
		t.Errorf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Query.OptimizerMode != "balanced" {
		t.Errorf("optimizer mode = %q, want balanced", cfg.Query.OptimizerMode)
	}
	if cfg.Viz.DefaultGridColumns != 4 {
		t.Errorf("grid columns = %d, want 4", cfg.Viz.DefaultGridColumns)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"no workers", func(c *Config) { c.Server.WorkerPoolSize = 0 }},
		{"no request slots", func(c *Config) { c.Server.MaxConcurrentRequests = 0 }},
		{"confidence above one", func(c *Config) { c.Engine.MinConfidence = 1.5 }},
		{"bad sensitivity", func(c *Config) { c.Engine.Sensitivity = "extreme" }},
		{"bad optimizer mode", func(c *Config) { c.Query.OptimizerMode = "cheap" }},
	}
	for _, tc := range cases {
		cfg := defaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
		}
	}
}

func TestValidateFillsRegionEndpoint(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Upstream.GraphQLEndpoint != endpointUS {
		t.Errorf("US endpoint = %q, want %q", cfg.Upstream.GraphQLEndpoint, endpointUS)
	}

	cfg = defaultConfig()
	cfg.Upstream.Region = "EU"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Upstream.GraphQLEndpoint != endpointEU {
		t.Errorf("EU endpoint = %q, want %q", cfg.Upstream.GraphQLEndpoint, endpointEU)
	}

	// An explicit endpoint survives regardless of region.
	cfg = defaultConfig()
	cfg.Upstream.GraphQLEndpoint = "https://example.test/graphql"
	cfg.Upstream.Region = "EU"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Upstream.GraphQLEndpoint != "https://example.test/graphql" {
		t.Errorf("explicit endpoint overwritten: %q", cfg.Upstream.GraphQLEndpoint)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := []struct{ in, want string }{
		{"PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"ANOMALY_SENSITIVITY", "engine.sensitivity"},
		{"QUERY_OPTIMIZER_MODE", "query.optimizer_mode"},
		{"SERVER_WORKER_POOL_SIZE", "server.worker_pool_size"},
		{"ENGINE_PATTERN_LIMIT", "engine.pattern_limit"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tc := range cases {
		if got := envTransformFunc(tc.in); got != tc.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  port: 9000\nengine:\n  sensitivity: high\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// ENV beats the file, the file beats defaults.
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want the env override 9100", cfg.Server.Port)
	}
	if cfg.Engine.Sensitivity != "high" {
		t.Errorf("sensitivity = %q, want the file value high", cfg.Engine.Sensitivity)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want the env value debug", cfg.Logging.Level)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want the untouched default", cfg.Server.Host)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ANOMALY_SENSITIVITY", "extreme")
	if _, err := Load(); err == nil {
		t.Error("expected Load to fail validation")
	}
}
