// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/insightd/config.yaml",
	"/etc/insightd/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources: built-in
// defaults, then an optional YAML file, then environment variables.
// Precedence is ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps flat environment variable names onto koanf
// paths. Unmapped variables containing an underscore-separated section
// prefix fall through untouched so SERVER_PORT style names also work.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Listener and scheduling.
		"host":                    "server.host",
		"port":                    "server.port",
		"worker_pool_size":        "server.worker_pool_size",
		"max_concurrent_requests": "server.max_concurrent_requests",
		"request_timeout":         "server.request_timeout",

		// Upstream identity.
		"api_key":          "upstream.api_key",
		"account_id":       "upstream.account_id",
		"region":           "upstream.region",
		"graphql_endpoint": "upstream.graphql_endpoint",

		// Pattern engine toggles and thresholds.
		"enable_pattern_detection": "engine.enable_pattern_detection",
		"enable_anomaly_detection": "engine.enable_anomaly_detection",
		"enable_caching":           "engine.enable_caching",
		"pattern_min_confidence":   "engine.min_confidence",
		"pattern_min_samples":      "engine.min_samples",
		"pattern_limit":            "engine.pattern_limit",
		"anomaly_sensitivity":      "engine.sensitivity",

		// Query pipeline.
		"query_cache_size":     "query.cache_size",
		"query_history_size":   "query.history_size",
		"query_optimizer_mode": "query.optimizer_mode",

		// Visualization.
		"viz_sample_size":         "viz.sample_size",
		"viz_max_recommendations": "viz.max_recommendations",

		// Logging.
		"log_level":  "logging.level",
		"log_format": "logging.format",
	}
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// SECTION_FIELD_NAME -> section.field_name for known sections.
	for _, section := range []string{"server", "upstream", "engine", "query", "viz", "logging"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return ""
}
