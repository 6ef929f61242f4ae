// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package config loads the service configuration through koanf with
// layered sources: struct defaults, an optional YAML file, and
// environment variables, in ascending precedence.
package config
