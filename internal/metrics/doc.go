// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package metrics registers Prometheus collectors for the pattern
// engine, the query pipeline, the visualization pipeline, and the API
// layer. All collectors are package-level and registered once via
// promauto at init.
package metrics
