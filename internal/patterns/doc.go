// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package patterns discovers structure in tabular telemetry.
//
// Four detectors cover distributions and data quality (statistical),
// trend, seasonality, and stationarity (timeseries), ensemble anomaly
// scoring (anomaly), and pairwise plus network relationships
// (correlation). The Engine fans detectors out over a bounded worker
// pool, then deduplicates, confidence-filters, ranks, and caps the
// combined output, caches analyses by frame identity, and synthesizes
// summary insights and recommendations.
package patterns
