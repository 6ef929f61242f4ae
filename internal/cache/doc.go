// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package cache provides the bounded in-memory LRU used for analysis
// results and generated queries. All service state is process-local;
// nothing persists across restarts.
package cache
