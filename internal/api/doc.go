// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package api exposes the intelligence services over HTTP: pattern
// analysis, natural language query generation, chart recommendation,
// and dashboard layout optimization. Every endpoint responds with the
// APIResponse envelope and carries a request ID for log correlation.
package api
