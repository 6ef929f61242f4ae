// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package query converts natural-language utterances into queries in a
// SQL-like telemetry dialect.
//
// The pipeline has three pure stages: Parser extracts a structured
// Intent from the utterance with regex and keyword tables, Builder
// renders the intent into dialect text with one builder per query
// type, and Optimizer rewrites the text to cut scan volume under a
// cost model. Generator wraps the stages with a bounded LRU result
// cache, a FIFO history for suggestion learning, and query
// explanation.
package query
