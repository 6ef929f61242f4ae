// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package api

import (
	"github.com/goccy/go-json"

	"github.com/insightd/insightd/internal/query"
	"github.com/insightd/insightd/internal/viz"
)

// AnalyzePatternsRequest carries a frame and analysis options. Data is
// either a row-array of objects or a column-map of arrays.
type AnalyzePatternsRequest struct {
	Data      json.RawMessage `json:"data" validate:"required"`
	Columns   []string        `json:"columns,omitempty"`
	Detectors []string        `json:"detectors,omitempty"`
	Context   map[string]any  `json:"context,omitempty"`
	Page      int             `json:"page,omitempty" validate:"gte=0"`
	PageSize  int             `json:"page_size,omitempty" validate:"gte=0,lte=500"`
}

// GenerateQueryRequest carries an utterance and optional caller
// context.
type GenerateQueryRequest struct {
	NaturalQuery string         `json:"natural_query" validate:"required,min=1,max=2000"`
	Context      *query.Context `json:"context,omitempty"`
}

// ExplainQueryRequest carries a dialect query to decompose.
type ExplainQueryRequest struct {
	Query string `json:"query" validate:"required,min=1,max=5000"`
}

// RecommendChartsRequest carries either a precomputed shape or raw
// frame data to analyze first.
type RecommendChartsRequest struct {
	DataShape *viz.DataShape        `json:"data_shape,omitempty"`
	Data      json.RawMessage       `json:"data,omitempty"`
	Context   *viz.RecommendContext `json:"context,omitempty"`
}

// OptimizeLayoutRequest carries the widgets to place.
type OptimizeLayoutRequest struct {
	Widgets     []viz.Widget    `json:"widgets" validate:"required,min=1,dive"`
	Constraints viz.Constraints `json:"constraints,omitempty"`
	Strategy    viz.Strategy    `json:"strategy,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Healthy    bool              `json:"healthy"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}
