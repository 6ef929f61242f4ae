// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// PatternType identifies the kind of structure a detector found. The
// set is closed; detectors declare which subset they may emit.
type PatternType string

// Pattern taxonomy.
const (
	PatternNormalDistribution     PatternType = "normal_distribution"
	PatternSkewedDistribution     PatternType = "skewed_distribution"
	PatternUniformDistribution    PatternType = "uniform_distribution"
	PatternBimodalDistribution    PatternType = "bimodal_distribution"
	PatternMultimodalDistribution PatternType = "multimodal_distribution"
	PatternOutlier                PatternType = "outlier"
	PatternTrendLinear            PatternType = "trend_linear"
	PatternTrendExponential       PatternType = "trend_exponential"
	PatternSeasonal               PatternType = "seasonal"
	PatternCyclic                 PatternType = "cyclic"
	PatternStationary             PatternType = "stationary"
	PatternNonStationary          PatternType = "non_stationary"
	PatternAnomalyPoint           PatternType = "anomaly_point"
	PatternAnomalyCollective      PatternType = "anomaly_collective"
	PatternAnomalyContextual      PatternType = "anomaly_contextual"
	PatternChangePoint            PatternType = "change_point"
	PatternLinearCorrelation      PatternType = "linear_correlation"
	PatternMonotonicCorrelation   PatternType = "monotonic_correlation"
	PatternNonLinearCorrelation   PatternType = "nonlinear_correlation"
	PatternLagCorrelation         PatternType = "lag_correlation"
	PatternNetworkCorrelation     PatternType = "network_correlation"
	PatternMissingData            PatternType = "missing_data"
	PatternInconsistentData       PatternType = "inconsistent_data"
	PatternHighCardinality        PatternType = "high_cardinality"
	PatternImbalance              PatternType = "imbalance"
)

// Impact grades how much a pattern should influence attention.
type Impact string

// Impact levels.
const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Weight maps the impact level onto the ranking weight.
func (im Impact) Weight() float64 {
	switch im {
	case ImpactHigh:
		return 1.0
	case ImpactMedium:
		return 0.5
	default:
		return 0.2
	}
}

// typeImportance is the fixed ranking table; types absent from the
// table weigh 0.5.
var typeImportance = map[PatternType]float64{
	PatternAnomalyPoint:       1.0,
	PatternAnomalyCollective:  0.9,
	PatternChangePoint:        0.9,
	PatternTrendExponential:   0.8,
	PatternMissingData:        0.8,
	PatternTrendLinear:        0.7,
	PatternSeasonal:           0.7,
	PatternLagCorrelation:     0.7,
	PatternLinearCorrelation:  0.6,
	PatternNonLinearCorrelation: 0.6,
	PatternBimodalDistribution:  0.5,
	PatternSkewedDistribution:   0.4,
	PatternNormalDistribution:   0.3,
}

// Importance returns the fixed type-importance used for ranking.
func (t PatternType) Importance() float64 {
	if w, ok := typeImportance[t]; ok {
		return w
	}
	return 0.5
}

// DataPoint is one row referenced by a piece of evidence.
type DataPoint struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Evidence supports a pattern: a description plus optional test
// statistics and referenced data points.
type Evidence struct {
	Description      string             `json:"description"`
	StatisticalTests map[string]float64 `json:"statistical_tests,omitempty"`
	DataPoints       []DataPoint        `json:"data_points,omitempty"`
}

// Pattern is a named, confidence-scored observation about one or more
// columns. Patterns are created inside a single detector invocation and
// never mutated afterwards.
type Pattern struct {
	Type            PatternType    `json:"type"`
	Confidence      float64        `json:"confidence"`
	Impact          Impact         `json:"impact"`
	Columns         []string       `json:"columns"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Evidence        []Evidence     `json:"evidence"`
	Recommendations []string       `json:"recommendations,omitempty"`
	VisualHints     map[string]any `json:"visual_hints,omitempty"`
	DetectedAt      time.Time      `json:"detected_at"`
}

// Key returns the dedup identity (type, sorted column set, canonical
// parameter JSON).
func (p *Pattern) Key() string {
	cols := make([]string, len(p.Columns))
	copy(cols, p.Columns)
	sort.Strings(cols)
	params, err := json.Marshal(p.Parameters)
	if err != nil {
		params = []byte(fmt.Sprintf("%v", p.Parameters))
	}
	return fmt.Sprintf("%s|%v|%s", p.Type, cols, params)
}

// RankScore is the composite ranking key:
// 0.4*confidence + 0.4*type importance + 0.2*impact weight.
func (p *Pattern) RankScore() float64 {
	return 0.4*p.Confidence + 0.4*p.Type.Importance() + 0.2*p.Impact.Weight()
}

// Context carries caller-supplied analysis hints. It is an open map:
// unknown keys are tolerated and preserved.
type Context map[string]any

// String returns the string value under key, or def when absent or not
// a string.
func (c Context) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Float returns the numeric value under key, or def.
func (c Context) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Bool returns the boolean value under key, or def.
func (c Context) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}
