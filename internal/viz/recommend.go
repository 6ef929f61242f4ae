// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package viz

import (
	"fmt"
	"math"
	"sort"

	"github.com/insightd/insightd/internal/metrics"
)

// ChartType names a supported visualization.
type ChartType string

// Chart types.
const (
	ChartLine       ChartType = "line"
	ChartArea       ChartType = "area"
	ChartBar        ChartType = "bar"
	ChartStackedBar ChartType = "stacked_bar"
	ChartPie        ChartType = "pie"
	ChartScatter    ChartType = "scatter"
	ChartHeatmap    ChartType = "heatmap"
	ChartHistogram  ChartType = "histogram"
	ChartViolin     ChartType = "violin"
	ChartBillboard  ChartType = "billboard"
	ChartGauge      ChartType = "gauge"
	ChartTable      ChartType = "table"
	ChartFunnel     ChartType = "funnel"
	ChartSparkline  ChartType = "sparkline"
)

// Goal names what the visualization should communicate.
type Goal string

// Visualization goals.
const (
	GoalTrend        Goal = "trend"
	GoalComparison   Goal = "comparison"
	GoalCorrelation  Goal = "correlation"
	GoalDistribution Goal = "distribution"
	GoalRanking      Goal = "ranking"
	GoalComposition  Goal = "composition"
	GoalProcess      Goal = "process"
)

// Recommendation is one fully configured chart suggestion.
type Recommendation struct {
	ChartType  ChartType      `json:"chart_type"`
	Confidence float64        `json:"confidence"`
	Goal       Goal           `json:"goal"`
	Title      string         `json:"title"`
	XAxis      string         `json:"x_axis,omitempty"`
	YAxes      []string       `json:"y_axes,omitempty"`
	GroupBy    string         `json:"group_by,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
	Reason     string         `json:"reason"`
}

// RecommendContext carries caller preferences.
type RecommendContext struct {
	Goal            Goal        `json:"goal,omitempty"`
	PreferredCharts []ChartType `json:"preferred_charts,omitempty"`
	MaxDataPoints   int         `json:"max_data_points,omitempty"`
	HasThreshold    bool        `json:"has_threshold,omitempty"`
}

// RecommenderConfig tunes the rule engine.
type RecommenderConfig struct {
	MaxRecommendations int `json:"max_recommendations"`
}

// DefaultRecommenderConfig returns the documented defaults.
func DefaultRecommenderConfig() RecommenderConfig {
	return RecommenderConfig{MaxRecommendations: 5}
}

// chartRule is one entry of the fixed catalog: a trigger over the
// shape, the goal it serves, and a base confidence.
type chartRule struct {
	name  string
	chart ChartType
	goal  Goal
	base  float64
	fires func(s *DataShape, ctx *RecommendContext) bool
}

// Recommender maps a DataShape onto ranked chart recommendations.
// Purely rule based: every rule that fires yields one recommendation.
type Recommender struct {
	cfg   RecommenderConfig
	rules []chartRule
}

// NewRecommender builds a recommender with the fixed rule catalog.
func NewRecommender(cfg RecommenderConfig) *Recommender {
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = 5
	}
	return &Recommender{cfg: cfg, rules: ruleCatalog()}
}

func ruleCatalog() []chartRule {
	return []chartRule{
		{
			name: "timeseries_single_metric", chart: ChartLine, goal: GoalTrend, base: 0.9,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return s.HasTimeSeries && len(s.PrimaryMetrics) == 1
			},
		},
		{
			name: "timeseries_multiple_metrics", chart: ChartArea, goal: GoalTrend, base: 0.85,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return s.HasTimeSeries && len(s.PrimaryMetrics) >= 2
			},
		},
		{
			name: "distribution_continuous", chart: ChartHistogram, goal: GoalDistribution, base: 0.8,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return hasContinuous(s) && s.RowCount >= 30
			},
		},
		{
			name: "distribution_violin", chart: ChartViolin, goal: GoalDistribution, base: 0.6,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return hasContinuous(s) && len(s.PrimaryDimensions) >= 1 && s.RowCount >= 100
			},
		},
		{
			name: "comparison_categorical", chart: ChartBar, goal: GoalComparison, base: 0.85,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return len(s.PrimaryDimensions) >= 1 && len(s.PrimaryMetrics) >= 1 &&
					dimensionCardinality(s) >= 2 && dimensionCardinality(s) <= 20
			},
		},
		{
			name: "comparison_stacked", chart: ChartStackedBar, goal: GoalComparison, base: 0.7,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return len(s.PrimaryDimensions) >= 2 && len(s.PrimaryMetrics) >= 1
			},
		},
		{
			name: "correlation_scatter", chart: ChartScatter, goal: GoalCorrelation, base: 0.85,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				a, b, _ := strongestCorrelation(s)
				return a != "" && b != ""
			},
		},
		{
			name: "correlation_heatmap", chart: ChartHeatmap, goal: GoalCorrelation, base: 0.7,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return correlatedColumnCount(s) >= 3
			},
		},
		{
			name: "single_value_billboard", chart: ChartBillboard, goal: GoalComparison, base: 0.75,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return len(s.PrimaryMetrics) == 1 && len(s.PrimaryDimensions) == 0 && !s.HasTimeSeries
			},
		},
		{
			name: "single_value_gauge", chart: ChartGauge, goal: GoalComparison, base: 0.65,
			fires: func(s *DataShape, ctx *RecommendContext) bool {
				return len(s.PrimaryMetrics) == 1 && ctx != nil && ctx.HasThreshold
			},
		},
		{
			name: "table_detailed", chart: ChartTable, goal: GoalRanking, base: 0.6,
			fires: func(s *DataShape, _ *RecommendContext) bool {
				return s.ColumnCount >= 4
			},
		},
		{
			name: "funnel_process", chart: ChartFunnel, goal: GoalProcess, base: 0.6,
			fires: func(s *DataShape, ctx *RecommendContext) bool {
				return ctx != nil && ctx.Goal == GoalProcess && len(s.PrimaryDimensions) >= 1
			},
		},
	}
}

// Recommend runs the catalog over the shape, adjusts confidences, and
// returns the top recommendations sorted descending.
func (r *Recommender) Recommend(shape *DataShape, ctx *RecommendContext) []Recommendation {
	goal := r.inferGoal(shape, ctx)

	var recs []Recommendation
	for _, rule := range r.rules {
		if !rule.fires(shape, ctx) {
			continue
		}
		rec := Recommendation{
			ChartType:  rule.chart,
			Confidence: r.adjust(rule.base, rule.chart, shape, ctx),
			Goal:       rule.goal,
			Reason:     rule.name,
		}
		r.configure(&rec, shape)
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		recs = r.fallback(shape)
	}

	// Recommendations serving the inferred goal outrank the rest at
	// equal confidence.
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].Goal == goal && recs[j].Goal != goal
	})
	if len(recs) > r.cfg.MaxRecommendations {
		recs = recs[:r.cfg.MaxRecommendations]
	}
	for _, rec := range recs {
		metrics.ChartRecommendations.WithLabelValues(string(rec.ChartType)).Inc()
	}
	return recs
}

// inferGoal resolves the visualization goal when the caller did not
// pass one.
func (r *Recommender) inferGoal(shape *DataShape, ctx *RecommendContext) Goal {
	if ctx != nil && ctx.Goal != "" {
		return ctx.Goal
	}
	switch {
	case shape.HasTimeSeries:
		return GoalTrend
	case len(shape.PrimaryMetrics) >= 2:
		return GoalComparison
	case hasStrongCorrelation(shape):
		return GoalCorrelation
	case len(shape.PrimaryMetrics) == 1 && len(shape.PrimaryDimensions) >= 1:
		return GoalRanking
	default:
		return GoalComparison
	}
}

func (r *Recommender) adjust(conf float64, chart ChartType, shape *DataShape, ctx *RecommendContext) float64 {
	if ctx != nil {
		for _, p := range ctx.PreferredCharts {
			if p == chart {
				conf *= 1.1
				break
			}
		}
		maxPoints := ctx.MaxDataPoints
		if maxPoints <= 0 {
			maxPoints = 10_000
		}
		if shape.RowCount > maxPoints && (chart == ChartScatter || chart == ChartTable) {
			conf *= 0.8
		}
	}
	if shape.DataQualityScore > 0.9 {
		conf *= 1.05
	}
	if shape.DataQualityScore < 0.5 {
		conf *= 0.9
	}
	return math.Min(0.99, math.Max(0.1, conf))
}

// configure fills axes, grouping, and chart settings with the fixed
// per-chart rules.
func (r *Recommender) configure(rec *Recommendation, shape *DataShape) {
	mets := shape.PrimaryMetrics
	dims := shape.PrimaryDimensions

	switch rec.ChartType {
	case ChartLine, ChartArea, ChartSparkline:
		rec.XAxis = shape.TimeColumn
		rec.YAxes = capList(mets, 3)
		rec.Title = fmt.Sprintf("%s over time", joinOr(rec.YAxes, "metrics"))
		rec.Settings = map[string]any{"smooth": false, "legend": len(rec.YAxes) > 1}
	case ChartBar, ChartStackedBar:
		if len(dims) > 0 {
			rec.XAxis = dims[0]
		}
		rec.YAxes = capList(mets, 3)
		if rec.ChartType == ChartStackedBar && len(dims) > 1 {
			rec.GroupBy = dims[1]
		}
		rec.Title = fmt.Sprintf("%s by %s", joinOr(rec.YAxes, "count"), orDefault(rec.XAxis, "category"))
	case ChartScatter:
		a, b, rho := strongestCorrelation(shape)
		rec.XAxis = a
		rec.YAxes = []string{b}
		rec.Title = fmt.Sprintf("%s vs %s", a, b)
		rec.Settings = map[string]any{"correlation": rho}
	case ChartHeatmap:
		rec.YAxes = capList(mets, 5)
		rec.Title = "Correlation matrix"
		rec.Settings = map[string]any{"matrix": true}
	case ChartHistogram, ChartViolin:
		if len(mets) > 0 {
			rec.XAxis = mets[0]
		}
		if rec.ChartType == ChartViolin && len(dims) > 0 {
			rec.GroupBy = dims[0]
		}
		rec.Title = fmt.Sprintf("Distribution of %s", orDefault(rec.XAxis, "values"))
		rec.Settings = map[string]any{"bins": 20}
	case ChartPie:
		if len(dims) > 0 {
			rec.GroupBy = dims[0]
		}
		rec.YAxes = capList(mets, 1)
		rec.Title = fmt.Sprintf("Share by %s", orDefault(rec.GroupBy, "category"))
		rec.Settings = map[string]any{"max_slices": 8, "other_bucket": true}
	case ChartBillboard, ChartGauge:
		rec.YAxes = capList(mets, 1)
		rec.Title = joinOr(rec.YAxes, "value")
		rec.Settings = map[string]any{"latest": true}
	case ChartTable:
		cols := append(capList(dims, 3), capList(mets, 5)...)
		rec.YAxes = cols
		rec.Title = "Detail table"
		rec.Settings = map[string]any{"page_size": 25}
	case ChartFunnel:
		if len(dims) > 0 {
			rec.GroupBy = dims[0]
		}
		rec.Title = fmt.Sprintf("Funnel by %s", orDefault(rec.GroupBy, "step"))
	}
}

// fallback is emitted when no rule fires: a table plus a billboard.
func (r *Recommender) fallback(shape *DataShape) []Recommendation {
	table := Recommendation{
		ChartType:  ChartTable,
		Confidence: 0.5,
		Goal:       GoalRanking,
		Reason:     "fallback",
	}
	r.configure(&table, shape)
	billboard := Recommendation{
		ChartType:  ChartBillboard,
		Confidence: 0.4,
		Goal:       GoalComparison,
		Reason:     "fallback",
	}
	r.configure(&billboard, shape)
	return []Recommendation{table, billboard}
}

func hasContinuous(s *DataShape) bool {
	for _, ch := range s.Columns {
		if ch.DType == "numeric_continuous" {
			return true
		}
	}
	return false
}

func dimensionCardinality(s *DataShape) int {
	if len(s.PrimaryDimensions) == 0 {
		return 0
	}
	if ch, ok := s.Column(s.PrimaryDimensions[0]); ok {
		return ch.Cardinality
	}
	return 0
}

func strongestCorrelation(s *DataShape) (string, string, float64) {
	bestA, bestB, best := "", "", 0.0
	for _, ch := range s.Columns {
		others := make([]string, 0, len(ch.Correlations))
		for other := range ch.Correlations {
			others = append(others, other)
		}
		sort.Strings(others)
		for _, other := range others {
			if r := ch.Correlations[other]; math.Abs(r) > math.Abs(best) {
				bestA, bestB, best = ch.Name, other, r
			}
		}
	}
	return bestA, bestB, best
}

func hasStrongCorrelation(s *DataShape) bool {
	for _, ch := range s.Columns {
		for _, r := range ch.Correlations {
			if math.Abs(r) > 0.7 {
				return true
			}
		}
	}
	return false
}

func correlatedColumnCount(s *DataShape) int {
	n := 0
	for _, ch := range s.Columns {
		if len(ch.Correlations) > 0 {
			n++
		}
	}
	return n
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func joinOr(list []string, def string) string {
	if len(list) == 0 {
		return def
	}
	out := list[0]
	for _, s := range list[1:] {
		out += ", " + s
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
