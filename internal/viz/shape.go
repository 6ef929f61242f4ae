// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package viz

import (
	"math"
	"strings"
	"time"

	"github.com/insightd/insightd/internal/frame"
	"github.com/insightd/insightd/internal/numeric"
)

// NumericStats summarizes a numeric column.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	CV     float64 `json:"cv"`
}

// TemporalRange is the observed span of a temporal column.
type TemporalRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CategoryCount is one categorical value with its frequency.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnCharacteristics describes one column for chart selection.
type ColumnCharacteristics struct {
	Name             string             `json:"name"`
	DType            frame.DType        `json:"dtype"`
	Cardinality      int                `json:"cardinality"`
	NullFraction     float64            `json:"null_fraction"`
	UniqueFraction   float64            `json:"unique_fraction"`
	Stats            *NumericStats      `json:"stats,omitempty"`
	DistributionType string             `json:"distribution_type,omitempty"`
	TemporalRange    *TemporalRange     `json:"temporal_range,omitempty"`
	TopCategories    []CategoryCount    `json:"top_categories,omitempty"`
	Correlations     map[string]float64 `json:"correlations,omitempty"`
}

// DataShape summarizes a frame for the chart recommender.
type DataShape struct {
	RowCount          int                     `json:"row_count"`
	ColumnCount       int                     `json:"column_count"`
	Columns           []ColumnCharacteristics `json:"column_characteristics"`
	HasTimeSeries     bool                    `json:"has_time_series"`
	TimeColumn        string                  `json:"time_column,omitempty"`
	PrimaryMetrics    []string                `json:"primary_metrics"`
	PrimaryDimensions []string                `json:"primary_dimensions"`
	DataQualityScore  float64                 `json:"data_quality_score"`
}

// Column returns the characteristics for a named column.
func (s *DataShape) Column(name string) (ColumnCharacteristics, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnCharacteristics{}, false
}

// ShapeAnalyzerConfig tunes shape analysis.
type ShapeAnalyzerConfig struct {
	// SampleSize caps the rows inspected per column.
	SampleSize int `json:"sample_size"`

	// CorrelationThreshold gates the per-column correlations map.
	CorrelationThreshold float64 `json:"correlation_threshold"`
}

// DefaultShapeAnalyzerConfig returns the documented defaults.
func DefaultShapeAnalyzerConfig() ShapeAnalyzerConfig {
	return ShapeAnalyzerConfig{SampleSize: 10_000, CorrelationThreshold: 0.5}
}

// metricKeywords mark column names likely to carry measurements.
var metricKeywords = []string{
	"count", "sum", "total", "amount", "value", "score", "rate", "ratio",
	"percentage", "duration", "latency", "cpu", "memory", "disk", "network",
}

// dimensionKeywords mark column names likely usable for grouping.
var dimensionKeywords = []string{
	"name", "type", "category", "status", "region", "host", "service",
	"environment", "group", "kind", "app", "team",
}

// ShapeAnalyzer derives a DataShape from a frame.
type ShapeAnalyzer struct {
	cfg ShapeAnalyzerConfig
}

// NewShapeAnalyzer builds an analyzer.
func NewShapeAnalyzer(cfg ShapeAnalyzerConfig) *ShapeAnalyzer {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 10_000
	}
	if cfg.CorrelationThreshold <= 0 {
		cfg.CorrelationThreshold = 0.5
	}
	return &ShapeAnalyzer{cfg: cfg}
}

// Analyze summarizes the frame.
func (a *ShapeAnalyzer) Analyze(f *frame.Frame) (*DataShape, error) {
	if f == nil || f.Rows() == 0 {
		return nil, frame.ErrEmptyFrame
	}

	shape := &DataShape{
		RowCount:    f.Rows(),
		ColumnCount: f.NumColumns(),
	}

	for _, c := range f.Columns() {
		shape.Columns = append(shape.Columns, a.characterize(c))
	}

	a.fillCorrelations(shape, f)

	if name, ok := f.TimeColumn(); ok {
		shape.HasTimeSeries = true
		shape.TimeColumn = name
	} else {
		for _, c := range f.Columns() {
			if c.DType() == frame.DTypeTemporal {
				shape.HasTimeSeries = true
				shape.TimeColumn = c.Name()
				break
			}
		}
	}

	shape.PrimaryMetrics = a.primaryMetrics(shape)
	shape.PrimaryDimensions = a.primaryDimensions(shape)
	shape.DataQualityScore = a.qualityScore(f)
	return shape, nil
}

func (a *ShapeAnalyzer) characterize(c *frame.Column) ColumnCharacteristics {
	ch := ColumnCharacteristics{
		Name:         c.Name(),
		DType:        c.DType(),
		Cardinality:  c.UniqueCount(),
		NullFraction: c.NullFraction(),
	}
	if c.Len() > 0 {
		ch.UniqueFraction = float64(c.UniqueCount()) / float64(c.Len())
	}

	switch {
	case c.DType().IsNumeric():
		x := a.sample(dropNaN(c.Floats()))
		if len(x) > 0 {
			mean := numeric.Mean(x)
			sd := numeric.StdDev(x)
			min, max := numeric.MinMax(x)
			ch.Stats = &NumericStats{
				Min:    min,
				Max:    max,
				Mean:   mean,
				StdDev: sd,
				CV:     numeric.CoefficientOfVariation(x),
			}
			ch.DistributionType = distributionLabel(x)
		}
	case c.DType() == frame.DTypeTemporal:
		times := c.Times()
		var start, end time.Time
		for _, t := range times {
			if t.IsZero() {
				continue
			}
			if start.IsZero() || t.Before(start) {
				start = t
			}
			if end.IsZero() || t.After(end) {
				end = t
			}
		}
		if !start.IsZero() {
			ch.TemporalRange = &TemporalRange{Start: start, End: end}
		}
	case c.DType().IsCategorical() || c.DType() == frame.DTypeBoolean:
		for i, vc := range c.ValueCounts() {
			if i >= 10 {
				break
			}
			ch.TopCategories = append(ch.TopCategories, CategoryCount{Value: vc.Value, Count: vc.Count})
		}
	}
	return ch
}

// distributionLabel classifies a numeric sample by skewness, excess
// kurtosis, and coefficient of variation.
func distributionLabel(x []float64) string {
	if len(x) < 8 {
		return "unknown"
	}
	skew := numeric.Skewness(x)
	kurt := numeric.ExcessKurtosis(x)
	cv := math.Abs(numeric.CoefficientOfVariation(x))
	switch {
	case math.Abs(skew) < 0.5 && math.Abs(kurt) < 1:
		return "normal"
	case skew > 1:
		return "right_skewed"
	case skew < -1:
		return "left_skewed"
	case math.Abs(kurt) > 3:
		return "bimodal"
	case cv < 0.1:
		return "uniform"
	default:
		return "unknown"
	}
}

// fillCorrelations computes pairwise Pearson correlations over the
// rows where both columns are present, so nulls in one column never
// shift it against the other.
func (a *ShapeAnalyzer) fillCorrelations(shape *DataShape, f *frame.Frame) {
	names := f.NumericColumns()
	raw := make(map[string][]float64, len(names))
	for _, name := range names {
		if c, err := f.Column(name); err == nil {
			raw[name] = c.Floats()
		}
	}

	for i := range shape.Columns {
		ch := &shape.Columns[i]
		if !ch.DType.IsNumeric() {
			continue
		}
		x := raw[ch.Name]
		for _, other := range names {
			if other == ch.Name {
				continue
			}
			xs, ys := pairComplete(x, raw[other], a.cfg.SampleSize)
			if len(xs) < 3 {
				continue
			}
			r := numeric.Pearson(xs, ys)
			if math.Abs(r) > a.cfg.CorrelationThreshold {
				if ch.Correlations == nil {
					ch.Correlations = make(map[string]float64)
				}
				ch.Correlations[other] = r
			}
		}
	}
}

// pairComplete keeps the rows where both values are present, thinning
// with a deterministic stride past the sample limit.
func pairComplete(x, y []float64, limit int) (xs, ys []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	step := 1
	if limit > 0 && n > limit {
		step = n/limit + 1
	}
	for i := 0; i < n; i += step {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// primaryMetrics picks up to five numeric columns that look like
// measurements, by name keyword or by variability.
func (a *ShapeAnalyzer) primaryMetrics(shape *DataShape) []string {
	var out []string
	for _, ch := range shape.Columns {
		if len(out) >= 5 {
			break
		}
		if !ch.DType.IsNumeric() || ch.Stats == nil {
			continue
		}
		if nameMatches(ch.Name, metricKeywords) || math.Abs(ch.Stats.CV) > 0.1 {
			out = append(out, ch.Name)
		}
	}
	return out
}

// primaryDimensions picks up to five categorical columns with workable
// cardinality, by name keyword or balanced category distribution.
func (a *ShapeAnalyzer) primaryDimensions(shape *DataShape) []string {
	var out []string
	for _, ch := range shape.Columns {
		if len(out) >= 5 {
			break
		}
		if !ch.DType.IsCategorical() {
			continue
		}
		if ch.Cardinality < 2 || ch.Cardinality > 50 {
			continue
		}
		if nameMatches(ch.Name, dimensionKeywords) || balancedCategories(ch, shape.RowCount) {
			out = append(out, ch.Name)
		}
	}
	return out
}

// balancedCategories reports whether no single category dominates.
func balancedCategories(ch ColumnCharacteristics, rows int) bool {
	if len(ch.TopCategories) == 0 || rows == 0 {
		return false
	}
	return float64(ch.TopCategories[0].Count)/float64(rows) < 0.8
}

// qualityScore is the mean per-column product of completeness,
// cardinality health, and outlier burden.
func (a *ShapeAnalyzer) qualityScore(f *frame.Frame) float64 {
	cols := f.Columns()
	if len(cols) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range cols {
		score := 1 - c.NullFraction()

		uniqFrac := 0.0
		if c.Len() > 0 {
			uniqFrac = float64(c.UniqueCount()) / float64(c.Len())
		}
		if uniqFrac < 0.1 {
			score *= math.Min(1, uniqFrac*10)
		}

		if c.DType().IsNumeric() {
			x := dropNaN(c.Floats())
			if len(x) > 4 {
				outliers := numeric.IQROutlierIndices(x)
				frac := float64(len(outliers)) / float64(len(x))
				score *= 1 - math.Min(0.5, 5*frac)
			}
		}
		total += score
	}
	return total / float64(len(cols))
}

// sample thins a slice down to the configured sample size with a
// deterministic stride.
func (a *ShapeAnalyzer) sample(x []float64) []float64 {
	if len(x) <= a.cfg.SampleSize {
		return x
	}
	stride := len(x) / a.cfg.SampleSize
	out := make([]float64, 0, a.cfg.SampleSize)
	for i := 0; i < len(x) && len(out) < a.cfg.SampleSize; i += stride {
		out = append(out, x[i])
	}
	return out
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nameMatches(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
