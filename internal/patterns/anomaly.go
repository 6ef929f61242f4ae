// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/insightd/insightd/internal/frame"
	"github.com/insightd/insightd/internal/numeric"
)

// AnomalyDetector finds point, collective (multivariate), and
// contextual anomalies using an ensemble of unsupervised scorers.
type AnomalyDetector struct {
	cfg           DetectorConfig
	contamination float64
	threshold     float64
}

// NewAnomalyDetector returns the detector configured with cfg. The
// sensitivity maps onto contamination and score threshold:
// low → 0.05/0.8, medium → 0.10/0.7, high → 0.15/0.6.
func NewAnomalyDetector(cfg DetectorConfig) *AnomalyDetector {
	d := &AnomalyDetector{cfg: cfg}
	switch cfg.Sensitivity {
	case "low":
		d.contamination, d.threshold = 0.05, 0.8
	case "high":
		d.contamination, d.threshold = 0.15, 0.6
	default:
		d.contamination, d.threshold = 0.10, 0.7
	}
	return d
}

// Name implements Detector.
func (d *AnomalyDetector) Name() string { return "anomaly" }

// Supported implements Detector.
func (d *AnomalyDetector) Supported() []PatternType {
	return []PatternType{
		PatternAnomalyPoint,
		PatternAnomalyCollective,
		PatternAnomalyContextual,
	}
}

// Detect implements Detector.
func (d *AnomalyDetector) Detect(ctx context.Context, f *frame.Frame, columns []string, _ Context) ([]Pattern, error) {
	var out []Pattern

	numericCols := make([]string, 0, len(columns))
	for _, name := range columns {
		c, ok := usableColumn(f, name, d.cfg.MinSamples)
		if ok && c.DType().IsNumeric() {
			numericCols = append(numericCols, name)
		}
	}

	for _, name := range numericCols {
		if ctxExpired(ctx) {
			return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
		}
		c, _ := f.Column(name)
		if p, ok := d.univariatePattern(c); ok {
			out = append(out, p)
		}
		if p, ok := d.contextualPattern(f, c); ok {
			out = append(out, p)
		}
	}

	if len(numericCols) >= 2 && !ctxExpired(ctx) {
		if p, ok := d.multivariatePattern(f, numericCols); ok {
			out = append(out, p)
		}
	}
	return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
}

// univariatePattern runs Isolation Forest, LOF, and KNN independently,
// averages the normalized scores, and flags rows above the
// (1 - contamination) quantile of the combined score. Confidence is the
// mean cross-method agreement over the flagged rows.
func (d *AnomalyDetector) univariatePattern(c *frame.Column) (Pattern, bool) {
	values, indices := c.NonNullFloats()
	rows := columnMatrix(values)

	forest := numeric.NewIsolationForest(d.cfg.Seed)
	methodScores := [][]float64{
		numeric.MinMaxNormalize(forest.Scores(rows)),
		numeric.MinMaxNormalize(numeric.LOFScores(rows, 20)),
		numeric.MinMaxNormalize(numeric.KNNScores(rows, 5)),
	}
	for _, s := range methodScores {
		if len(s) != len(values) {
			return Pattern{}, false
		}
	}

	combined := make([]float64, len(values))
	for i := range combined {
		for _, s := range methodScores {
			combined[i] += s[i]
		}
		combined[i] /= float64(len(methodScores))
	}

	cut := numeric.Quantile(combined, 1-d.contamination)
	flags := make([]bool, len(values))
	var flagged []int
	for i, s := range combined {
		if s >= cut && s >= d.threshold {
			flags[i] = true
			flagged = append(flagged, i)
		}
	}
	if len(flagged) == 0 {
		return Pattern{}, false
	}

	// Per-method flags at each method's own contamination quantile.
	agreement := 0.0
	methodCuts := make([]float64, len(methodScores))
	for m, s := range methodScores {
		methodCuts[m] = numeric.Quantile(s, 1-d.contamination)
	}
	for _, i := range flagged {
		votes := 0
		for m, s := range methodScores {
			if s[i] >= methodCuts[m] {
				votes++
			}
		}
		agreement += float64(votes) / float64(len(methodScores))
	}
	agreement /= float64(len(flagged))

	points := make([]DataPoint, 0, len(flagged))
	anomalyIndices := make([]int, 0, len(flagged))
	for _, i := range flagged {
		points = append(points, DataPoint{Index: indices[i], Value: values[i]})
		anomalyIndices = append(anomalyIndices, indices[i])
	}

	return Pattern{
		Type:       PatternAnomalyPoint,
		Confidence: agreement,
		Impact:     ImpactHigh,
		Columns:    []string{c.Name()},
		Parameters: map[string]any{
			"anomaly_indices": anomalyIndices,
			"anomaly_count":   len(flagged),
			"contamination":   d.contamination,
			"methods":         []string{"isolation_forest", "lof", "knn"},
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%d rows of %q score as anomalous across the ensemble", len(flagged), c.Name()),
			StatisticalTests: map[string]float64{
				"score_cutoff":     cut,
				"method_agreement": agreement,
			},
			DataPoints: points,
		}},
		Recommendations: []string{
			fmt.Sprintf("investigate the flagged rows of %q; alert if they recur", c.Name()),
		},
		VisualHints: map[string]any{"chart": "line", "highlight": "anomalies"},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// multivariatePattern standardizes the numeric matrix, scores it with a
// single Isolation Forest, and reports the features that separate the
// anomalous rows from the rest.
func (d *AnomalyDetector) multivariatePattern(f *frame.Frame, columns []string) (Pattern, bool) {
	rows, rowIdx := completeRows(f, columns)
	if len(rows) < d.cfg.MinSamples {
		return Pattern{}, false
	}
	std := numeric.Standardize(rows)

	forest := numeric.NewIsolationForest(d.cfg.Seed)
	scores := forest.Scores(std)
	if scores == nil {
		return Pattern{}, false
	}
	cut := numeric.Quantile(scores, 1-d.contamination)

	var anomalous, normal []int
	for i, s := range scores {
		if s >= cut {
			anomalous = append(anomalous, i)
		} else {
			normal = append(normal, i)
		}
	}
	if len(anomalous) == 0 || len(normal) == 0 {
		return Pattern{}, false
	}

	// Per-feature deviation between anomalous and normal populations.
	type contribution struct {
		column    string
		deviation float64
	}
	contribs := make([]contribution, 0, len(columns))
	col := make([]float64, 0, len(rows))
	for ci, name := range columns {
		col = col[:0]
		for _, ri := range normal {
			col = append(col, rows[ri][ci])
		}
		meanNormal := numeric.Mean(col)
		stdNormal := numeric.StdDev(col)

		col = col[:0]
		for _, ri := range anomalous {
			col = append(col, rows[ri][ci])
		}
		meanAnom := numeric.Mean(col)

		dev := math.Abs(meanAnom - meanNormal)
		if stdNormal > 0 {
			dev /= stdNormal
		}
		contribs = append(contribs, contribution{column: name, deviation: dev})
	}
	sort.SliceStable(contribs, func(a, b int) bool { return contribs[a].deviation > contribs[b].deviation })
	if len(contribs) > 3 {
		contribs = contribs[:3]
	}

	top := make([]map[string]any, 0, len(contribs))
	for _, c := range contribs {
		top = append(top, map[string]any{"column": c.column, "deviation": c.deviation})
	}
	anomalyIndices := make([]int, 0, len(anomalous))
	for _, i := range anomalous {
		anomalyIndices = append(anomalyIndices, rowIdx[i])
	}

	meanScore := 0.0
	for _, i := range anomalous {
		meanScore += scores[i]
	}
	meanScore /= float64(len(anomalous))

	return Pattern{
		Type:       PatternAnomalyCollective,
		Confidence: math.Min(0.95, meanScore+0.2),
		Impact:     ImpactHigh,
		Columns:    append([]string(nil), columns...),
		Parameters: map[string]any{
			"anomaly_indices":       anomalyIndices,
			"contributing_features": top,
			"contamination":         d.contamination,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%d rows are jointly anomalous across %d numeric columns", len(anomalous), len(columns)),
			StatisticalTests: map[string]float64{
				"score_cutoff":       cut,
				"mean_anomaly_score": meanScore,
			},
		}},
		Recommendations: []string{
			"inspect the top contributing features together; the anomaly is multivariate",
		},
		VisualHints: map[string]any{"chart": "scatter"},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// contextualPattern groups values by hour of day and flags rows whose
// in-group z-score exceeds 3.
func (d *AnomalyDetector) contextualPattern(f *frame.Frame, c *frame.Column) (Pattern, bool) {
	timeName, ok := f.TimeColumn()
	if !ok {
		return Pattern{}, false
	}
	tc, err := f.Column(timeName)
	if err != nil {
		return Pattern{}, false
	}
	times := tc.Times()
	floats := c.Floats()

	groups := make(map[int][]int) // hour → row indices
	for i := range floats {
		if c.IsNull(i) || tc.IsNull(i) {
			continue
		}
		h := times[i].Hour()
		groups[h] = append(groups[h], i)
	}

	var points []DataPoint
	var anomalyIndices []int
	hours := make([]int, 0, len(groups))
	for h := range groups {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		rows := groups[h]
		if len(rows) < 3 {
			continue
		}
		vals := make([]float64, len(rows))
		for i, r := range rows {
			vals[i] = floats[r]
		}
		z := numeric.ZScores(vals)
		for i, r := range rows {
			if math.Abs(z[i]) > 3 {
				points = append(points, DataPoint{Index: r, Value: floats[r]})
				anomalyIndices = append(anomalyIndices, r)
			}
		}
	}
	if len(points) == 0 {
		return Pattern{}, false
	}
	sort.Ints(anomalyIndices)
	sort.Slice(points, func(a, b int) bool { return points[a].Index < points[b].Index })

	return Pattern{
		Type:       PatternAnomalyContextual,
		Confidence: 0.85,
		Impact:     ImpactMedium,
		Columns:    []string{c.Name()},
		Parameters: map[string]any{
			"anomaly_indices": anomalyIndices,
			"grouping":        "hour_of_day",
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%d values of %q are extreme for their hour of day", len(points), c.Name()),
			DataPoints:  points,
		}},
		Recommendations: []string{
			fmt.Sprintf("alerting on %q should be seasonal-aware; fixed thresholds will misfire", c.Name()),
		},
		DetectedAt: time.Now().UTC(),
	}, true
}

// columnMatrix lifts a single column into the row-major matrix shape
// the scorers share.
func columnMatrix(values []float64) [][]float64 {
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v}
	}
	return rows
}

// completeRows extracts the rows where every requested column is
// non-null, returning the matrix and the original row indices.
func completeRows(f *frame.Frame, columns []string) ([][]float64, []int) {
	cols := make([][]float64, len(columns))
	nulls := make([]func(int) bool, len(columns))
	for i, name := range columns {
		c, err := f.Column(name)
		if err != nil {
			return nil, nil
		}
		cols[i] = c.Floats()
		nulls[i] = c.IsNull
	}
	var rows [][]float64
	var idx []int
	for r := 0; r < f.Rows(); r++ {
		ok := true
		for ci := range cols {
			if nulls[ci](r) || math.IsNaN(cols[ci][r]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		row := make([]float64, len(cols))
		for ci := range cols {
			row[ci] = cols[ci][r]
		}
		rows = append(rows, row)
		idx = append(idx, r)
	}
	return rows, idx
}
