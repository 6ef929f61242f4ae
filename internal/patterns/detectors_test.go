// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/insightd/insightd/internal/frame"
)

// hourlyTimes returns n hourly timestamps starting 2026-01-01T00:00Z.
func hourlyTimes(n int) []any {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]any, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func anyFloats(x []float64) []any {
	out := make([]any, len(x))
	for i, v := range x {
		out[i] = v
	}
	return out
}

func testFrame(t *testing.T, data map[string][]any) *frame.Frame {
	t.Helper()
	f, err := frame.FromColumns(data)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return f
}

func hasPattern(ps []Pattern, ptype PatternType) bool {
	for _, p := range ps {
		if p.Type == ptype {
			return true
		}
	}
	return false
}

func patternsOfType(ps []Pattern, ptype PatternType) []Pattern {
	var out []Pattern
	for _, p := range ps {
		if p.Type == ptype {
			out = append(out, p)
		}
	}
	return out
}

func TestStatisticalDetectorSkewed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	values := make([]float64, 200)
	for i := range values {
		values[i] = math.Exp(rng.NormFloat64())
	}
	f := testFrame(t, map[string][]any{"latency": anyFloats(values)})

	d := NewStatisticalDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"latency"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	skews := patternsOfType(ps, PatternSkewedDistribution)
	if len(skews) == 0 {
		t.Fatal("expected a skewed_distribution pattern for lognormal data")
	}
	if dir := skews[0].Parameters["direction"]; dir != "right" {
		t.Errorf("direction = %v, want right", dir)
	}
}

func TestStatisticalDetectorOutliers(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 50 + float64(i%7)
	}
	for i, spike := range []float64{5000, 5200, 4800, 5100} {
		values[40+i] = spike
	}
	f := testFrame(t, map[string][]any{"duration": anyFloats(values)})

	d := NewStatisticalDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"duration"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	outs := patternsOfType(ps, PatternOutlier)
	if len(outs) == 0 {
		t.Fatal("expected an outlier pattern")
	}
	if got := outs[0].Parameters["outlier_count"]; got != 4 {
		t.Errorf("outlier_count = %v, want 4", got)
	}
}

func TestStatisticalDetectorMissingData(t *testing.T) {
	values := make([]any, 100)
	for i := range values {
		if i%3 == 0 {
			values[i] = nil
		} else {
			values[i] = float64(i)
		}
	}
	f := testFrame(t, map[string][]any{"metric": values})

	d := NewStatisticalDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"metric"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	missing := patternsOfType(ps, PatternMissingData)
	if len(missing) == 0 {
		t.Fatal("expected a missing_data pattern")
	}
	frac, _ := missing[0].Parameters["missing_fraction"].(float64)
	if frac < 0.3 || frac > 0.4 {
		t.Errorf("missing_fraction = %g, want ~1/3", frac)
	}
}

func TestTimeSeriesDetectorTrend(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 120
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 2*float64(i) + rng.NormFloat64()
	}
	f := testFrame(t, map[string][]any{
		"ts":  hourlyTimes(n),
		"cpu": anyFloats(values),
	})

	d := NewTimeSeriesDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"cpu"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	trends := patternsOfType(ps, PatternTrendLinear)
	if len(trends) == 0 {
		t.Fatal("expected a trend_linear pattern")
	}
	p := trends[0]
	if dir := p.Parameters["direction"]; dir != "increasing" {
		t.Errorf("direction = %v, want increasing", dir)
	}
	slope, _ := p.Parameters["slope"].(float64)
	if slope < 1.5 || slope > 2.5 {
		t.Errorf("slope = %g, want ~2", slope)
	}
}

// A week of hourly data with a daily cycle and an injected spike burst:
// the time series detector reports the daily seasonality and the
// anomaly detector flags the spike rows.
func TestWeeklySeriesWithSpikes(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 168
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 30*math.Sin(2*math.Pi*float64(i)/24) + rng.NormFloat64()
	}
	for i := 72; i <= 74; i++ {
		values[i] += 150
	}
	f := testFrame(t, map[string][]any{
		"ts":           hourlyTimes(n),
		"request_rate": anyFloats(values),
	})

	ts := NewTimeSeriesDetector(DefaultDetectorConfig())
	tsPatterns, err := ts.Detect(context.Background(), f, []string{"request_rate"}, nil)
	if err != nil {
		t.Fatalf("timeseries Detect: %v", err)
	}
	seasonal := patternsOfType(tsPatterns, PatternSeasonal)
	if len(seasonal) == 0 {
		t.Fatal("expected a seasonal pattern")
	}
	foundDaily := false
	for _, p := range seasonal {
		if p.Parameters["period"] == 24 {
			foundDaily = true
		}
	}
	if !foundDaily {
		t.Error("expected a seasonal pattern with period 24")
	}

	an := NewAnomalyDetector(DefaultDetectorConfig())
	anPatterns, err := an.Detect(context.Background(), f, []string{"request_rate"}, nil)
	if err != nil {
		t.Fatalf("anomaly Detect: %v", err)
	}
	points := patternsOfType(anPatterns, PatternAnomalyPoint)
	if len(points) == 0 {
		t.Fatal("expected an anomaly_point pattern")
	}
	indices, _ := points[0].Parameters["anomaly_indices"].([]int)
	flagged := make(map[int]bool, len(indices))
	for _, i := range indices {
		flagged[i] = true
	}
	for i := 72; i <= 74; i++ {
		if !flagged[i] {
			t.Errorf("expected spike row %d to be flagged, got %v", i, indices)
		}
	}
}

func TestCorrelationDetectorPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n := 100
	x := make([]float64, n)
	yLin := make([]float64, n)
	yRand := make([]float64, n)
	for i := range x {
		x[i] = float64(i) + rng.NormFloat64()
		yLin[i] = 2 * x[i]
		yRand[i] = rng.NormFloat64() * 100
	}
	f := testFrame(t, map[string][]any{
		"x":      anyFloats(x),
		"y_lin":  anyFloats(yLin),
		"y_rand": anyFloats(yRand),
	})

	d := NewCorrelationDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"x", "y_lin", "y_rand"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	linear := patternsOfType(ps, PatternLinearCorrelation)
	if len(linear) != 1 {
		t.Fatalf("got %d linear_correlation patterns, want exactly 1", len(linear))
	}
	cols := linear[0].Columns
	if len(cols) != 2 || !contains(cols, "x") || !contains(cols, "y_lin") {
		t.Errorf("linear correlation columns = %v, want x and y_lin", cols)
	}
	r, _ := linear[0].Parameters["pearson_r"].(float64)
	if r < 0.99 {
		t.Errorf("pearson_r = %g, want > 0.99", r)
	}
}

func TestCorrelationDetectorNeedsTwoColumns(t *testing.T) {
	f := testFrame(t, map[string][]any{"only": anyFloats(make([]float64, 50))})
	d := NewCorrelationDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"only"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(ps) != 0 {
		t.Errorf("got %d patterns from a single column, want 0", len(ps))
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestStatisticalDetectorMultimodal(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	var values []float64
	for _, mean := range []float64{0, 50, 100} {
		for i := 0; i < 60; i++ {
			values = append(values, mean+rng.NormFloat64())
		}
	}
	f := testFrame(t, map[string][]any{"latency": anyFloats(values)})

	d := NewStatisticalDetector(DefaultDetectorConfig())
	ps, err := d.Detect(context.Background(), f, []string{"latency"}, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	multi := patternsOfType(ps, PatternMultimodalDistribution)
	if len(multi) == 0 {
		t.Fatal("expected a multimodal pattern for three well-separated modes")
	}
	p := multi[0]
	if p.Parameters["components"] != 3 {
		t.Errorf("components = %v, want 3", p.Parameters["components"])
	}
	if means, ok := p.Parameters["component_means"].([]float64); !ok || len(means) != 3 {
		t.Errorf("component_means = %v, want three entries", p.Parameters["component_means"])
	}
	if len(patternsOfType(ps, PatternBimodalDistribution)) != 0 {
		t.Error("bimodal pattern should be absent when three components fit better")
	}
}
