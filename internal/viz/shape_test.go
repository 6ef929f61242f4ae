// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package viz

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/insightd/insightd/internal/frame"
)

func vizFrame(t *testing.T, data map[string][]any) *frame.Frame {
	t.Helper()
	f, err := frame.FromColumns(data)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return f
}

func serviceColumn(n int) []any {
	names := []string{"web", "api", "worker"}
	out := make([]any, n)
	for i := range out {
		out[i] = names[i%len(names)]
	}
	return out
}

func TestShapeAnalyzeTimeSeriesFrame(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 120
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]any, n)
	latency := make([]any, n)
	cpu := make([]any, n)
	scaled := make([]any, n)
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Minute)
		latency[i] = 100 + 40*rng.Float64()
		v := 20 + 10*rng.NormFloat64()
		cpu[i] = v
		scaled[i] = 2 * v
	}

	f := vizFrame(t, map[string][]any{
		"ts":       ts,
		"latency":  latency,
		"cpu":      cpu,
		"cpu_peak": scaled,
		"service":  serviceColumn(n),
	})

	a := NewShapeAnalyzer(DefaultShapeAnalyzerConfig())
	shape, err := a.Analyze(f)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if shape.RowCount != n || shape.ColumnCount != 5 {
		t.Errorf("shape = %dx%d, want %dx5", shape.RowCount, shape.ColumnCount, n)
	}
	if !shape.HasTimeSeries || shape.TimeColumn != "ts" {
		t.Errorf("time column = %q (has=%t), want ts", shape.TimeColumn, shape.HasTimeSeries)
	}

	ch, ok := shape.Column("latency")
	if !ok || ch.Stats == nil {
		t.Fatalf("latency characteristics missing: %+v", ch)
	}
	if ch.Stats.Min < 100 || ch.Stats.Max > 140 {
		t.Errorf("latency stats = %+v, want min/max inside [100, 140]", ch.Stats)
	}

	// cpu and cpu_peak are perfectly correlated.
	cpuCh, _ := shape.Column("cpu")
	if r, ok := cpuCh.Correlations["cpu_peak"]; !ok || r < 0.99 {
		t.Errorf("cpu correlations = %v, want cpu_peak near 1", cpuCh.Correlations)
	}

	if !inStrings(shape.PrimaryMetrics, "latency") || !inStrings(shape.PrimaryMetrics, "cpu") {
		t.Errorf("PrimaryMetrics = %v, want latency and cpu", shape.PrimaryMetrics)
	}
	if !inStrings(shape.PrimaryDimensions, "service") {
		t.Errorf("PrimaryDimensions = %v, want service", shape.PrimaryDimensions)
	}
	if shape.DataQualityScore < 0.7 {
		t.Errorf("DataQualityScore = %g, want high for clean data", shape.DataQualityScore)
	}

	svc, _ := shape.Column("service")
	if len(svc.TopCategories) != 3 {
		t.Errorf("service top categories = %v, want 3", svc.TopCategories)
	}
}

func TestShapeAnalyzeEmptyFrame(t *testing.T) {
	a := NewShapeAnalyzer(DefaultShapeAnalyzerConfig())
	if _, err := a.Analyze(nil); err == nil {
		t.Error("expected an error for a nil frame")
	}
}

func TestShapeQualityPenalizesNulls(t *testing.T) {
	n := 100
	clean := make([]any, n)
	holey := make([]any, n)
	for i := 0; i < n; i++ {
		clean[i] = float64(i)
		if i%2 == 0 {
			holey[i] = nil
		} else {
			holey[i] = float64(i)
		}
	}

	a := NewShapeAnalyzer(DefaultShapeAnalyzerConfig())
	good, err := a.Analyze(vizFrame(t, map[string][]any{"v": clean}))
	if err != nil {
		t.Fatalf("Analyze clean: %v", err)
	}
	bad, err := a.Analyze(vizFrame(t, map[string][]any{"v": holey}))
	if err != nil {
		t.Fatalf("Analyze holey: %v", err)
	}
	if bad.DataQualityScore >= good.DataQualityScore {
		t.Errorf("quality with nulls %g not below clean %g",
			bad.DataQualityScore, good.DataQualityScore)
	}
}

func TestDistributionLabel(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	normal := make([]float64, 500)
	skewed := make([]float64, 500)
	for i := range normal {
		normal[i] = rng.NormFloat64()
		skewed[i] = math.Exp(rng.NormFloat64())
	}

	if got := distributionLabel(normal); got != "normal" {
		t.Errorf("distributionLabel(normal sample) = %q", got)
	}
	if got := distributionLabel(skewed); got != "right_skewed" {
		t.Errorf("distributionLabel(lognormal sample) = %q", got)
	}
	if got := distributionLabel([]float64{1, 2, 3}); got != "unknown" {
		t.Errorf("distributionLabel(tiny sample) = %q, want unknown", got)
	}
}

func inStrings(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func TestShapeCorrelationsPairwiseComplete(t *testing.T) {
	n := 120
	a := make([]any, n)
	b := make([]any, n)
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * float64(i) / 24)
		a[i] = v
		b[i] = 2 * v
	}
	// Nulls at different rows shift the non-null sequences against
	// each other unless rows are matched pairwise.
	for i := 3; i < n; i += 7 {
		a[i] = nil
	}
	for i := 5; i < n; i += 11 {
		b[i] = nil
	}

	f := vizFrame(t, map[string][]any{"a": a, "b": b})
	an := NewShapeAnalyzer(DefaultShapeAnalyzerConfig())
	shape, err := an.Analyze(f)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var corr map[string]float64
	for _, ch := range shape.Columns {
		if ch.Name == "a" {
			corr = ch.Correlations
		}
	}
	r, ok := corr["b"]
	if !ok {
		t.Fatalf("column a has no correlation with b: %v", corr)
	}
	if r < 0.999 {
		t.Errorf("correlation = %g, want 1 on the shared rows", r)
	}
}
