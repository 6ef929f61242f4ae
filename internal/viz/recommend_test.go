// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package viz

import (
	"testing"

	"github.com/insightd/insightd/internal/frame"
)

func timeseriesShape() *DataShape {
	return &DataShape{
		RowCount:    500,
		ColumnCount: 2,
		Columns: []ColumnCharacteristics{
			{Name: "ts", DType: frame.DTypeTemporal},
			{
				Name: "latency", DType: frame.DTypeNumericContinuous,
				Stats: &NumericStats{Mean: 120, StdDev: 30, CV: 0.25},
			},
		},
		HasTimeSeries:    true,
		TimeColumn:       "ts",
		PrimaryMetrics:   []string{"latency"},
		DataQualityScore: 0.95,
	}
}

func categoricalShape() *DataShape {
	return &DataShape{
		RowCount:    200,
		ColumnCount: 2,
		Columns: []ColumnCharacteristics{
			{Name: "service", DType: frame.DTypeCategoricalNominal, Cardinality: 5},
			{
				Name: "error_count", DType: frame.DTypeNumericContinuous,
				Stats: &NumericStats{Mean: 12, StdDev: 8, CV: 0.66},
			},
		},
		PrimaryMetrics:    []string{"error_count"},
		PrimaryDimensions: []string{"service"},
		DataQualityScore:  0.9,
	}
}

func TestRecommendTimeseriesPicksLine(t *testing.T) {
	r := NewRecommender(DefaultRecommenderConfig())
	recs := r.Recommend(timeseriesShape(), nil)
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	top := recs[0]
	if top.ChartType != ChartLine {
		t.Errorf("top chart = %s, want line", top.ChartType)
	}
	if top.Goal != GoalTrend {
		t.Errorf("top goal = %s, want trend", top.Goal)
	}
	if top.XAxis != "ts" || len(top.YAxes) != 1 || top.YAxes[0] != "latency" {
		t.Errorf("axes = %q / %v, want ts / [latency]", top.XAxis, top.YAxes)
	}
}

func TestRecommendCategoricalPicksBar(t *testing.T) {
	r := NewRecommender(DefaultRecommenderConfig())
	recs := r.Recommend(categoricalShape(), nil)
	found := false
	for _, rec := range recs {
		if rec.ChartType == ChartBar {
			found = true
			if rec.XAxis != "service" {
				t.Errorf("bar x axis = %q, want service", rec.XAxis)
			}
		}
	}
	if !found {
		t.Errorf("recommendations %+v missing a bar chart", recs)
	}
}

func TestRecommendScatterOnCorrelation(t *testing.T) {
	shape := categoricalShape()
	shape.Columns = append(shape.Columns, ColumnCharacteristics{
		Name: "cpu", DType: frame.DTypeNumericContinuous,
		Stats:        &NumericStats{CV: 0.4},
		Correlations: map[string]float64{"error_count": 0.92},
	})
	r := NewRecommender(DefaultRecommenderConfig())
	recs := r.Recommend(shape, nil)
	for _, rec := range recs {
		if rec.ChartType == ChartScatter {
			if rec.XAxis != "cpu" || len(rec.YAxes) != 1 || rec.YAxes[0] != "error_count" {
				t.Errorf("scatter axes = %q / %v", rec.XAxis, rec.YAxes)
			}
			return
		}
	}
	t.Errorf("recommendations %+v missing a scatter chart", recs)
}

func TestRecommendFallback(t *testing.T) {
	shape := &DataShape{
		RowCount:    3,
		ColumnCount: 1,
		Columns:     []ColumnCharacteristics{{Name: "note", DType: frame.DTypeText}},
	}
	r := NewRecommender(DefaultRecommenderConfig())
	recs := r.Recommend(shape, nil)
	if len(recs) != 2 {
		t.Fatalf("got %d fallback recommendations, want 2", len(recs))
	}
	if recs[0].ChartType != ChartTable || recs[1].ChartType != ChartBillboard {
		t.Errorf("fallback = %s, %s; want table then billboard", recs[0].ChartType, recs[1].ChartType)
	}
}

func TestRecommendCapAndOrdering(t *testing.T) {
	shape := timeseriesShape()
	shape.ColumnCount = 6
	shape.PrimaryMetrics = []string{"latency", "throughput"}
	shape.PrimaryDimensions = []string{"service", "region"}
	shape.Columns = append(shape.Columns,
		ColumnCharacteristics{Name: "service", DType: frame.DTypeCategoricalNominal, Cardinality: 4},
		ColumnCharacteristics{Name: "region", DType: frame.DTypeCategoricalNominal, Cardinality: 3},
		ColumnCharacteristics{
			Name: "throughput", DType: frame.DTypeNumericContinuous,
			Stats: &NumericStats{CV: 0.3},
		},
	)

	r := NewRecommender(DefaultRecommenderConfig())
	recs := r.Recommend(shape, nil)
	if len(recs) > 5 {
		t.Errorf("got %d recommendations, want at most 5", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Confidence < recs[i].Confidence {
			t.Errorf("confidence order violated at %d: %g < %g",
				i, recs[i-1].Confidence, recs[i].Confidence)
		}
	}
	for _, rec := range recs {
		if rec.Confidence > 0.99 || rec.Confidence < 0.1 {
			t.Errorf("confidence %g outside [0.1, 0.99]", rec.Confidence)
		}
	}
}

func TestRecommendPreferredChartBoost(t *testing.T) {
	r := NewRecommender(DefaultRecommenderConfig())
	shape := categoricalShape()

	conf := func(recs []Recommendation, chart ChartType) float64 {
		for _, rec := range recs {
			if rec.ChartType == chart {
				return rec.Confidence
			}
		}
		return 0
	}
	plain := conf(r.Recommend(shape, nil), ChartBar)
	boosted := conf(r.Recommend(shape, &RecommendContext{PreferredCharts: []ChartType{ChartBar}}), ChartBar)
	if boosted <= plain {
		t.Errorf("preferred bar confidence %g not above plain %g", boosted, plain)
	}
}

func TestRecommendGaugeNeedsThreshold(t *testing.T) {
	r := NewRecommender(DefaultRecommenderConfig())
	shape := timeseriesShape()

	hasGauge := func(recs []Recommendation) bool {
		for _, rec := range recs {
			if rec.ChartType == ChartGauge {
				return true
			}
		}
		return false
	}
	if hasGauge(r.Recommend(shape, nil)) {
		t.Error("gauge recommended without a threshold")
	}
	if !hasGauge(r.Recommend(shape, &RecommendContext{HasThreshold: true})) {
		t.Error("gauge not recommended with a threshold")
	}
}
