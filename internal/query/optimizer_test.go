// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"strings"
	"testing"
)

func costIntent() Intent {
	return Intent{
		QueryType:  QuerySelect,
		Entities:   []Entity{{Name: "duration", Kind: KindMetric, Aggregation: AggAverage}},
		EventTypes: []string{"Transaction"},
		TimeRange:  TimeRange{Type: TimeLastMonth},
	}
}

func TestOptimizeCostModeReducesWindowAndSamples(t *testing.T) {
	o := NewOptimizer(OptimizerConfig{Mode: ModeCost, DefaultRecordsPerHour: 100_000})
	q := "SELECT average(duration) FROM Transaction SINCE 1 month ago TIMESERIES"

	opt := o.Optimize(q, costIntent(), nil)

	if !strings.Contains(opt.Optimized, "SINCE 1 week ago") {
		t.Errorf("optimized = %q, want the window stepped down to a week", opt.Optimized)
	}
	if !strings.Contains(opt.Optimized, "SAMPLE(") {
		t.Errorf("optimized = %q, want sampling added at this volume", opt.Optimized)
	}
	if !hasApplied(opt, "reduce_time_range") || !hasApplied(opt, "add_sampling") {
		t.Errorf("applied = %v, want reduce_time_range and add_sampling", opt.Applied)
	}
	if opt.OriginalCost == nil || opt.OptimizedCost == nil {
		t.Fatal("expected both cost estimates")
	}
	if opt.OptimizedCost.EstimatedDollars >= opt.OriginalCost.EstimatedDollars {
		t.Errorf("optimized cost %g not below original %g",
			opt.OptimizedCost.EstimatedDollars, opt.OriginalCost.EstimatedDollars)
	}
	if opt.OptimizedCost.ScannedRecords >= opt.OriginalCost.ScannedRecords {
		t.Errorf("optimized scan %g not below original %g",
			opt.OptimizedCost.ScannedRecords, opt.OriginalCost.ScannedRecords)
	}
}

func TestOptimizePicksTimeseriesBucket(t *testing.T) {
	o := NewOptimizer(DefaultOptimizerConfig())
	intent := costIntent()
	intent.TimeRange = TimeRange{Type: TimeLastDay}
	q := "SELECT average(duration) FROM Transaction SINCE 1 day ago TIMESERIES"

	opt := o.Optimize(q, intent, nil)
	if !strings.Contains(opt.Optimized, "TIMESERIES 5 minutes") {
		t.Errorf("optimized = %q, want a 5 minute bucket for a day window", opt.Optimized)
	}
}

func TestOptimizeFacetGetsLimit(t *testing.T) {
	o := NewOptimizer(DefaultOptimizerConfig())
	intent := costIntent()
	intent.QueryType = QueryFacet
	intent.TimeRange = TimeRange{Type: TimeLastHour}
	q := "SELECT average(duration) FROM Transaction SINCE 1 hour ago FACET host"

	opt := o.Optimize(q, intent, nil)
	if !strings.Contains(opt.Optimized, "LIMIT 100") {
		t.Errorf("optimized = %q, want LIMIT 100 on an unbounded facet", opt.Optimized)
	}
	if !hasApplied(opt, "limit_facet_cardinality") {
		t.Errorf("applied = %v, want limit_facet_cardinality", opt.Applied)
	}
}

func TestOptimizeNeverSamplesPercentiles(t *testing.T) {
	o := NewOptimizer(OptimizerConfig{Mode: ModeCost, DefaultRecordsPerHour: 1_000_000})
	intent := costIntent()
	intent.QueryType = QueryPercentile
	q := "SELECT percentile(duration, 95) AS 'p95' FROM Transaction SINCE 1 month ago"

	opt := o.Optimize(q, intent, nil)
	if strings.Contains(opt.Optimized, "SAMPLE(") {
		t.Errorf("optimized = %q, percentile queries must not be sampled", opt.Optimized)
	}
}

func TestOptimizeReordersAndDeduplicatesWhere(t *testing.T) {
	o := NewOptimizer(DefaultOptimizerConfig())
	intent := costIntent()
	intent.TimeRange = TimeRange{Type: TimeLastHour}
	q := "SELECT count(*) FROM Transaction WHERE duration > 1 AND appName = 'shop' AND duration > 1 SINCE 1 hour ago LIMIT 10"

	opt := o.Optimize(q, intent, nil)
	want := "WHERE appName = 'shop' AND duration > 1 SINCE"
	if !strings.Contains(opt.Optimized, want) {
		t.Errorf("optimized = %q, want selective predicate first and duplicate dropped", opt.Optimized)
	}
}

func TestOptimizeValidationFallback(t *testing.T) {
	o := NewOptimizer(DefaultOptimizerConfig())
	intent := costIntent()
	intent.EventTypes = []string{"PageView"}
	q := "SELECT count(*) FROM Transaction SINCE 1 hour ago LIMIT 10"

	opt := o.Optimize(q, intent, nil)
	if opt.Optimized != q {
		t.Errorf("optimized = %q, want the original back on validation failure", opt.Optimized)
	}
	if len(opt.Applied) != 1 || opt.Applied[0] != "validation_failed" {
		t.Errorf("applied = %v, want [validation_failed]", opt.Applied)
	}
}

func TestOptimizeAggressiveApproximations(t *testing.T) {
	o := NewOptimizer(OptimizerConfig{Mode: ModeBalanced, Aggressive: true, DefaultRecordsPerHour: 1000})
	intent := costIntent()
	intent.TimeRange = TimeRange{Type: TimeLastHour}
	q := "SELECT uniqueCount(userId) FROM Transaction SINCE 1 hour ago LIMIT 10"

	opt := o.Optimize(q, intent, nil)
	if !strings.Contains(opt.Optimized, "approximateUniqueCount(") {
		t.Errorf("optimized = %q, want approximate unique count", opt.Optimized)
	}
}

func TestEstimateCostUsesSchemaVolume(t *testing.T) {
	o := NewOptimizer(DefaultOptimizerConfig())
	intent := costIntent()
	intent.TimeRange = TimeRange{Type: TimeLastHour}
	qctx := &Context{Schemas: []Schema{{Name: "Transaction", RecordsPerHour: 10}}}
	q := "SELECT count(*) FROM Transaction SINCE 1 hour ago LIMIT 10"

	small := o.EstimateCost(q, intent, qctx)
	big := o.EstimateCost(q, intent, nil)
	if small.ScannedRecords != 10 {
		t.Errorf("ScannedRecords = %g, want 10 from the schema", small.ScannedRecords)
	}
	if small.EstimatedDollars >= big.EstimatedDollars {
		t.Errorf("schema-priced cost %g not below default %g",
			small.EstimatedDollars, big.EstimatedDollars)
	}
}

func hasApplied(opt Optimization, rule string) bool {
	for _, a := range opt.Applied {
		if a == rule {
			return true
		}
	}
	return false
}
