// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/insightd/insightd/internal/metrics"
)

// Mode selects the optimizer's trade-off.
type Mode string

// Optimizer modes.
const (
	ModeCost     Mode = "cost"
	ModeSpeed    Mode = "speed"
	ModeBalanced Mode = "balanced"
)

// OptimizerConfig tunes the query optimizer.
type OptimizerConfig struct {
	Mode Mode `json:"mode"`

	// Aggressive enables the rewrites that trade accuracy for cost,
	// such as replacing exact aggregations with approximations.
	Aggressive bool `json:"aggressive"`

	// DefaultRecordsPerHour is the volume assumption when the caller's
	// context has no schema for the queried event type.
	DefaultRecordsPerHour float64 `json:"default_records_per_hour"`
}

// DefaultOptimizerConfig returns balanced, non-aggressive defaults.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Mode:                  ModeBalanced,
		DefaultRecordsPerHour: 100_000,
	}
}

// Optimization is the outcome of an optimizer pass.
type Optimization struct {
	Original      string        `json:"original"`
	Optimized     string        `json:"optimized"`
	Applied       []string      `json:"applied,omitempty"`
	OriginalCost  *CostEstimate `json:"original_cost,omitempty"`
	OptimizedCost *CostEstimate `json:"optimized_cost,omitempty"`
}

// Optimizer rewrites generated queries to cut scan volume and cost.
// Rewrites are string-level and conservative: a rewrite that drops the
// SELECT, the FROM, or an event type is discarded wholesale.
type Optimizer struct {
	cfg OptimizerConfig
}

// NewOptimizer builds an optimizer.
func NewOptimizer(cfg OptimizerConfig) *Optimizer {
	if cfg.Mode == "" {
		cfg.Mode = ModeBalanced
	}
	if cfg.DefaultRecordsPerHour <= 0 {
		cfg.DefaultRecordsPerHour = 100_000
	}
	return &Optimizer{cfg: cfg}
}

// clauseKeywords mark the boundaries between dialect clauses.
var clauseKeywords = []string{"WHERE", "SINCE", "UNTIL", "FACET", "TIMESERIES", "ORDER", "LIMIT", "COMPARE"}

var (
	reSinceRel  = regexp.MustCompile(`SINCE\s+(\d+)\s+(minute|hour|day|week|month)s?\s+ago`)
	reSampleArg = regexp.MustCompile(`SAMPLE\(([0-9.]+)\)`)
	rePctCall   = regexp.MustCompile(`percentile\(([^,)]+),\s*(\d+)\)`)
	rePct2575   = regexp.MustCompile(`,?\s*percentile\([^,)]+,\s*(?:25|75)\)(?:\s+AS\s+'[^']*')?`)
)

// Optimize applies the mode's rule set in fixed order and returns the
// rewritten query with cost estimates. On validation failure the
// original query is returned with a validation_failed marker.
func (o *Optimizer) Optimize(q string, intent Intent, qctx *Context) Optimization {
	original := q
	rph := o.recordsPerHour(intent, qctx)
	var applied []string

	apply := func(rule string, fn func(string) (string, bool)) {
		nq, ok := fn(q)
		if !ok {
			return
		}
		q = nq
		applied = append(applied, rule)
		metrics.QueryOptimizations.WithLabelValues(rule).Inc()
	}

	hours := queryHours(q, intent)
	switch o.cfg.Mode {
	case ModeCost:
		apply("reduce_time_range", o.reduceTimeRange)
	case ModeBalanced:
		if hours > 168 {
			apply("reduce_time_range", o.reduceTimeRangeModerate)
		}
	}

	apply("add_sampling", func(s string) (string, bool) {
		return o.addSampling(s, intent, rph*queryHours(s, intent))
	})
	apply("limit_facet_cardinality", o.limitFacetCardinality)
	if o.cfg.Mode == ModeCost && o.cfg.Aggressive {
		apply("replace_expensive_aggregations", o.replaceExpensiveAggregations)
	}
	apply("optimize_where_clause", o.optimizeWhereClause)
	apply("simplify_aggregations", o.simplifyAggregations)
	if o.cfg.Aggressive {
		apply("use_approximations", o.useApproximations)
	}
	apply("optimize_timeseries_buckets", func(s string) (string, bool) {
		return o.optimizeTimeseriesBuckets(s, queryHours(s, intent))
	})
	apply("remove_redundancies", o.removeRedundancies)

	if !o.valid(q, intent) {
		return Optimization{
			Original:     original,
			Optimized:    original,
			Applied:      []string{"validation_failed"},
			OriginalCost: o.EstimateCost(original, intent, qctx),
		}
	}
	return Optimization{
		Original:      original,
		Optimized:     q,
		Applied:       applied,
		OriginalCost:  o.EstimateCost(original, intent, qctx),
		OptimizedCost: o.EstimateCost(q, intent, qctx),
	}
}

// EstimateCost prices a query with the volume/multiplier model.
func (o *Optimizer) EstimateCost(q string, intent Intent, qctx *Context) *CostEstimate {
	rph := o.recordsPerHour(intent, qctx)
	volume := rph * queryHours(q, intent)
	cost := volume / 1e6 * 0.25
	var factors []string

	mult := func(name string, m float64) {
		cost *= m
		factors = append(factors, fmt.Sprintf("%s x%.2g", name, m))
	}
	if strings.Contains(q, "TIMESERIES") {
		mult("timeseries", 1.5)
	}
	if strings.Contains(q, "FACET") {
		mult("facet", 1.2)
	}
	if strings.Contains(q, "percentile(") {
		mult("percentile", 2.0)
	}
	if strings.Contains(q, "uniqueCount(") {
		mult("unique_count", 1.8)
	}
	if !strings.Contains(q, "LIMIT") && !strings.Contains(q, "TIMESERIES") {
		mult("unbounded", 2.0)
	}
	scanned := volume
	if m := reSampleArg.FindStringSubmatch(q); m != nil {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil && r > 0 {
			cost *= r
			scanned *= r
			factors = append(factors, fmt.Sprintf("sample x%g", r))
		}
	}
	return &CostEstimate{EstimatedDollars: cost, ScannedRecords: scanned, Factors: factors}
}

// reduceTimeRange steps the window down one notch: quarter to month,
// month to week, week to day.
func (o *Optimizer) reduceTimeRange(q string) (string, bool) {
	replacements := []struct{ from, to string }{
		{"SINCE 3 months ago", "SINCE 1 month ago"},
		{"SINCE 1 month ago", "SINCE 1 week ago"},
		{"SINCE 1 week ago", "SINCE 1 day ago"},
	}
	for _, r := range replacements {
		if strings.Contains(q, r.from) {
			return strings.Replace(q, r.from, r.to, 1), true
		}
	}
	return q, false
}

// reduceTimeRangeModerate halves the window instead of stepping it a
// full notch.
func (o *Optimizer) reduceTimeRangeModerate(q string) (string, bool) {
	m := reSinceRel.FindStringSubmatch(q)
	if m == nil {
		return q, false
	}
	amount, _ := strconv.Atoi(m[1])
	halved := float64(amount) * unitHours(m[2]) / 2
	var clause string
	switch {
	case halved >= 168:
		clause = relClause(int(halved/168+0.5), "week")
	case halved >= 24:
		clause = relClause(int(halved/24+0.5), "day")
	default:
		clause = relClause(int(halved+0.5), "hour")
	}
	replaced := reSinceRel.ReplaceAllString(q, clause)
	return replaced, replaced != q
}

func relClause(amount int, unit string) string {
	if amount < 1 {
		amount = 1
	}
	if amount != 1 {
		unit += "s"
	}
	return fmt.Sprintf("SINCE %d %s ago", amount, unit)
}

// addSampling inserts SAMPLE after the FROM clause when the estimated
// scan volume warrants it. Percentile and histogram queries are never
// sampled, nor are queries that already bound their scan.
func (o *Optimizer) addSampling(q string, intent Intent, volume float64) (string, bool) {
	if intent.QueryType == QueryPercentile || intent.QueryType == QueryHistogram {
		return q, false
	}
	if strings.Contains(q, "LIMIT") || strings.Contains(q, "SAMPLE") {
		return q, false
	}
	var rate float64
	switch {
	case volume > 1e7:
		rate = 0.01
	case volume > 1e6:
		rate = 0.1
	default:
		return q, false
	}
	return insertAfterFrom(q, fmt.Sprintf("SAMPLE(%g)", rate))
}

// insertAfterFrom splices text between the FROM source list and the
// next clause keyword.
func insertAfterFrom(q, text string) (string, bool) {
	from := strings.Index(q, "FROM ")
	if from < 0 {
		return q, false
	}
	end := len(q)
	for _, kw := range clauseKeywords {
		if i := strings.Index(q[from:], " "+kw); i >= 0 && from+i < end {
			end = from + i
		}
	}
	return q[:end] + " " + text + q[end:], true
}

func (o *Optimizer) limitFacetCardinality(q string) (string, bool) {
	if strings.Contains(q, "FACET") && !strings.Contains(q, "LIMIT") {
		return q + " LIMIT 100", true
	}
	return q, false
}

func (o *Optimizer) replaceExpensiveAggregations(q string) (string, bool) {
	out := strings.ReplaceAll(q, "uniqueCount(", "approximateCount(")
	out = rePctCall.ReplaceAllStringFunc(out, func(call string) string {
		m := rePctCall.FindStringSubmatch(call)
		switch m[2] {
		case "99":
			return fmt.Sprintf("max(%s)", m[1])
		case "50":
			return fmt.Sprintf("average(%s)", m[1])
		default:
			return call
		}
	})
	return out, out != q
}

// optimizeWhereClause reorders AND-joined predicates so the
// high-selectivity fields come first.
func (o *Optimizer) optimizeWhereClause(q string) (string, bool) {
	preds, start, end, ok := wherePredicates(q)
	if !ok || len(preds) < 2 {
		return q, false
	}
	selective := func(p string) bool {
		return strings.HasPrefix(p, "appName") ||
			strings.HasPrefix(p, "host") ||
			strings.HasPrefix(p, "`host`") ||
			strings.HasPrefix(p, "entityGuid")
	}
	var first, rest []string
	for _, p := range preds {
		if selective(p) {
			first = append(first, p)
		} else {
			rest = append(rest, p)
		}
	}
	reordered := append(first, rest...)
	joined := strings.Join(reordered, " AND ")
	if joined == strings.Join(preds, " AND ") {
		return q, false
	}
	return q[:start] + joined + q[end:], true
}

// simplifyAggregations drops the 25th and 75th percentile calls when
// the query computes more than three percentiles.
func (o *Optimizer) simplifyAggregations(q string) (string, bool) {
	if len(rePctCall.FindAllString(q, -1)) <= 3 {
		return q, false
	}
	out := rePct2575.ReplaceAllString(q, "")
	out = strings.Replace(out, "SELECT ,", "SELECT", 1)
	out = strings.Replace(out, "SELECT  ", "SELECT ", 1)
	return out, out != q
}

func (o *Optimizer) useApproximations(q string) (string, bool) {
	out := strings.ReplaceAll(q, "uniqueCount(", "approximateUniqueCount(")
	return out, out != q
}

// optimizeTimeseriesBuckets picks a bucket for a bare TIMESERIES based
// on the window length.
func (o *Optimizer) optimizeTimeseriesBuckets(q string, hours float64) (string, bool) {
	idx := strings.Index(q, "TIMESERIES")
	if idx < 0 {
		return q, false
	}
	after := strings.TrimLeft(q[idx+len("TIMESERIES"):], " ")
	if after != "" && after[0] >= '0' && after[0] <= '9' {
		return q, false
	}
	var bucket string
	switch {
	case hours <= 1:
		bucket = "1 minute"
	case hours <= 24:
		bucket = "5 minutes"
	case hours <= 168:
		bucket = "1 hour"
	default:
		bucket = "1 day"
	}
	return q[:idx] + "TIMESERIES " + bucket + q[idx+len("TIMESERIES"):], true
}

// removeRedundancies deduplicates AND-joined predicates preserving
// order.
func (o *Optimizer) removeRedundancies(q string) (string, bool) {
	preds, start, end, ok := wherePredicates(q)
	if !ok || len(preds) < 2 {
		return q, false
	}
	seen := make(map[string]bool, len(preds))
	var kept []string
	for _, p := range preds {
		if seen[p] {
			continue
		}
		seen[p] = true
		kept = append(kept, p)
	}
	if len(kept) == len(preds) {
		return q, false
	}
	return q[:start] + strings.Join(kept, " AND ") + q[end:], true
}

// wherePredicates returns the AND-split predicates of the WHERE clause
// along with the clause body's start and end offsets.
func wherePredicates(q string) ([]string, int, int, bool) {
	idx := strings.Index(q, "WHERE ")
	if idx < 0 {
		return nil, 0, 0, false
	}
	start := idx + len("WHERE ")
	end := len(q)
	for _, kw := range clauseKeywords {
		if kw == "WHERE" {
			continue
		}
		if i := strings.Index(q[start:], " "+kw); i >= 0 && start+i < end {
			end = start + i
		}
	}
	body := q[start:end]
	preds := strings.Split(body, " AND ")
	for i := range preds {
		preds[i] = strings.TrimSpace(preds[i])
	}
	return preds, start, end, true
}

// valid checks that a rewrite kept the query's skeleton and sources.
func (o *Optimizer) valid(q string, intent Intent) bool {
	if !strings.Contains(q, "SELECT") || !strings.Contains(q, "FROM") {
		return false
	}
	for _, et := range intent.EventTypes {
		if !strings.Contains(q, et) {
			return false
		}
	}
	return true
}

func (o *Optimizer) recordsPerHour(intent Intent, qctx *Context) float64 {
	if len(intent.EventTypes) > 0 {
		if s, ok := qctx.Schema(intent.EventTypes[0]); ok && s.RecordsPerHour > 0 {
			return s.RecordsPerHour
		}
	}
	return o.cfg.DefaultRecordsPerHour
}

// queryHours reads the window length off the query string, falling
// back to the intent's range.
func queryHours(q string, intent Intent) float64 {
	if m := reSinceRel.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n) * unitHours(m[2])
	}
	return intent.TimeRange.Hours()
}
