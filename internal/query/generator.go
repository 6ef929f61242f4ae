// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/insightd/insightd/internal/cache"
	"github.com/insightd/insightd/internal/metrics"
)

// GeneratorConfig tunes the end-to-end pipeline.
type GeneratorConfig struct {
	CacheSize   int           `json:"cache_size"`
	CacheTTL    time.Duration `json:"cache_ttl"`
	HistorySize int           `json:"history_size"`
	Optimizer   OptimizerConfig
}

// DefaultGeneratorConfig returns the documented defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		CacheSize:   100,
		CacheTTL:    10 * time.Minute,
		HistorySize: 1000,
		Optimizer:   DefaultOptimizerConfig(),
	}
}

// historyEntry records one generation for suggestion learning.
type historyEntry struct {
	Utterance string
	Query     string
	At        time.Time
}

// Generator wires parse, build, and optimize into one deterministic
// pipeline with a bounded result cache and a bounded FIFO history.
type Generator struct {
	cfg       GeneratorConfig
	parser    *Parser
	builder   *Builder
	optimizer *Optimizer
	cache     *cache.LRU[*Result]

	mu      sync.Mutex
	history []historyEntry
}

// NewGenerator builds a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}
	return &Generator{
		cfg:       cfg,
		parser:    NewParser(),
		builder:   NewBuilder(),
		optimizer: NewOptimizer(cfg.Optimizer),
		cache:     cache.NewLRU[*Result](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Generate turns an utterance into an optimized query. Results are
// cached on (lowercased utterance, context fingerprint).
func (g *Generator) Generate(utterance string, qctx *Context) (*Result, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, fmt.Errorf("empty query text")
	}

	key := strings.ToLower(utterance) + "|" + qctx.Fingerprint()
	if hit, ok := g.cache.Get(key); ok {
		metrics.QueryCacheHits.Inc()
		out := *hit
		md := make(map[string]any, len(hit.Metadata))
		for k, v := range hit.Metadata {
			md[k] = v
		}
		md["cache_hit"] = true
		out.Metadata = md
		return &out, nil
	}
	metrics.QueryCacheMisses.Inc()

	intent := g.parser.Parse(utterance, qctx)
	built := g.builder.Build(intent)
	opt := g.optimizer.Optimize(built, intent, qctx)
	metrics.QueriesGenerated.WithLabelValues(string(intent.QueryType)).Inc()

	result := &Result{
		Query:         opt.Optimized,
		Intent:        intent,
		Confidence:    intent.Confidence,
		EstimatedCost: opt.OptimizedCost,
		Warnings:      generationWarnings(intent, opt),
		Suggestions:   g.SuggestQueries(firstWord(utterance)),
		Alternatives:  g.alternatives(intent),
		Metadata: map[string]any{
			"cache_hit":     false,
			"unoptimized":   opt.Original,
			"optimizations": opt.Applied,
		},
	}

	g.record(utterance, result.Query)
	g.cache.Put(key, result)
	return result, nil
}

// Stats exposes cache effectiveness and history depth.
func (g *Generator) Stats() map[string]any {
	g.mu.Lock()
	depth := len(g.history)
	g.mu.Unlock()
	return map[string]any{
		"cache":   g.cache.Stats(),
		"history": depth,
	}
}

// suggestionTemplates is the fixed completion list.
var suggestionTemplates = []string{
	"show me error rate for the last hour",
	"average response time by service for the last day",
	"95th percentile response time for the last week",
	"throughput per minute over time",
	"count of transactions by host for the last hour",
	"cpu usage by server for the last day",
	"slowest transactions in the last hour",
	"error count grouped by application for the last day",
}

// SuggestQueries returns up to 10 deduplicated completions for the
// prefix, drawn from the fixed templates and the recent history.
func (g *Generator) SuggestQueries(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if len(out) >= 10 || seen[s] {
			return
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(s), prefix) {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, t := range suggestionTemplates {
		add(t)
	}

	g.mu.Lock()
	recent := g.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		add(recent[i].Utterance)
	}
	g.mu.Unlock()
	return out
}

var (
	reExplainAgg   = regexp.MustCompile(`(\w+)\(([^)]*)\)`)
	reExplainFrom  = regexp.MustCompile(`FROM\s+([\w\x60, ]+?)(?:\s+(?:WHERE|SINCE|FACET|TIMESERIES|ORDER|LIMIT|SAMPLE)|$)`)
	reExplainSince = regexp.MustCompile(`(SINCE\s+.+?)(?:\s+(?:UNTIL|FACET|TIMESERIES|ORDER|LIMIT|COMPARE)|$)`)
	reExplainFacet = regexp.MustCompile(`FACET\s+([\w\x60, ]+?)(?:\s+(?:TIMESERIES|ORDER|LIMIT)|$)`)
)

// ExplainQuery decomposes a dialect query back into a human-readable
// explanation using the builder's own clause shapes.
func (g *Generator) ExplainQuery(q string) Explanation {
	ex := Explanation{}

	if m := reExplainFrom.FindStringSubmatch(q); m != nil {
		ex.DataSource = strings.TrimSpace(m[1])
	}
	if m := reExplainSince.FindStringSubmatch(q); m != nil {
		ex.TimeRange = strings.TrimSpace(m[1])
	}
	for _, m := range reExplainAgg.FindAllStringSubmatch(q, -1) {
		ex.Aggregations = append(ex.Aggregations, fmt.Sprintf("%s of %s", m[1], m[2]))
	}
	if preds, _, _, ok := wherePredicates(q); ok {
		ex.Filters = preds
	}
	if m := reExplainFacet.FindStringSubmatch(q); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			ex.Grouping = append(ex.Grouping, strings.TrimSpace(f))
		}
	}

	var b strings.Builder
	b.WriteString("Queries " + orUnknown(ex.DataSource))
	if len(ex.Aggregations) > 0 {
		b.WriteString(" computing " + strings.Join(ex.Aggregations, ", "))
	}
	if len(ex.Filters) > 0 {
		b.WriteString(" filtered by " + strings.Join(ex.Filters, " and "))
	}
	if len(ex.Grouping) > 0 {
		b.WriteString(" grouped by " + strings.Join(ex.Grouping, ", "))
	}
	if ex.TimeRange != "" {
		b.WriteString(" " + strings.ToLower(ex.TimeRange))
	}
	ex.Summary = b.String()
	return ex
}

// alternatives proposes up to two variants of the generated query.
func (g *Generator) alternatives(intent Intent) []string {
	var out []string
	if intent.QueryType == QuerySelect || intent.QueryType == QueryFacet {
		ts := intent
		ts.QueryType = QueryTimeseries
		out = append(out, g.builder.Build(ts))
	}
	if intent.QueryType == QuerySelect && len(intent.GroupBy) == 0 {
		fc := intent
		fc.QueryType = QueryFacet
		fc.GroupBy = []string{"appName"}
		out = append(out, g.builder.Build(fc))
	}
	return out
}

func (g *Generator) record(utterance, q string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, historyEntry{Utterance: utterance, Query: q, At: time.Now()})
	if len(g.history) > g.cfg.HistorySize {
		g.history = g.history[len(g.history)-g.cfg.HistorySize:]
	}
}

func generationWarnings(intent Intent, opt Optimization) []string {
	var out []string
	if intent.Confidence < 0.7 {
		out = append(out, "low_confidence_parse")
	}
	for _, a := range opt.Applied {
		if a == "validation_failed" {
			out = append(out, "optimizer_validation_failed")
		}
	}
	return out
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown source"
	}
	return s
}
