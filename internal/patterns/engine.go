// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/insightd/insightd/internal/cache"
	"github.com/insightd/insightd/internal/frame"
	"github.com/insightd/insightd/internal/logging"
	"github.com/insightd/insightd/internal/metrics"
)

// EngineConfig tunes the orchestration layer around the detectors.
type EngineConfig struct {
	// MaxWorkers bounds detector parallelism.
	MaxWorkers int `json:"max_workers"`

	// Parallel disables the worker pool when false; detectors then run
	// sequentially in name order.
	Parallel bool `json:"parallel"`

	// PatternLimit caps the ranked pattern list.
	PatternLimit int `json:"pattern_limit"`

	// EnableCache turns the analysis cache on.
	EnableCache bool `json:"enable_cache"`

	// CacheSize bounds the analysis cache entry count.
	CacheSize int `json:"cache_size"`

	// CacheTTL bounds the lifetime of a cached analysis.
	CacheTTL time.Duration `json:"cache_ttl"`

	// Detector carries the thresholds handed to every detector.
	Detector DetectorConfig `json:"detector"`
}

// DefaultEngineConfig returns the documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxWorkers:   4,
		Parallel:     true,
		PatternLimit: 50,
		EnableCache:  true,
		CacheSize:    100,
		CacheTTL:     5 * time.Minute,
		Detector:     DefaultDetectorConfig(),
	}
}

// AnalyzeRequest selects what the engine analyzes. Zero values select
// everything: all eligible columns, all registered detectors.
type AnalyzeRequest struct {
	// Columns restricts the analysis to a column subset. Empty selects
	// all numeric, temporal, and low-cardinality categorical columns.
	Columns []string `json:"columns,omitempty"`

	// Detectors restricts which detectors run. Empty selects all.
	Detectors []string `json:"detectors,omitempty"`

	// Context carries caller hints forwarded to the detectors.
	Context Context `json:"context,omitempty"`
}

// Analysis is the engine's output: the ranked pattern list plus
// synthesized insights and recommendations.
type Analysis struct {
	Patterns        []Pattern        `json:"patterns"`
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []string         `json:"warnings,omitempty"`
	Metadata        map[string]any   `json:"metadata"`
}

// EngineStats is a point-in-time snapshot of engine activity.
type EngineStats struct {
	Analyses  int64       `json:"analyses"`
	Detectors []string    `json:"detectors"`
	Cache     cache.Stats `json:"cache"`
}

// Engine orchestrates the registered detectors over a frame: parallel
// dispatch, dedup, confidence filtering, ranking, capping, caching, and
// insight synthesis.
type Engine struct {
	cfg      EngineConfig
	registry *Registry
	cache    *cache.LRU[*Analysis]
	analyses atomic.Int64
}

// NewEngine builds an engine over the given registry. A nil registry
// gets the default four detectors.
func NewEngine(cfg EngineConfig, registry *Registry) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.PatternLimit <= 0 {
		cfg.PatternLimit = 50
	}
	if registry == nil {
		registry = DefaultRegistry(cfg.Detector)
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		cache:    cache.NewLRU[*Analysis](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Registry returns the engine's detector registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Analyze runs the selected detectors over the frame and returns the
// post-processed analysis. A failing detector is logged and contributes
// nothing. When ctx expires mid-run the analysis is built from the
// detectors that finished and carries a deadline_exceeded warning.
func (e *Engine) Analyze(ctx context.Context, f *frame.Frame, req AnalyzeRequest) (*Analysis, error) {
	if f == nil || f.Rows() == 0 {
		return nil, frame.ErrEmptyFrame
	}
	e.analyses.Add(1)
	metrics.AnalysesTotal.Inc()

	columns := req.Columns
	if len(columns) == 0 {
		columns = defaultColumns(f)
	}
	detectors := e.registry.Select(req.Detectors)
	if len(detectors) == 0 {
		return nil, fmt.Errorf("no detectors selected")
	}

	key := e.cacheKey(f, columns, detectors)
	if e.cfg.EnableCache {
		if hit, ok := e.cache.Get(key); ok {
			metrics.EngineCacheHits.Inc()
			return withCacheHit(hit), nil
		}
		metrics.EngineCacheMisses.Inc()
	}

	start := time.Now()
	collected, warnings := e.runDetectors(ctx, f, columns, detectors, req.Context)

	patterns := postProcess(collected, e.cfg.Detector.ConfidenceThreshold, e.cfg.PatternLimit)
	for i := range patterns {
		metrics.PatternsDetected.WithLabelValues(string(patterns[i].Type)).Inc()
	}

	insights := SynthesizeInsights(patterns)
	result := &Analysis{
		Patterns:        patterns,
		Insights:        insights,
		Recommendations: BuildRecommendations(patterns, insights),
		Warnings:        warnings,
		Metadata: map[string]any{
			"cache_hit":        false,
			"duration_ms":      time.Since(start).Milliseconds(),
			"detectors_run":    detectorNames(detectors),
			"columns_analyzed": columns,
			"rows":             f.Rows(),
		},
	}

	// Partial results are not worth replaying on the next identical
	// request.
	if e.cfg.EnableCache && len(warnings) == 0 {
		e.cache.Put(key, result)
	}
	return result, nil
}

// Stats returns engine activity counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Analyses:  e.analyses.Load(),
		Detectors: e.registry.Names(),
		Cache:     e.cache.Stats(),
	}
}

// runDetectors dispatches the detectors over a bounded worker pool and
// joins them, honoring ctx as a hard deadline.
func (e *Engine) runDetectors(ctx context.Context, f *frame.Frame, columns []string, detectors []Detector, pctx Context) ([]Pattern, []string) {
	type slot struct {
		patterns []Pattern
		done     bool
	}
	slots := make([]slot, len(detectors))
	var mu sync.Mutex

	run := func(i int, d Detector) {
		t0 := time.Now()
		metrics.DetectorRuns.WithLabelValues(d.Name()).Inc()
		found, err := d.Detect(ctx, f, columns, pctx)
		metrics.DetectorDuration.WithLabelValues(d.Name()).Observe(time.Since(t0).Seconds())
		if err != nil {
			metrics.DetectorErrors.WithLabelValues(d.Name()).Inc()
			logging.Warn().
				Str("detector", d.Name()).
				Err(err).
				Msg("Detector failed; continuing without its results")
		}
		mu.Lock()
		slots[i] = slot{patterns: found, done: true}
		mu.Unlock()
	}

	if !e.cfg.Parallel || len(detectors) == 1 {
		for i, d := range detectors {
			if ctxExpired(ctx) {
				break
			}
			run(i, d)
		}
	} else {
		sem := make(chan struct{}, e.cfg.MaxWorkers)
		var wg sync.WaitGroup
		for i, d := range detectors {
			wg.Add(1)
			go func(i int, d Detector) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				run(i, d)
			}(i, d)
		}
		joined := make(chan struct{})
		go func() {
			wg.Wait()
			close(joined)
		}()
		select {
		case <-joined:
		case <-ctx.Done():
			// Fall through with whatever finished. Straggler goroutines
			// observe the expired ctx and drain harmlessly.
		}
	}

	var warnings []string
	if ctxExpired(ctx) {
		warnings = append(warnings, "deadline_exceeded")
	}

	mu.Lock()
	defer mu.Unlock()
	var out []Pattern
	for i := range slots {
		if slots[i].done {
			out = append(out, slots[i].patterns...)
		}
	}
	return out, warnings
}

// postProcess applies the strict pipeline: dedup (first wins), filter
// by confidence, stable rank descending, cap.
func postProcess(patterns []Pattern, threshold float64, limit int) []Pattern {
	seen := make(map[string]struct{}, len(patterns))
	kept := make([]Pattern, 0, len(patterns))
	for i := range patterns {
		k := patterns[i].Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if patterns[i].Confidence < threshold {
			continue
		}
		kept = append(kept, patterns[i])
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RankScore() > kept[j].RankScore()
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// cacheKey is a pure function of frame shape, sorted column set, sorted
// detector set, and the first-row fingerprint.
func (e *Engine) cacheKey(f *frame.Frame, columns []string, detectors []Detector) string {
	cols := make([]string, len(columns))
	copy(cols, columns)
	sort.Strings(cols)
	names := detectorNames(detectors)
	sort.Strings(names)
	return fmt.Sprintf("%dx%d|%s|%s|%s",
		f.Rows(), f.NumColumns(),
		strings.Join(cols, ","),
		strings.Join(names, ","),
		f.FirstRowFingerprint())
}

// defaultColumns selects all numeric and temporal columns plus
// categorical columns with cardinality under 20.
func defaultColumns(f *frame.Frame) []string {
	var out []string
	for _, c := range f.Columns() {
		dt := c.DType()
		switch {
		case dt.IsNumeric(), dt == frame.DTypeTemporal, dt == frame.DTypeBoolean:
			out = append(out, c.Name())
		case dt.IsCategorical() && c.UniqueCount() < 20:
			out = append(out, c.Name())
		}
	}
	return out
}

func detectorNames(detectors []Detector) []string {
	names := make([]string, len(detectors))
	for i, d := range detectors {
		names[i] = d.Name()
	}
	return names
}

// withCacheHit returns a shallow copy of a cached analysis with its
// metadata marked as a cache hit, leaving the cached value untouched.
func withCacheHit(a *Analysis) *Analysis {
	out := *a
	md := make(map[string]any, len(a.Metadata))
	for k, v := range a.Metadata {
		md[k] = v
	}
	md["cache_hit"] = true
	out.Metadata = md
	return &out
}
