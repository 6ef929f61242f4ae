// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"context"
	"sort"
	"sync"

	"github.com/insightd/insightd/internal/frame"
)

// Detector finds patterns in a frame. Implementations are pure over
// their inputs and safe to run in parallel over the same frame.
//
// Contract:
//   - Columns that do not exist or carry fewer than MinSamples non-null
//     values are skipped silently.
//   - Every returned pattern has non-empty columns, non-empty evidence,
//     and confidence at or above the configured threshold.
//   - Detect never panics. On an internal numerical failure it returns
//     the patterns computed so far together with the error; partial
//     patterns are never returned.
//   - Detect observes ctx as a soft deadline: on expiry it returns what
//     it has.
type Detector interface {
	// Name identifies the detector in metrics, logs, and requests.
	Name() string

	// Supported declares the closed subset of pattern types the
	// detector may emit.
	Supported() []PatternType

	// Detect runs the detector over the given columns of the frame.
	Detect(ctx context.Context, f *frame.Frame, columns []string, pctx Context) ([]Pattern, error)
}

// DetectorConfig carries the thresholds shared by all detectors.
type DetectorConfig struct {
	// MinSamples is the minimum non-null count a column needs before a
	// detector will look at it.
	MinSamples int `json:"min_samples"`

	// ConfidenceThreshold is the minimum confidence a detector may
	// attach to an emitted pattern.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// CorrelationThreshold gates pairwise correlation patterns.
	CorrelationThreshold float64 `json:"correlation_threshold"`

	// MaxLag bounds the lag search in lag-correlation detection.
	MaxLag int `json:"max_lag"`

	// Sensitivity tunes the anomaly detector: low, medium, or high.
	Sensitivity string `json:"sensitivity"`

	// Seed feeds the randomized anomaly scorers so repeated analyses of
	// the same frame agree.
	Seed int64 `json:"seed"`
}

// DefaultDetectorConfig returns the documented defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinSamples:           30,
		ConfidenceThreshold:  0.7,
		CorrelationThreshold: 0.5,
		MaxLag:               10,
		Sensitivity:          "medium",
		Seed:                 1,
	}
}

// Registry holds the named detectors the engine can select from.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// DefaultRegistry returns a registry holding the four standard
// detectors configured with cfg.
func DefaultRegistry(cfg DetectorConfig) *Registry {
	r := NewRegistry()
	r.Register(NewStatisticalDetector(cfg))
	r.Register(NewTimeSeriesDetector(cfg))
	r.Register(NewAnomalyDetector(cfg))
	r.Register(NewCorrelationDetector(cfg))
	return r
}

// Register adds a detector, replacing any detector with the same name.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[d.Name()] = d
}

// Get returns the named detector.
func (r *Registry) Get(name string) (Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[name]
	return d, ok
}

// Names returns the registered detector names sorted ascending.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the detectors for the requested names, in sorted name
// order. Unknown names are skipped. An empty request selects all.
func (r *Registry) Select(names []string) []Detector {
	if len(names) == 0 {
		names = r.Names()
	} else {
		names = append([]string(nil), names...)
		sort.Strings(names)
	}
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		if d, ok := r.Get(name); ok {
			out = append(out, d)
		}
	}
	return out
}

// usableColumn reports whether the named column exists and carries at
// least minSamples non-null values.
func usableColumn(f *frame.Frame, name string, minSamples int) (*frame.Column, bool) {
	c, err := f.Column(name)
	if err != nil {
		return nil, false
	}
	if c.Len()-c.NullCount() < minSamples {
		return nil, false
	}
	return c, true
}

// ctxExpired reports whether the soft deadline has passed.
func ctxExpired(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
