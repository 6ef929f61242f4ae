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

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/insightd/insightd/internal/frame"
	"github.com/insightd/insightd/internal/numeric"
)

// CorrelationDetector finds linear, monotonic, non-linear, lagged, and
// network relationships between numeric column pairs.
type CorrelationDetector struct {
	cfg DetectorConfig
}

// NewCorrelationDetector returns the detector configured with cfg.
func NewCorrelationDetector(cfg DetectorConfig) *CorrelationDetector {
	return &CorrelationDetector{cfg: cfg}
}

// Name implements Detector.
func (d *CorrelationDetector) Name() string { return "correlation" }

// Supported implements Detector.
func (d *CorrelationDetector) Supported() []PatternType {
	return []PatternType{
		PatternLinearCorrelation,
		PatternMonotonicCorrelation,
		PatternNonLinearCorrelation,
		PatternLagCorrelation,
		PatternNetworkCorrelation,
	}
}

// pairSeries holds the aligned non-null values of one column pair.
type pairSeries struct {
	a, b string
	x, y []float64
}

// corrEdge is one significant pairwise correlation in the network graph.
type corrEdge struct {
	a, b string
	r    float64
}

// Detect implements Detector.
func (d *CorrelationDetector) Detect(ctx context.Context, f *frame.Frame, columns []string, _ Context) ([]Pattern, error) {
	numericCols := make([]string, 0, len(columns))
	for _, name := range columns {
		c, ok := usableColumn(f, name, d.cfg.MinSamples)
		if ok && c.DType().IsNumeric() {
			numericCols = append(numericCols, name)
		}
	}
	if len(numericCols) < 2 {
		return nil, nil
	}
	_, hasTime := f.TimeColumn()
	ordered := f
	if hasTime {
		ordered = f.SortedByTime()
	}

	var out []Pattern
	var edges []corrEdge

	for i := 0; i < len(numericCols); i++ {
		for j := i + 1; j < len(numericCols); j++ {
			if ctxExpired(ctx) {
				return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
			}
			pair, ok := alignPair(ordered, numericCols[i], numericCols[j], d.cfg.MinSamples)
			if !ok {
				continue
			}

			r := numeric.Pearson(pair.x, pair.y)
			rho := numeric.Spearman(pair.x, pair.y)
			tau := numeric.Kendall(pair.x, pair.y)

			if math.Abs(r) >= d.cfg.CorrelationThreshold {
				edges = append(edges, corrEdge{a: pair.a, b: pair.b, r: r})
			}

			if p, ok := d.linearPattern(pair, r, rho, tau); ok {
				out = append(out, p)
			}
			if p, ok := d.nonlinearPattern(pair, r); ok {
				out = append(out, p)
			}
			if hasTime {
				if p, ok := d.lagPattern(pair); ok {
					out = append(out, p)
				}
			}
		}
	}

	// A single correlated pair is already reported pairwise; the
	// network summary only adds signal with two or more links.
	if len(edges) >= 2 {
		if p, ok := d.networkPattern(edges); ok {
			out = append(out, p)
		}
	}
	return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
}

// linearPattern reports the stronger of the linear (Pearson) and
// monotonic (Spearman) relationship when either clears the threshold.
func (d *CorrelationDetector) linearPattern(pair pairSeries, r, rho, tau float64) (Pattern, bool) {
	strength := math.Max(math.Abs(r), math.Abs(rho))
	if strength < d.cfg.CorrelationThreshold {
		return Pattern{}, false
	}
	ptype := PatternLinearCorrelation
	if math.Abs(rho) > math.Abs(r) {
		ptype = PatternMonotonicCorrelation
	}
	direction := "positive"
	if r < 0 || (ptype == PatternMonotonicCorrelation && rho < 0) {
		direction = "negative"
	}
	return Pattern{
		Type:       ptype,
		Confidence: math.Min(0.95, strength),
		Impact:     correlationImpact(strength),
		Columns:    []string{pair.a, pair.b},
		Parameters: map[string]any{
			"pearson_r":  r,
			"spearman_r": rho,
			"kendall_t":  tau,
			"direction":  direction,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%q and %q move together (%s)", pair.a, pair.b, direction),
			StatisticalTests: map[string]float64{
				"pearson_r":  r,
				"spearman_r": rho,
				"kendall_t":  tau,
				"p_value":    numeric.PearsonPValue(r, len(pair.x)),
			},
		}},
		Recommendations: []string{
			fmt.Sprintf("one of %q and %q may be redundant on dashboards; chart them together", pair.a, pair.b),
		},
		VisualHints: map[string]any{"chart": "scatter"},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// nonlinearPattern uses normalized mutual information; a relationship
// is non-linear when MI clearly exceeds what the linear fit explains.
// The quadratic and logarithmic sub-labels come from refitting MI on
// transformed inputs.
func (d *CorrelationDetector) nonlinearPattern(pair pairSeries, r float64) (Pattern, bool) {
	nmi := numeric.NormalizedMutualInformation(pair.x, pair.y)
	if nmi <= 0.3 || nmi <= math.Abs(r) {
		return Pattern{}, false
	}

	variant := "general"
	squared := make([]float64, len(pair.x))
	for i, v := range pair.x {
		squared[i] = v * v
	}
	if mi := numeric.NormalizedMutualInformation(squared, pair.y); mi >= nmi*1.2 {
		variant = "quadratic"
	} else {
		var lx, ly []float64
		for i, v := range pair.x {
			if v > 0 {
				lx = append(lx, math.Log(v))
				ly = append(ly, pair.y[i])
			}
		}
		if len(lx) >= d.cfg.MinSamples {
			if mi := numeric.NormalizedMutualInformation(lx, ly); mi >= nmi*1.2 {
				variant = "logarithmic"
			}
		}
	}

	return Pattern{
		Type:       PatternNonLinearCorrelation,
		Confidence: math.Min(0.9, 0.4+nmi),
		Impact:     ImpactMedium,
		Columns:    []string{pair.a, pair.b},
		Parameters: map[string]any{
			"normalized_mi": nmi,
			"pearson_r":     r,
			"variant":       variant,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%q predicts %q beyond any linear relationship (%s)", pair.a, pair.b, variant),
			StatisticalTests: map[string]float64{
				"normalized_mutual_information": nmi,
				"pearson_r":                     r,
			},
		}},
		VisualHints: map[string]any{"chart": "scatter", "fit": variant},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// lagPattern shifts one series against the other in both directions and
// keeps the most correlated significant lag.
func (d *CorrelationDetector) lagPattern(pair pairSeries) (Pattern, bool) {
	n := len(pair.x)
	maxLag := d.cfg.MaxLag
	if n/4 < maxLag {
		maxLag = n / 4
	}
	if maxLag < 1 {
		return Pattern{}, false
	}

	bestLag, bestR := 0, 0.0
	for lag := 1; lag <= maxLag; lag++ {
		// Positive lag: a leads b. Negative: b leads a.
		for _, signed := range []int{lag, -lag} {
			x, y := shiftedPair(pair.x, pair.y, signed)
			if len(x) < d.cfg.MinSamples {
				continue
			}
			r := numeric.Pearson(x, y)
			p := numeric.PearsonPValue(r, len(x))
			if math.Abs(r) >= d.cfg.CorrelationThreshold && p < 0.05 &&
				math.Abs(r) > math.Abs(bestR) {
				bestLag, bestR = signed, r
			}
		}
	}
	if bestLag == 0 {
		return Pattern{}, false
	}

	leader, follower := pair.a, pair.b
	if bestLag < 0 {
		leader, follower = pair.b, pair.a
	}
	return Pattern{
		Type:       PatternLagCorrelation,
		Confidence: math.Min(0.95, math.Abs(bestR)),
		Impact:     ImpactMedium,
		Columns:    []string{pair.a, pair.b},
		Parameters: map[string]any{
			"lag":      int(math.Abs(float64(bestLag))),
			"r_at_lag": bestR,
			"leader":   leader,
			"follower": follower,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%q leads %q by %d steps", leader, follower, int(math.Abs(float64(bestLag)))),
			StatisticalTests: map[string]float64{
				"r_at_lag": bestR,
			},
		}},
		Recommendations: []string{
			fmt.Sprintf("changes in %q are an early signal for %q", leader, follower),
		},
		DetectedAt: time.Now().UTC(),
	}, true
}

// networkPattern summarizes the graph formed by all significant
// pairwise correlations.
func (d *CorrelationDetector) networkPattern(edges []corrEdge) (Pattern, bool) {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	ids := make(map[string]int64)
	names := make(map[int64]string)
	nextID := int64(0)
	nodeID := func(name string) int64 {
		if id, ok := ids[name]; ok {
			return id
		}
		id := nextID
		nextID++
		ids[name] = id
		names[id] = name
		g.AddNode(simple.Node(id))
		return id
	}

	var columns []string
	var meanR float64
	for _, e := range edges {
		ai, bi := nodeID(e.a), nodeID(e.b)
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(ai), T: simple.Node(bi), W: math.Abs(e.r),
		})
		meanR += math.Abs(e.r)
	}
	meanR /= float64(len(edges))
	for name := range ids {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	nodeCount := len(ids)
	edgeCount := len(edges)
	components := topo.ConnectedComponents(g)
	density := 0.0
	if nodeCount > 1 {
		density = 2 * float64(edgeCount) / float64(nodeCount*(nodeCount-1))
	}

	// Degree centrality of the top three nodes.
	type central struct {
		column string
		score  float64
	}
	centrals := make([]central, 0, nodeCount)
	for _, name := range columns {
		deg := g.From(ids[name]).Len()
		centrals = append(centrals, central{
			column: name,
			score:  float64(deg) / float64(nodeCount-1),
		})
	}
	sort.SliceStable(centrals, func(a, b int) bool { return centrals[a].score > centrals[b].score })
	if len(centrals) > 3 {
		centrals = centrals[:3]
	}
	topCentral := make([]map[string]any, 0, len(centrals))
	for _, c := range centrals {
		topCentral = append(topCentral, map[string]any{"column": c.column, "degree_centrality": c.score})
	}

	sorted := append([]corrEdge(nil), edges...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return math.Abs(sorted[a].r) > math.Abs(sorted[b].r)
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	topEdges := make([]map[string]any, 0, len(sorted))
	for _, e := range sorted {
		topEdges = append(topEdges, map[string]any{"a": e.a, "b": e.b, "r": e.r})
	}

	return Pattern{
		Type:       PatternNetworkCorrelation,
		Confidence: math.Min(0.9, 0.4+meanR),
		Impact:     ImpactMedium,
		Columns:    columns,
		Parameters: map[string]any{
			"node_count":      nodeCount,
			"edge_count":      edgeCount,
			"component_count": len(components),
			"density":         density,
			"top_nodes":       topCentral,
			"top_edges":       topEdges,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%d columns form a correlation network with %d links", nodeCount, edgeCount),
			StatisticalTests: map[string]float64{
				"density":    density,
				"mean_abs_r": meanR,
				"components": float64(len(components)),
			},
		}},
		Recommendations: []string{
			"the most central columns summarize the group; chart those first",
		},
		VisualHints: map[string]any{"chart": "heatmap"},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// alignPair extracts the rows where both columns are non-null.
func alignPair(f *frame.Frame, a, b string, minSamples int) (pairSeries, bool) {
	ca, err := f.Column(a)
	if err != nil {
		return pairSeries{}, false
	}
	cb, err := f.Column(b)
	if err != nil {
		return pairSeries{}, false
	}
	fa, fb := ca.Floats(), cb.Floats()
	var xs, ys []float64
	for i := range fa {
		if ca.IsNull(i) || cb.IsNull(i) || math.IsNaN(fa[i]) || math.IsNaN(fb[i]) {
			continue
		}
		xs = append(xs, fa[i])
		ys = append(ys, fb[i])
	}
	if len(xs) < minSamples {
		return pairSeries{}, false
	}
	return pairSeries{a: a, b: b, x: xs, y: ys}, true
}

// shiftedPair aligns x against y shifted by lag steps. A positive lag
// pairs x[t] with y[t+lag] (x leads).
func shiftedPair(x, y []float64, lag int) ([]float64, []float64) {
	n := len(x)
	if lag > 0 {
		return x[:n-lag], y[lag:]
	}
	l := -lag
	return x[l:], y[:n-l]
}

func correlationImpact(strength float64) Impact {
	if strength > 0.8 {
		return ImpactMedium
	}
	return ImpactLow
}
