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

// TimeSeriesDetector finds trend, seasonality, stationarity,
// autocorrelation, and change-point patterns. It requires the frame to
// expose a temporal axis and analyzes columns in time order.
type TimeSeriesDetector struct {
	cfg DetectorConfig
}

// NewTimeSeriesDetector returns the detector configured with cfg.
func NewTimeSeriesDetector(cfg DetectorConfig) *TimeSeriesDetector {
	return &TimeSeriesDetector{cfg: cfg}
}

// Name implements Detector.
func (d *TimeSeriesDetector) Name() string { return "timeseries" }

// Supported implements Detector.
func (d *TimeSeriesDetector) Supported() []PatternType {
	return []PatternType{
		PatternTrendLinear,
		PatternTrendExponential,
		PatternSeasonal,
		PatternCyclic,
		PatternStationary,
		PatternNonStationary,
		PatternChangePoint,
	}
}

// Detect implements Detector.
func (d *TimeSeriesDetector) Detect(ctx context.Context, f *frame.Frame, columns []string, _ Context) ([]Pattern, error) {
	if _, ok := f.TimeColumn(); !ok {
		return nil, nil
	}
	sorted := f.SortedByTime()
	periods := candidatePeriods(sorted)

	var out []Pattern
	for _, name := range columns {
		if ctxExpired(ctx) {
			return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
		}
		c, ok := usableColumn(sorted, name, d.cfg.MinSamples)
		if !ok || !c.DType().IsNumeric() {
			continue
		}
		values, indices := c.NonNullFloats()

		if p, ok := d.trendPattern(name, values); ok {
			out = append(out, p)
		}
		out = append(out, d.seasonalPatterns(name, values, periods)...)
		if p, ok := d.stationarityPattern(name, values); ok {
			out = append(out, p)
		}
		if p, ok := d.cyclicPattern(name, values); ok {
			out = append(out, p)
		}
		out = append(out, d.changePointPatterns(name, values, indices)...)
	}
	return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
}

// trendPattern fits a least-squares line on (index, value) and, over
// the positive values, a log-linear fit. The exponential label needs
// the log fit to beat the linear r-squared with agreeing slope sign.
func (d *TimeSeriesDetector) trendPattern(column string, values []float64) (Pattern, bool) {
	idx := indexSeries(len(values))
	lin, ok := numeric.LinearRegression(idx, values)
	if !ok || lin.PValue >= 0.05 || math.Abs(lin.R) < 0.05 {
		return Pattern{}, false
	}

	ptype := PatternTrendLinear
	logFit, logOK := numeric.LogRegression(idx, values)
	if logOK && logFit.RSquared > lin.RSquared && logFit.PValue < 0.05 &&
		sameSign(logFit.Slope, lin.Slope) {
		ptype = PatternTrendExponential
	}

	lo, hi := numeric.MinMax(values)
	trendImpact := 0.0
	if hi > lo {
		trendImpact = math.Abs(lin.Slope*float64(len(values))) / (hi - lo)
	}
	direction := "increasing"
	if lin.Slope < 0 {
		direction = "decreasing"
	}

	impact := ImpactLow
	switch {
	case trendImpact > 0.5:
		impact = ImpactHigh
	case trendImpact > 0.2:
		impact = ImpactMedium
	}

	return Pattern{
		Type:       ptype,
		Confidence: math.Min(0.95, math.Abs(lin.R)),
		Impact:     impact,
		Columns:    []string{column},
		Parameters: map[string]any{
			"slope":        lin.Slope,
			"intercept":    lin.Intercept,
			"r_squared":    lin.RSquared,
			"direction":    direction,
			"trend_impact": trendImpact,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%q shows a %s trend over time", column, direction),
			StatisticalTests: map[string]float64{
				"slope":     lin.Slope,
				"r_squared": lin.RSquared,
				"p_value":   lin.PValue,
			},
		}},
		Recommendations: []string{
			fmt.Sprintf("track %q against capacity or SLO limits; the level is moving", column),
		},
		VisualHints: map[string]any{"chart": "line", "trendline": true},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// seasonalPatterns decomposes at each candidate period and reports
// those whose seasonal variance share exceeds 0.1.
func (d *TimeSeriesDetector) seasonalPatterns(column string, values []float64, periods []int) []Pattern {
	var out []Pattern
	for _, period := range periods {
		if period > len(values)/2 {
			continue
		}
		dec, ok := numeric.SeasonalDecompose(values, period)
		if !ok {
			continue
		}
		strength := numeric.SeasonalStrength(values, dec)
		if strength <= 0.1 {
			continue
		}
		// A pattern past the strength gate must also survive the
		// confidence filter, so the mapping is floored at the threshold.
		conf := math.Min(0.95, 2*strength)
		if conf < d.cfg.ConfidenceThreshold {
			conf = d.cfg.ConfidenceThreshold
		}
		out = append(out, Pattern{
			Type:       PatternSeasonal,
			Confidence: conf,
			Impact:     ImpactMedium,
			Columns:    []string{column},
			Parameters: map[string]any{
				"period":    period,
				"strength":  strength,
				"amplitude": dec.Amplitude(),
			},
			Evidence: []Evidence{{
				Description: fmt.Sprintf("%q repeats with period %d", column, period),
				StatisticalTests: map[string]float64{
					"seasonal_strength": strength,
					"amplitude":         dec.Amplitude(),
				},
			}},
			Recommendations: []string{
				fmt.Sprintf("compare %q against the same phase of the previous cycle rather than the previous sample", column),
			},
			VisualHints: map[string]any{"chart": "line", "compare_with": "previous_period"},
			DetectedAt:  time.Now().UTC(),
		})
	}
	return out
}

// stationarityPattern combines ADF and KPSS; a pattern is emitted only
// when both tests agree.
func (d *TimeSeriesDetector) stationarityPattern(column string, values []float64) (Pattern, bool) {
	adf, okA := numeric.ADF(values)
	kpss, okK := numeric.KPSS(values)
	if !okA || !okK {
		return Pattern{}, false
	}

	tests := map[string]float64{
		"adf_statistic":  adf.Statistic,
		"adf_p_value":    adf.PValue,
		"kpss_statistic": kpss.Statistic,
		"kpss_p_value":   kpss.PValue,
	}
	switch {
	case adf.Stationary && kpss.Stationary:
		return Pattern{
			Type:       PatternStationary,
			Confidence: math.Min(0.95, 1-adf.PValue),
			Impact:     ImpactLow,
			Columns:    []string{column},
			Parameters: map[string]any{"mean": numeric.Mean(values)},
			Evidence: []Evidence{{
				Description:      fmt.Sprintf("ADF and KPSS agree that %q is stationary", column),
				StatisticalTests: tests,
			}},
			DetectedAt: time.Now().UTC(),
		}, true
	case !adf.Stationary && !kpss.Stationary:
		return Pattern{
			Type:       PatternNonStationary,
			Confidence: math.Min(0.95, 1-kpss.PValue),
			Impact:     ImpactMedium,
			Columns:    []string{column},
			Evidence: []Evidence{{
				Description:      fmt.Sprintf("ADF and KPSS agree that %q is non-stationary", column),
				StatisticalTests: tests,
			}},
			Recommendations: []string{
				fmt.Sprintf("difference or detrend %q before fitting models that assume a stable mean", column),
			},
			DetectedAt: time.Now().UTC(),
		}, true
	}
	// Tests disagree; suppress.
	return Pattern{}, false
}

// cyclicPattern runs Ljung-Box up to lag min(40, n/4) and keys the
// pattern by the strongest autocorrelation lag.
func (d *TimeSeriesDetector) cyclicPattern(column string, values []float64) (Pattern, bool) {
	maxLag := len(values) / 4
	if maxLag > 40 {
		maxLag = 40
	}
	if maxLag < 1 {
		return Pattern{}, false
	}
	lb := numeric.LjungBox(values, maxLag)
	minP := 1.0
	for _, p := range lb.PValues {
		if p < minP {
			minP = p
		}
	}
	if minP >= 0.05 {
		return Pattern{}, false
	}
	acf := numeric.ACF(values, maxLag)
	lag, r := numeric.StrongestLag(acf)
	return Pattern{
		Type:       PatternCyclic,
		Confidence: math.Min(0.95, 1-minP),
		Impact:     ImpactLow,
		Columns:    []string{column},
		Parameters: map[string]any{
			"strongest_lag":   lag,
			"autocorrelation": r,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%q carries significant autocorrelation, strongest at lag %d", column, lag),
			StatisticalTests: map[string]float64{
				"min_ljung_box_p": minP,
				"acf_at_lag":      r,
			},
		}},
		DetectedAt: time.Now().UTC(),
	}, true
}

// changePointPatterns flags level shifts in the rolling mean: a jump
// beyond twice the jump deviation AND a relative change above 0.2
// between the before/after window means. The top three by relative
// change are kept.
func (d *TimeSeriesDetector) changePointPatterns(column string, values []float64, indices []int) []Pattern {
	n := len(values)
	window := n / 20
	if window < 10 {
		window = 10
	}
	if n < 2*window {
		return nil
	}
	rolling := numeric.RollingMean(values, window)

	var deltas []float64
	for i := window; i < n; i++ {
		if !math.IsNaN(rolling[i]) && !math.IsNaN(rolling[i-1]) {
			deltas = append(deltas, rolling[i]-rolling[i-1])
		}
	}
	std := numeric.StdDev(deltas)
	if std == 0 {
		return nil
	}

	type candidate struct {
		index     int
		relChange float64
		before    float64
		after     float64
	}
	var cands []candidate
	for i := window; i < n-window; i++ {
		if math.IsNaN(rolling[i]) || math.IsNaN(rolling[i-1]) {
			continue
		}
		if math.Abs(rolling[i]-rolling[i-1]) <= 2*std {
			continue
		}
		before := numeric.Mean(values[i-window : i])
		after := numeric.Mean(values[i : i+window])
		if before == 0 {
			continue
		}
		rel := math.Abs(after-before) / math.Abs(before)
		if rel <= 0.2 {
			continue
		}
		cands = append(cands, candidate{index: i, relChange: rel, before: before, after: after})
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].relChange > cands[b].relChange })
	if len(cands) > 3 {
		cands = cands[:3]
	}

	out := make([]Pattern, 0, len(cands))
	for _, cp := range cands {
		out = append(out, Pattern{
			Type:       PatternChangePoint,
			Confidence: math.Min(0.95, 0.5+cp.relChange),
			Impact:     ImpactHigh,
			Columns:    []string{column},
			Parameters: map[string]any{
				"index":           indices[cp.index],
				"mean_before":     cp.before,
				"mean_after":      cp.after,
				"relative_change": cp.relChange,
			},
			Evidence: []Evidence{{
				Description: fmt.Sprintf("the level of %q shifts by %.0f%% around row %d", column, cp.relChange*100, indices[cp.index]),
				DataPoints: []DataPoint{
					{Index: indices[cp.index], Value: values[cp.index]},
				},
			}},
			Recommendations: []string{
				fmt.Sprintf("correlate the shift in %q with deploys or config changes near that time", column),
			},
			VisualHints: map[string]any{"chart": "line", "annotate": "change_point"},
			DetectedAt:  time.Now().UTC(),
		})
	}
	return out
}

// candidatePeriods derives seasonal candidates from the sampling
// interval of the temporal axis: hourly data gets daily and weekly
// periods, daily data gets weekly, monthly, and yearly periods.
func candidatePeriods(f *frame.Frame) []int {
	name, ok := f.TimeColumn()
	if !ok {
		return nil
	}
	c, err := f.Column(name)
	if err != nil {
		return nil
	}
	times := c.Times()
	var intervals []float64
	for i := 1; i < len(times); i++ {
		if c.IsNull(i) || c.IsNull(i-1) {
			continue
		}
		d := times[i].Sub(times[i-1])
		if d > 0 {
			intervals = append(intervals, d.Seconds())
		}
	}
	if len(intervals) == 0 {
		return nil
	}
	median := numeric.Quantile(intervals, 0.5)
	switch {
	case median <= 2*time.Hour.Seconds():
		return []int{24, 168}
	case median <= 2*24*time.Hour.Seconds():
		return []int{7, 30, 365}
	default:
		return []int{12}
	}
}

func indexSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
