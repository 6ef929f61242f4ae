// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import "math"

// Decomposition holds an additive seasonal decomposition
// y = trend + seasonal + residual. Trend and residual carry NaN at the
// edges the centered moving average cannot cover.
type Decomposition struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
	Period   int
}

// SeasonalDecompose performs classical additive decomposition with a
// centered moving-average trend. Requires at least two full periods;
// returns ok=false otherwise.
func SeasonalDecompose(x []float64, period int) (Decomposition, bool) {
	n := len(x)
	if period < 2 || n < 2*period {
		return Decomposition{}, false
	}

	trend := centeredMovingAverage(x, period)

	// Phase means of the detrended series.
	detrended := make([]float64, n)
	for i := range x {
		detrended[i] = x[i] - trend[i]
	}
	phaseSum := make([]float64, period)
	phaseCnt := make([]int, period)
	for i, v := range detrended {
		if math.IsNaN(v) {
			continue
		}
		phaseSum[i%period] += v
		phaseCnt[i%period]++
	}
	phase := make([]float64, period)
	var grand float64
	for p := 0; p < period; p++ {
		if phaseCnt[p] > 0 {
			phase[p] = phaseSum[p] / float64(phaseCnt[p])
		}
		grand += phase[p]
	}
	grand /= float64(period)
	// Center the seasonal component on zero.
	for p := range phase {
		phase[p] -= grand
	}

	seasonal := make([]float64, n)
	resid := make([]float64, n)
	for i := range x {
		seasonal[i] = phase[i%period]
		resid[i] = x[i] - trend[i] - seasonal[i]
	}
	return Decomposition{Trend: trend, Seasonal: seasonal, Residual: resid, Period: period}, true
}

// SeasonalStrength returns var(seasonal) / var(original), 0 when the
// original series has no variance.
func SeasonalStrength(x []float64, d Decomposition) float64 {
	total := Variance(x)
	if total == 0 {
		return 0
	}
	return Variance(d.Seasonal) / total
}

// Amplitude returns max - min of the seasonal component.
func (d Decomposition) Amplitude() float64 {
	lo, hi := MinMax(d.Seasonal)
	return hi - lo
}

// centeredMovingAverage computes the classical trend estimate: a simple
// centered MA for odd periods, a 2xMA for even periods. Uncovered edges
// hold NaN.
func centeredMovingAverage(x []float64, period int) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if period%2 == 1 {
		half := period / 2
		for i := half; i < n-half; i++ {
			var sum float64
			for j := i - half; j <= i+half; j++ {
				sum += x[j]
			}
			out[i] = sum / float64(period)
		}
		return out
	}
	// Even period: average of two adjacent MAs.
	half := period / 2
	for i := half; i < n-half; i++ {
		var sum float64
		for j := i - half; j < i+half; j++ {
			sum += x[j]
		}
		a := sum / float64(period)
		sum = 0
		for j := i - half + 1; j <= i+half; j++ {
			sum += x[j]
		}
		b := sum / float64(period)
		out[i] = (a + b) / 2
	}
	return out
}
