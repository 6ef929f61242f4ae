// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ACF returns the autocorrelation function for lags 1..maxLag (index 0
// holds lag 1). Lags beyond the series length return 0.
func ACF(x []float64, maxLag int) []float64 {
	n := len(x)
	out := make([]float64, maxLag)
	if n < 2 {
		return out
	}
	m := Mean(x)
	var denom float64
	for _, v := range x {
		denom += (v - m) * (v - m)
	}
	if denom == 0 {
		return out
	}
	for lag := 1; lag <= maxLag; lag++ {
		if lag >= n {
			break
		}
		var num float64
		for i := lag; i < n; i++ {
			num += (x[i] - m) * (x[i-lag] - m)
		}
		out[lag-1] = num / denom
	}
	return out
}

// LjungBoxResult holds the portmanteau statistic and p-value per lag.
type LjungBoxResult struct {
	Lags       []int
	Statistics []float64
	PValues    []float64
}

// LjungBox tests autocorrelation jointly up to each lag in 1..maxLag.
// The statistic at lag h is chi-squared with h degrees of freedom under
// the white-noise null.
func LjungBox(x []float64, maxLag int) LjungBoxResult {
	n := len(x)
	if maxLag >= n {
		maxLag = n - 1
	}
	res := LjungBoxResult{}
	if maxLag < 1 {
		return res
	}
	acf := ACF(x, maxLag)
	nf := float64(n)
	var acc float64
	for h := 1; h <= maxLag; h++ {
		r := acf[h-1]
		acc += r * r / (nf - float64(h))
		q := nf * (nf + 2) * acc
		chi2 := distuv.ChiSquared{K: float64(h)}
		res.Lags = append(res.Lags, h)
		res.Statistics = append(res.Statistics, q)
		res.PValues = append(res.PValues, chi2.Survival(q))
	}
	return res
}

// StrongestLag returns the lag (1-based) with the largest |ACF| value
// and that value. Returns 0, 0 for an empty ACF.
func StrongestLag(acf []float64) (int, float64) {
	best, bestLag := 0.0, 0
	for i, r := range acf {
		if math.Abs(r) > math.Abs(best) {
			best = r
			bestLag = i + 1
		}
	}
	return bestLag, best
}
