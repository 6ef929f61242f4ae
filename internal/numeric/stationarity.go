// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// StationarityResult holds a unit-root or stationarity test outcome.
type StationarityResult struct {
	Statistic  float64
	PValue     float64
	Lags       int
	Stationary bool // at the 5% level
}

// adfCriticalValues are approximate MacKinnon critical values for the
// constant-only ADF regression, keyed by significance level.
var adfCriticalValues = []struct {
	level float64
	value float64
}{
	{0.01, -3.43},
	{0.05, -2.86},
	{0.10, -2.57},
}

// ADF runs an augmented Dickey-Fuller test (constant, no trend) with
// Schwert's rule for the lag order. The null hypothesis is a unit root;
// a statistic below the 5% critical value rejects it. Returns ok=false
// when the series is too short for the regression.
func ADF(x []float64) (StationarityResult, bool) {
	n := len(x)
	lags := int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
	if lags > n/2-2 {
		lags = n/2 - 2
	}
	if lags < 0 {
		lags = 0
	}
	d := Diff(x)
	rows := len(d) - lags
	if rows < 10 {
		return StationarityResult{}, false
	}
	cols := 2 + lags // constant, y_{t-1}, lagged differences

	design := mat.NewDense(rows, cols, nil)
	resp := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		t := i + lags // index into d
		design.Set(i, 0, 1)
		design.Set(i, 1, x[t]) // level preceding d[t]
		for j := 1; j <= lags; j++ {
			design.Set(i, 1+j, d[t-j])
		}
		resp.SetVec(i, d[t])
	}

	beta, se, okFit := olsWithSE(design, resp, 1)
	if !okFit || se == 0 {
		return StationarityResult{}, false
	}
	stat := beta / se
	p := interpolatePValue(stat, adfCriticalValues, true)
	return StationarityResult{
		Statistic:  stat,
		PValue:     p,
		Lags:       lags,
		Stationary: p < 0.05,
	}, true
}

// kpssCriticalValues for the level-stationarity KPSS test, most
// significant level first.
var kpssCriticalValues = []struct {
	level float64
	value float64
}{
	{0.01, 0.739},
	{0.025, 0.574},
	{0.05, 0.463},
	{0.10, 0.347},
}

// KPSS runs the KPSS level-stationarity test with a Newey-West long-run
// variance. The null hypothesis is stationarity; a statistic above the
// 5% critical value rejects it.
func KPSS(x []float64) (StationarityResult, bool) {
	n := len(x)
	if n < 10 {
		return StationarityResult{}, false
	}
	m := Mean(x)
	resid := make([]float64, n)
	for i, v := range x {
		resid[i] = v - m
	}

	partial := make([]float64, n)
	var run float64
	for i, e := range resid {
		run += e
		partial[i] = run
	}
	var sumS2 float64
	for _, s := range partial {
		sumS2 += s * s
	}

	lags := int(math.Floor(4 * math.Pow(float64(n)/100, 0.25)))
	lrv := longRunVariance(resid, lags)
	if lrv == 0 {
		return StationarityResult{}, false
	}
	nf := float64(n)
	stat := sumS2 / (nf * nf * lrv)
	p := interpolatePValue(stat, kpssCriticalValues, false)
	return StationarityResult{
		Statistic:  stat,
		PValue:     p,
		Lags:       lags,
		Stationary: p > 0.05,
	}, true
}

// longRunVariance estimates the Newey-West long-run variance with
// Bartlett weights.
func longRunVariance(resid []float64, lags int) float64 {
	n := float64(len(resid))
	var s2 float64
	for _, e := range resid {
		s2 += e * e
	}
	s2 /= n
	for l := 1; l <= lags; l++ {
		if l >= len(resid) {
			break
		}
		var gamma float64
		for i := l; i < len(resid); i++ {
			gamma += resid[i] * resid[i-l]
		}
		gamma /= n
		w := 1 - float64(l)/float64(lags+1)
		s2 += 2 * w * gamma
	}
	return s2
}

// olsWithSE solves the least-squares problem and returns the
// coefficient and standard error at the given column.
func olsWithSE(design *mat.Dense, resp *mat.VecDense, col int) (float64, float64, bool) {
	rows, cols := design.Dims()
	var qr mat.QR
	qr.Factorize(design)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, resp); err != nil {
		return 0, 0, false
	}

	// Residual variance.
	var fitted mat.VecDense
	fitted.MulVec(design, &coef)
	var sse float64
	for i := 0; i < rows; i++ {
		r := resp.AtVec(i) - fitted.AtVec(i)
		sse += r * r
	}
	df := float64(rows - cols)
	if df <= 0 {
		return 0, 0, false
	}
	sigma2 := sse / df

	// (X'X)^-1 diagonal entry for the column of interest.
	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return 0, 0, false
	}
	se := math.Sqrt(sigma2 * inv.At(col, col))
	return coef.AtVec(col), se, true
}

// interpolatePValue maps a statistic onto a p-value by linear
// interpolation over a small critical-value table. lowerTail selects the
// ADF orientation (more negative = more significant).
func interpolatePValue(stat float64, table []struct {
	level float64
	value float64
}, lowerTail bool) float64 {
	type pt struct{ level, value float64 }
	pts := make([]pt, len(table))
	for i, t := range table {
		pts[i] = pt{t.level, t.value}
	}
	beyond := func(a, b float64) bool {
		if lowerTail {
			return a <= b
		}
		return a >= b
	}
	// Most significant first in both tables.
	if beyond(stat, pts[0].value) {
		return pts[0].level / 2
	}
	last := pts[len(pts)-1]
	if !beyond(stat, last.value) {
		// Not even at the loosest level; report a clearly
		// non-significant value.
		return math.Min(1, last.level*5)
	}
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		between := (beyond(stat, b.value) && !beyond(stat, a.value))
		if between {
			frac := (stat - a.value) / (b.value - a.value)
			return a.level + frac*(b.level-a.level)
		}
	}
	return last.level
}
