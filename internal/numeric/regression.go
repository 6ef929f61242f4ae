// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Regression holds a simple least-squares fit of y on x.
type Regression struct {
	Slope     float64
	Intercept float64
	R         float64 // Pearson correlation of x and y
	RSquared  float64
	PValue    float64 // two-sided t-test on the slope
	StdErr    float64 // standard error of the slope
	N         int
}

// LinearRegression fits y = intercept + slope*x by ordinary least
// squares and tests the slope against zero. Returns ok=false for fewer
// than three points or zero variance in x.
func LinearRegression(x, y []float64) (Regression, bool) {
	n := len(x)
	if n < 3 || len(y) != n {
		return Regression{}, false
	}
	varX := Variance(x)
	if varX == 0 {
		return Regression{}, false
	}
	intercept, slope := stat.LinearRegression(x, y, nil, false)
	r := stat.Correlation(x, y, nil)
	r2 := r * r

	// Residual standard error and slope t-test.
	var sse, sxx float64
	meanX := Mean(x)
	for i := range x {
		resid := y[i] - (intercept + slope*x[i])
		sse += resid * resid
		dx := x[i] - meanX
		sxx += dx * dx
	}
	df := float64(n - 2)
	se := math.Sqrt(sse/df) / math.Sqrt(sxx)
	p := 1.0
	if se > 0 {
		t := slope / se
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		p = 2 * (1 - dist.CDF(math.Abs(t)))
	} else if slope != 0 {
		p = 0
	}

	return Regression{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		RSquared:  r2,
		PValue:    p,
		StdErr:    se,
		N:         n,
	}, true
}

// LogRegression fits log(y) = intercept + slope*x over the points where
// y > 0, for exponential-trend evidence. Returns ok=false when fewer
// than three positive points remain.
func LogRegression(x, y []float64) (Regression, bool) {
	var lx, ly []float64
	for i := range y {
		if y[i] > 0 {
			lx = append(lx, x[i])
			ly = append(ly, math.Log(y[i]))
		}
	}
	return LinearRegression(lx, ly)
}

// PearsonPValue returns the two-sided p-value for a Pearson correlation
// r over n samples, via the t transform.
func PearsonPValue(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(t)))
}
