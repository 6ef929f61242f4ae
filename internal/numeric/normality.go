// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// minNormalityN is the smallest sample the omnibus test accepts; the
// kurtosis transform is unstable below it.
const minNormalityN = 20

// NormalityTest is the D'Agostino K-squared omnibus test combining
// transformed skewness and kurtosis. The statistic is chi-squared with
// two degrees of freedom under normality. Returns ok=false for samples
// smaller than 20 or with zero variance.
func NormalityTest(x []float64) (statistic, pValue float64, ok bool) {
	n := len(x)
	if n < minNormalityN {
		return 0, 0, false
	}
	m2 := centralMoment(x, 2)
	if m2 == 0 {
		return 0, 0, false
	}

	zs, okS := skewnessZ(x, m2)
	zk, okK := kurtosisZ(x, m2)
	if !okS || !okK {
		return 0, 0, false
	}
	k2 := zs*zs + zk*zk
	chi2 := distuv.ChiSquared{K: 2}
	return k2, chi2.Survival(k2), true
}

// skewnessZ transforms the sample skewness to an approximately standard
// normal variate (D'Agostino 1970).
func skewnessZ(x []float64, m2 float64) (float64, bool) {
	n := float64(len(x))
	g1 := centralMoment(x, 3) / math.Pow(m2, 1.5)
	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) /
		((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	if w2 <= 1 {
		return 0, false
	}
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	if alpha == 0 {
		return 0, false
	}
	t := y / alpha
	return delta * math.Log(t+math.Sqrt(t*t+1)), true
}

// kurtosisZ transforms the sample kurtosis to an approximately standard
// normal variate (Anscombe & Glynn 1983).
func kurtosisZ(x []float64, m2 float64) (float64, bool) {
	n := float64(len(x))
	b2 := centralMoment(x, 4) / (m2 * m2)
	e := 3 * (n - 1) / (n + 1)
	varB2 := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	if varB2 <= 0 {
		return 0, false
	}
	xv := (b2 - e) / math.Sqrt(varB2)
	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) *
		math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	if sqrtBeta1 == 0 {
		return 0, false
	}
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	if a <= 4 {
		return 0, false
	}
	denom := 1 + xv*math.Sqrt(2/(a-4))
	if denom <= 0 {
		return 0, false
	}
	term := (1 - 2/a) / denom
	z := ((1 - 2/(9*a)) - math.Cbrt(term)) / math.Sqrt(2/(9*a))
	return z, true
}

// centralMoment returns the k-th central moment (population form).
func centralMoment(x []float64, k int) float64 {
	m := Mean(x)
	var sum float64
	for _, v := range x {
		sum += math.Pow(v-m, float64(k))
	}
	return sum / float64(len(x))
}
