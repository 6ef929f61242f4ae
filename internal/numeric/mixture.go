// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"
	"sort"
)

// MixtureFit holds a one-dimensional Gaussian mixture fitted by EM.
type MixtureFit struct {
	Components int
	Means      []float64
	Variances  []float64
	Weights    []float64
	LogLik     float64
	BIC        float64
}

const (
	emMaxIter = 100
	emTol     = 1e-6
	varFloor  = 1e-9
)

// FitGaussianMixture fits a k-component Gaussian mixture to x with
// deterministic quantile initialization. Returns ok=false when the
// sample is too small or degenerate.
func FitGaussianMixture(x []float64, k int) (MixtureFit, bool) {
	n := len(x)
	if k < 1 || n < 4*k {
		return MixtureFit{}, false
	}
	overallVar := Variance(x)
	if overallVar == 0 {
		return MixtureFit{}, false
	}

	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	means := make([]float64, k)
	vars := make([]float64, k)
	weights := make([]float64, k)
	for c := 0; c < k; c++ {
		q := (float64(c) + 0.5) / float64(k)
		means[c] = sorted[int(q*float64(n-1))]
		vars[c] = overallVar
		weights[c] = 1 / float64(k)
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	logLik := math.Inf(-1)
	for iter := 0; iter < emMaxIter; iter++ {
		// E step.
		var newLogLik float64
		for i, v := range x {
			var total float64
			for c := 0; c < k; c++ {
				resp[i][c] = weights[c] * normalPDF(v, means[c], vars[c])
				total += resp[i][c]
			}
			if total <= 0 {
				total = math.SmallestNonzeroFloat64
			}
			for c := 0; c < k; c++ {
				resp[i][c] /= total
			}
			newLogLik += math.Log(total)
		}

		// M step.
		for c := 0; c < k; c++ {
			var nk, mu float64
			for i, v := range x {
				nk += resp[i][c]
				mu += resp[i][c] * v
			}
			if nk <= 0 {
				return MixtureFit{}, false
			}
			mu /= nk
			var sigma2 float64
			for i, v := range x {
				d := v - mu
				sigma2 += resp[i][c] * d * d
			}
			sigma2 /= nk
			if sigma2 < varFloor {
				sigma2 = varFloor
			}
			means[c] = mu
			vars[c] = sigma2
			weights[c] = nk / float64(n)
		}

		if math.Abs(newLogLik-logLik) < emTol {
			logLik = newLogLik
			break
		}
		logLik = newLogLik
	}

	// Free parameters: k means, k variances, k-1 weights.
	params := float64(3*k - 1)
	bic := -2*logLik + params*math.Log(float64(n))
	return MixtureFit{
		Components: k,
		Means:      means,
		Variances:  vars,
		Weights:    weights,
		LogLik:     logLik,
		BIC:        bic,
	}, true
}

func normalPDF(x, mean, variance float64) float64 {
	d := x - mean
	return math.Exp(-d*d/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}
