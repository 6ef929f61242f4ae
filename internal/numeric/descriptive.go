// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, NaN for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// StdDev returns the sample standard deviation, 0 for fewer than two values.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// Variance returns the sample variance, 0 for fewer than two values.
func Variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.Variance(x, nil)
}

// Skewness returns the sample skewness, 0 for fewer than three values.
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return 0
	}
	return stat.Skew(x, nil)
}

// ExcessKurtosis returns the sample excess kurtosis, 0 for fewer than
// four values.
func ExcessKurtosis(x []float64) float64 {
	if len(x) < 4 {
		return 0
	}
	return stat.ExKurtosis(x, nil)
}

// CoefficientOfVariation returns stddev / |mean|, +Inf when the mean is 0.
func CoefficientOfVariation(x []float64) float64 {
	m := Mean(x)
	if m == 0 {
		return math.Inf(1)
	}
	return StdDev(x) / math.Abs(m)
}

// MinMax returns the minimum and maximum, NaNs for empty input.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi := x[0], x[0]
	for _, v := range x[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Quantile returns the p-quantile (0 <= p <= 1) using the empirical
// distribution, without mutating the input.
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// IQRBounds returns the Tukey fences [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
func IQRBounds(x []float64) (float64, float64) {
	q1 := Quantile(x, 0.25)
	q3 := Quantile(x, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// IQROutlierIndices returns the positions of values outside the Tukey
// fences, in input order.
func IQROutlierIndices(x []float64) []int {
	lo, hi := IQRBounds(x)
	var out []int
	for i, v := range x {
		if v < lo || v > hi {
			out = append(out, i)
		}
	}
	return out
}

// ZScores returns the standard scores (0s when the deviation is 0).
func ZScores(x []float64) []float64 {
	m, s := Mean(x), StdDev(x)
	out := make([]float64, len(x))
	if s == 0 {
		return out
	}
	for i, v := range x {
		out[i] = (v - m) / s
	}
	return out
}

// Diff returns first differences x[i+1]-x[i] (length n-1).
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

// RollingMean returns the trailing mean over the given window. The first
// window-1 positions hold NaN.
func RollingMean(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	if window <= 0 || window > len(x) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i, v := range x {
		sum += v
		if i >= window {
			sum -= x[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Standardize returns (x - mean) / std column-wise for a row-major
// matrix. Zero-deviation columns are left centered only.
func Standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	dims := len(rows[0])
	means := make([]float64, dims)
	stds := make([]float64, dims)
	col := make([]float64, len(rows))
	for d := 0; d < dims; d++ {
		for i, r := range rows {
			col[i] = r[d]
		}
		means[d] = Mean(col)
		stds[d] = StdDev(col)
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, dims)
		for d := 0; d < dims; d++ {
			v := r[d] - means[d]
			if stds[d] > 0 {
				v /= stds[d]
			}
			out[i][d] = v
		}
	}
	return out
}
