// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"
	"sort"
)

// neighborDistances returns, for every row, the distances to every other
// row sorted ascending, along with the matching row indices. Quadratic,
// which is fine for the bounded sample sizes the analyzers work on.
func neighborDistances(rows [][]float64) ([][]float64, [][]int) {
	n := len(rows)
	dists := make([][]float64, n)
	order := make([][]int, n)
	for i := 0; i < n; i++ {
		d := make([]float64, 0, n-1)
		idx := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d = append(d, euclidean(rows[i], rows[j]))
			idx = append(idx, j)
		}
		perm := make([]int, len(d))
		for p := range perm {
			perm[p] = p
		}
		sort.SliceStable(perm, func(a, b int) bool { return d[perm[a]] < d[perm[b]] })
		sd := make([]float64, len(d))
		si := make([]int, len(d))
		for p, q := range perm {
			sd[p] = d[q]
			si[p] = idx[q]
		}
		dists[i] = sd
		order[i] = si
	}
	return dists, order
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// KNNScores returns the mean distance to each row's k nearest
// neighbors. Larger distances indicate more isolated rows.
func KNNScores(rows [][]float64, k int) []float64 {
	n := len(rows)
	if n < 2 {
		return nil
	}
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}
	dists, _ := neighborDistances(rows)
	out := make([]float64, n)
	for i := range rows {
		var sum float64
		for j := 0; j < k; j++ {
			sum += dists[i][j]
		}
		out[i] = sum / float64(k)
	}
	return out
}

// LOFScores returns the Local Outlier Factor for each row. Values near 1
// indicate inliers; values well above 1 indicate outliers.
func LOFScores(rows [][]float64, k int) []float64 {
	n := len(rows)
	if n < 3 {
		return nil
	}
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}
	dists, order := neighborDistances(rows)

	kDist := make([]float64, n)
	for i := range rows {
		kDist[i] = dists[i][k-1]
	}

	// Local reachability density.
	lrd := make([]float64, n)
	for i := range rows {
		var reachSum float64
		for j := 0; j < k; j++ {
			nb := order[i][j]
			reachSum += math.Max(kDist[nb], dists[i][j])
		}
		if reachSum == 0 {
			lrd[i] = math.Inf(1)
		} else {
			lrd[i] = float64(k) / reachSum
		}
	}

	out := make([]float64, n)
	for i := range rows {
		var ratioSum float64
		for j := 0; j < k; j++ {
			nb := order[i][j]
			if math.IsInf(lrd[i], 1) {
				ratioSum += 1
				continue
			}
			ratioSum += lrd[nb] / lrd[i]
		}
		out[i] = ratioSum / float64(k)
	}
	return out
}

// MinMaxNormalize rescales values into [0, 1]; a constant slice maps to
// all zeros.
func MinMaxNormalize(x []float64) []float64 {
	out := make([]float64, len(x))
	lo, hi := MinMax(x)
	if hi == lo {
		return out
	}
	for i, v := range x {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
