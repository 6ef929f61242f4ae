// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"
	"sort"
)

// miBins is the number of quantile bins used for mutual information.
const miBins = 10

// MutualInformation estimates I(X;Y) in nats via quantile-binned
// histograms. Returns 0 for degenerate input.
func MutualInformation(x, y []float64) float64 {
	n := len(x)
	if n == 0 || len(y) != n {
		return 0
	}
	bx := quantileBin(x, miBins)
	by := quantileBin(y, miBins)

	joint := make(map[[2]int]float64)
	px := make(map[int]float64)
	py := make(map[int]float64)
	for i := 0; i < n; i++ {
		joint[[2]int{bx[i], by[i]}]++
		px[bx[i]]++
		py[by[i]]++
	}
	nf := float64(n)
	var mi float64
	for key, c := range joint {
		pxy := c / nf
		pxi := px[key[0]] / nf
		pyi := py[key[1]] / nf
		mi += pxy * math.Log(pxy/(pxi*pyi))
	}
	if mi < 0 {
		mi = 0
	}
	return mi
}

// NormalizedMutualInformation returns I(X;Y) / H(Y), 0 when the target
// entropy is 0.
func NormalizedMutualInformation(x, y []float64) float64 {
	h := BinnedEntropy(y)
	if h == 0 {
		return 0
	}
	return MutualInformation(x, y) / h
}

// BinnedEntropy returns the entropy of the quantile-binned values in nats.
func BinnedEntropy(x []float64) float64 {
	bins := quantileBin(x, miBins)
	counts := make(map[int]float64)
	for _, b := range bins {
		counts[b]++
	}
	nf := float64(len(x))
	var h float64
	for _, c := range counts {
		p := c / nf
		h -= p * math.Log(p)
	}
	return h
}

// quantileBin assigns each value to one of k quantile bins.
func quantileBin(x []float64, k int) []int {
	n := len(x)
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	edges := make([]float64, 0, k-1)
	for b := 1; b < k; b++ {
		edges = append(edges, sorted[b*n/k])
	}

	out := make([]int, n)
	for i, v := range x {
		bin := sort.SearchFloat64s(edges, v)
		out[i] = bin
	}
	return out
}
