// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"
	"math/rand"
)

// IsolationForest scores anomalies by the expected isolation depth over
// an ensemble of random trees. Scores lie in (0, 1); higher means more
// anomalous. The seeded source makes repeated fits over the same data
// identical.
type IsolationForest struct {
	Trees      int
	SampleSize int
	Seed       int64
}

// NewIsolationForest returns a forest with the conventional ensemble
// size (100 trees, 256-row subsamples).
func NewIsolationForest(seed int64) *IsolationForest {
	return &IsolationForest{Trees: 100, SampleSize: 256, Seed: seed}
}

type isoNode struct {
	left, right *isoNode
	feature     int
	split       float64
	size        int
}

// Scores fits the forest on the row-major matrix and returns per-row
// anomaly scores. Returns nil for fewer than two rows.
func (f *IsolationForest) Scores(rows [][]float64) []float64 {
	n := len(rows)
	if n < 2 {
		return nil
	}
	sample := f.SampleSize
	if sample > n {
		sample = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))
	rng := rand.New(rand.NewSource(f.Seed))

	trees := make([]*isoNode, f.Trees)
	for t := range trees {
		idx := rng.Perm(n)[:sample]
		trees[t] = buildIsoTree(rows, idx, 0, maxDepth, rng)
	}

	norm := avgPathLength(float64(sample))
	scores := make([]float64, n)
	for i, row := range rows {
		var depth float64
		for _, tree := range trees {
			depth += isoPathLength(tree, row, 0)
		}
		depth /= float64(len(trees))
		scores[i] = math.Pow(2, -depth/norm)
	}
	return scores
}

func buildIsoTree(rows [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if depth >= maxDepth || len(idx) <= 1 {
		return &isoNode{size: len(idx)}
	}
	dims := len(rows[idx[0]])
	feature := rng.Intn(dims)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := rows[i][feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &isoNode{size: len(idx)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right []int
	for _, i := range idx {
		if rows[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &isoNode{
		feature: feature,
		split:   split,
		size:    len(idx),
		left:    buildIsoTree(rows, left, depth+1, maxDepth, rng),
		right:   buildIsoTree(rows, right, depth+1, maxDepth, rng),
	}
}

func isoPathLength(node *isoNode, row []float64, depth float64) float64 {
	if node.left == nil {
		if node.size > 1 {
			return depth + avgPathLength(float64(node.size))
		}
		return depth
	}
	if row[node.feature] < node.split {
		return isoPathLength(node.left, row, depth+1)
	}
	return isoPathLength(node.right, row, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful BST
// search over n values, the standard isolation-forest normalizer.
func avgPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	const euler = 0.5772156649015329
	return 2*(math.Log(n-1)+euler) - 2*(n-1)/n
}
