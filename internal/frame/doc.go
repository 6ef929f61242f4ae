// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package frame provides the immutable column-oriented dataset that the
// pattern and visualization engines analyze.
//
// A Frame maps column names (unique, insertion-ordered) to typed columns.
// Each column carries a semantic dtype inferred at construction time
// (temporal, boolean, numeric continuous/discrete, categorical, text) and
// a null mask. Frames never mutate after construction; derived frames
// (column slices, time-sorted views) are new values that share column
// storage where possible.
package frame
