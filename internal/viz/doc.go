// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package viz turns tabular data into dashboard building blocks.
//
// ShapeAnalyzer condenses a frame into a DataShape, Recommender maps
// the shape onto ranked chart recommendations through a fixed rule
// catalog, and Optimizer places widgets on an integer grid under one
// of five strategies, scoring the result for utilization, balance,
// and relationship proximity.
package viz
