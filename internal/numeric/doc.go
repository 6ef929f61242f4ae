// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

// Package numeric implements the statistical routines shared by the
// pattern detectors: descriptive statistics, linear and log regression,
// the D'Agostino K-squared omnibus normality test, ADF and KPSS
// stationarity tests, Ljung-Box autocorrelation, additive seasonal
// decomposition, Gaussian mixture fitting by EM with BIC selection,
// Isolation Forest, Local Outlier Factor, k-nearest-neighbor distance
// scoring, and histogram mutual information.
//
// Everything here is deterministic: routines that need randomness take a
// seed. Inputs are plain float slices; callers strip nulls first.
package numeric
