// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package numeric

import (
	"math"
	"math/rand"
	"testing"
)

// sine returns n points of a clean sinusoid with the given period.
func sine(n, period int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return out
}

func TestSeasonalDecompose(t *testing.T) {
	x := sine(240, 24, 10)
	dec, ok := SeasonalDecompose(x, 24)
	if !ok {
		t.Fatal("expected decomposition to succeed")
	}
	strength := SeasonalStrength(x, dec)
	if strength < 0.8 {
		t.Errorf("SeasonalStrength = %g for a pure sinusoid, want > 0.8", strength)
	}
	if amp := dec.Amplitude(); amp < 15 {
		t.Errorf("Amplitude = %g, want close to 20", amp)
	}

	// Too short: fewer than two periods.
	if _, ok := SeasonalDecompose(sine(40, 24, 1), 24); ok {
		t.Error("expected failure with fewer than two periods")
	}
}

func TestSeasonalStrengthOnNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := make([]float64, 240)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	dec, ok := SeasonalDecompose(x, 24)
	if !ok {
		t.Fatal("expected decomposition to succeed")
	}
	if strength := SeasonalStrength(x, dec); strength > 0.5 {
		t.Errorf("SeasonalStrength = %g for white noise, want small", strength)
	}
}

func TestACF(t *testing.T) {
	x := sine(200, 20, 1)
	acf := ACF(x, 40)

	// Autocorrelation at the full period should be strongly positive,
	// at the half period strongly negative.
	if acf[19] < 0.8 {
		t.Errorf("ACF at period lag = %g, want > 0.8", acf[19])
	}
	if acf[9] > -0.8 {
		t.Errorf("ACF at half-period lag = %g, want < -0.8", acf[9])
	}
}

func TestLjungBox(t *testing.T) {
	x := sine(200, 20, 1)
	lb := LjungBox(x, 20)
	minP := 1.0
	for _, p := range lb.PValues {
		if p < minP {
			minP = p
		}
	}
	if minP >= 0.05 {
		t.Errorf("min Ljung-Box p = %g for a sinusoid, want < 0.05", minP)
	}
}

func TestStrongestLag(t *testing.T) {
	lag, r := StrongestLag([]float64{0.1, -0.9, 0.3})
	if lag != 2 || r != -0.9 {
		t.Errorf("StrongestLag = %d, %g; want 2, -0.9", lag, r)
	}
	if lag, _ := StrongestLag(nil); lag != 0 {
		t.Errorf("StrongestLag(nil) lag = %d, want 0", lag)
	}
}

func TestADFStationary(t *testing.T) {
	// Mean-reverting AR(1) with small coefficient is stationary.
	rng := rand.New(rand.NewSource(3))
	x := make([]float64, 300)
	for i := 1; i < len(x); i++ {
		x[i] = 0.3*x[i-1] + rng.NormFloat64()
	}
	res, ok := ADF(x)
	if !ok {
		t.Fatal("expected ADF to run")
	}
	if !res.Stationary {
		t.Errorf("ADF.Stationary = false for AR(0.3), statistic %g", res.Statistic)
	}
}

func TestADFRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := make([]float64, 300)
	for i := 1; i < len(x); i++ {
		x[i] = x[i-1] + rng.NormFloat64()
	}
	res, ok := ADF(x)
	if !ok {
		t.Fatal("expected ADF to run")
	}
	if res.Stationary {
		t.Errorf("ADF.Stationary = true for a random walk, statistic %g", res.Statistic)
	}
}

func TestKPSSTrend(t *testing.T) {
	// A strong deterministic trend is non-stationary under KPSS.
	x := make([]float64, 300)
	rng := rand.New(rand.NewSource(9))
	for i := range x {
		x[i] = float64(i) + rng.NormFloat64()
	}
	res, ok := KPSS(x)
	if !ok {
		t.Fatal("expected KPSS to run")
	}
	if res.Stationary {
		t.Errorf("KPSS.Stationary = true for trending data, statistic %g", res.Statistic)
	}
}

func TestKPSSLevel(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := make([]float64, 300)
	for i := range x {
		x[i] = 5 + rng.NormFloat64()
	}
	res, ok := KPSS(x)
	if !ok {
		t.Fatal("expected KPSS to run")
	}
	if !res.Stationary {
		t.Errorf("KPSS.Stationary = false for level noise, statistic %g", res.Statistic)
	}
}
