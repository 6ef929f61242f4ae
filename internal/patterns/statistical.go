// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/insightd/insightd/internal/frame"
	"github.com/insightd/insightd/internal/numeric"
)

// StatisticalDetector finds distribution shape, outlier, and data
// quality patterns in individual columns.
type StatisticalDetector struct {
	cfg DetectorConfig
}

// NewStatisticalDetector returns the detector configured with cfg.
func NewStatisticalDetector(cfg DetectorConfig) *StatisticalDetector {
	return &StatisticalDetector{cfg: cfg}
}

// Name implements Detector.
func (d *StatisticalDetector) Name() string { return "statistical" }

// Supported implements Detector.
func (d *StatisticalDetector) Supported() []PatternType {
	return []PatternType{
		PatternNormalDistribution,
		PatternSkewedDistribution,
		PatternUniformDistribution,
		PatternBimodalDistribution,
		PatternOutlier,
		PatternMissingData,
		PatternInconsistentData,
	}
}

// Detect implements Detector.
func (d *StatisticalDetector) Detect(ctx context.Context, f *frame.Frame, columns []string, _ Context) ([]Pattern, error) {
	var out []Pattern
	for _, name := range columns {
		if ctxExpired(ctx) {
			return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
		}
		c, ok := usableColumn(f, name, d.cfg.MinSamples)
		if !ok {
			continue
		}
		switch {
		case c.DType().IsNumeric():
			out = append(out, d.numericPatterns(c)...)
		case c.DType().IsCategorical():
			out = append(out, d.categoricalPatterns(c)...)
		case c.DType() == frame.DTypeBoolean:
			out = append(out, d.booleanPatterns(c)...)
		}
		// Missing data applies to every dtype.
		if p, ok := d.missingDataPattern(c); ok {
			out = append(out, p)
		}
	}
	return filterConfidence(out, d.cfg.ConfidenceThreshold), nil
}

func (d *StatisticalDetector) numericPatterns(c *frame.Column) []Pattern {
	values, indices := c.NonNullFloats()
	var out []Pattern

	if p, ok := d.distributionPattern(c.Name(), values); ok {
		out = append(out, p)
	}
	if p, ok := d.outlierPattern(c.Name(), values, indices); ok {
		out = append(out, p)
	}
	if p, ok := d.multimodalPattern(c.Name(), values); ok {
		out = append(out, p)
	}
	return out
}

// distributionPattern classifies the column's distribution: normal when
// the omnibus test does not reject, skewed when |skew| > 1, uniform
// when the coefficient of variation is below 0.1.
func (d *StatisticalDetector) distributionPattern(column string, values []float64) (Pattern, bool) {
	stat, p, ok := numeric.NormalityTest(values)
	skew := numeric.Skewness(values)
	cv := numeric.CoefficientOfVariation(values)

	switch {
	case ok && p > 0.05:
		return Pattern{
			Type:       PatternNormalDistribution,
			Confidence: math.Min(0.95, 0.5+p),
			Impact:     ImpactLow,
			Columns:    []string{column},
			Parameters: map[string]any{
				"mean":   numeric.Mean(values),
				"stddev": numeric.StdDev(values),
			},
			Evidence: []Evidence{{
				Description: fmt.Sprintf("omnibus normality test does not reject normality for %q", column),
				StatisticalTests: map[string]float64{
					"k2_statistic": stat,
					"p_value":      p,
				},
			}},
			Recommendations: []string{
				fmt.Sprintf("parametric methods (z-scores, control limits) are appropriate for %q", column),
			},
			VisualHints: map[string]any{"chart": "histogram", "overlay": "normal_curve"},
			DetectedAt:  time.Now().UTC(),
		}, true
	case math.Abs(skew) > 1:
		direction := "right"
		if skew < 0 {
			direction = "left"
		}
		return Pattern{
			Type:       PatternSkewedDistribution,
			Confidence: math.Min(0.95, 0.5+math.Abs(skew)/3),
			Impact:     skewImpact(skew),
			Columns:    []string{column},
			Parameters: map[string]any{
				"skewness":  skew,
				"direction": direction,
			},
			Evidence: []Evidence{{
				Description: fmt.Sprintf("%q is %s-skewed", column, direction),
				StatisticalTests: map[string]float64{
					"skewness": skew,
				},
			}},
			Recommendations: []string{
				fmt.Sprintf("consider a log or rank transform before averaging %q", column),
				fmt.Sprintf("prefer percentiles over means when summarizing %q", column),
			},
			VisualHints: map[string]any{"chart": "histogram", "scale": "log"},
			DetectedAt:  time.Now().UTC(),
		}, true
	case !math.IsInf(cv, 1) && cv < 0.1:
		return Pattern{
			Type:       PatternUniformDistribution,
			Confidence: 0.75,
			Impact:     ImpactLow,
			Columns:    []string{column},
			Parameters: map[string]any{
				"coefficient_of_variation": cv,
			},
			Evidence: []Evidence{{
				Description: fmt.Sprintf("%q varies little around its mean", column),
				StatisticalTests: map[string]float64{
					"coefficient_of_variation": cv,
				},
			}},
			VisualHints: map[string]any{"chart": "billboard"},
			DetectedAt:  time.Now().UTC(),
		}, true
	}
	return Pattern{}, false
}

// outlierPattern applies the IQR rule; confidence scales with the
// outlier fraction, capped at 1.
func (d *StatisticalDetector) outlierPattern(column string, values []float64, indices []int) (Pattern, bool) {
	outliers := numeric.IQROutlierIndices(values)
	if len(outliers) == 0 {
		return Pattern{}, false
	}
	frac := float64(len(outliers)) / float64(len(values))
	lo, hi := numeric.IQRBounds(values)

	points := make([]DataPoint, 0, len(outliers))
	for _, oi := range outliers {
		points = append(points, DataPoint{Index: indices[oi], Value: values[oi]})
	}

	return Pattern{
		Type:       PatternOutlier,
		Confidence: math.Min(1, frac*20),
		Impact:     outlierImpact(frac),
		Columns:    []string{column},
		Parameters: map[string]any{
			"outlier_count":    len(outliers),
			"outlier_fraction": frac,
			"lower_bound":      lo,
			"upper_bound":      hi,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%d of %d values in %q fall outside the Tukey fences", len(outliers), len(values), column),
			StatisticalTests: map[string]float64{
				"lower_fence": lo,
				"upper_fence": hi,
			},
			DataPoints: points,
		}},
		Recommendations: []string{
			fmt.Sprintf("inspect the flagged rows of %q before aggregating", column),
		},
		VisualHints: map[string]any{"chart": "boxplot"},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// multimodalPattern compares 1-, 2-, and 3-component Gaussian mixtures
// by BIC. Two components beating one reports bimodal; three beating
// two upgrades the pattern to multimodal.
func (d *StatisticalDetector) multimodalPattern(column string, values []float64) (Pattern, bool) {
	one, ok1 := numeric.FitGaussianMixture(values, 1)
	two, ok2 := numeric.FitGaussianMixture(values, 2)
	if !ok1 || !ok2 || two.BIC >= one.BIC {
		return Pattern{}, false
	}
	best, ptype, k := two, PatternBimodalDistribution, 2
	tests := map[string]float64{
		"bic_1": one.BIC,
		"bic_2": two.BIC,
	}
	if three, ok3 := numeric.FitGaussianMixture(values, 3); ok3 && three.BIC < two.BIC {
		best, ptype, k = three, PatternMultimodalDistribution, 3
		tests["bic_3"] = three.BIC
	}

	improvement := (one.BIC - best.BIC) / math.Abs(one.BIC)
	return Pattern{
		Type:       ptype,
		Confidence: math.Min(0.9, 10*improvement),
		Impact:     ImpactMedium,
		Columns:    []string{column},
		Parameters: map[string]any{
			"components":        k,
			"component_means":   best.Means,
			"component_weights": best.Weights,
		},
		Evidence: []Evidence{{
			Description:      fmt.Sprintf("a %d-component mixture fits %q better than a single Gaussian", k, column),
			StatisticalTests: tests,
		}},
		Recommendations: []string{
			fmt.Sprintf("segment %q before computing summary statistics; %d populations are present", column, k),
		},
		VisualHints: map[string]any{"chart": "histogram", "bins": 30},
		DetectedAt:  time.Now().UTC(),
	}, true
}

// missingDataPattern reports null density; severity grows with the
// missing fraction, confidence is fixed.
func (d *StatisticalDetector) missingDataPattern(c *frame.Column) (Pattern, bool) {
	frac := c.NullFraction()
	if frac <= 0 {
		return Pattern{}, false
	}
	impact := ImpactLow
	switch {
	case frac > 0.5:
		impact = ImpactHigh
	case frac > 0.2:
		impact = ImpactMedium
	}
	return Pattern{
		Type:       PatternMissingData,
		Confidence: 0.95,
		Impact:     impact,
		Columns:    []string{c.Name()},
		Parameters: map[string]any{
			"missing_fraction": frac,
			"missing_count":    c.NullCount(),
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%.1f%% of %q is missing", frac*100, c.Name()),
			StatisticalTests: map[string]float64{
				"missing_fraction": frac,
			},
		}},
		Recommendations: []string{
			fmt.Sprintf("verify ingestion for %q or exclude it from aggregates", c.Name()),
		},
		DetectedAt: time.Now().UTC(),
	}, true
}

func (d *StatisticalDetector) categoricalPatterns(c *frame.Column) []Pattern {
	var out []Pattern
	rows := c.Len() - c.NullCount()
	if rows == 0 {
		return nil
	}

	cardinality := c.UniqueCount()
	if float64(cardinality)/float64(rows) > 0.5 {
		out = append(out, Pattern{
			Type:       PatternInconsistentData,
			Confidence: 0.85,
			Impact:     ImpactMedium,
			Columns:    []string{c.Name()},
			Parameters: map[string]any{
				"cardinality":  cardinality,
				"unique_ratio": float64(cardinality) / float64(rows),
			},
			Evidence: []Evidence{{
				Description: fmt.Sprintf("%q has %d distinct values across %d rows; likely a free-form or identifier field", c.Name(), cardinality, rows),
			}},
			Recommendations: []string{
				fmt.Sprintf("avoid grouping by %q; cardinality is too high for faceting", c.Name()),
			},
			DetectedAt: time.Now().UTC(),
		})
	}

	counts := c.ValueCounts()
	if len(counts) > 0 {
		topFrac := float64(counts[0].Count) / float64(rows)
		if topFrac > 0.8 {
			out = append(out, Pattern{
				Type:       PatternSkewedDistribution,
				Confidence: topFrac,
				Impact:     ImpactMedium,
				Columns:    []string{c.Name()},
				Parameters: map[string]any{
					"top_category":   counts[0].Value,
					"top_fraction":   topFrac,
					"category_count": len(counts),
				},
				Evidence: []Evidence{{
					Description: fmt.Sprintf("category %q dominates %q (%.0f%% of rows)", counts[0].Value, c.Name(), topFrac*100),
				}},
				Recommendations: []string{
					fmt.Sprintf("filter out the dominant %q value to see the long tail of %q", counts[0].Value, c.Name()),
				},
				VisualHints: map[string]any{"chart": "bar"},
				DetectedAt:  time.Now().UTC(),
			})
		}
	}
	return out
}

func (d *StatisticalDetector) booleanPatterns(c *frame.Column) []Pattern {
	bools := c.Bools()
	total := 0
	trues := 0
	for i, b := range bools {
		if c.IsNull(i) {
			continue
		}
		total++
		if b {
			trues++
		}
	}
	if total == 0 {
		return nil
	}
	ratio := float64(trues) / float64(total)
	if math.Abs(ratio-0.5) <= 0.4 {
		return nil
	}
	return []Pattern{{
		Type:       PatternSkewedDistribution,
		Confidence: math.Min(0.95, 0.5+math.Abs(ratio-0.5)),
		Impact:     ImpactLow,
		Columns:    []string{c.Name()},
		Parameters: map[string]any{
			"true_ratio": ratio,
		},
		Evidence: []Evidence{{
			Description: fmt.Sprintf("%q is almost always %v", c.Name(), ratio > 0.5),
			StatisticalTests: map[string]float64{
				"true_ratio": ratio,
			},
		}},
		DetectedAt: time.Now().UTC(),
	}}
}

func skewImpact(skew float64) Impact {
	if math.Abs(skew) > 2 {
		return ImpactMedium
	}
	return ImpactLow
}

func outlierImpact(frac float64) Impact {
	switch {
	case frac > 0.1:
		return ImpactHigh
	case frac > 0.03:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// filterConfidence drops patterns below the configured threshold,
// preserving order. Detectors apply it before returning so the
// post-condition on confidence always holds.
func filterConfidence(ps []Pattern, threshold float64) []Pattern {
	out := ps[:0]
	for _, p := range ps {
		if p.Confidence >= threshold {
			out = append(out, p)
		}
	}
	return out
}
