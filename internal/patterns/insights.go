// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package patterns

import (
	"fmt"
	"math"
	"strings"
)

// Insight is a summary derived deterministically from the final
// pattern list of an analysis.
type Insight struct {
	Type            string         `json:"type"`
	Description     string         `json:"description"`
	Severity        string         `json:"severity"`
	Details         map[string]any `json:"details,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Recommendation is an actionable suggestion tagged with its source.
type Recommendation struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// SynthesizeInsights derives summary insights from a ranked pattern
// list. The output order is fixed: anomaly, trend, correlation, data
// quality.
func SynthesizeInsights(patterns []Pattern) []Insight {
	var insights []Insight
	if in, ok := anomalySummary(patterns); ok {
		insights = append(insights, in)
	}
	if in, ok := trendSummary(patterns); ok {
		insights = append(insights, in)
	}
	if in, ok := correlationSummary(patterns); ok {
		insights = append(insights, in)
	}
	if in, ok := dataQualitySummary(patterns); ok {
		insights = append(insights, in)
	}
	return insights
}

// BuildRecommendations concatenates high-severity insight
// recommendations first, then the top-10 pattern recommendations
// deduplicated by string.
func BuildRecommendations(patterns []Pattern, insights []Insight) []Recommendation {
	var out []Recommendation
	seen := make(map[string]struct{})

	for _, in := range insights {
		if in.Severity != "high" {
			continue
		}
		for _, r := range in.Recommendations {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, Recommendation{Text: r, Source: in.Type, Confidence: 1})
		}
	}

	taken := 0
	for i := range patterns {
		if taken >= 10 {
			break
		}
		for _, r := range patterns[i].Recommendations {
			if taken >= 10 {
				break
			}
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, Recommendation{
				Text:       r,
				Source:     string(patterns[i].Type),
				Confidence: patterns[i].Confidence,
			})
			taken++
		}
	}
	return out
}

func anomalySummary(patterns []Pattern) (Insight, bool) {
	total := 0
	var columns []string
	for i := range patterns {
		switch patterns[i].Type {
		case PatternAnomalyPoint, PatternAnomalyCollective, PatternAnomalyContextual, PatternOutlier:
		default:
			continue
		}
		total += anomalyCount(&patterns[i])
		columns = append(columns, patterns[i].Columns...)
	}
	if total == 0 {
		return Insight{}, false
	}
	severity := "medium"
	if total > 50 {
		severity = "high"
	}
	return Insight{
		Type:     "anomaly_summary",
		Severity: severity,
		Description: fmt.Sprintf("%d anomalous data points detected across %s",
			total, strings.Join(dedupeStrings(columns), ", ")),
		Details: map[string]any{
			"total_anomalies": total,
			"columns":         dedupeStrings(columns),
		},
		Recommendations: []string{
			"Investigate the flagged rows for incidents or data collection faults",
			"Consider alerting on the affected columns",
		},
	}, true
}

func trendSummary(patterns []Pattern) (Insight, bool) {
	increasing, decreasing, exponential := 0, 0, 0
	for i := range patterns {
		switch patterns[i].Type {
		case PatternTrendLinear:
			if slope, ok := patterns[i].Parameters["slope"].(float64); ok && slope < 0 {
				decreasing++
			} else {
				increasing++
			}
		case PatternTrendExponential:
			exponential++
		}
	}
	total := increasing + decreasing + exponential
	if total == 0 {
		return Insight{}, false
	}
	severity := "medium"
	if exponential > 0 {
		severity = "high"
	}
	return Insight{
		Type:     "trend_summary",
		Severity: severity,
		Description: fmt.Sprintf("%d trending series: %d increasing, %d decreasing, %d exponential",
			total, increasing, decreasing, exponential),
		Details: map[string]any{
			"increasing":  increasing,
			"decreasing":  decreasing,
			"exponential": exponential,
		},
		Recommendations: []string{
			"Project trending metrics forward to anticipate capacity needs",
		},
	}, true
}

func correlationSummary(patterns []Pattern) (Insight, bool) {
	var pairs []string
	for i := range patterns {
		r, ok := patterns[i].Parameters["pearson_r"].(float64)
		if !ok || math.Abs(r) <= 0.7 {
			continue
		}
		pairs = append(pairs, strings.Join(patterns[i].Columns, "~"))
	}
	if len(pairs) == 0 {
		return Insight{}, false
	}
	return Insight{
		Type:     "correlation_summary",
		Severity: "medium",
		Description: fmt.Sprintf("%d strongly correlated column pairs: %s",
			len(pairs), strings.Join(pairs, ", ")),
		Details: map[string]any{"pairs": pairs},
		Recommendations: []string{
			"Strongly correlated metrics may be redundant on dashboards",
		},
	}, true
}

func dataQualitySummary(patterns []Pattern) (Insight, bool) {
	var columns []string
	worst := 0.0
	for i := range patterns {
		if patterns[i].Type != PatternMissingData {
			continue
		}
		frac, ok := patterns[i].Parameters["missing_fraction"].(float64)
		if !ok || frac <= 0.2 {
			continue
		}
		columns = append(columns, patterns[i].Columns...)
		if frac > worst {
			worst = frac
		}
	}
	if len(columns) == 0 {
		return Insight{}, false
	}
	return Insight{
		Type:     "data_quality",
		Severity: "high",
		Description: fmt.Sprintf("Significant missing data in %s (worst %.0f%%)",
			strings.Join(dedupeStrings(columns), ", "), worst*100),
		Details: map[string]any{
			"columns":        dedupeStrings(columns),
			"worst_fraction": worst,
		},
		Recommendations: []string{
			"Check collection pipelines for the affected columns",
			"Exclude heavily incomplete columns from automated analysis",
		},
	}, true
}

// anomalyCount reads the anomaly point count off a pattern, preferring
// the explicit count, then the index list, then the evidence points.
func anomalyCount(p *Pattern) int {
	if n, ok := p.Parameters["anomaly_count"].(int); ok {
		return n
	}
	if idx, ok := p.Parameters["anomaly_indices"].([]int); ok {
		return len(idx)
	}
	n := 0
	for _, ev := range p.Evidence {
		n += len(ev.DataPoints)
	}
	return n
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
