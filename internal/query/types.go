// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// IntentType classifies what the user is trying to accomplish.
type IntentType string

// Intent types.
const (
	IntentExplore      IntentType = "explore"
	IntentMonitor      IntentType = "monitor"
	IntentAnalyze      IntentType = "analyze"
	IntentCompare      IntentType = "compare"
	IntentTroubleshoot IntentType = "troubleshoot"
	IntentForecast     IntentType = "forecast"
	IntentAlert        IntentType = "alert"
	IntentReport       IntentType = "report"
)

// QueryType selects which builder renders the intent.
type QueryType string

// Query types.
const (
	QuerySelect     QueryType = "select"
	QueryFacet      QueryType = "facet"
	QueryTimeseries QueryType = "timeseries"
	QueryPercentile QueryType = "percentile"
	QueryHistogram  QueryType = "histogram"
	QueryRate       QueryType = "rate"
	QueryCompare    QueryType = "compare"
	QueryFunnel     QueryType = "funnel"
)

// SemanticKind classifies an extracted entity.
type SemanticKind string

// Semantic kinds.
const (
	KindMetric    SemanticKind = "metric"
	KindAttribute SemanticKind = "attribute"
	KindEventType SemanticKind = "event_type"
)

// Aggregation names a dialect aggregation function.
type Aggregation string

// Aggregations.
const (
	AggCount       Aggregation = "count"
	AggSum         Aggregation = "sum"
	AggAverage     Aggregation = "average"
	AggMin         Aggregation = "min"
	AggMax         Aggregation = "max"
	AggPercentile  Aggregation = "percentile"
	AggUniqueCount Aggregation = "unique_count"
	AggLatest      Aggregation = "latest"
	AggRate        Aggregation = "rate"
	AggHistogram   Aggregation = "histogram"
)

// Entity is one extracted metric or attribute reference.
type Entity struct {
	Name        string       `json:"name"`
	Kind        SemanticKind `json:"kind"`
	Aggregation Aggregation  `json:"aggregation,omitempty"`
	Alias       string       `json:"alias,omitempty"`
}

// Filter is one extracted predicate.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// OrderBy is an explicit ordering request.
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// TimeRangeType distinguishes the recognized time expressions.
type TimeRangeType string

// Time range types.
const (
	TimeLastHour    TimeRangeType = "last_hour"
	TimeLastDay     TimeRangeType = "last_day"
	TimeLastWeek    TimeRangeType = "last_week"
	TimeLastMonth   TimeRangeType = "last_month"
	TimeLastQuarter TimeRangeType = "last_quarter"
	TimeRelative    TimeRangeType = "relative"
	TimeAbsolute    TimeRangeType = "absolute"
)

// TimeRange is the extracted time window.
type TimeRange struct {
	Type   TimeRangeType `json:"type"`
	Amount int           `json:"amount,omitempty"`
	Unit   string        `json:"unit,omitempty"`
	Since  time.Time     `json:"since,omitempty"`
	Until  time.Time     `json:"until,omitempty"`
}

// Clause renders the mandatory time clause of the dialect.
func (t TimeRange) Clause() string {
	switch t.Type {
	case TimeLastHour:
		return "SINCE 1 hour ago"
	case TimeLastDay:
		return "SINCE 1 day ago"
	case TimeLastWeek:
		return "SINCE 1 week ago"
	case TimeLastMonth:
		return "SINCE 1 month ago"
	case TimeLastQuarter:
		return "SINCE 3 months ago"
	case TimeAbsolute:
		s := fmt.Sprintf("SINCE '%s'", t.Since.Format("2006-01-02 15:04:05"))
		if !t.Until.IsZero() {
			s += fmt.Sprintf(" UNTIL '%s'", t.Until.Format("2006-01-02 15:04:05"))
		}
		return s
	default:
		unit := t.Unit
		if t.Amount != 1 {
			unit += "s"
		}
		return fmt.Sprintf("SINCE %d %s ago", t.Amount, unit)
	}
}

// Hours returns the window length in hours, used by the cost model.
func (t TimeRange) Hours() float64 {
	switch t.Type {
	case TimeLastHour:
		return 1
	case TimeLastDay:
		return 24
	case TimeLastWeek:
		return 168
	case TimeLastMonth:
		return 720
	case TimeLastQuarter:
		return 2160
	case TimeAbsolute:
		until := t.Until
		if until.IsZero() {
			until = time.Now()
		}
		return until.Sub(t.Since).Hours()
	default:
		return float64(t.Amount) * unitHours(t.Unit)
	}
}

func unitHours(unit string) float64 {
	switch unit {
	case "minute":
		return 1.0 / 60
	case "hour":
		return 1
	case "day":
		return 24
	case "week":
		return 168
	case "month":
		return 720
	default:
		return 1
	}
}

// Intent is the structured interpretation of an utterance, independent
// of the output dialect.
type Intent struct {
	IntentType IntentType     `json:"intent_type"`
	QueryType  QueryType      `json:"query_type"`
	Entities   []Entity       `json:"entities"`
	EventTypes []string       `json:"event_types"`
	Filters    []Filter       `json:"filters,omitempty"`
	TimeRange  TimeRange      `json:"time_range"`
	GroupBy    []string       `json:"group_by,omitempty"`
	OrderBy    *OrderBy       `json:"order_by,omitempty"`
	Limit      int            `json:"limit,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Raw        string         `json:"raw"`
}

// Schema describes one event type known to the caller.
type Schema struct {
	Name           string   `json:"name"`
	Attributes     []string `json:"attributes,omitempty"`
	RecordsPerHour float64  `json:"records_per_hour,omitempty"`
}

// Context carries caller knowledge that sharpens parsing and
// optimization.
type Context struct {
	Schemas             []Schema `json:"schemas,omitempty"`
	PreferredEventTypes []string `json:"preferred_event_types,omitempty"`
	AccountID           string   `json:"account_id,omitempty"`
}

// Fingerprint is a stable identity for cache keying.
func (c *Context) Fingerprint() string {
	if c == nil {
		return "-"
	}
	parts := make([]string, 0, len(c.Schemas)+len(c.PreferredEventTypes)+1)
	for _, s := range c.Schemas {
		parts = append(parts, fmt.Sprintf("%s:%.0f", s.Name, s.RecordsPerHour))
	}
	parts = append(parts, c.PreferredEventTypes...)
	parts = append(parts, c.AccountID)
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// Schema returns the schema for an event type, if known.
func (c *Context) Schema(eventType string) (Schema, bool) {
	if c == nil {
		return Schema{}, false
	}
	for _, s := range c.Schemas {
		if strings.EqualFold(s.Name, eventType) {
			return s, true
		}
	}
	return Schema{}, false
}

// CostEstimate is the optimizer's monetary estimate for a query.
type CostEstimate struct {
	EstimatedDollars float64  `json:"estimated_dollars"`
	ScannedRecords   float64  `json:"scanned_records"`
	Factors          []string `json:"factors,omitempty"`
}

// Result is the output of the full generation pipeline.
type Result struct {
	Query         string         `json:"query"`
	Intent        Intent         `json:"intent"`
	Confidence    float64        `json:"confidence"`
	EstimatedCost *CostEstimate  `json:"estimated_cost,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	Suggestions   []string       `json:"suggestions,omitempty"`
	Alternatives  []string       `json:"alternatives,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Explanation decomposes a query string back into its parts.
type Explanation struct {
	Summary      string   `json:"summary"`
	DataSource   string   `json:"data_source"`
	TimeRange    string   `json:"time_range"`
	Aggregations []string `json:"aggregations,omitempty"`
	Filters      []string `json:"filters,omitempty"`
	Grouping     []string `json:"grouping,omitempty"`
}
