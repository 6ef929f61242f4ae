// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"fmt"
	"strings"

	"github.com/insightd/insightd/internal/logging"
)

// reservedFields must be backtick-quoted in the output dialect.
var reservedFields = map[string]bool{
	"timestamp": true,
	"type":      true,
	"name":      true,
	"host":      true,
	"user":      true,
	"message":   true,
}

// EscapeField wraps a field name in backticks when it contains a space
// or hyphen or collides with a reserved word. Already-escaped names
// pass through.
func EscapeField(name string) string {
	if strings.HasPrefix(name, "`") && strings.HasSuffix(name, "`") {
		return name
	}
	if reservedFields[name] || strings.ContainsAny(name, " -") {
		return "`" + name + "`"
	}
	return name
}

// UnescapeField strips the backticks EscapeField adds.
func UnescapeField(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, "`"), "`")
}

// quoteValue renders a filter value as a dialect literal. Strings are
// single-quoted with internal quotes backslash-escaped.
func quoteValue(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(t, "'", `\'`) + "'"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case int:
		return fmt.Sprintf("%d", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Builder renders an Intent into the telemetry dialect. One method per
// query type; all share the clause helpers so clause ordering stays
// SELECT FROM WHERE SINCE FACET TIMESERIES ORDER LIMIT COMPARE.
type Builder struct{}

// NewBuilder returns a builder.
func NewBuilder() *Builder { return &Builder{} }

// Build dispatches on the intent's query type, validates the result,
// and applies the always-on auto-optimize pass.
func (b *Builder) Build(intent Intent) string {
	var q string
	switch intent.QueryType {
	case QueryFacet:
		q = b.buildFacet(intent)
	case QueryTimeseries:
		q = b.buildTimeseries(intent)
	case QueryPercentile:
		q = b.buildPercentile(intent)
	case QueryHistogram:
		q = b.buildHistogram(intent)
	case QueryRate:
		q = b.buildRate(intent)
	case QueryCompare:
		q = b.buildCompare(intent)
	case QueryFunnel:
		q = b.buildFunnel(intent)
	default:
		q = b.buildSelect(intent)
	}

	if err := Validate(q); err != nil {
		logging.Warn().
			Str("query", q).
			Err(err).
			Msg("Generated query failed validation; returning as-is")
		return q
	}
	return b.autoOptimize(q)
}

// Validate performs the syntactic checks: SELECT and FROM present,
// unescaped single-quote count even, parentheses balanced.
func Validate(q string) error {
	if !strings.Contains(q, "SELECT") {
		return fmt.Errorf("query missing SELECT")
	}
	if !strings.Contains(q, "FROM") {
		return fmt.Errorf("query missing FROM")
	}
	quotes := 0
	depth := 0
	for i := 0; i < len(q); i++ {
		switch q[i] {
		case '\'':
			if i > 0 && q[i-1] == '\\' {
				continue
			}
			quotes++
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if quotes%2 != 0 {
		return fmt.Errorf("unbalanced single quotes")
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	return nil
}

// autoOptimize appends LIMIT 100 to unbounded non-timeseries queries.
func (b *Builder) autoOptimize(q string) string {
	if !strings.Contains(q, "LIMIT") && !strings.Contains(q, "TIMESERIES") {
		return q + " LIMIT 100"
	}
	return q
}

func (b *Builder) buildSelect(intent Intent) string {
	parts := []string{
		"SELECT " + b.selectItems(intent.Entities),
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	parts = appendNonEmpty(parts, b.orderClause(intent), b.limitClause(intent))
	return strings.Join(parts, " ")
}

func (b *Builder) buildFacet(intent Intent) string {
	parts := []string{
		"SELECT " + b.selectItems(intent.Entities),
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	parts = appendNonEmpty(parts, b.facetClause(intent), b.orderClause(intent), b.limitClause(intent))
	return strings.Join(parts, " ")
}

func (b *Builder) buildTimeseries(intent Intent) string {
	parts := []string{
		"SELECT " + b.selectItems(intent.Entities),
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	parts = appendNonEmpty(parts, b.facetClause(intent))
	ts := "TIMESERIES"
	if bucket, ok := intent.Metadata["bucket"].(string); ok && bucket != "" {
		ts += " " + bucket
	}
	parts = append(parts, ts)
	return strings.Join(parts, " ")
}

func (b *Builder) buildPercentile(intent Intent) string {
	field := "duration"
	for _, e := range intent.Entities {
		if e.Name != "*" {
			field = e.Name
			break
		}
	}
	ps := metadataPercentiles(intent.Metadata)
	items := make([]string, len(ps))
	for i, p := range ps {
		items[i] = fmt.Sprintf("percentile(%s, %d) AS 'p%d'", EscapeField(field), p, p)
	}
	parts := []string{
		"SELECT " + strings.Join(items, ", "),
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	parts = appendNonEmpty(parts, b.facetClause(intent), b.limitClause(intent))
	return strings.Join(parts, " ")
}

func (b *Builder) buildHistogram(intent Intent) string {
	field := "duration"
	for _, e := range intent.Entities {
		if e.Name != "*" {
			field = e.Name
			break
		}
	}
	parts := []string{
		fmt.Sprintf("SELECT histogram(%s)", EscapeField(field)),
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	parts = appendNonEmpty(parts, b.facetClause(intent))
	return strings.Join(parts, " ")
}

func (b *Builder) buildRate(intent Intent) string {
	interval := "1 minute"
	if iv, ok := intent.Metadata["rate_interval"].(string); ok && iv != "" {
		interval = iv
	}
	field := "*"
	for _, e := range intent.Entities {
		if e.Name != "*" {
			field = e.Name
			break
		}
	}
	var item string
	if field == "*" {
		item = fmt.Sprintf("rate(count(*), %s)", interval)
	} else {
		item = fmt.Sprintf("rate(sum(%s), %s)", EscapeField(field), interval)
	}
	parts := []string{
		"SELECT " + item,
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	parts = appendNonEmpty(parts, b.facetClause(intent))
	parts = append(parts, "TIMESERIES")
	return strings.Join(parts, " ")
}

func (b *Builder) buildCompare(intent Intent) string {
	period := "1 week"
	if p, ok := intent.Metadata["compare_period"].(string); ok && p != "" {
		period = p
	}
	base := b.buildSelect(intent)
	return base + fmt.Sprintf(" COMPARE WITH %s ago", period)
}

func (b *Builder) buildFunnel(intent Intent) string {
	steps := []string{"session"}
	for _, e := range intent.Entities {
		if e.Name != "*" {
			steps = append(steps, EscapeField(e.Name))
		}
	}
	parts := []string{
		fmt.Sprintf("SELECT funnel(%s)", strings.Join(steps, ", ")),
		b.fromClause(intent),
	}
	parts = appendNonEmpty(parts, b.whereClause(intent))
	parts = append(parts, intent.TimeRange.Clause())
	return strings.Join(parts, " ")
}

// selectItems renders the entity list. Entities without an aggregation
// come out as bare fields.
func (b *Builder) selectItems(entities []Entity) string {
	if len(entities) == 0 {
		return "count(*)"
	}
	items := make([]string, 0, len(entities))
	for _, e := range entities {
		items = append(items, renderEntity(e))
	}
	return strings.Join(items, ", ")
}

func renderEntity(e Entity) string {
	item := ""
	switch {
	case e.Aggregation == "" || e.Kind == KindAttribute:
		item = EscapeField(e.Name)
	case e.Aggregation == AggCount && e.Name == "*":
		item = "count(*)"
	case e.Aggregation == AggUniqueCount:
		item = fmt.Sprintf("uniqueCount(%s)", EscapeField(e.Name))
	case e.Aggregation == AggRate:
		item = "rate(count(*), 1 minute)"
		if e.Name != "*" && e.Name != "count" {
			item = fmt.Sprintf("rate(sum(%s), 1 minute)", EscapeField(e.Name))
		}
	default:
		item = fmt.Sprintf("%s(%s)", e.Aggregation, EscapeField(e.Name))
	}
	if e.Alias != "" {
		item += fmt.Sprintf(" AS '%s'", e.Alias)
	}
	return item
}

func (b *Builder) fromClause(intent Intent) string {
	sources := intent.EventTypes
	if len(sources) == 0 {
		sources = []string{"Transaction"}
	}
	escaped := make([]string, len(sources))
	for i, s := range sources {
		escaped[i] = EscapeField(s)
	}
	return "FROM " + strings.Join(escaped, ", ")
}

func (b *Builder) whereClause(intent Intent) string {
	if len(intent.Filters) == 0 {
		return ""
	}
	conds := make([]string, len(intent.Filters))
	for i, f := range intent.Filters {
		switch f.Operator {
		case "in", "IN", "not-in", "NOT IN":
			op := "IN"
			if strings.Contains(strings.ToLower(f.Operator), "not") {
				op = "NOT IN"
			}
			conds[i] = fmt.Sprintf("%s %s (%s)", EscapeField(f.Field), op, joinInValues(f.Value))
		default:
			conds[i] = fmt.Sprintf("%s %s %s", EscapeField(f.Field), f.Operator, quoteValue(f.Value))
		}
	}
	return "WHERE " + strings.Join(conds, " AND ")
}

func joinInValues(v any) string {
	vals, ok := v.([]any)
	if !ok {
		return quoteValue(v)
	}
	quoted := make([]string, len(vals))
	for i, x := range vals {
		quoted[i] = quoteValue(x)
	}
	return strings.Join(quoted, ", ")
}

func (b *Builder) facetClause(intent Intent) string {
	if len(intent.GroupBy) == 0 {
		return ""
	}
	fields := make([]string, len(intent.GroupBy))
	for i, f := range intent.GroupBy {
		fields[i] = EscapeField(f)
	}
	return "FACET " + strings.Join(fields, ", ")
}

func (b *Builder) orderClause(intent Intent) string {
	if intent.OrderBy == nil {
		return ""
	}
	return fmt.Sprintf("ORDER BY %s %s", EscapeField(intent.OrderBy.Field), intent.OrderBy.Direction)
}

func (b *Builder) limitClause(intent Intent) string {
	if intent.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", intent.Limit)
}

func metadataPercentiles(md map[string]any) []int {
	if md != nil {
		switch v := md["percentiles"].(type) {
		case []int:
			if len(v) > 0 {
				return v
			}
		case []any:
			out := make([]int, 0, len(v))
			for _, x := range v {
				if f, ok := x.(float64); ok {
					out = append(out, int(f))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return []int{50, 95, 99}
}

func appendNonEmpty(parts []string, more ...string) []string {
	for _, s := range more {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
