// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Parser turns a natural-language utterance into a structured Intent.
// Parsing is a pure function of (utterance, context): regex and keyword
// driven, no model calls, fully deterministic.
type Parser struct{}

// NewParser returns a parser.
func NewParser() *Parser { return &Parser{} }

// intentKeywords is checked in order; first hit wins.
var intentKeywords = []struct {
	intent IntentType
	words  []string
}{
	{IntentTroubleshoot, []string{"troubleshoot", "debug", "error", "issue", "problem", "failing", "broken"}},
	{IntentCompare, []string{"compare", "versus", "vs ", "difference"}},
	{IntentForecast, []string{"forecast", "predict", "projection"}},
	{IntentAlert, []string{"alert", "notify", "threshold"}},
	{IntentReport, []string{"report", "summary", "overview"}},
	{IntentMonitor, []string{"monitor", "watch", "track", "observe"}},
	{IntentAnalyze, []string{"analyze", "analysis", "investigate", "examine", "why"}},
}

// metricSynonyms maps spoken metric phrases onto dialect fields.
// Longer phrases are listed first so they win over their substrings.
var metricSynonyms = []struct {
	phrase string
	field  string
	agg    Aggregation
}{
	{"response time", "duration", AggAverage},
	{"error rate", "error", AggRate},
	{"failure rate", "error", AggRate},
	{"page load", "duration", AggAverage},
	{"load time", "duration", AggAverage},
	{"throughput", "count", AggRate},
	{"latency", "duration", AggAverage},
	{"duration", "duration", AggAverage},
	{"cpu", "cpuPercent", AggAverage},
	{"memory", "memoryUsedPercent", AggAverage},
	{"disk", "diskUsedPercent", AggAverage},
	{"bandwidth", "receivedBytesPerSecond", AggAverage},
	{"apdex", "apdexScore", AggAverage},
}

// eventTypeKeywords maps spoken data-source words onto event types.
var eventTypeKeywords = []struct {
	word      string
	eventType string
}{
	{"transaction", "Transaction"},
	{"page view", "PageView"},
	{"pageview", "PageView"},
	{"browser", "PageView"},
	{"span", "Span"},
	{"trace", "Span"},
	{"infrastructure", "SystemSample"},
	{"system", "SystemSample"},
	{"server", "SystemSample"},
	{"logs", "Log"},
	{"log", "Log"},
	{"lambda", "AwsLambdaInvocation"},
	{"serverless", "AwsLambdaInvocation"},
	{"synthetic", "SyntheticCheck"},
	{"crash", "TransactionError"},
	{"exception", "TransactionError"},
}

var (
	reRelTime    = regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s+(minute|hour|day|week|month)s?\b`)
	reNamedTime  = regexp.MustCompile(`(?i)\b(?:last|past)\s+(hour|day|week|month|quarter)\b`)
	reSinceAgo   = regexp.MustCompile(`(?i)\bsince\s+(\d+)\s+(minute|hour|day|week|month)s?\s+ago\b`)
	reYesterday  = regexp.MustCompile(`(?i)\byesterday\b`)
	reBareAgg    = regexp.MustCompile(`(?i)\b(average|avg|mean|sum|total|maximum|max|minimum|min)\s+(?:of\s+)?([a-zA-Z][\w]*)\b`)
	rePercentile = regexp.MustCompile(`(?i)\b(\d{1,2})(?:th|st|nd|rd)?\s+percentile\b`)
	rePShorthand = regexp.MustCompile(`(?i)\bp(\d{2})\b`)

	reWhereEq    = regexp.MustCompile(`(?i)\bwhere\s+(\w+)\s*(!?=)\s*'?([\w.-]+)'?`)
	reEquals     = regexp.MustCompile(`(?i)\b(\w+)\s+equals\s+'?([\w.-]+)'?`)
	reIs         = regexp.MustCompile(`(?i)\b(\w+)\s+is\s+(not\s+)?'?([\w.-]+)'?`)
	reGreater    = regexp.MustCompile(`(?i)\b(\w+)\s+(?:greater|more|higher|bigger)\s+than\s+(\d+(?:\.\d+)?)`)
	reLess       = regexp.MustCompile(`(?i)\b(\w+)\s+(?:less|lower|smaller)\s+than\s+(\d+(?:\.\d+)?)`)
	reContaining = regexp.MustCompile(`(?i)\b(\w+)\s+(not\s+)?containing\s+'?([\w.-]+)'?`)
	reAppNamed   = regexp.MustCompile(`(?i)\b(?:for|from|in)\s+(?:the\s+)?(?:app(?:lication)?|service)\s+([\w-]+)`)
	reAppBare    = regexp.MustCompile(`(?i)\bfor\s+([a-zA-Z][\w-]+)\b`)

	reGroupBy   = regexp.MustCompile(`(?i)\bgroup(?:ed)?\s+by\s+(\w+(?:\s*,\s*\w+)*)`)
	rePer       = regexp.MustCompile(`(?i)\bper\s+(\w+)`)
	reBy        = regexp.MustCompile(`(?i)\bby\s+(\w+)`)
	reForEach   = regexp.MustCompile(`(?i)\bfor\s+each\s+(\w+)`)
	reBreakdown = regexp.MustCompile(`(?i)\bbreakdown\s+by\s+(\w+)`)

	reLimit     = regexp.MustCompile(`(?i)\b(?:top|first|limit)\s+(\d+)\b`)
	reLimitTail = regexp.MustCompile(`(?i)\b(\d+)\s+(?:results|records|rows)\b`)
)

// Words never usable as a bare "for X" application name or group-by
// field.
var fieldStopwords = map[string]bool{
	"each": true, "every": true, "the": true, "a": true, "an": true,
	"all": true, "my": true, "our": true, "their": true,
	"last": true, "past": true, "this": true, "that": true, "it": true,
	"what": true, "there": true, "hour": true, "day": true, "week": true,
	"month": true, "minute": true, "second": true, "yesterday": true,
}

var vagueTerms = []string{"something", "stuff", "things", "anything", "whatever"}

var dialectKeywords = []string{"select ", "from ", "where ", "facet ", "timeseries", "since "}

// Parse extracts a structured intent from the utterance. It never
// fails: unparseable utterances yield the documented defaults with
// reduced confidence.
func (p *Parser) Parse(utterance string, qctx *Context) Intent {
	lower := strings.ToLower(utterance)

	intent := Intent{
		IntentType: p.intentType(lower),
		TimeRange:  p.timeRange(lower),
		Metadata:   map[string]any{},
		Raw:        utterance,
		Confidence: 1.0,
	}

	entities, entitiesDefaulted := p.entities(lower)
	intent.Entities = entities

	eventTypes, eventDefaulted := p.eventTypes(lower, qctx)
	intent.EventTypes = eventTypes

	intent.GroupBy = p.groupBy(lower)
	intent.Filters = p.filters(utterance, intent.GroupBy)
	intent.QueryType = p.queryType(lower, intent.GroupBy)
	intent.Limit = p.limit(lower)
	intent.OrderBy = p.orderBy(lower, intent)

	if ps := p.percentiles(lower); len(ps) > 0 {
		intent.Metadata["percentiles"] = ps
	}

	conf := intent.Confidence
	for _, v := range vagueTerms {
		if strings.Contains(lower, v) {
			conf *= 0.8
		}
	}
	if entitiesDefaulted {
		conf *= 0.9
	}
	if eventDefaulted {
		conf *= 0.95
	}
	for _, kw := range dialectKeywords {
		if strings.Contains(lower, kw) {
			conf *= 1.1
		}
	}
	if conf > 1.0 {
		conf = 1.0
	}
	intent.Confidence = conf
	return intent
}

func (p *Parser) intentType(lower string) IntentType {
	for _, row := range intentKeywords {
		for _, w := range row.words {
			if strings.Contains(lower, w) {
				return row.intent
			}
		}
	}
	return IntentExplore
}

func (p *Parser) timeRange(lower string) TimeRange {
	if m := reRelTime.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return TimeRange{Type: TimeRelative, Amount: n, Unit: m[2]}
	}
	if m := reSinceAgo.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return TimeRange{Type: TimeRelative, Amount: n, Unit: m[2]}
	}
	if m := reNamedTime.FindStringSubmatch(lower); m != nil {
		switch m[1] {
		case "hour":
			return TimeRange{Type: TimeLastHour}
		case "day":
			return TimeRange{Type: TimeLastDay}
		case "week":
			return TimeRange{Type: TimeLastWeek}
		case "month":
			return TimeRange{Type: TimeLastMonth}
		case "quarter":
			return TimeRange{Type: TimeLastQuarter}
		}
	}
	if reYesterday.MatchString(lower) {
		return TimeRange{Type: TimeRelative, Amount: 1, Unit: "day"}
	}
	return TimeRange{Type: TimeLastHour}
}

// entities extracts metric references, first through the synonym
// table, then through bare aggregation verbs over the remainder. The
// boolean reports whether the default catch-all entity was used.
func (p *Parser) entities(lower string) ([]Entity, bool) {
	var out []Entity
	seen := map[string]bool{}
	masked := lower

	for _, syn := range metricSynonyms {
		if !strings.Contains(masked, syn.phrase) {
			continue
		}
		if !seen[syn.field] {
			seen[syn.field] = true
			out = append(out, Entity{Name: syn.field, Kind: KindMetric, Aggregation: syn.agg})
		}
		masked = strings.ReplaceAll(masked, syn.phrase, strings.Repeat(" ", len(syn.phrase)))
	}

	for _, m := range reBareAgg.FindAllStringSubmatch(masked, -1) {
		field := m[2]
		if fieldStopwords[field] || seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, Entity{Name: field, Kind: KindMetric, Aggregation: normalizeAgg(m[1])})
	}

	if len(out) == 0 {
		return []Entity{{Name: "*", Kind: KindMetric, Aggregation: AggCount}}, true
	}
	return out, false
}

func normalizeAgg(verb string) Aggregation {
	switch strings.ToLower(verb) {
	case "avg", "mean", "average":
		return AggAverage
	case "total", "sum":
		return AggSum
	case "maximum", "max":
		return AggMax
	case "minimum", "min":
		return AggMin
	default:
		return AggCount
	}
}

func (p *Parser) eventTypes(lower string, qctx *Context) ([]string, bool) {
	var out []string
	seen := map[string]bool{}
	for _, row := range eventTypeKeywords {
		if strings.Contains(lower, row.word) && !seen[row.eventType] {
			seen[row.eventType] = true
			out = append(out, row.eventType)
		}
	}
	if qctx != nil {
		for _, s := range qctx.Schemas {
			if strings.Contains(lower, strings.ToLower(s.Name)) && !seen[s.Name] {
				seen[s.Name] = true
				out = append(out, s.Name)
			}
		}
	}
	if len(out) == 0 {
		return []string{"Transaction"}, true
	}
	return out, false
}

// filters runs the predicate regex families over the raw utterance so
// field casing survives.
func (p *Parser) filters(utterance string, groupBy []string) []Filter {
	var out []Filter
	seen := map[string]bool{}
	add := func(f Filter) {
		k := f.Field + "|" + f.Operator
		if seen[k] || fieldStopwords[strings.ToLower(f.Field)] {
			return
		}
		seen[k] = true
		out = append(out, f)
	}

	for _, m := range reWhereEq.FindAllStringSubmatch(utterance, -1) {
		add(Filter{Field: m[1], Operator: m[2], Value: coerceValue(m[3])})
	}
	for _, m := range reEquals.FindAllStringSubmatch(utterance, -1) {
		add(Filter{Field: m[1], Operator: "=", Value: coerceValue(m[2])})
	}
	for _, m := range reIs.FindAllStringSubmatch(utterance, -1) {
		op := "="
		if strings.TrimSpace(m[2]) == "not" {
			op = "!="
		}
		add(Filter{Field: m[1], Operator: op, Value: coerceValue(m[3])})
	}
	for _, m := range reGreater.FindAllStringSubmatch(utterance, -1) {
		add(Filter{Field: m[1], Operator: ">", Value: coerceValue(m[2])})
	}
	for _, m := range reLess.FindAllStringSubmatch(utterance, -1) {
		add(Filter{Field: m[1], Operator: "<", Value: coerceValue(m[2])})
	}
	for _, m := range reContaining.FindAllStringSubmatch(utterance, -1) {
		op := "LIKE"
		if strings.TrimSpace(m[2]) == "not" {
			op = "NOT LIKE"
		}
		add(Filter{Field: m[1], Operator: op, Value: "%" + m[3] + "%"})
	}

	if m := reAppNamed.FindStringSubmatch(utterance); m != nil {
		add(Filter{Field: "appName", Operator: "=", Value: m[1]})
	} else if m := reAppBare.FindStringSubmatch(utterance); m != nil {
		name := m[1]
		if !fieldStopwords[strings.ToLower(name)] && !inList(groupBy, name) {
			add(Filter{Field: "appName", Operator: "=", Value: name})
		}
	}
	return out
}

func (p *Parser) groupBy(lower string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(field string) {
		field = strings.TrimSpace(field)
		if field == "" || seen[field] || fieldStopwords[field] {
			return
		}
		seen[field] = true
		out = append(out, field)
	}

	if m := reGroupBy.FindStringSubmatch(lower); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			add(f)
		}
	}
	for _, m := range reForEach.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range reBreakdown.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range rePer.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range reBy.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	return out
}

func (p *Parser) queryType(lower string, groupBy []string) QueryType {
	switch {
	case strings.Contains(lower, "timeseries") || strings.Contains(lower, "over time") || strings.Contains(lower, "trend"):
		return QueryTimeseries
	case strings.Contains(lower, "percentile") || strings.Contains(lower, "median") || rePShorthand.MatchString(lower):
		return QueryPercentile
	case strings.Contains(lower, "histogram") || strings.Contains(lower, "distribution"):
		return QueryHistogram
	case strings.Contains(lower, "funnel"):
		return QueryFunnel
	case strings.Contains(lower, "compare") || strings.Contains(lower, "versus") || strings.Contains(lower, " vs "):
		return QueryCompare
	case strings.Contains(lower, "rate") || strings.Contains(lower, "per second") || strings.Contains(lower, "per minute"):
		return QueryRate
	case len(groupBy) > 0:
		return QueryFacet
	default:
		return QuerySelect
	}
}

func (p *Parser) percentiles(lower string) []int {
	var out []int
	seen := map[int]bool{}
	add := func(v int) {
		if v > 0 && v < 100 && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, m := range rePercentile.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil {
			add(v)
		}
	}
	for _, m := range rePShorthand.FindAllStringSubmatch(lower, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil {
			add(v)
		}
	}
	if strings.Contains(lower, "median") {
		add(50)
	}
	sort.Ints(out)
	return out
}

func (p *Parser) limit(lower string) int {
	if m := reLimit.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := reLimitTail.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

func (p *Parser) orderBy(lower string, intent Intent) *OrderBy {
	dir := ""
	switch {
	case strings.Contains(lower, "highest") || strings.Contains(lower, "most") || strings.Contains(lower, "descending"):
		dir = "DESC"
	case strings.Contains(lower, "lowest") || strings.Contains(lower, "least") || strings.Contains(lower, "ascending"):
		dir = "ASC"
	default:
		return nil
	}
	field := ""
	if len(intent.Entities) > 0 && intent.Entities[0].Name != "*" {
		field = intent.Entities[0].Name
	} else if len(intent.GroupBy) > 0 {
		field = intent.GroupBy[0]
	}
	if field == "" {
		return nil
	}
	return &OrderBy{Field: field, Direction: dir}
}

func coerceValue(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

func inList(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
