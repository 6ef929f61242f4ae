// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"math"
	"testing"
)

func TestParseBareCountDefaults(t *testing.T) {
	p := NewParser()
	intent := p.Parse("count", nil)

	if intent.IntentType != IntentExplore {
		t.Errorf("IntentType = %s, want explore", intent.IntentType)
	}
	if intent.QueryType != QuerySelect {
		t.Errorf("QueryType = %s, want select", intent.QueryType)
	}
	if len(intent.Entities) != 1 || intent.Entities[0].Name != "*" || intent.Entities[0].Aggregation != AggCount {
		t.Errorf("Entities = %+v, want the count(*) default", intent.Entities)
	}
	if len(intent.EventTypes) != 1 || intent.EventTypes[0] != "Transaction" {
		t.Errorf("EventTypes = %v, want [Transaction]", intent.EventTypes)
	}
	if intent.TimeRange.Type != TimeLastHour {
		t.Errorf("TimeRange = %+v, want last_hour", intent.TimeRange)
	}

	// Both the entity and the event type were defaulted: 1.0*0.9*0.95.
	if math.Abs(intent.Confidence-0.855) > 1e-9 {
		t.Errorf("Confidence = %g, want 0.855", intent.Confidence)
	}
}

func TestParseIntentAndQueryType(t *testing.T) {
	p := NewParser()
	cases := []struct {
		utterance string
		intent    IntentType
		qtype     QueryType
	}{
		{"show me error rate for the last hour", IntentTroubleshoot, QueryRate},
		{"compare throughput versus last week", IntentCompare, QueryCompare},
		{"monitor cpu over time", IntentMonitor, QueryTimeseries},
		{"95th percentile latency", IntentExplore, QueryPercentile},
		{"distribution of duration", IntentExplore, QueryHistogram},
		{"average duration by host", IntentExplore, QueryFacet},
		{"why is checkout failing", IntentTroubleshoot, QuerySelect},
	}
	for _, tc := range cases {
		intent := p.Parse(tc.utterance, nil)
		if intent.IntentType != tc.intent {
			t.Errorf("%q intent = %s, want %s", tc.utterance, intent.IntentType, tc.intent)
		}
		if intent.QueryType != tc.qtype {
			t.Errorf("%q query type = %s, want %s", tc.utterance, intent.QueryType, tc.qtype)
		}
	}
}

func TestParseMetricSynonyms(t *testing.T) {
	p := NewParser()
	intent := p.Parse("response time and error rate for checkout-service", nil)

	var fields []string
	for _, e := range intent.Entities {
		fields = append(fields, e.Name)
	}
	if !inList(fields, "duration") || !inList(fields, "error") {
		t.Errorf("entities = %v, want duration and error", fields)
	}

	// "for checkout-service" becomes an appName filter.
	found := false
	for _, f := range intent.Filters {
		if f.Field == "appName" && f.Operator == "=" && f.Value == "checkout-service" {
			found = true
		}
	}
	if !found {
		t.Errorf("filters = %+v, want appName = checkout-service", intent.Filters)
	}
}

func TestParseTimeRanges(t *testing.T) {
	p := NewParser()
	cases := []struct {
		utterance string
		want      TimeRange
	}{
		{"count last 30 minutes", TimeRange{Type: TimeRelative, Amount: 30, Unit: "minute"}},
		{"count past 3 days", TimeRange{Type: TimeRelative, Amount: 3, Unit: "day"}},
		{"count for the last week", TimeRange{Type: TimeLastWeek}},
		{"count for the last quarter", TimeRange{Type: TimeLastQuarter}},
		{"count since 2 hours ago", TimeRange{Type: TimeRelative, Amount: 2, Unit: "hour"}},
		{"count yesterday", TimeRange{Type: TimeRelative, Amount: 1, Unit: "day"}},
		{"count", TimeRange{Type: TimeLastHour}},
	}
	for _, tc := range cases {
		if got := p.Parse(tc.utterance, nil).TimeRange; got != tc.want {
			t.Errorf("%q time range = %+v, want %+v", tc.utterance, got, tc.want)
		}
	}
}

func TestParseFiltersAndGroupBy(t *testing.T) {
	p := NewParser()
	intent := p.Parse("average duration by host where appName = 'shop' and duration greater than 2.5", nil)

	if intent.QueryType != QueryFacet {
		t.Errorf("QueryType = %s, want facet", intent.QueryType)
	}
	if len(intent.GroupBy) != 1 || intent.GroupBy[0] != "host" {
		t.Errorf("GroupBy = %v, want [host]", intent.GroupBy)
	}

	byField := map[string]Filter{}
	for _, f := range intent.Filters {
		byField[f.Field] = f
	}
	if f, ok := byField["appName"]; !ok || f.Operator != "=" || f.Value != "shop" {
		t.Errorf("appName filter = %+v", byField["appName"])
	}
	if f, ok := byField["duration"]; !ok || f.Operator != ">" || f.Value != 2.5 {
		t.Errorf("duration filter = %+v", byField["duration"])
	}
}

func TestParseLimitAndOrder(t *testing.T) {
	p := NewParser()
	intent := p.Parse("top 5 transactions with highest duration", nil)
	if intent.Limit != 5 {
		t.Errorf("Limit = %d, want 5", intent.Limit)
	}
	if intent.OrderBy == nil || intent.OrderBy.Field != "duration" || intent.OrderBy.Direction != "DESC" {
		t.Errorf("OrderBy = %+v, want duration DESC", intent.OrderBy)
	}
	if len(intent.EventTypes) != 1 || intent.EventTypes[0] != "Transaction" {
		t.Errorf("EventTypes = %v, want [Transaction]", intent.EventTypes)
	}
}

func TestParsePercentiles(t *testing.T) {
	p := NewParser()
	intent := p.Parse("p50 and p95 latency for the last day", nil)
	if intent.QueryType != QueryPercentile {
		t.Fatalf("QueryType = %s, want percentile", intent.QueryType)
	}
	ps, _ := intent.Metadata["percentiles"].([]int)
	if len(ps) != 2 || ps[0] != 50 || ps[1] != 95 {
		t.Errorf("percentiles = %v, want [50 95]", ps)
	}
}

func TestParseVagueUtteranceLowersConfidence(t *testing.T) {
	p := NewParser()
	intent := p.Parse("show me something", nil)
	if intent.Confidence >= 0.7 {
		t.Errorf("Confidence = %g, want below 0.7 for a vague utterance", intent.Confidence)
	}
}

func TestParseContextSchemas(t *testing.T) {
	p := NewParser()
	qctx := &Context{Schemas: []Schema{{Name: "CheckoutEvent", RecordsPerHour: 5000}}}
	intent := p.Parse("count of CheckoutEvent records for the last day", qctx)
	if !inList(intent.EventTypes, "CheckoutEvent") {
		t.Errorf("EventTypes = %v, want CheckoutEvent from context schema", intent.EventTypes)
	}
}
