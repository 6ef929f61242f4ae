// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package query

import (
	"strings"
	"testing"
)

func TestGenerateEndToEnd(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	res, err := g.Generate("95th percentile response time by service for the last week", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(res.Query, "percentile(duration, 95)") {
		t.Errorf("query = %q, want a percentile(duration, 95) call", res.Query)
	}
	if res.Intent.QueryType != QueryPercentile {
		t.Errorf("query type = %s, want percentile", res.Intent.QueryType)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("confidence = %g, want (0, 1]", res.Confidence)
	}
	if res.EstimatedCost == nil {
		t.Error("expected a cost estimate")
	}
	if res.Metadata["cache_hit"] != false {
		t.Error("fresh generation marked as cache hit")
	}
}

func TestGenerateEmptyUtterance(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	if _, err := g.Generate("   ", nil); err == nil {
		t.Error("expected an error for a blank utterance")
	}
}

func TestGenerateCacheHit(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	first, err := g.Generate("count of transactions for the last hour", nil)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// Same utterance modulo case shares the cache entry.
	second, err := g.Generate("COUNT of Transactions for the last hour", nil)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if second.Metadata["cache_hit"] != true {
		t.Error("second generation not served from cache")
	}
	if second.Query != first.Query {
		t.Errorf("cached query %q differs from original %q", second.Query, first.Query)
	}

	// The stored entry must stay unmarked.
	third, err := g.Generate("count of transactions for the last hour", nil)
	if err != nil {
		t.Fatalf("third Generate: %v", err)
	}
	if third.Metadata["cache_hit"] != true {
		t.Error("third generation not served from cache")
	}
}

func TestGenerateCacheKeyedByContext(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	if _, err := g.Generate("count for the last hour", nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	qctx := &Context{Schemas: []Schema{{Name: "Transaction", RecordsPerHour: 50}}}
	res, err := g.Generate("count for the last hour", qctx)
	if err != nil {
		t.Fatalf("Generate with context: %v", err)
	}
	if res.Metadata["cache_hit"] != false {
		t.Error("different context served the cached result")
	}
}

func TestGenerateLowConfidenceWarning(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	res, err := g.Generate("show me something", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if w == "low_confidence_parse" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want low_confidence_parse", res.Warnings)
	}
}

func TestSuggestQueriesPrefixAndHistory(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())

	base := g.SuggestQueries("show")
	if len(base) == 0 {
		t.Fatal("expected template suggestions for prefix show")
	}
	for _, s := range base {
		if !strings.HasPrefix(strings.ToLower(s), "show") {
			t.Errorf("suggestion %q does not match the prefix", s)
		}
	}

	if _, err := g.Generate("show failing transactions for the last day", nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	withHistory := g.SuggestQueries("show")
	found := false
	for _, s := range withHistory {
		if s == "show failing transactions for the last day" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions = %v, want the recent utterance included", withHistory)
	}

	if all := g.SuggestQueries(""); len(all) > 10 {
		t.Errorf("got %d suggestions, want at most 10", len(all))
	}
}

func TestExplainQuery(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	ex := g.ExplainQuery("SELECT count(*) FROM Transaction WHERE appName = 'shop' SINCE 1 hour ago FACET host LIMIT 100")

	if ex.DataSource != "Transaction" {
		t.Errorf("DataSource = %q, want Transaction", ex.DataSource)
	}
	if ex.TimeRange != "SINCE 1 hour ago" {
		t.Errorf("TimeRange = %q, want SINCE 1 hour ago", ex.TimeRange)
	}
	if len(ex.Aggregations) != 1 || ex.Aggregations[0] != "count of *" {
		t.Errorf("Aggregations = %v, want [count of *]", ex.Aggregations)
	}
	if len(ex.Filters) != 1 || ex.Filters[0] != "appName = 'shop'" {
		t.Errorf("Filters = %v, want [appName = 'shop']", ex.Filters)
	}
	if len(ex.Grouping) != 1 || ex.Grouping[0] != "host" {
		t.Errorf("Grouping = %v, want [host]", ex.Grouping)
	}
	if !strings.Contains(ex.Summary, "Transaction") || !strings.Contains(ex.Summary, "count of *") {
		t.Errorf("Summary = %q, want the source and aggregation mentioned", ex.Summary)
	}
}

func TestGenerateAlternatives(t *testing.T) {
	g := NewGenerator(DefaultGeneratorConfig())
	res, err := g.Generate("count of transactions for the last hour", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Alternatives) == 0 {
		t.Fatal("expected alternatives for a plain select")
	}
	foundTimeseries := false
	for _, a := range res.Alternatives {
		if strings.Contains(a, "TIMESERIES") {
			foundTimeseries = true
		}
	}
	if !foundTimeseries {
		t.Errorf("alternatives = %v, want a timeseries variant", res.Alternatives)
	}
}
