// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package viz

import "testing"

func placementOf(t *testing.T, l *Layout, id string) Placement {
	t.Helper()
	for _, p := range l.Placements {
		if p.WidgetID == id {
			return p
		}
	}
	t.Fatalf("widget %s not placed", id)
	return Placement{}
}

// assertNoOverlap checks the placement invariants: inside the grid
// columns and no two placements sharing a cell.
func assertNoOverlap(t *testing.T, l *Layout) {
	t.Helper()
	occupied := map[[2]int]string{}
	for _, p := range l.Placements {
		if p.X < 0 || p.Y < 0 || p.X+p.Width > l.GridColumns {
			t.Errorf("placement %+v outside a %d-column grid", p, l.GridColumns)
		}
		for dy := 0; dy < p.Height; dy++ {
			for dx := 0; dx < p.Width; dx++ {
				cell := [2]int{p.X + dx, p.Y + dy}
				if other, taken := occupied[cell]; taken {
					t.Errorf("widgets %s and %s overlap at %v", other, p.WidgetID, cell)
				}
				occupied[cell] = p.WidgetID
			}
		}
	}
}

func TestOptimizeGridPacksByPriority(t *testing.T) {
	widgets := []Widget{
		{ID: "detail", Size: Size{1, 1}, Priority: PriorityLow},
		{ID: "aux2", Size: Size{1, 1}, Priority: PriorityMedium},
		{ID: "main", Size: Size{2, 2}, Priority: PriorityCritical},
		{ID: "aux1", Size: Size{1, 1}, Priority: PriorityUrgent},
		{ID: "aux0", Size: Size{1, 1}, Priority: PriorityHigh},
	}

	o := NewOptimizer()
	l, err := o.Optimize(widgets, Constraints{MaxColumns: 4}, StrategyGrid)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	want := map[string]Placement{
		"main":   {WidgetID: "main", X: 0, Y: 0, Width: 2, Height: 2},
		"aux1":   {WidgetID: "aux1", X: 2, Y: 0, Width: 1, Height: 1},
		"aux0":   {WidgetID: "aux0", X: 3, Y: 0, Width: 1, Height: 1},
		"aux2":   {WidgetID: "aux2", X: 2, Y: 1, Width: 1, Height: 1},
		"detail": {WidgetID: "detail", X: 3, Y: 1, Width: 1, Height: 1},
	}
	for id, w := range want {
		if got := placementOf(t, l, id); got != w {
			t.Errorf("%s placed at %+v, want %+v", id, got, w)
		}
	}
	if l.GridRows != 2 {
		t.Errorf("GridRows = %d, want 2", l.GridRows)
	}
	if l.SpaceUtilization != 1.0 {
		t.Errorf("SpaceUtilization = %g, want 1.0 for a full grid", l.SpaceUtilization)
	}
	assertNoOverlap(t, l)
}

func TestOptimizeStrategiesKeepInvariants(t *testing.T) {
	widgets := []Widget{
		{ID: "a", Size: Size{2, 2}, Priority: 5},
		{ID: "b", Size: Size{2, 1}, Priority: 4},
		{ID: "c", Size: Size{1, 2}, Priority: 3},
		{ID: "d", Size: Size{4, 1}, Priority: 2},
		{ID: "e", Size: Size{1, 1}, Priority: 1},
	}
	o := NewOptimizer()
	for _, strategy := range []Strategy{StrategyGrid, StrategyMasonry, StrategyFlow, StrategyFixed} {
		l, err := o.Optimize(widgets, Constraints{MaxColumns: 4}, strategy)
		if err != nil {
			t.Fatalf("Optimize(%s): %v", strategy, err)
		}
		if len(l.Placements) != len(widgets) {
			t.Errorf("%s placed %d widgets, want %d", strategy, len(l.Placements), len(widgets))
		}
		assertNoOverlap(t, l)
		if l.OverallScore <= 0 || l.OverallScore > 1 {
			t.Errorf("%s overall score = %g, want (0, 1]", strategy, l.OverallScore)
		}
	}
}

func TestOptimizeFixedPositionsHonored(t *testing.T) {
	widgets := []Widget{
		{ID: "pinned", Size: Size{2, 1}, Priority: 1, FixedPosition: true, Position: &Point{X: 2, Y: 0}},
		{ID: "float1", Size: Size{2, 1}, Priority: 5},
		{ID: "float2", Size: Size{2, 1}, Priority: 4},
	}
	o := NewOptimizer()
	l, err := o.Optimize(widgets, Constraints{MaxColumns: 4}, StrategyFixed)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	p := placementOf(t, l, "pinned")
	if p.X != 2 || p.Y != 0 {
		t.Errorf("pinned widget moved to (%d, %d)", p.X, p.Y)
	}
	assertNoOverlap(t, l)
}

func TestOptimizeResponsiveMobile(t *testing.T) {
	widgets := []Widget{
		{ID: "a", Size: Size{4, 1}, Priority: 3},
		{ID: "b", Size: Size{2, 2}, Priority: 2},
		{ID: "c", Size: Size{1, 1}, Priority: 1},
	}
	o := NewOptimizer()
	l, err := o.Optimize(widgets, Constraints{MaxColumns: 4, MobileFriendly: true}, StrategyResponsive)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if l.GridColumns != 1 {
		t.Errorf("GridColumns = %d, want 1 on mobile", l.GridColumns)
	}
	for _, p := range l.Placements {
		if p.X != 0 || p.Width != 1 {
			t.Errorf("mobile placement %+v not single column", p)
		}
	}
	assertNoOverlap(t, l)
}

func TestOptimizeRelationshipScore(t *testing.T) {
	together := []Widget{
		{ID: "a", Size: Size{1, 1}, Priority: 2, RelatedIDs: []string{"b"}},
		{ID: "b", Size: Size{1, 1}, Priority: 1},
	}
	o := NewOptimizer()
	l, err := o.Optimize(together, Constraints{MaxColumns: 4}, StrategyGrid)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if l.RelationshipScore != 1 {
		t.Errorf("RelationshipScore = %g, want 1 for adjacent related widgets", l.RelationshipScore)
	}
}

func TestOptimizeRejectsBadInput(t *testing.T) {
	o := NewOptimizer()
	if _, err := o.Optimize(nil, Constraints{MaxColumns: 4}, StrategyGrid); err == nil {
		t.Error("expected an error for an empty widget list")
	}
	dup := []Widget{
		{ID: "x", Size: Size{1, 1}},
		{ID: "x", Size: Size{1, 1}},
	}
	if _, err := o.Optimize(dup, Constraints{MaxColumns: 4}, StrategyGrid); err == nil {
		t.Error("expected an error for duplicate widget ids")
	}
}

func TestOptimizeClampsOversizedWidgets(t *testing.T) {
	widgets := []Widget{{ID: "wide", Size: Size{8, 1}, Priority: 1}}
	o := NewOptimizer()
	l, err := o.Optimize(widgets, Constraints{MaxColumns: 4}, StrategyGrid)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if p := placementOf(t, l, "wide"); p.Width != 4 {
		t.Errorf("width = %d, want clamped to 4", p.Width)
	}
}

func TestSuggestImprovements(t *testing.T) {
	o := NewOptimizer()
	sparse := &Layout{
		Strategy:          StrategyGrid,
		GridColumns:       4,
		GridRows:          4,
		SpaceUtilization:  0.3,
		VisualBalance:     0.5,
		RelationshipScore: 0.4,
	}
	out := o.SuggestImprovements(sparse)
	if len(out) < 3 {
		t.Errorf("got %d suggestions for a sparse unbalanced layout, want several: %v", len(out), out)
	}

	tight := &Layout{
		Strategy:          StrategyMasonry,
		GridColumns:       4,
		GridRows:          2,
		SpaceUtilization:  0.85,
		VisualBalance:     0.9,
		RelationshipScore: 1,
	}
	if out := o.SuggestImprovements(tight); len(out) != 0 {
		t.Errorf("got suggestions %v for a healthy layout, want none", out)
	}
}
