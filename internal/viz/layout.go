// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package viz

import (
	"fmt"
	"math"
	"sort"

	"github.com/insightd/insightd/internal/metrics"
)

// Size is a widget footprint in grid cells.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Named sizes.
var (
	SizeSmall  = Size{1, 1}
	SizeMedium = Size{2, 1}
	SizeLarge  = Size{2, 2}
	SizeWide   = Size{4, 1}
	SizeTall   = Size{1, 2}
)

// Widget priorities.
const (
	PriorityLow      = 1
	PriorityMedium   = 2
	PriorityHigh     = 3
	PriorityUrgent   = 4
	PriorityCritical = 5
)

// Point is a grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Widget is one dashboard element to place.
type Widget struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ChartType     ChartType `json:"chart_type"`
	DataQuery     string    `json:"data_query,omitempty"`
	Size          Size      `json:"size"`
	Priority      int       `json:"priority"`
	RelatedIDs    []string  `json:"related_widget_ids,omitempty"`
	MinSize       *Size     `json:"min_size,omitempty"`
	MaxSize       *Size     `json:"max_size,omitempty"`
	FixedPosition bool      `json:"fixed_position,omitempty"`
	Position      *Point    `json:"position,omitempty"`
}

// DefaultWidgetSize derives a footprint from the chart type.
func DefaultWidgetSize(chart ChartType) Size {
	switch chart {
	case ChartLine, ChartArea, ChartHeatmap, ChartScatter:
		return SizeLarge
	case ChartBar, ChartStackedBar, ChartPie, ChartHistogram, ChartViolin:
		return SizeMedium
	case ChartBillboard, ChartGauge, ChartSparkline:
		return SizeSmall
	case ChartTable:
		return SizeWide
	default:
		return SizeMedium
	}
}

// Strategy names a placement algorithm.
type Strategy string

// Placement strategies.
const (
	StrategyGrid       Strategy = "grid"
	StrategyMasonry    Strategy = "masonry"
	StrategyFlow       Strategy = "flow"
	StrategyFixed      Strategy = "fixed"
	StrategyResponsive Strategy = "responsive"
)

// Constraints bound the target grid.
type Constraints struct {
	MaxColumns     int  `json:"max_columns"`
	MaxRows        int  `json:"max_rows,omitempty"`
	MobileFriendly bool `json:"mobile_friendly,omitempty"`
	TabletFriendly bool `json:"tablet_friendly,omitempty"`
}

// Placement pins one widget to the grid.
type Placement struct {
	WidgetID string `json:"widget_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Layout is an optimized dashboard arrangement with quality scores.
type Layout struct {
	Strategy          Strategy    `json:"strategy"`
	GridColumns       int         `json:"grid_columns"`
	GridRows          int         `json:"grid_rows"`
	Placements        []Placement `json:"placements"`
	SpaceUtilization  float64     `json:"space_utilization"`
	VisualBalance     float64     `json:"visual_balance"`
	RelationshipScore float64     `json:"relationship_score"`
	OverallScore      float64     `json:"overall_score"`
}

// Optimizer arranges widgets on an integer grid.
type Optimizer struct{}

// NewOptimizer returns a layout optimizer.
func NewOptimizer() *Optimizer { return &Optimizer{} }

// Optimize places the widgets using the requested strategy. Placements
// never overlap and never exceed the grid columns; the grid grows rows
// as needed.
func (o *Optimizer) Optimize(widgets []Widget, constraints Constraints, strategy Strategy) (*Layout, error) {
	if len(widgets) == 0 {
		return nil, fmt.Errorf("no widgets to place")
	}
	if constraints.MaxColumns <= 0 {
		constraints.MaxColumns = 4
	}
	if strategy == "" {
		strategy = StrategyGrid
	}
	seen := make(map[string]bool, len(widgets))
	for i := range widgets {
		if widgets[i].ID == "" {
			return nil, fmt.Errorf("widget %d has no id", i)
		}
		if seen[widgets[i].ID] {
			return nil, fmt.Errorf("duplicate widget id %q", widgets[i].ID)
		}
		seen[widgets[i].ID] = true
		if widgets[i].Size.Width <= 0 || widgets[i].Size.Height <= 0 {
			widgets[i].Size = DefaultWidgetSize(widgets[i].ChartType)
		}
		if widgets[i].Size.Width > constraints.MaxColumns {
			widgets[i].Size.Width = constraints.MaxColumns
		}
	}

	var placements []Placement
	switch strategy {
	case StrategyMasonry:
		placements = placeMasonry(widgets, constraints.MaxColumns)
	case StrategyFlow:
		placements = placeFlow(widgets, constraints.MaxColumns)
	case StrategyFixed:
		placements = placeFixed(widgets, constraints.MaxColumns)
	case StrategyResponsive:
		placements = placeResponsive(widgets, constraints)
	default:
		strategy = StrategyGrid
		placements = placeGrid(widgets, constraints.MaxColumns, nil)
	}

	cols := constraints.MaxColumns
	if strategy == StrategyResponsive && constraints.MobileFriendly {
		cols = 1
	} else if strategy == StrategyResponsive && constraints.TabletFriendly && cols > 2 {
		cols = 2
	}

	layout := &Layout{
		Strategy:    strategy,
		GridColumns: cols,
		GridRows:    gridRows(placements),
		Placements:  placements,
	}
	layout.SpaceUtilization = spaceUtilization(layout)
	layout.VisualBalance = visualBalance(layout)
	layout.RelationshipScore = relationshipScore(layout, widgets)
	layout.OverallScore = 0.3*layout.SpaceUtilization + 0.3*layout.VisualBalance + 0.4*layout.RelationshipScore

	metrics.LayoutOptimizations.WithLabelValues(string(strategy)).Inc()
	return layout, nil
}

// SuggestImprovements returns rule-driven diagnostics for a layout.
func (o *Optimizer) SuggestImprovements(layout *Layout) []string {
	var out []string
	if layout.SpaceUtilization < 0.6 {
		out = append(out, "Low space utilization; consider larger widgets or a tighter grid")
	}
	if layout.SpaceUtilization > 0.9 {
		out = append(out, "Dashboard is very dense; consider splitting across pages")
	}
	if layout.VisualBalance < 0.7 {
		out = append(out, "Layout is visually unbalanced; redistribute widgets across the grid")
	}
	if layout.RelationshipScore < 0.5 {
		out = append(out, "Related widgets are far apart; group them together")
	}
	if layout.GridRows > 10 {
		out = append(out, "Layout exceeds 10 rows; consider pagination or tabs")
	}
	if layout.Strategy == StrategyGrid && layout.SpaceUtilization < 0.7 {
		out = append(out, "Grid strategy is leaving gaps; try the masonry strategy")
	}
	return out
}

// byPriority sorts widgets by priority descending, stable in input
// order.
func byPriority(widgets []Widget) []Widget {
	sorted := make([]Widget, len(widgets))
	copy(sorted, widgets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}

// occupancy is a growable boolean grid.
type occupancy struct {
	cols  int
	cells [][]bool
}

func newOccupancy(cols int) *occupancy {
	return &occupancy{cols: cols}
}

func (g *occupancy) ensureRows(n int) {
	for len(g.cells) < n {
		g.cells = append(g.cells, make([]bool, g.cols))
	}
}

func (g *occupancy) free(x, y, w, h int) bool {
	if x < 0 || x+w > g.cols {
		return false
	}
	g.ensureRows(y + h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			if g.cells[y+dy][x+dx] {
				return false
			}
		}
	}
	return true
}

func (g *occupancy) mark(x, y, w, h int) {
	g.ensureRows(y + h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			g.cells[y+dy][x+dx] = true
		}
	}
}

// placeGrid scans rows top to bottom and columns left to right,
// placing each widget at the first free rectangle. Widgets are
// processed in priority order. A pre-seeded occupancy carries fixed
// placements.
func placeGrid(widgets []Widget, cols int, grid *occupancy) []Placement {
	if grid == nil {
		grid = newOccupancy(cols)
	}
	var placements []Placement
	for _, w := range byPriority(widgets) {
		x, y := findFirstFree(grid, w.Size.Width, w.Size.Height)
		grid.mark(x, y, w.Size.Width, w.Size.Height)
		placements = append(placements, Placement{
			WidgetID: w.ID, X: x, Y: y, Width: w.Size.Width, Height: w.Size.Height,
		})
	}
	return placements
}

func findFirstFree(grid *occupancy, w, h int) (int, int) {
	for y := 0; ; y++ {
		grid.ensureRows(y + h)
		for x := 0; x+w <= grid.cols; x++ {
			if grid.free(x, y, w, h) {
				return x, y
			}
		}
	}
}

// placeMasonry tracks per-column heights: each widget goes to the
// starting column minimizing the max height of the columns it spans.
func placeMasonry(widgets []Widget, cols int) []Placement {
	heights := make([]int, cols)
	var placements []Placement
	for _, w := range byPriority(widgets) {
		bestX, bestY := 0, math.MaxInt32
		for x := 0; x+w.Size.Width <= cols; x++ {
			top := 0
			for dx := 0; dx < w.Size.Width; dx++ {
				if heights[x+dx] > top {
					top = heights[x+dx]
				}
			}
			if top < bestY {
				bestX, bestY = x, top
			}
		}
		for dx := 0; dx < w.Size.Width; dx++ {
			heights[bestX+dx] = bestY + w.Size.Height
		}
		placements = append(placements, Placement{
			WidgetID: w.ID, X: bestX, Y: bestY, Width: w.Size.Width, Height: w.Size.Height,
		})
	}
	return placements
}

// placeFlow lays widgets left to right, wrapping to the next row when
// the remaining width is too small.
func placeFlow(widgets []Widget, cols int) []Placement {
	var placements []Placement
	x, y, rowHeight := 0, 0, 0
	for _, w := range byPriority(widgets) {
		if x+w.Size.Width > cols {
			x = 0
			y += rowHeight
			rowHeight = 0
		}
		placements = append(placements, Placement{
			WidgetID: w.ID, X: x, Y: y, Width: w.Size.Width, Height: w.Size.Height,
		})
		x += w.Size.Width
		if w.Size.Height > rowHeight {
			rowHeight = w.Size.Height
		}
	}
	return placements
}

// placeFixed honors widgets with a fixed position and fills the rest
// with the grid rule around them.
func placeFixed(widgets []Widget, cols int) []Placement {
	grid := newOccupancy(cols)
	var placements []Placement
	var floating []Widget
	for _, w := range widgets {
		if w.FixedPosition && w.Position != nil && grid.free(w.Position.X, w.Position.Y, w.Size.Width, w.Size.Height) {
			grid.mark(w.Position.X, w.Position.Y, w.Size.Width, w.Size.Height)
			placements = append(placements, Placement{
				WidgetID: w.ID, X: w.Position.X, Y: w.Position.Y, Width: w.Size.Width, Height: w.Size.Height,
			})
			continue
		}
		floating = append(floating, w)
	}
	return append(placements, placeGrid(floating, cols, grid)...)
}

// placeResponsive starts from grid and rewrites for small screens.
func placeResponsive(widgets []Widget, constraints Constraints) []Placement {
	switch {
	case constraints.MobileFriendly:
		var placements []Placement
		y := 0
		for _, w := range byPriority(widgets) {
			h := w.Size.Height
			if w.Size.Width > 1 {
				h = 1
			}
			placements = append(placements, Placement{WidgetID: w.ID, X: 0, Y: y, Width: 1, Height: h})
			y += h
		}
		return placements
	case constraints.TabletFriendly:
		clamped := make([]Widget, len(widgets))
		copy(clamped, widgets)
		for i := range clamped {
			if clamped[i].Size.Width > 2 {
				clamped[i].Size = Size{2, 1}
			}
		}
		return placeGrid(clamped, 2, nil)
	default:
		return placeGrid(widgets, constraints.MaxColumns, nil)
	}
}

func gridRows(placements []Placement) int {
	rows := 0
	for _, p := range placements {
		if p.Y+p.Height > rows {
			rows = p.Y + p.Height
		}
	}
	return rows
}

func spaceUtilization(l *Layout) float64 {
	if l.GridColumns == 0 || l.GridRows == 0 {
		return 0
	}
	used := 0
	for _, p := range l.Placements {
		used += p.Width * p.Height
	}
	return math.Min(1, float64(used)/float64(l.GridColumns*l.GridRows))
}

// visualBalance measures how close the area-weighted center of mass
// sits to the grid center.
func visualBalance(l *Layout) float64 {
	if len(l.Placements) == 0 || l.GridColumns == 0 || l.GridRows == 0 {
		return 0
	}
	var cx, cy, area float64
	for _, p := range l.Placements {
		a := float64(p.Width * p.Height)
		cx += a * (float64(p.X) + float64(p.Width)/2)
		cy += a * (float64(p.Y) + float64(p.Height)/2)
		area += a
	}
	cx /= area
	cy /= area
	gx := float64(l.GridColumns) / 2
	gy := float64(l.GridRows) / 2
	dist := math.Hypot(cx-gx, cy-gy)
	maxDist := math.Hypot(gx, gy)
	if maxDist == 0 {
		return 1
	}
	return math.Max(0, 1-dist/maxDist)
}

// relationshipScore is the fraction of declared related pairs placed
// within Manhattan distance 2. No declared pairs scores 1.
func relationshipScore(l *Layout, widgets []Widget) float64 {
	pos := make(map[string]Placement, len(l.Placements))
	for _, p := range l.Placements {
		pos[p.WidgetID] = p
	}
	pairs, close := 0, 0
	for _, w := range widgets {
		for _, other := range w.RelatedIDs {
			a, okA := pos[w.ID]
			b, okB := pos[other]
			if !okA || !okB {
				continue
			}
			pairs++
			if abs(a.X-b.X)+abs(a.Y-b.Y) <= 2 {
				close++
			}
		}
	}
	if pairs == 0 {
		return 1
	}
	return float64(close) / float64(pairs)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
