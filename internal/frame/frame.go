// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package frame

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Common frame errors.
var (
	// ErrEmptyFrame indicates construction from zero rows and zero columns.
	ErrEmptyFrame = errors.New("frame: no data")

	// ErrColumnNotFound indicates a reference to a column the frame does not have.
	ErrColumnNotFound = errors.New("frame: column not found")

	// ErrRaggedColumns indicates column-map input with unequal column lengths.
	ErrRaggedColumns = errors.New("frame: columns have unequal lengths")
)

// Frame is an immutable column-oriented dataset.
type Frame struct {
	columns []*Column
	byName  map[string]int
	rows    int

	// timeColumn is the inferred or explicitly assigned temporal axis.
	// Empty when the frame has no temporal axis.
	timeColumn string
}

// New builds a frame from insertion-ordered columns. Columns must share
// the same length.
func New(columns []*Column) (*Frame, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyFrame
	}
	rows := columns[0].Len()
	byName := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Len() != rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name(), c.Len(), rows)
		}
		if _, dup := byName[c.Name()]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", c.Name())
		}
		byName[c.Name()] = i
	}
	f := &Frame{columns: columns, byName: byName, rows: rows}
	f.timeColumn = f.inferTimeColumn()
	return f, nil
}

// FromColumns builds a frame from a column-name → values map. Column
// order follows sorted names so construction is deterministic.
func FromColumns(data map[string][]any) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, NewColumn(name, data[name]))
	}
	return New(columns)
}

// FromRows builds a frame from a row-list. Column order follows the key
// order of the first row's sorted names; rows missing a key contribute a
// null.
func FromRows(rows []map[string]any) (*Frame, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFrame
	}
	nameSet := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			nameSet[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		values := make([]any, len(rows))
		for i, row := range rows {
			if v, ok := row[name]; ok {
				values[i] = v
			}
		}
		columns = append(columns, NewColumn(name, values))
	}
	return New(columns)
}

// Rows returns the row count.
func (f *Frame) Rows() int { return f.rows }

// NumColumns returns the column count.
func (f *Frame) NumColumns() int { return len(f.columns) }

// ColumnNames returns the insertion-ordered column names.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name()
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return f.columns[i], nil
}

// HasColumn reports whether the frame holds the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Columns returns the columns in insertion order.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// NumericColumns returns the names of numeric (continuous or discrete)
// columns in insertion order.
func (f *Frame) NumericColumns() []string {
	var out []string
	for _, c := range f.columns {
		if c.DType().IsNumeric() {
			out = append(out, c.Name())
		}
	}
	return out
}

// CategoricalColumns returns the names of categorical columns in
// insertion order.
func (f *Frame) CategoricalColumns() []string {
	var out []string
	for _, c := range f.columns {
		if c.DType().IsCategorical() {
			out = append(out, c.Name())
		}
	}
	return out
}

// TimeColumn returns the temporal axis column name, if any.
func (f *Frame) TimeColumn() (string, bool) {
	return f.timeColumn, f.timeColumn != ""
}

// WithTimeColumn returns a new frame with the temporal axis pinned to
// the named column. The column must exist and be temporal.
func (f *Frame) WithTimeColumn(name string) (*Frame, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.DType() != DTypeTemporal {
		return nil, fmt.Errorf("frame: column %q is %s, not temporal", name, c.DType())
	}
	clone := *f
	clone.timeColumn = name
	return &clone, nil
}

// Select returns a new frame restricted to the given columns, sharing
// column storage with the receiver. Column order follows the argument
// order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return New(columns)
}

// SortedByTime returns a new frame with all columns reordered by the
// temporal axis ascending. Rows with a null timestamp sort first,
// preserving their relative order. Returns the receiver unchanged when
// no temporal axis exists.
func (f *Frame) SortedByTime() *Frame {
	name, ok := f.TimeColumn()
	if !ok {
		return f
	}
	tc, _ := f.Column(name)
	times := tc.Times()

	order := make([]int, f.rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if tc.IsNull(ia) != tc.IsNull(ib) {
			return tc.IsNull(ia)
		}
		return times[ia].Before(times[ib])
	})

	columns := make([]*Column, len(f.columns))
	for i, c := range f.columns {
		columns[i] = c.reordered(order)
	}
	sorted, err := New(columns)
	if err != nil {
		return f
	}
	sorted.timeColumn = f.timeColumn
	return sorted
}

// FirstRowFingerprint returns a stable string derived from the first
// row's values, used as a cheap content discriminator in cache keys.
func (f *Frame) FirstRowFingerprint() string {
	if f.rows == 0 {
		return "empty"
	}
	parts := make([]string, len(f.columns))
	for i, c := range f.columns {
		if c.IsNull(0) {
			parts[i] = "<null>"
			continue
		}
		parts[i] = fmt.Sprintf("%v", c.value(0))
	}
	return fmt.Sprintf("%v", parts)
}

// inferTimeColumn picks the first temporal column as the implicit
// temporal axis.
func (f *Frame) inferTimeColumn() string {
	for _, c := range f.columns {
		if c.DType() == DTypeTemporal {
			return c.Name()
		}
	}
	return ""
}

// parseTime is the single timestamp parser used by dtype inference and
// ingestion. Accepted layouts are tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
