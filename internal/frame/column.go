// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DType is the semantic type of a column.
type DType string

// Semantic dtypes. Inference order is temporal, boolean, numeric
// (continuous vs discrete), categorical, text. Geographic and ordinal
// are only assigned when the caller provides them explicitly; mixed is
// the fallback for columns whose values do not converge on one type.
const (
	DTypeNumericContinuous  DType = "numeric_continuous"
	DTypeNumericDiscrete    DType = "numeric_discrete"
	DTypeCategoricalNominal DType = "categorical_nominal"
	DTypeCategoricalOrdinal DType = "categorical_ordinal"
	DTypeTemporal           DType = "temporal"
	DTypeBoolean            DType = "boolean"
	DTypeText               DType = "text"
	DTypeGeographic         DType = "geographic"
	DTypeMixed              DType = "mixed"
)

// IsNumeric reports whether the dtype is numeric continuous or discrete.
func (d DType) IsNumeric() bool {
	return d == DTypeNumericContinuous || d == DTypeNumericDiscrete
}

// IsCategorical reports whether the dtype is nominal or ordinal categorical.
func (d DType) IsCategorical() bool {
	return d == DTypeCategoricalNominal || d == DTypeCategoricalOrdinal
}

// Discrete numeric split thresholds: a numeric column is discrete when
// its unique ratio is below uniqueRatioDiscrete AND its cardinality is
// below cardinalityDiscrete.
const (
	uniqueRatioDiscrete  = 0.05
	cardinalityDiscrete  = 20
	uniqueRatioMaxForCat = 0.5
)

// Column is an immutable typed column with a null mask. Typed storage is
// materialized lazily from the raw values on first access and shared by
// all frames that reference the column.
type Column struct {
	name   string
	dtype  DType
	values []any
	nulls  []bool

	floats  []float64 // aligned, NaN at nulls; numeric columns only
	strs    []string  // aligned; categorical/text columns only
	times   []time.Time
	bools   []bool
	nullCnt int
	uniqCnt int
}

// NewColumn builds a column from raw values, inferring the dtype. A nil
// value, math.NaN, or empty string counts as null.
func NewColumn(name string, values []any) *Column {
	c := &Column{
		name:   name,
		values: values,
		nulls:  make([]bool, len(values)),
	}
	for i, v := range values {
		if isNull(v) {
			c.nulls[i] = true
			c.nullCnt++
		}
	}
	c.dtype = c.inferDType()
	c.materialize()
	c.uniqCnt = c.countUnique()
	return c
}

// NewTypedColumn builds a column with a caller-assigned dtype, skipping
// inference. Values that do not coerce to the dtype become nulls.
func NewTypedColumn(name string, values []any, dtype DType) *Column {
	c := &Column{
		name:   name,
		dtype:  dtype,
		values: values,
		nulls:  make([]bool, len(values)),
	}
	for i, v := range values {
		if isNull(v) {
			c.nulls[i] = true
			c.nullCnt++
		}
	}
	c.materialize()
	c.uniqCnt = c.countUnique()
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// DType returns the semantic dtype.
func (c *Column) DType() DType { return c.dtype }

// Len returns the row count including nulls.
func (c *Column) Len() int { return len(c.values) }

// NullCount returns the number of null entries.
func (c *Column) NullCount() int { return c.nullCnt }

// NullFraction returns nulls / rows, 0 for an empty column.
func (c *Column) NullFraction() float64 {
	if len(c.values) == 0 {
		return 0
	}
	return float64(c.nullCnt) / float64(len(c.values))
}

// UniqueCount returns the number of distinct non-null values.
func (c *Column) UniqueCount() int { return c.uniqCnt }

// IsNull reports whether the value at i is null.
func (c *Column) IsNull(i int) bool { return c.nulls[i] }

func (c *Column) value(i int) any { return c.values[i] }

// Floats returns index-aligned float values with NaN at nulls. Only
// meaningful for numeric columns; other dtypes return all-NaN.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.values))
	if c.floats == nil {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	copy(out, c.floats)
	return out
}

// NonNullFloats returns the non-null float values in row order together
// with their original row indices.
func (c *Column) NonNullFloats() ([]float64, []int) {
	if c.floats == nil {
		return nil, nil
	}
	vals := make([]float64, 0, len(c.floats)-c.nullCnt)
	idx := make([]int, 0, len(c.floats)-c.nullCnt)
	for i, v := range c.floats {
		if c.nulls[i] || math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
		idx = append(idx, i)
	}
	return vals, idx
}

// Strings returns index-aligned string values (empty at nulls).
func (c *Column) Strings() []string {
	out := make([]string, len(c.values))
	if c.strs != nil {
		copy(out, c.strs)
		return out
	}
	for i, v := range c.values {
		if c.nulls[i] {
			continue
		}
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

// Times returns index-aligned timestamps (zero time at nulls). Only
// meaningful for temporal columns.
func (c *Column) Times() []time.Time {
	out := make([]time.Time, len(c.values))
	if c.times != nil {
		copy(out, c.times)
	}
	return out
}

// Bools returns index-aligned booleans (false at nulls). Only
// meaningful for boolean columns.
func (c *Column) Bools() []bool {
	out := make([]bool, len(c.values))
	if c.bools != nil {
		copy(out, c.bools)
	}
	return out
}

// ValueCounts returns the distinct non-null values (stringified) with
// their occurrence counts, ordered by descending count then value.
func (c *Column) ValueCounts() []ValueCount {
	counts := make(map[string]int)
	for i, v := range c.values {
		if c.nulls[i] {
			continue
		}
		counts[fmt.Sprintf("%v", v)]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sortValueCounts(out)
	return out
}

// ValueCount pairs a stringified value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// reordered returns a new column with rows permuted by order. Typed
// storage is rebuilt from the permuted raw values.
func (c *Column) reordered(order []int) *Column {
	values := make([]any, len(order))
	for i, j := range order {
		values[i] = c.values[j]
	}
	return NewTypedColumn(c.name, values, c.dtype)
}

// inferDType applies the inference ladder over non-null values.
func (c *Column) inferDType() DType {
	var nonNull int
	temporal, boolean, numeric := 0, 0, 0
	stringy := 0
	for i, v := range c.values {
		if c.nulls[i] {
			continue
		}
		nonNull++
		switch tv := v.(type) {
		case time.Time:
			temporal++
		case bool:
			boolean++
		case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			numeric++
		case string:
			stringy++
			s := strings.TrimSpace(tv)
			if _, ok := parseTime(s); ok {
				temporal++
			} else if isBoolString(s) {
				boolean++
			} else if _, err := strconv.ParseFloat(s, 64); err == nil {
				numeric++
			}
		}
	}
	if nonNull == 0 {
		return DTypeText
	}
	switch {
	case temporal == nonNull:
		return DTypeTemporal
	case boolean == nonNull:
		return DTypeBoolean
	case numeric == nonNull:
		return c.splitNumeric(nonNull)
	case stringy == nonNull:
		uniq := c.countUnique()
		if float64(uniq)/float64(nonNull) <= uniqueRatioMaxForCat {
			return DTypeCategoricalNominal
		}
		return DTypeText
	default:
		return DTypeMixed
	}
}

// splitNumeric applies the continuous/discrete split.
func (c *Column) splitNumeric(nonNull int) DType {
	uniq := c.countUnique()
	if float64(uniq)/float64(nonNull) < uniqueRatioDiscrete && uniq < cardinalityDiscrete {
		return DTypeNumericDiscrete
	}
	return DTypeNumericContinuous
}

func (c *Column) countUnique() int {
	seen := make(map[string]struct{})
	for i, v := range c.values {
		if c.nulls[i] {
			continue
		}
		seen[fmt.Sprintf("%v", v)] = struct{}{}
	}
	return len(seen)
}

// materialize builds the typed storage for the inferred dtype. Values
// that fail to coerce are marked null.
func (c *Column) materialize() {
	switch c.dtype {
	case DTypeNumericContinuous, DTypeNumericDiscrete:
		c.floats = make([]float64, len(c.values))
		for i, v := range c.values {
			if c.nulls[i] {
				c.floats[i] = math.NaN()
				continue
			}
			f, ok := toFloat(v)
			if !ok || math.IsNaN(f) {
				c.markNull(i)
				c.floats[i] = math.NaN()
				continue
			}
			c.floats[i] = f
		}
	case DTypeTemporal:
		c.times = make([]time.Time, len(c.values))
		for i, v := range c.values {
			if c.nulls[i] {
				continue
			}
			switch tv := v.(type) {
			case time.Time:
				c.times[i] = tv
			case string:
				t, ok := parseTime(strings.TrimSpace(tv))
				if !ok {
					c.markNull(i)
					continue
				}
				c.times[i] = t
			case float64:
				// Unix seconds or milliseconds.
				c.times[i] = fromEpoch(tv)
			default:
				c.markNull(i)
			}
		}
	case DTypeBoolean:
		c.bools = make([]bool, len(c.values))
		for i, v := range c.values {
			if c.nulls[i] {
				continue
			}
			switch tv := v.(type) {
			case bool:
				c.bools[i] = tv
			case string:
				b, ok := parseBoolString(strings.TrimSpace(tv))
				if !ok {
					c.markNull(i)
					continue
				}
				c.bools[i] = b
			default:
				c.markNull(i)
			}
		}
	case DTypeCategoricalNominal, DTypeCategoricalOrdinal, DTypeText:
		c.strs = make([]string, len(c.values))
		for i, v := range c.values {
			if c.nulls[i] {
				continue
			}
			c.strs[i] = fmt.Sprintf("%v", v)
		}
	}
}

func (c *Column) markNull(i int) {
	if !c.nulls[i] {
		c.nulls[i] = true
		c.nullCnt++
	}
}

func isNull(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(tv)
	case float32:
		return math.IsNaN(float64(tv))
	case string:
		return strings.TrimSpace(tv) == ""
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case float32:
		return float64(tv), true
	case int:
		return float64(tv), true
	case int8:
		return float64(tv), true
	case int16:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint8:
		return float64(tv), true
	case uint16:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case bool:
		if tv {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64)
		return f, err == nil
	}
	return 0, false
}

func isBoolString(s string) bool {
	_, ok := parseBoolString(s)
	return ok
}

func parseBoolString(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

// fromEpoch interprets a numeric timestamp as Unix seconds, or
// milliseconds when the magnitude makes seconds implausible.
func fromEpoch(v float64) time.Time {
	const msCutoff = 1e12
	if v >= msCutoff {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

func sortValueCounts(vcs []ValueCount) {
	// Descending count, ascending value for determinism.
	sort.Slice(vcs, func(i, j int) bool {
		if vcs[i].Count != vcs[j].Count {
			return vcs[i].Count > vcs[j].Count
		}
		return vcs[i].Value < vcs[j].Value
	})
}
