// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package frame

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// FromJSON builds a frame from a JSON payload that is either a row-array
// of objects or a column-map of arrays:
//
//	[{"a": 1, "b": "x"}, {"a": 2, "b": "y"}]
//	{"a": [1, 2], "b": ["x", "y"]}
func FromJSON(data []byte) (*Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyFrame
	}
	switch trimmed[0] {
	case '[':
		var rows []map[string]any
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("frame: decoding row array: %w", err)
		}
		return FromRows(rows)
	case '{':
		var cols map[string][]any
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return nil, fmt.Errorf("frame: decoding column map: %w", err)
		}
		return FromColumns(cols)
	default:
		return nil, fmt.Errorf("frame: payload must be a JSON array or object")
	}
}
