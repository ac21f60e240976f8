package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseCell converts loosely typed cell data into a Cell.
// Accepts two-element numeric arrays, JSON strings such as "[1, 2]",
// and bare "(1, 2)" or "1,2" strings. Returns false for anything else.
func ParseCell(v any) (Cell, bool) {
	switch val := v.(type) {
	case Cell:
		return val, true
	case [2]int:
		return Cell{Row: val[0], Col: val[1]}, true
	case []int:
		if len(val) != 2 {
			return Cell{}, false
		}
		return Cell{Row: val[0], Col: val[1]}, true
	case []float64:
		if len(val) != 2 {
			return Cell{}, false
		}
		return cellFromFloats(val[0], val[1])
	case []any:
		if len(val) != 2 {
			return Cell{}, false
		}
		r, ok1 := toFloat(val[0])
		c, ok2 := toFloat(val[1])
		if !ok1 || !ok2 {
			return Cell{}, false
		}
		return cellFromFloats(r, c)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return Cell{}, false
		}
		return ParseCell(decoded)
	case string:
		return parseCellString(val)
	}
	return Cell{}, false
}

func parseCellString(s string) (Cell, bool) {
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		if arr, ok := decoded.([]any); ok {
			return ParseCell(arr)
		}
		return Cell{}, false
	}

	trimmed := strings.Trim(strings.TrimSpace(s), "()[]")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return Cell{}, false
	}
	r, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	c, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return Cell{}, false
	}
	return cellFromFloats(r, c)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// cellFromFloats rejects non-finite and fractional coordinates.
func cellFromFloats(r, c float64) (Cell, bool) {
	if math.IsNaN(r) || math.IsNaN(c) || math.IsInf(r, 0) || math.IsInf(c, 0) {
		return Cell{}, false
	}
	if r != math.Trunc(r) || c != math.Trunc(c) {
		return Cell{}, false
	}
	return Cell{Row: int(r), Col: int(c)}, true
}

// CleanPath parses every entry and silently drops malformed ones.
func CleanPath(raw []any) Path {
	path := make(Path, 0, len(raw))
	for _, item := range raw {
		if c, ok := ParseCell(item); ok {
			path = append(path, c)
		}
	}
	return path
}
