package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FormatValue renders a coordinate value the way it appears in canonical
// query keys. Numbers use the shortest representation that round-trips, so
// whole floats print without a decimal point.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IndexOf finds the position of v within points. The canonical key format is
// text-only, so a string value coming back off a key matches a numeric point
// by its formatted representation; this mirrors the cast-on-lookup the key
// round-trip requires.
func IndexOf(points []any, v any) (int, bool) {
	for i, p := range points {
		if p == v {
			return i, true
		}
	}
	want := FormatValue(v)
	for i, p := range points {
		if FormatValue(p) == want {
			return i, true
		}
	}
	return -1, false
}
