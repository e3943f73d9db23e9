// Package domain models the axis/coordinate side of an EDR coverage domain:
// axis descriptions, coordinate point arrays, axis-role classification and the
// canonical axis ordering used for aggregate array shapes.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AxisSpec is one axis description from a coverage domain. Exactly one of the
// two representations must be present: a linear start/stop/num spec, or an
// explicit ordered values list.
type AxisSpec struct {
	Start  float64
	Stop   float64
	Num    int
	Linear bool

	Values []any

	// keys holds the raw JSON key names, for error reporting.
	keys []string
}

// UnmarshalJSON keeps the raw key set alongside the recognized fields so a
// malformed description can name what it actually contained.
func (a *AxisSpec) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	a.keys = make([]string, 0, len(raw))
	for k := range raw {
		a.keys = append(a.keys, k)
	}
	sort.Strings(a.keys)

	if v, ok := raw["values"]; ok {
		if err := json.Unmarshal(v, &a.Values); err != nil {
			return fmt.Errorf("axis values: %w", err)
		}
		return nil
	}
	// Only the complete start/stop/num triple describes a linear axis; a
	// partial triple stays non-linear and fails in BuildCoords.
	start, hasStart := raw["start"]
	stop, hasStop := raw["stop"]
	num, hasNum := raw["num"]
	if !hasStart || !hasStop || !hasNum {
		return nil
	}
	if err := json.Unmarshal(start, &a.Start); err != nil {
		return fmt.Errorf("axis start: %w", err)
	}
	if err := json.Unmarshal(stop, &a.Stop); err != nil {
		return fmt.Errorf("axis stop: %w", err)
	}
	if err := json.Unmarshal(num, &a.Num); err != nil {
		return fmt.Errorf("axis num: %w", err)
	}
	a.Linear = true
	return nil
}

// Keys returns the JSON key names the description carried.
func (a *AxisSpec) Keys() []string { return a.keys }

// MalformedAxisError reports an axis description with neither a start/stop/num
// spec nor a values list.
type MalformedAxisError struct {
	Axis string
	Keys []string
}

func (e *MalformedAxisError) Error() string {
	return fmt.Sprintf("axis %q: could not build coordinate from keys: %s",
		e.Axis, strings.Join(e.Keys, ", "))
}

// Coords maps an axis name to its ordered coordinate point sequence.
type Coords map[string][]any

// BuildCoords resolves every axis description into a concrete point sequence.
func BuildCoords(axes map[string]AxisSpec) (Coords, error) {
	coords := make(Coords, len(axes))
	for name, spec := range axes {
		switch {
		case spec.Linear:
			coords[name] = linspace(spec.Start, spec.Stop, spec.Num)
		case spec.Values != nil:
			points := make([]any, len(spec.Values))
			copy(points, spec.Values)
			coords[name] = points
		default:
			return nil, &MalformedAxisError{Axis: name, Keys: spec.Keys()}
		}
	}
	return coords, nil
}

// linspace produces num evenly spaced points inclusive of both ends.
func linspace(start, stop float64, num int) []any {
	if num <= 1 {
		return []any{start}
	}
	step := (stop - start) / float64(num-1)
	out := make([]any, num)
	for i := 0; i < num-1; i++ {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}

// AxisNames returns the axis names in canonical order.
func (c Coords) AxisNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	SortAxes(names)
	return names
}

// Shape returns the per-axis lengths in canonical axis order.
func (c Coords) Shape() []int {
	names := c.AxisNames()
	shape := make([]int, len(names))
	for i, name := range names {
		shape[i] = len(c[name])
	}
	return shape
}

// SelectionAxes returns every non-horizontal axis name, sorted. A value must
// be chosen along each of these to pin down a 2-D horizontal slice.
func (c Coords) SelectionAxes() []string {
	var sel []string
	for name := range c {
		if !IsHorizontal(name) {
			sel = append(sel, name)
		}
	}
	sort.Strings(sel)
	return sel
}

// Selection returns the coordinate arrays for the selection axes only.
func (c Coords) Selection() Coords {
	out := make(Coords)
	for _, name := range c.SelectionAxes() {
		out[name] = c[name]
	}
	return out
}
