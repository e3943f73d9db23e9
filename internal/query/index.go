package query

import (
	"fmt"

	"github.com/mvallgren/edr-grid-cache/internal/domain"
)

// Span selects a run of indices along one axis of an insertion index: either
// the axis's full extent, or the half-open [Start, Stop) window of a single
// chosen point.
type Span struct {
	Start int
	Stop  int
	All   bool
}

// PointSpan selects the single index i.
func PointSpan(i int) Span {
	return Span{Start: i, Stop: i + 1}
}

// FullSpan selects the whole axis.
func FullSpan() Span {
	return Span{All: true}
}

// Bounds resolves the span against an axis of the given length.
func (s Span) Bounds(axisLen int) (start, stop int) {
	if s.All {
		return 0, axisLen
	}
	return s.Start, s.Stop
}

// Len is the number of indices the span covers on an axis of the given length.
func (s Span) Len(axisLen int) int {
	start, stop := s.Bounds(axisLen)
	return stop - start
}

func (s Span) String() string {
	if s.All {
		return "[:]"
	}
	return fmt.Sprintf("[%d:%d]", s.Start, s.Stop)
}

// ValueNotFoundError reports a combination value absent from its axis's
// coordinate point sequence.
type ValueNotFoundError struct {
	Axis  string
	Value any
}

func (e *ValueNotFoundError) Error() string {
	return fmt.Sprintf("value %v not present on axis %q", e.Value, e.Axis)
}

// InsertionIndex builds the per-axis slice tuple that addresses one
// combination's sub-block within a parameter's aggregate array. Axes chosen
// by the combination get the single-point span of the value's position in its
// coordinate array; the remaining (horizontal) axes get the full extent.
func InsertionIndex(axisOrder []string, coords domain.Coords, combo map[string]any) ([]Span, error) {
	spans := make([]Span, len(axisOrder))
	for i := range spans {
		spans[i] = FullSpan()
	}
	for ax, v := range combo {
		pos := -1
		for i, name := range axisOrder {
			if name == ax {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("axis %q is not in the parameter's axis order %v", ax, axisOrder)
		}
		idx, ok := domain.IndexOf(coords[ax], v)
		if !ok {
			return nil, &ValueNotFoundError{Axis: ax, Value: v}
		}
		spans[pos] = PointSpan(idx)
	}
	return spans, nil
}
