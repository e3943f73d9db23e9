package query

import (
	"iter"
	"sort"

	"github.com/mvallgren/edr-grid-cache/internal/domain"
)

// Combinations returns the full cross-product of parameter names and
// selection-axis coordinate values as a lazy sequence. Ordering is
// parameter-major, then axes sorted by name, then values in coordinate-array
// order. The sequence is re-enumerable: every fresh range over it reproduces
// the identical order, and a consumer may stop early without the remainder
// ever being computed.
func Combinations(params []string, sel domain.Coords) iter.Seq[Combination] {
	axes := make([]string, 0, len(sel))
	for ax := range sel {
		axes = append(axes, ax)
	}
	sort.Strings(axes)

	return func(yield func(Combination) bool) {
		for _, ax := range axes {
			if len(sel[ax]) == 0 {
				return
			}
		}
		for _, param := range params {
			idx := make([]int, len(axes))
			for {
				coords := make(map[string]any, len(axes))
				for i, ax := range axes {
					coords[ax] = sel[ax][idx[i]]
				}
				if !yield(Combination{Param: param, Coords: coords}) {
					return
				}
				// Odometer increment, last axis fastest.
				k := len(axes) - 1
				for k >= 0 {
					idx[k]++
					if idx[k] < len(sel[axes[k]]) {
						break
					}
					idx[k] = 0
					k--
				}
				if k < 0 {
					break
				}
			}
		}
	}
}

// Count returns the number of combinations the sequence will yield.
func Count(params []string, sel domain.Coords) int {
	n := len(params)
	for _, points := range sel {
		n *= len(points)
	}
	return n
}
