// Package ndgrid provides a dense row-major n-dimensional array with a mask
// for missing points, plus the block assignment used to assemble per-slice
// fetch results into one aggregate array.
package ndgrid

import (
	"fmt"

	"github.com/mvallgren/edr-grid-cache/internal/query"
)

// Fill values written under masked points, per element type.
const (
	IntFill   = 999999
	FloatFill = 1e20
)

// Array is a dense row-major n-dimensional grid. Data always holds float64;
// DType records the declared element type of the source values. Mask, when
// non-nil, marks missing points.
type Array struct {
	Shape []int     `json:"shape"`
	DType string    `json:"dtype"`
	Data  []float64 `json:"data"`
	Mask  []bool    `json:"mask,omitempty"`

	strides []int
}

// New allocates a zeroed array of the given shape.
func New(shape []int, dtype string) *Array {
	return &Array{
		Shape: append([]int(nil), shape...),
		DType: dtype,
		Data:  make([]float64, product(shape)),
	}
}

// FromFlat reshapes a flat JSON value list into an array. Nulls become masked
// points carrying the type's fill value.
func FromFlat(values []any, shape []int, dtype string) (*Array, error) {
	if n := product(shape); n != len(values) {
		return nil, fmt.Errorf("ndgrid: %d values do not fill shape %v (%d points)", len(values), shape, n)
	}

	fill := FloatFill
	switch dtype {
	case "int", "integer":
		fill = IntFill
	case "float", "double", "number", "":
	default:
		return nil, fmt.Errorf("ndgrid: unknown element type %q", dtype)
	}

	a := New(shape, dtype)
	var mask []bool
	for i, v := range values {
		switch t := v.(type) {
		case nil:
			if mask == nil {
				mask = make([]bool, len(values))
			}
			mask[i] = true
			a.Data[i] = float64(fill)
		case float64:
			a.Data[i] = t
		case int:
			a.Data[i] = float64(t)
		default:
			return nil, fmt.Errorf("ndgrid: value %d has non-numeric type %T", i, v)
		}
	}
	a.Mask = mask
	return a, nil
}

// Size is the total number of points.
func (a *Array) Size() int { return len(a.Data) }

// Rank is the number of dimensions.
func (a *Array) Rank() int { return len(a.Shape) }

func (a *Array) ensureStrides() {
	if len(a.strides) == len(a.Shape) && len(a.Shape) > 0 {
		return
	}
	a.strides = make([]int, len(a.Shape))
	stride := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		a.strides[i] = stride
		stride *= a.Shape[i]
	}
}

// Offset converts a multi-index to a flat position.
func (a *Array) Offset(ix []int) int {
	a.ensureStrides()
	off := 0
	for i, v := range ix {
		off += v * a.strides[i]
	}
	return off
}

// At reads the value at a multi-index.
func (a *Array) At(ix ...int) float64 { return a.Data[a.Offset(ix)] }

// MaskedAt reports whether the point at a multi-index is missing.
func (a *Array) MaskedAt(ix ...int) bool {
	if a.Mask == nil {
		return false
	}
	return a.Mask[a.Offset(ix)]
}

// Squeeze returns a view-shaped copy with all length-1 dimensions dropped.
// The flat data is shared, not copied.
func (a *Array) Squeeze() *Array {
	shape := SqueezeShape(a.Shape)
	return &Array{Shape: shape, DType: a.DType, Data: a.Data, Mask: a.Mask}
}

// SqueezeShape drops length-1 dimensions from a shape.
func SqueezeShape(shape []int) []int {
	out := make([]int, 0, len(shape))
	for _, s := range shape {
		if s != 1 {
			out = append(out, s)
		}
	}
	return out
}

// Assign writes sub into the region of a addressed by index. The region and
// sub must cover the same number of points; sub is consumed in row-major
// order, so a squeezed block still lands correctly in its length-1 slots.
func (a *Array) Assign(sub *Array, index []query.Span) error {
	region, err := a.region(index)
	if err != nil {
		return err
	}
	if n := product(region.shape); n != sub.Size() {
		return fmt.Errorf("ndgrid: block of %d points does not fit region %v (%d points)",
			sub.Size(), region.shape, n)
	}
	k := 0
	region.walk(func(off int) {
		a.Data[off] = sub.Data[k]
		if sub.Mask != nil && sub.Mask[k] {
			if a.Mask == nil {
				a.Mask = make([]bool, len(a.Data))
			}
			a.Mask[off] = true
		}
		k++
	})
	return nil
}

// Section copies the region addressed by index out into a new array with the
// region's shape.
func (a *Array) Section(index []query.Span) (*Array, error) {
	region, err := a.region(index)
	if err != nil {
		return nil, err
	}
	out := New(region.shape, a.DType)
	k := 0
	region.walk(func(off int) {
		out.Data[k] = a.Data[off]
		if a.Mask != nil && a.Mask[off] {
			if out.Mask == nil {
				out.Mask = make([]bool, len(out.Data))
			}
			out.Mask[k] = true
		}
		k++
	})
	return out, nil
}

type regionIter struct {
	starts  []int
	shape   []int
	strides []int
}

func (a *Array) region(index []query.Span) (*regionIter, error) {
	if len(index) != len(a.Shape) {
		return nil, fmt.Errorf("ndgrid: index has %d spans for rank-%d array", len(index), len(a.Shape))
	}
	a.ensureStrides()
	r := &regionIter{
		starts:  make([]int, len(index)),
		shape:   make([]int, len(index)),
		strides: a.strides,
	}
	for i, sp := range index {
		start, stop := sp.Bounds(a.Shape[i])
		if start < 0 || stop > a.Shape[i] || start >= stop {
			return nil, fmt.Errorf("ndgrid: span %v out of range for axis %d (len %d)", sp, i, a.Shape[i])
		}
		r.starts[i] = start
		r.shape[i] = stop - start
	}
	return r, nil
}

// walk visits every flat offset of the region in row-major order.
func (r *regionIter) walk(visit func(off int)) {
	ix := make([]int, len(r.shape))
	for {
		off := 0
		for i := range ix {
			off += (r.starts[i] + ix[i]) * r.strides[i]
		}
		visit(off)
		k := len(ix) - 1
		for k >= 0 {
			ix[k]++
			if ix[k] < r.shape[k] {
				break
			}
			ix[k] = 0
			k--
		}
		if k < 0 {
			return
		}
	}
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
