package ndgrid

import (
	"testing"

	"github.com/mvallgren/edr-grid-cache/internal/query"
)

func TestFromFlat_ReshapeRowMajor(t *testing.T) {
	a, err := FromFlat([]any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0}, []int{2, 3}, "float")
	if err != nil {
		t.Fatalf("FromFlat: %v", err)
	}
	if got := a.At(1, 0); got != 4 {
		t.Fatalf("At(1,0) = %v, want 4", got)
	}
	if got := a.At(0, 2); got != 3 {
		t.Fatalf("At(0,2) = %v, want 3", got)
	}
}

func TestFromFlat_ShapeMismatch(t *testing.T) {
	if _, err := FromFlat([]any{1.0, 2.0}, []int{3}, "float"); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestFromFlat_NullMaskingFloat(t *testing.T) {
	a, err := FromFlat([]any{1.0, nil, 3.0}, []int{3}, "float")
	if err != nil {
		t.Fatalf("FromFlat: %v", err)
	}
	if !a.MaskedAt(1) || a.MaskedAt(0) || a.MaskedAt(2) {
		t.Fatalf("mask = %v, want only index 1 masked", a.Mask)
	}
	if a.Data[1] != FloatFill {
		t.Fatalf("masked fill = %v, want %v", a.Data[1], FloatFill)
	}
}

func TestFromFlat_NullMaskingInt(t *testing.T) {
	a, err := FromFlat([]any{nil, 2.0}, []int{2}, "int")
	if err != nil {
		t.Fatalf("FromFlat: %v", err)
	}
	if a.Data[0] != IntFill {
		t.Fatalf("masked fill = %v, want %v", a.Data[0], IntFill)
	}
}

func TestFromFlat_UnknownDType(t *testing.T) {
	if _, err := FromFlat([]any{1.0}, []int{1}, "complex"); err == nil {
		t.Fatal("expected unknown element type error")
	}
}

func TestSqueezeShape(t *testing.T) {
	got := SqueezeShape([]int{1, 4, 1, 3})
	if len(got) != 2 || got[0] != 4 || got[1] != 3 {
		t.Fatalf("SqueezeShape = %v, want [4 3]", got)
	}
}

func TestAssignAndSection(t *testing.T) {
	// Aggregate 2x2x2 (t, y, x); insert a squeezed 2x2 block at t=1.
	agg := New([]int{2, 2, 2}, "float")
	sub, err := FromFlat([]any{1.0, 2.0, 3.0, 4.0}, []int{2, 2}, "float")
	if err != nil {
		t.Fatalf("FromFlat: %v", err)
	}
	index := []query.Span{query.PointSpan(1), query.FullSpan(), query.FullSpan()}
	if err := agg.Assign(sub, index); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if agg.At(1, 0, 0) != 1 || agg.At(1, 0, 1) != 2 || agg.At(1, 1, 0) != 3 || agg.At(1, 1, 1) != 4 {
		t.Fatalf("block landed wrong: %v", agg.Data)
	}
	if agg.At(0, 0, 0) != 0 {
		t.Fatalf("untouched region modified: %v", agg.Data)
	}

	back, err := agg.Section(index)
	if err != nil {
		t.Fatalf("Section: %v", err)
	}
	sq := back.Squeeze()
	if len(sq.Shape) != 2 || sq.Shape[0] != 2 || sq.Shape[1] != 2 {
		t.Fatalf("section shape = %v, want [2 2]", sq.Shape)
	}
	for i, w := range []float64{1, 2, 3, 4} {
		if sq.Data[i] != w {
			t.Fatalf("section data = %v, want [1 2 3 4]", sq.Data)
		}
	}
}

func TestAssign_MaskPropagates(t *testing.T) {
	agg := New([]int{2, 2}, "float")
	sub, err := FromFlat([]any{nil, 7.0}, []int{2}, "float")
	if err != nil {
		t.Fatalf("FromFlat: %v", err)
	}
	index := []query.Span{query.PointSpan(0), query.FullSpan()}
	if err := agg.Assign(sub, index); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !agg.MaskedAt(0, 0) || agg.MaskedAt(0, 1) {
		t.Fatalf("mask = %v, want only (0,0) masked", agg.Mask)
	}
}

func TestAssign_SizeMismatch(t *testing.T) {
	agg := New([]int{2, 2}, "float")
	sub := New([]int{3}, "float")
	err := agg.Assign(sub, []query.Span{query.PointSpan(0), query.FullSpan()})
	if err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestAssign_RankMismatch(t *testing.T) {
	agg := New([]int{2, 2}, "float")
	sub := New([]int{2}, "float")
	if err := agg.Assign(sub, []query.Span{query.FullSpan()}); err == nil {
		t.Fatal("expected rank mismatch error")
	}
}
