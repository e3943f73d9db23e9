package query

import (
	"errors"
	"regexp"
	"testing"

	"github.com/mvallgren/edr-grid-cache/internal/domain"
)

func TestMakeKey_SortedAxes(t *testing.T) {
	k1 := MakeKey("t2m", map[string]any{"z": 10.0, "t": "2020-01-01T00:00:00Z", "e": 0.0})
	k2 := MakeKey("t2m", map[string]any{"e": 0.0, "t": "2020-01-01T00:00:00Z", "z": 10.0})
	if k1 != k2 {
		t.Fatalf("keys differ for equal combinations:\n k1=%s\n k2=%s", k1, k2)
	}
	want := "name=t2m,e=0,t=2020-01-01T00:00:00Z,z=10"
	if k1 != want {
		t.Fatalf("key = %q, want %q", k1, want)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	cases := []struct {
		param  string
		coords map[string]any
		want   map[string]string
	}{
		{"t2m", map[string]any{"t": 5.0, "z": "surface"}, map[string]string{"t": "5", "z": "surface"}},
		{"rh", map[string]any{}, map[string]string{}},
		{"wind", map[string]any{"e": 0.25}, map[string]string{"e": "0.25"}},
	}
	for _, c := range cases {
		key := MakeKey(c.param, c.coords)
		param, coords, err := FromKey(key)
		if err != nil {
			t.Fatalf("FromKey(%q): %v", key, err)
		}
		if param != c.param {
			t.Fatalf("FromKey(%q) param = %q, want %q", key, param, c.param)
		}
		if len(coords) != len(c.want) {
			t.Fatalf("FromKey(%q) coords = %v, want %v", key, coords, c.want)
		}
		for ax, v := range c.want {
			if coords[ax] != v {
				t.Fatalf("FromKey(%q)[%s] = %q, want %q", key, ax, coords[ax], v)
			}
		}
	}
}

func TestFromKey_Malformed(t *testing.T) {
	for _, key := range []string{"t=1,name=t2m", "name=t2m,justanaxis", "nokey"} {
		if _, _, err := FromKey(key); err == nil {
			t.Fatalf("FromKey(%q): expected error", key)
		}
	}
}

func TestKeyDigest_Shape(t *testing.T) {
	d := KeyDigest("name=t2m,t=1")
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(d) {
		t.Fatalf("digest %q is not 16 hex chars", d)
	}
	if d != KeyDigest("name=t2m,t=1") {
		t.Fatal("digest not deterministic")
	}
}

func collect(params []string, sel domain.Coords) []Combination {
	var out []Combination
	for c := range Combinations(params, sel) {
		out = append(out, c)
	}
	return out
}

func TestCombinations_SingleAxisOrder(t *testing.T) {
	got := collect([]string{"t2m"}, domain.Coords{"t": {1.0, 2.0}})
	if len(got) != 2 {
		t.Fatalf("got %d combinations, want 2", len(got))
	}
	if got[0].Param != "t2m" || got[0].Coords["t"] != 1.0 {
		t.Fatalf("first combination = %+v, want t2m/t=1", got[0])
	}
	if got[1].Coords["t"] != 2.0 {
		t.Fatalf("second combination = %+v, want t2m/t=2", got[1])
	}
}

func TestCombinations_ParamMajorAndAxisOrder(t *testing.T) {
	sel := domain.Coords{"z": {10.0, 20.0}, "t": {"a", "b"}}
	got := collect([]string{"p1", "p2"}, sel)
	if len(got) != 8 {
		t.Fatalf("got %d combinations, want 8", len(got))
	}
	wantKeys := []string{
		"name=p1,t=a,z=10",
		"name=p1,t=a,z=20",
		"name=p1,t=b,z=10",
		"name=p1,t=b,z=20",
		"name=p2,t=a,z=10",
		"name=p2,t=a,z=20",
		"name=p2,t=b,z=10",
		"name=p2,t=b,z=20",
	}
	for i, w := range wantKeys {
		if got[i].Key() != w {
			t.Fatalf("combination %d = %q, want %q", i, got[i].Key(), w)
		}
	}
}

func TestCombinations_ReEnumerationIsIdentical(t *testing.T) {
	sel := domain.Coords{"t": {1.0, 2.0, 3.0}, "z": {5.0, 6.0}}
	seq := Combinations([]string{"a", "b"}, sel)
	first := make([]string, 0)
	for c := range seq {
		first = append(first, c.Key())
	}
	second := make([]string, 0)
	for c := range seq {
		second = append(second, c.Key())
	}
	if len(first) != len(second) {
		t.Fatalf("passes differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("passes diverge at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestCombinations_EarlyTermination(t *testing.T) {
	sel := domain.Coords{"t": {1.0, 2.0, 3.0, 4.0}}
	n := 0
	for range Combinations([]string{"a"}, sel) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("consumed %d combinations, want 2", n)
	}
}

func TestCombinations_NoSelectionAxes(t *testing.T) {
	got := collect([]string{"t2m"}, domain.Coords{})
	if len(got) != 1 || len(got[0].Coords) != 0 {
		t.Fatalf("got %v, want one combination with no coords", got)
	}
}

func TestCount(t *testing.T) {
	sel := domain.Coords{"t": {1.0, 2.0, 3.0}, "z": {5.0, 6.0}}
	if n := Count([]string{"a", "b"}, sel); n != 12 {
		t.Fatalf("Count = %d, want 12", n)
	}
}

func TestInsertionIndex(t *testing.T) {
	coords := domain.Coords{
		"t": {1.0, 3.0, 5.0},
		"y": {0.0, 1.0},
		"x": {0.0, 1.0, 2.0},
	}
	spans, err := InsertionIndex([]string{"t", "y", "x"}, coords, map[string]any{"t": 5.0})
	if err != nil {
		t.Fatalf("InsertionIndex: %v", err)
	}
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}
	if spans[0].All || spans[0].Start != 2 || spans[0].Stop != 3 {
		t.Fatalf("t span = %v, want [2:3]", spans[0])
	}
	if !spans[1].All || !spans[2].All {
		t.Fatalf("horizontal spans = %v %v, want full extents", spans[1], spans[2])
	}
}

func TestInsertionIndex_StringValueFromKey(t *testing.T) {
	coords := domain.Coords{"t": {1.0, 3.0, 5.0}, "x": {0.0}}
	spans, err := InsertionIndex([]string{"t", "x"}, coords, map[string]any{"t": "3"})
	if err != nil {
		t.Fatalf("InsertionIndex: %v", err)
	}
	if spans[0].Start != 1 || spans[0].Stop != 2 {
		t.Fatalf("t span = %v, want [1:2]", spans[0])
	}
}

func TestInsertionIndex_ValueNotFound(t *testing.T) {
	coords := domain.Coords{"t": {1.0, 3.0}}
	_, err := InsertionIndex([]string{"t"}, coords, map[string]any{"t": 9.0})
	var vnf *ValueNotFoundError
	if !errors.As(err, &vnf) {
		t.Fatalf("err = %v, want ValueNotFoundError", err)
	}
	if vnf.Axis != "t" {
		t.Fatalf("error axis = %q, want t", vnf.Axis)
	}
}
