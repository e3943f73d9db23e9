// Package interval expands ISO-8601 interval/repeat expressions into concrete
// ordered date-time sequences.
//
// An expression is one to three elements joined by "/" (or "--" when no "/" is
// present): date-time literals, a duration ("P..."), and a repeat count
// ("R<n>"). Supported shapes are a single instant, an explicit start/end pair,
// and an anchored repeating sequence built forward from a start or backward
// from an end.
package interval

import (
	"strconv"
	"strings"
	"time"
)

const (
	// LayoutShort accepts minute-precision instants.
	LayoutShort = "2006-01-02T15:04Z"
	// LayoutLong accepts second-precision instants and is the output format.
	LayoutLong = "2006-01-02T15:04:05Z"
)

// Direction records which way a repeating sequence is constructed.
type Direction int

const (
	// DirectionNone applies to single instants and explicit start/end pairs.
	DirectionNone Direction = iota
	// DirectionForward grows from a known start.
	DirectionForward
	// DirectionBackward grows from a known end, then reverses.
	DirectionBackward
)

// Spec is the parsed form of an interval expression.
type Spec struct {
	Start    time.Time
	End      time.Time
	HasStart bool
	HasEnd   bool

	// Duration is the step between consecutive points. Years count as 365
	// days and months as 30; see parseDuration.
	Duration    time.Duration
	HasDuration bool

	// Repeat is the number of points added beyond the anchor. The default 1
	// means a single implicit repeat.
	Repeat int

	Direction Direction
}

type elementKind int

const (
	elemDateTime elementKind = iota
	elemDuration
	elemRepeat
)

// classify tags one element by its leading rune. The tag is computed once
// here and consumed by a single match in Parse.
func classify(el string) elementKind {
	low := strings.ToLower(el)
	switch {
	case strings.HasPrefix(low, "r"):
		return elemRepeat
	case strings.HasPrefix(low, "p"):
		return elemDuration
	default:
		return elemDateTime
	}
}

func splitElements(s string) []string {
	if strings.Contains(s, "/") {
		return strings.Split(s, "/")
	}
	return strings.Split(s, "--")
}

// Parse classifies and validates an interval expression.
func Parse(s string) (*Spec, error) {
	elements := splitElements(s)

	kinds := make([]elementKind, len(elements))
	durationText := ""
	repeatText := ""
	haveRepeat := false
	for i, el := range elements {
		kinds[i] = classify(el)
		switch kinds[i] {
		case elemDuration:
			if durationText != "" {
				return nil, &MalformedIntervalError{Input: s, Reason: "more than one duration element"}
			}
			durationText = el
		case elemRepeat:
			if haveRepeat {
				return nil, &MalformedIntervalError{Input: s, Reason: "more than one repeat element"}
			}
			repeatText = el
			haveRepeat = true
		}
	}

	var dtIndices []int
	for i, k := range kinds {
		if k == elemDateTime {
			dtIndices = append(dtIndices, i)
		}
	}

	spec := &Spec{Repeat: 1}
	switch {
	case len(dtIndices) == 2 && dtIndices[0] == 0 && dtIndices[1] == 1:
		start, err := parseDateTime(elements[0])
		if err != nil {
			return nil, err
		}
		end, err := parseDateTime(elements[1])
		if err != nil {
			return nil, err
		}
		spec.Start, spec.HasStart = start, true
		spec.End, spec.HasEnd = end, true
	case len(dtIndices) == 1:
		// A lone date may lead, follow the first element, or trail. When it
		// is not the leading element, the first element's kind decides the
		// anchor: a duration makes it an end (backward), a repeat a start.
		idx := dtIndices[0]
		if idx != 0 && idx != 1 && idx != len(elements)-1 {
			return nil, &MalformedIntervalError{Input: s, Reason: "unrecognized element pattern"}
		}
		dt, err := parseDateTime(elements[idx])
		if err != nil {
			return nil, err
		}
		if idx == 0 || kinds[0] == elemRepeat {
			spec.Start, spec.HasStart = dt, true
			spec.Direction = DirectionForward
		} else {
			spec.End, spec.HasEnd = dt, true
			spec.Direction = DirectionBackward
		}
	default:
		return nil, &MalformedIntervalError{Input: s, Reason: "unrecognized element pattern"}
	}

	if durationText != "" {
		d, err := parseDuration(durationText)
		if err != nil {
			return nil, err
		}
		spec.Duration, spec.HasDuration = d, true
	}
	if haveRepeat {
		n, err := parseRepeat(repeatText)
		if err != nil {
			return nil, &MalformedIntervalError{Input: s, Reason: err.Error()}
		}
		spec.Repeat = n
	}
	return spec, nil
}

// Expand returns the concrete point sequence for the spec, in ascending order.
func (s *Spec) Expand() []time.Time {
	switch {
	case s.HasStart && !s.HasEnd && !s.HasDuration:
		return []time.Time{s.Start}
	case s.HasStart && s.HasEnd:
		// An explicit pair wins over any repeat/duration elements.
		return []time.Time{s.Start, s.End}
	}

	anchor := s.Start
	step := s.Duration
	if s.Direction == DirectionBackward {
		anchor = s.End
		step = -step
	}

	out := make([]time.Time, 0, s.Repeat+1)
	out = append(out, anchor)
	cur := anchor
	for i := 0; i < s.Repeat; i++ {
		cur = cur.Add(step)
		if cur.Equal(out[len(out)-1]) {
			// A zero-length step would repeat the anchor forever.
			continue
		}
		out = append(out, cur)
	}

	if s.Direction == DirectionBackward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Expand parses and expands an interval expression in one step.
func Expand(s string) ([]time.Time, error) {
	spec, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return spec.Expand(), nil
}

// Format renders points with the long ISO layout.
func Format(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.UTC().Format(LayoutLong)
	}
	return out
}

func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(LayoutShort, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(LayoutLong, s); err == nil {
		return t, nil
	}
	return time.Time{}, &DateTimeParseError{Value: s}
}

func parseRepeat(s string) (int, error) {
	rest := s[1:] // leading R/r
	if rest == "" {
		// A bare "R" means repeat once implicitly.
		return 1, nil
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, &MalformedIntervalError{Input: s, Reason: "repeat count must be a non-negative integer"}
	}
	return n, nil
}
