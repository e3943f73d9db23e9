package interval

import "fmt"

// MalformedIntervalError reports an expression whose elements do not form any
// recognized interval shape.
type MalformedIntervalError struct {
	Input  string
	Reason string
}

func (e *MalformedIntervalError) Error() string {
	return fmt.Sprintf("malformed interval %q: %s", e.Input, e.Reason)
}

// DateTimeParseError reports a date-time element that matches neither
// accepted literal layout.
type DateTimeParseError struct {
	Value string
}

func (e *DateTimeParseError) Error() string {
	return fmt.Sprintf("date-time %q matches neither %q nor %q", e.Value, LayoutShort, LayoutLong)
}

// DurationParseError reports a duration element with an unrecognized unit
// letter or malformed grammar.
type DurationParseError struct {
	Value  string
	Reason string
}

func (e *DurationParseError) Error() string {
	return fmt.Sprintf("bad duration %q: %s", e.Value, e.Reason)
}
