package interval

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationChunk = regexp.MustCompile(`(\d+)([A-Za-z])`)

// parseDuration converts an ISO-8601 duration literal ("P1Y2M3DT4H5M") to a
// time.Duration. Years are taken as exactly 365 days and months as exactly 30;
// this is a deliberate simplification, not calendar-accurate arithmetic, and
// downstream behavior depends on it staying that way.
//
// "M" is overloaded: months in the date part, minutes in the time part. The
// part an element sits in disambiguates it.
func parseDuration(s string) (time.Duration, error) {
	body := strings.TrimPrefix(strings.TrimPrefix(s, "P"), "p")
	datePart := body
	timePart := ""
	if i := strings.IndexAny(body, "Tt"); i >= 0 {
		datePart, timePart = body[:i], body[i+1:]
	}

	var years, months, days, hours, minutes int
	consume := func(part string, isDate bool) error {
		matches := durationChunk.FindAllStringSubmatch(part, -1)
		matched := 0
		for _, m := range matches {
			matched += len(m[0])
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return &DurationParseError{Value: s, Reason: "bad component " + m[0]}
			}
			switch strings.ToLower(m[2]) {
			case "y":
				if !isDate {
					return &DurationParseError{Value: s, Reason: "years not allowed in time part"}
				}
				years = n
			case "m":
				if isDate {
					months = n
				} else {
					minutes = n
				}
			case "d":
				if !isDate {
					return &DurationParseError{Value: s, Reason: "days not allowed in time part"}
				}
				days = n
			case "h":
				if isDate {
					return &DurationParseError{Value: s, Reason: "hours must follow the T separator"}
				}
				hours = n
			default:
				return &DurationParseError{Value: s, Reason: "bad unit letter " + strconv.Quote(m[2])}
			}
		}
		if matched != len(part) {
			return &DurationParseError{Value: s, Reason: "malformed duration grammar"}
		}
		return nil
	}

	if err := consume(datePart, true); err != nil {
		return 0, err
	}
	if err := consume(timePart, false); err != nil {
		return 0, err
	}

	totalDays := years*365 + months*30 + days
	return time.Duration(totalDays)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute, nil
}
