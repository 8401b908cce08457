package format

import (
	"fmt"
	"strings"
	"time"
)

// Girder writes ISO 8601 timestamps, usually with microseconds and an
// explicit offset. Older records carry no offset and are UTC.
var serverLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

var sinceLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

const displayLayout = "2006-01-02 15:04:05"

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range serverLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseSince reads an operator supplied date or date-time in loc, with
// whole-second precision. An explicit RFC 3339 offset is honoured.
func ParseSince(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Truncate(time.Second), nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD HH:MM:SS)", s)
}

// Timestamp renders a server timestamp in loc as "YYYY-MM-DD HH:MM:SS".
// Unparseable values are shown as sent, minus fractional seconds.
func Timestamp(s string, loc *time.Location) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		head, _, _ := strings.Cut(s, ".")
		return strings.Replace(head, "T", " ", 1)
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(displayLayout)
}

// ShortDate is the minute-precision prefix of a server timestamp.
func ShortDate(s string) string {
	if len(s) > 16 {
		s = s[:16]
	}
	return strings.Replace(s, "T", " ", 1)
}
