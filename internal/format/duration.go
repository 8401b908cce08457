package format

import (
	"strconv"
	"strings"
	"time"
)

// Duration renders d as "<d>d <h>h <m>m <s>s" leaving out every zero unit.
// A zero (or negative) duration renders as "0s".
func Duration(d time.Duration) string {
	total := int64(d / time.Second)
	if total <= 0 {
		return "0s"
	}
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	var parts []string
	for _, u := range []struct {
		n    int64
		unit string
	}{{days, "d"}, {hours, "h"}, {minutes, "m"}, {seconds, "s"}} {
		if u.n > 0 {
			parts = append(parts, strconv.FormatInt(u.n, 10)+u.unit)
		}
	}
	return strings.Join(parts, " ")
}

// Elapsed is the duration between two server timestamps. Unparseable
// input yields "N/A".
func Elapsed(created, updated string) string {
	start, err := ParseTimestamp(created)
	if err != nil {
		return "N/A"
	}
	end, err := ParseTimestamp(updated)
	if err != nil {
		return "N/A"
	}
	return Duration(end.Sub(start))
}
