package format

import (
	"math"
	"strconv"
	"strings"
)

var sizeUnits = [...]string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// HumanSize renders a byte count with binary prefixes, rounded to two
// decimals: 1024 -> "1.0 KiB", 1500000 -> "1.43 MiB". Non-positive sizes
// render as "0B".
func HumanSize(size int64) string {
	if size <= 0 {
		return "0B"
	}
	// Repeated division is floor(log_1024(size)) without float log error
	// at exact powers of 1024.
	v := float64(size)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + " " + sizeUnits[i]
}
