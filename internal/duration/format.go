package duration

import (
	"strconv"
	"strings"
	"time"
)

// components splits d into per-scale counts, largest scale first. Each scale
// takes what is left after the larger ones, so the counts always add back up
// to d.
func components(d time.Duration) []int64 {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	out := make([]int64, len(Scales))
	for i, scale := range Scales {
		out[i] = total / scale.Seconds
		total %= scale.Seconds
	}
	return out
}

// Short renders d as concatenated components, e.g. "1y2mo3w". A zero
// duration renders as "0s".
func Short(d time.Duration) string {
	var sb strings.Builder
	for i, n := range components(d) {
		if n == 0 {
			continue
		}
		sb.WriteString(strconv.FormatInt(n, 10))
		sb.WriteString(Scales[i].Symbol)
	}
	if sb.Len() == 0 {
		return "0s"
	}
	return sb.String()
}

// Long renders d as comma separated words, e.g. "1 day, 2 hours".
func Long(d time.Duration) string {
	var parts []string
	for i, n := range components(d) {
		if n == 0 {
			continue
		}
		unit := Scales[i].Singular
		if n > 1 {
			unit += "s"
		}
		parts = append(parts, strconv.FormatInt(n, 10)+" "+unit)
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
