// Package duration parses and renders the human-friendly durations shared by
// command arguments, config values and broadcast messages ("1d2h", "30min",
// "3mo5ws2days4.045secs").
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Scale is one unit of the grammar.
type Scale struct {
	Symbol   string
	Singular string
	Seconds  int64
}

const (
	secondsPerDay  = 86400
	secondsPerYear = 31556952 // 365.2425 days
)

// Scales lists the units largest first. Suggestions follow this order.
var Scales = []Scale{
	{Symbol: "y", Singular: "year", Seconds: secondsPerYear},
	{Symbol: "mo", Singular: "month", Seconds: secondsPerYear / 12},
	{Symbol: "w", Singular: "week", Seconds: 7 * secondsPerDay},
	{Symbol: "d", Singular: "day", Seconds: secondsPerDay},
	{Symbol: "h", Singular: "hour", Seconds: 3600},
	{Symbol: "m", Singular: "minute", Seconds: 60},
	{Symbol: "s", Singular: "second", Seconds: 1},
}

const number = `(\d+(?:\.\d+)?)`

// pattern holds two groups per scale: the coefficient and the symbol. The
// seconds symbol is optional so a trailing bare number counts as seconds.
var pattern = regexp.MustCompile("^" +
	"(?:" + number + "(y)(?:ear)?s?)?" +
	"(?:" + number + "(mo)(?:nth)?s?)?" +
	"(?:" + number + "(w)(?:eek)?s?)?" +
	"(?:" + number + "(d)(?:ay)?s?)?" +
	"(?:" + number + "(h)(?:r|our)?s?)?" +
	"(?:" + number + "(m)(?:in|inute)?s?)?" +
	"(?:" + number + "(?:(s)(?:ec|econd)?s?)?)?" +
	"$")

// Examples are shown in help output.
var Examples = []string{"12d", "25mins", "8.5ys", "3mo5ws2days4.045secs"}

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("duration: empty input")
	// ErrSyntax is returned when the input does not follow the grammar.
	ErrSyntax = errors.New("duration: invalid syntax")
)

// maxSeconds is the largest whole number of seconds a time.Duration holds.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// Max is the longest duration Parse accepts, about 292 years.
const Max = time.Duration(maxSeconds) * time.Second

// SyntaxError reports the offending input.
type SyntaxError struct {
	Input string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Invalid duration %q (examples: %s)", e.Input, strings.Join(Examples, ", "))
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// RangeError is returned by a bounded Parser.
type RangeError struct {
	Found  time.Duration
	Limit  time.Duration
	TooBig bool
}

func (e *RangeError) Error() string {
	if e.TooBig {
		return fmt.Sprintf("Duration must not be more than %s, found %s", Short(e.Limit), Short(e.Found))
	}
	return fmt.Sprintf("Duration must not be less than %s, found %s", Short(e.Limit), Short(e.Found))
}

// Parser parses durations within optional bounds: Min is inclusive, Max is
// exclusive, zero means unbounded.
type Parser struct {
	Min time.Duration
	Max time.Duration
}

// Parse parses s with the bounds of p.
func (p Parser) Parse(s string) (time.Duration, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if p.Min > 0 && d < p.Min {
		return 0, &RangeError{Found: d, Limit: p.Min}
	}
	if p.Max > 0 && d >= p.Max {
		return 0, &RangeError{Found: d, Limit: p.Max, TooBig: true}
	}
	return d, nil
}

// Parse parses s without bounds. The result is rounded to whole seconds.
func Parse(s string) (time.Duration, error) {
	input := strings.ToLower(strings.TrimSpace(s))
	if input == "" {
		return 0, ErrEmpty
	}

	m := pattern.FindStringSubmatch(input)
	if m == nil {
		return 0, &SyntaxError{Input: s}
	}

	var total float64
	matched := false
	for i, scale := range Scales {
		coefficient := m[2*i+1]
		if coefficient == "" {
			continue
		}
		value, err := strconv.ParseFloat(coefficient, 64)
		if err != nil {
			return 0, &SyntaxError{Input: s}
		}
		total += math.Round(value * float64(scale.Seconds))
		matched = true
	}
	if !matched {
		return 0, &SyntaxError{Input: s}
	}
	if total > float64(maxSeconds) {
		return 0, &RangeError{Found: Max, Limit: Max, TooBig: true}
	}
	return time.Duration(total) * time.Second, nil
}

// MustParse is Parse for package-level fallbacks; it panics on bad input.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}
