package duration

import "strings"

// Symbols returns the unit symbols that may follow prefix. Only a prefix that
// ends in a bare number gets suggestions, and only for units after the last
// one already used:
//
//	"123"       -> y mo w d h m s
//	"123ws4"    -> d h m s
//	"123ws4h56" -> m s
//	"123mo"     -> (none, a number is expected next)
func Symbols(prefix string) []string {
	m := pattern.FindStringSubmatch(strings.ToLower(prefix))
	if m == nil {
		return nil
	}

	// The seconds coefficient is the only one whose symbol is optional, so a
	// trailing bare number shows up as a seconds coefficient without symbol.
	last := len(Scales) - 1
	if m[2*last+1] == "" || m[2*last+2] != "" {
		return nil
	}

	start := 0
	for i := last - 1; i >= 0; i-- {
		if m[2*i+2] != "" {
			start = i + 1
			break
		}
	}

	out := make([]string, 0, len(Scales)-start)
	for _, scale := range Scales[start:] {
		out = append(out, scale.Symbol)
	}
	return out
}

// Suggest returns completions for prefix: prefix followed by each valid symbol.
func Suggest(prefix string) []string {
	symbols := Symbols(prefix)
	if len(symbols) == 0 {
		return nil
	}
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = prefix + s
	}
	return out
}
