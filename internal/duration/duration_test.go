package duration

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"30s", 30},
		{"30", 30},
		{"12.5", 13},
		{"1h30m", 5400},
		{"1hr", 3600},
		{"2hours", 7200},
		{"24hs", 86400},
		{"30min", 1800},
		{"25mins", 1500},
		{"1minute", 60},
		{"12d", 12 * 86400},
		{"2days", 2 * 86400},
		{"1w", 604800},
		{"1weeks", 604800},
		{"1mo", 2629746},
		{"2months", 2 * 2629746},
		{"1y", 31556952},
		{"8.5ys", 268234092},
		{"3mo5ws2days4.045secs", 3*2629746 + 5*604800 + 2*86400 + 4},
		{"  1D2H ", 93600},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.in, err)
			continue
		}
		if got != time.Duration(tt.want)*time.Second {
			t.Errorf("Parse(%q) = %v, want %ds", tt.in, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("Parse(\"\") error = %v, want ErrEmpty", err)
	}
	if _, err := Parse("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("Parse(blank) error = %v, want ErrEmpty", err)
	}

	for _, in := range []string{"abc", "1d1y", "1.5.5", "d", "-5s", "1 d", "5x"} {
		_, err := Parse(in)
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q) error = %v, want ErrSyntax", in, err)
		}
	}
}

func TestParserBounds(t *testing.T) {
	p := Parser{Min: 10 * time.Second, Max: time.Hour}

	if _, err := p.Parse("10s"); err != nil {
		t.Errorf("Parse(10s) at inclusive min: %v", err)
	}

	_, err := p.Parse("5s")
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("Parse(5s) error = %v, want RangeError", err)
	}
	if re.TooBig {
		t.Error("Parse(5s) reported TooBig")
	}
	if want := "Duration must not be less than 10s, found 5s"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	_, err = p.Parse("1h")
	if !errors.As(err, &re) || !re.TooBig {
		t.Fatalf("Parse(1h) error = %v, want TooBig at exclusive max", err)
	}
	if want := "Duration must not be more than 1h, found 1h"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestParseRejectsOverflow(t *testing.T) {
	if d, err := Parse("200y"); err != nil || d != 200*31556952*time.Second {
		t.Errorf("Parse(200y) = %v, %v", d, err)
	}

	for _, in := range []string{"300y", "600y", "1000y", "292y4mo", "9999999999999s"} {
		d, err := Parse(in)
		var re *RangeError
		if !errors.As(err, &re) || !re.TooBig {
			t.Errorf("Parse(%q) = %v, %v, want TooBig", in, d, err)
		}
	}

	if _, err := (Parser{Min: 10 * time.Second}).Parse("600y"); err == nil {
		t.Error("bounded parser accepted 600y")
	}
}

func TestShortLong(t *testing.T) {
	tests := []struct {
		secs  int64
		short string
		long  string
	}{
		{0, "0s", "0 seconds"},
		{1, "1s", "1 second"},
		{60, "1m", "1 minute"},
		{90061, "1d1h1m1s", "1 day, 1 hour, 1 minute, 1 second"},
		{93600, "1d2h", "1 day, 2 hours"},
		{30 * 86400, "4w2d", "4 weeks, 2 days"},
		{31556952 + 2*2629746 + 3*604800, "1y2mo3w", "1 year, 2 months, 3 weeks"},
	}
	for _, tt := range tests {
		d := time.Duration(tt.secs) * time.Second
		if got := Short(d); got != tt.short {
			t.Errorf("Short(%ds) = %q, want %q", tt.secs, got, tt.short)
		}
		if got := Long(d); got != tt.long {
			t.Errorf("Long(%ds) = %q, want %q", tt.secs, got, tt.long)
		}
	}
}

func TestNegativeRendersZero(t *testing.T) {
	if got := Short(-time.Minute); got != "0s" {
		t.Errorf("Short(-1m) = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	limit := int64(100 * secondsPerYear)
	for secs := int64(0); secs <= limit; secs += 7919 * 131 {
		checkRoundTrip(t, secs)
	}
	for _, secs := range []int64{1, 59, 61, 3599, 86399, 604799, 2629745, 2629746, 31556951, limit} {
		checkRoundTrip(t, secs)
	}
}

func checkRoundTrip(t *testing.T, secs int64) {
	t.Helper()
	d := time.Duration(secs) * time.Second

	got, err := Parse(Short(d))
	if err != nil || got != d {
		t.Errorf("Parse(Short(%ds)) = %v, %v", secs, got, err)
	}

	long := strings.NewReplacer(", ", "", " ", "").Replace(Long(d))
	got, err = Parse(long)
	if err != nil || got != d {
		t.Errorf("Parse(%q) = %v, %v, want %ds", long, got, err, secs)
	}
}

func TestSymbols(t *testing.T) {
	tests := []struct {
		prefix string
		want   []string
	}{
		{"123", []string{"y", "mo", "w", "d", "h", "m", "s"}},
		{"1.5", []string{"y", "mo", "w", "d", "h", "m", "s"}},
		{"123ws4", []string{"d", "h", "m", "s"}},
		{"123ws4h56", []string{"m", "s"}},
		{"1y2", []string{"mo", "w", "d", "h", "m", "s"}},
		{"1m2", []string{"s"}},
		{"123mo", nil},
		{"123m", nil},
		{"5s", nil},
		{"", nil},
		{"abc", nil},
	}
	for _, tt := range tests {
		if got := Symbols(tt.prefix); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Symbols(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	got := Suggest("1h30")
	want := []string{"1h30m", "1h30s"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest(1h30) = %v, want %v", got, want)
	}
	if got := Suggest("1h"); got != nil {
		t.Errorf("Suggest(1h) = %v, want none", got)
	}
}

func TestSuggestionsParse(t *testing.T) {
	for _, prefix := range []string{"1", "2y3", "4w5"} {
		for _, s := range Suggest(prefix) {
			if _, err := Parse(s); err != nil {
				t.Errorf("suggestion %q does not parse: %v", s, err)
			}
		}
	}
}
