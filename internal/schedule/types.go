// Package schedule holds the per-world reset schedule and its worlds.json
// persistence.
package schedule

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// MinInterval is the smallest interval a reset may use.
const MinInterval = 10 * time.Second

// Reset is one scheduled world reset. Values are immutable; the store
// replaces entries whole.
type Reset struct {
	WorldName string
	Interval  time.Duration
	NextReset time.Time
}

// NewReset schedules name to reset every interval, the first time one
// interval after from.
func NewReset(name string, interval time.Duration, from time.Time) Reset {
	return Reset{WorldName: name, Interval: interval, NextReset: from.Add(interval)}
}

// Key is the identity of the reset: the case-folded world name.
func (r Reset) Key() string { return FoldName(r.WorldName) }

// Same reports whether r and o are the same entry, field for field, with the
// world name compared by identity.
func (r Reset) Same(o Reset) bool {
	return r.Key() == o.Key() && r.Interval == o.Interval && r.NextReset.Equal(o.NextReset)
}

// Valid reports why r cannot be stored, or nil.
func (r Reset) Valid() error {
	if err := ValidWorldName(r.WorldName); err != nil {
		return err
	}
	if r.Interval < MinInterval {
		return fmt.Errorf("interval %s is below %s", r.Interval, MinInterval)
	}
	return nil
}

// ValidWorldName reports why name cannot name a world directory: worlds are
// single entries of the world container.
func ValidWorldName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("world name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("world name %q is not a directory name", name)
	case strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name):
		return fmt.Errorf("world name %q is not a single path element", name)
	}
	return nil
}

// Overdue reports whether the deadline has passed.
func (r Reset) Overdue(now time.Time) bool { return r.NextReset.Before(now) }

// Rolled returns r with NextReset advanced by whole intervals until it is at
// or after now. The phase of the original schedule is kept.
func Rolled(r Reset, now time.Time) Reset {
	if !r.NextReset.Before(now) || r.Interval <= 0 {
		return r
	}
	behind := now.Sub(r.NextReset)
	steps := behind / r.Interval
	if behind%r.Interval != 0 {
		steps++
	}
	r.NextReset = r.NextReset.Add(steps * r.Interval)
	return r
}

// FoldName returns the case-insensitive identity of a world name.
func FoldName(name string) string {
	return cases.Fold().String(name)
}

// Result tells a fresh schedule from a replacement.
type Result int

const (
	Fresh Result = iota
	Replaced
)

func (r Result) String() string {
	if r == Replaced {
		return "replaced"
	}
	return "fresh"
}

// timestamp is the {"seconds","nanos"} encoding used for both intervals and
// instants in worlds.json.
type timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

type resetJSON struct {
	WorldName string    `json:"worldName"`
	Interval  timestamp `json:"interval"`
	NextReset timestamp `json:"nextReset"`
}

func (r Reset) MarshalJSON() ([]byte, error) {
	return json.Marshal(resetJSON{
		WorldName: r.WorldName,
		Interval: timestamp{
			Seconds: int64(r.Interval / time.Second),
			Nanos:   int32(r.Interval % time.Second),
		},
		NextReset: timestamp{
			Seconds: r.NextReset.Unix(),
			Nanos:   int32(r.NextReset.Nanosecond()),
		},
	})
}

func (r *Reset) UnmarshalJSON(data []byte) error {
	var raw resetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.WorldName = raw.WorldName
	r.Interval = time.Duration(raw.Interval.Seconds)*time.Second + time.Duration(raw.Interval.Nanos)
	r.NextReset = time.Unix(raw.NextReset.Seconds, int64(raw.NextReset.Nanos))
	return nil
}
