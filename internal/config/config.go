package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/joebot/worldreset/internal/duration"
)

var keyNamePattern = regexp.MustCompile(`^[A-Za-z-]{4,32}$`)

// Identity distinguishes keys. Two keys with the same name but different
// reload behaviour are different keys.
type Identity struct {
	Name       string
	Reloadable bool
}

// Entry is the untyped view of a Key the Adapter iterates on reload.
type Entry interface {
	Identity() Identity
	derive(a *Adapter) any
}

// Key is a typed, named config value with a fallback.
type Key[T any] struct {
	name       string
	fallback   T
	reloadable bool
	read       func(a *Adapter, name string) (T, bool)
}

func newKey[T any](name string, fallback T, reloadable bool, read func(*Adapter, string) (T, bool)) Key[T] {
	if !keyNamePattern.MatchString(name) {
		panic(fmt.Sprintf("config: invalid key name %q", name))
	}
	return Key[T]{name: name, fallback: fallback, reloadable: reloadable, read: read}
}

func (k Key[T]) Name() string     { return k.name }
func (k Key[T]) Fallback() T      { return k.fallback }
func (k Key[T]) Reloadable() bool { return k.reloadable }

func (k Key[T]) Identity() Identity {
	return Identity{Name: k.name, Reloadable: k.reloadable}
}

func (k Key[T]) derive(a *Adapter) any {
	if v, ok := k.read(a, k.name); ok {
		return v
	}
	return k.fallback
}

// StringKey reads a string.
func StringKey(name, fallback string, reloadable bool) Key[string] {
	return newKey(name, fallback, reloadable, (*Adapter).stringAt)
}

// IntKey reads an integer.
func IntKey(name string, fallback int, reloadable bool) Key[int] {
	return newKey(name, fallback, reloadable, (*Adapter).intAt)
}

// FloatKey reads a number; integers are accepted.
func FloatKey(name string, fallback float64, reloadable bool) Key[float64] {
	return newKey(name, fallback, reloadable, (*Adapter).floatAt)
}

// BoolKey reads a boolean.
func BoolKey(name string, fallback bool, reloadable bool) Key[bool] {
	return newKey(name, fallback, reloadable, (*Adapter).boolAt)
}

// SectionKey reads a nested mapping.
func SectionKey(name string, fallback map[string]any, reloadable bool) Key[map[string]any] {
	return newKey(name, fallback, reloadable, (*Adapter).sectionAt)
}

// StringListKey reads a sequence whose elements are all strings. Scalars in
// the sequence are rendered as strings so `- 30` reads as "30".
func StringListKey(name string, fallback []string, reloadable bool) Key[[]string] {
	return newKey(name, fallback, reloadable, func(a *Adapter, path string) ([]string, bool) {
		items, ok := a.listAt(path)
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(items))
		for i, item := range items {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			case int, int64, float64:
				out = append(out, fmt.Sprint(v))
			default:
				slog.Warn("Config: list element has unexpected type", "key", path, "index", i, "type", typeName(item))
				return nil, false
			}
		}
		return out, true
	})
}

// DurationKey reads a duration in the shared grammar ("30d", "1h30m"). A
// bare integer counts as seconds.
func DurationKey(name string, fallback time.Duration, reloadable bool) Key[time.Duration] {
	return newKey(name, fallback, reloadable, func(a *Adapter, path string) (time.Duration, bool) {
		raw, ok := a.lookup(path)
		if !ok {
			slog.Warn("Config: no value for key", "key", path, "expected", "duration")
			return 0, false
		}
		var text string
		switch v := raw.(type) {
		case string:
			text = v
		case int:
			text = fmt.Sprint(v)
		default:
			slog.Warn("Config: unexpected type for key", "key", path, "expected", "duration", "got", typeName(raw))
			return 0, false
		}
		d, err := duration.Parse(text)
		if err != nil {
			slog.Warn("Config: invalid duration", "key", path, "value", text, "err", err)
			return 0, false
		}
		return d, true
	})
}

// Registered keys.
var (
	DefaultResetInterval = DurationKey("default-reset-interval", 30*24*time.Hour, true)

	BroadcastMessage = StringKey("broadcast-message", "&7Outer end islands will be reset in &a{time-left}", true)

	BroadcastPriorReset = StringListKey("broadcast-prior-reset", []string{
		"24hs", "12hs", "6hs", "3hs", "2hs", "1hs", "30min", "15min", "10min", "5min", "1min", "30s",
	}, false)
)

// Keys returns the keys an Adapter derives on load.
func Keys() []Entry {
	return []Entry{DefaultResetInterval, BroadcastMessage, BroadcastPriorReset}
}
