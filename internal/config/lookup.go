package config

import (
	"fmt"
	"log/slog"
)

// The exported lookups descend a dotted path ("a.b.c") through nested
// mappings. A missing value or a type mismatch is logged and reported absent.

func (a *Adapter) String(path string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stringAt(path)
}

func (a *Adapter) Int(path string) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.intAt(path)
}

func (a *Adapter) Float(path string) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.floatAt(path)
}

func (a *Adapter) Bool(path string) (bool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.boolAt(path)
}

func (a *Adapter) List(path string) ([]any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.listAt(path)
}

func (a *Adapter) Section(path string) (map[string]any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sectionAt(path)
}

func (a *Adapter) stringAt(path string) (string, bool) { return typed[string](a, path, "string") }
func (a *Adapter) intAt(path string) (int, bool)       { return typed[int](a, path, "int") }
func (a *Adapter) boolAt(path string) (bool, bool)     { return typed[bool](a, path, "bool") }
func (a *Adapter) listAt(path string) ([]any, bool)    { return typed[[]any](a, path, "list") }

func (a *Adapter) sectionAt(path string) (map[string]any, bool) {
	return typed[map[string]any](a, path, "section")
}

func (a *Adapter) floatAt(path string) (float64, bool) {
	raw, ok := a.lookup(path)
	if !ok {
		slog.Warn("Config: no value for key", "key", path, "expected", "float")
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	slog.Warn("Config: unexpected type for key", "key", path, "expected", "float", "got", typeName(raw))
	return 0, false
}

func typed[T any](a *Adapter, path, expected string) (T, bool) {
	var zero T
	raw, ok := a.lookup(path)
	if !ok {
		slog.Warn("Config: no value for key", "key", path, "expected", expected)
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		slog.Warn("Config: unexpected type for key", "key", path, "expected", expected, "got", typeName(raw))
		return zero, false
	}
	return v, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "section"
	}
	return fmt.Sprintf("%T", v)
}
