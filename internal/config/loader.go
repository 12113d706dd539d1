package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config.yml
var defaultConfig []byte

// DefaultYAML returns the bundled config.yml.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultConfig...)
}

// Adapter is a typed view over config.yml. Reads go through the memoised
// unwind map; Load and Reload replace it under the write lock.
type Adapter struct {
	path string
	keys []Entry

	mu     sync.RWMutex
	root   map[string]any
	unwind map[Identity]any
}

// NewAdapter creates an adapter for the config file at path that derives the
// given keys, or Keys() when none are given.
func NewAdapter(path string, keys ...Entry) *Adapter {
	if len(keys) == 0 {
		keys = Keys()
	}
	return &Adapter{
		path:   path,
		keys:   keys,
		root:   map[string]any{},
		unwind: make(map[Identity]any, len(keys)),
	}
}

// Path returns the config file path.
func (a *Adapter) Path() string { return a.path }

// Load copies the bundled default into place when the file is missing and
// derives every key. A malformed file is an error.
func (a *Adapter) Load() error {
	if _, err := os.Stat(a.path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(a.path, defaultConfig, 0o644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		slog.Info("Config: wrote default config", "path", a.path)
	}
	return a.reload(true)
}

// Reload re-reads the file and re-derives reloadable keys only. On error the
// previous snapshot is kept.
func (a *Adapter) Reload() error {
	if err := a.reload(false); err != nil {
		slog.Warn("Config: reload failed, keeping previous values", "err", err)
		return err
	}
	return nil
}

func (a *Adapter) reload(force bool) error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	root, err := decode(data)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	for _, key := range a.unknownKeys(root) {
		slog.Warn("Config: unknown key ignored", "key", key)
	}
	for _, problem := range validateDocument(root) {
		slog.Warn("Config: schema violation", "at", problem.at, "msg", problem.msg)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.root = root
	for _, key := range a.keys {
		id := key.Identity()
		if force || id.Reloadable {
			a.unwind[id] = key.derive(a)
		}
	}
	slog.Debug("Config: loaded", "path", a.path, "force", force)
	return nil
}

func decode(data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	switch v := doc.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("top level must be a mapping, got %s", typeName(doc))
	}
}

func (a *Adapter) unknownKeys(root map[string]any) []string {
	known := make(map[string]bool, len(a.keys))
	for _, key := range a.keys {
		known[key.Identity().Name] = true
	}
	var unknown []string
	for k := range root {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// Get returns the value of key, deriving and memoising it on first use.
func Get[T any](a *Adapter, key Key[T]) T {
	id := key.Identity()

	a.mu.RLock()
	v, ok := a.unwind[id]
	a.mu.RUnlock()
	if ok {
		return v.(T)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.unwind[id]; ok {
		return v.(T)
	}
	derived := key.derive(a).(T)
	a.unwind[id] = derived
	return derived
}

// lookup descends a dotted path. The caller holds mu.
func (a *Adapter) lookup(path string) (any, bool) {
	node := any(a.root)
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok || node == nil {
			return nil, false
		}
	}
	return node, true
}
