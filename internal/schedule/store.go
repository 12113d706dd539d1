package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// backupLayout is the local date-time stamped into error backups.
const backupLayout = "2006-01-02T15:04:05"

// Store is the set of scheduled resets, at most one per world name compared
// case-insensitively. All methods are safe for concurrent use.
type Store struct {
	path string
	now  func() time.Time

	mu           sync.Mutex
	resets       map[string]Reset
	shuttingDown bool
}

// NewStore creates a store persisted at path. now defaults to time.Now.
func NewStore(path string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		path:   path,
		now:    now,
		resets: make(map[string]Reset),
	}
}

// Path returns the worlds.json path.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory set with the file contents. A missing file is
// created empty. A malformed file is moved aside to a timestamped backup and
// the store starts empty; only I/O failures creating the fresh file are
// returned.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.resets = make(map[string]Reset)
		s.mu.Unlock()
		slog.Info("Schedule: no worlds file, creating", "path", s.path)
		return s.writeEmpty()
	}
	if err != nil {
		return fmt.Errorf("read worlds file: %w", err)
	}

	entries, err := decodeEntries(data)
	if err != nil {
		slog.Error("Schedule: malformed worlds file", "path", s.path, "err", err)
		s.mu.Lock()
		s.resets = make(map[string]Reset)
		s.mu.Unlock()
		return s.backupMalformed()
	}

	loaded := make(map[string]Reset, len(entries))
	for _, r := range entries {
		if err := r.Valid(); err != nil {
			slog.Warn("Schedule: skipping invalid entry", "world", r.WorldName, "err", err)
			continue
		}
		loaded[r.Key()] = r
	}

	s.mu.Lock()
	s.resets = loaded
	s.mu.Unlock()
	slog.Info("Schedule: loaded", "path", s.path, "worlds", len(loaded))
	return nil
}

// ReadFile decodes a worlds file without touching it. Invalid entries are
// dropped; the result is sorted like Snapshot.
func ReadFile(path string) ([]Reset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := decodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	byKey := make(map[string]Reset, len(entries))
	for _, r := range entries {
		if r.Valid() == nil {
			byKey[r.Key()] = r
		}
	}
	out := make([]Reset, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// decodeEntries accepts the current array shape and the legacy object shape
// keyed by world name. Object entries are returned in document order so a
// later duplicate wins.
func decodeEntries(data []byte) ([]Reset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	switch trimmed[0] {
	case '[':
		var entries []Reset
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		return decodeLegacy(trimmed)
	case 'n':
		if string(trimmed) == "null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("unexpected top-level value starting with %q", trimmed[0])
}

func decodeLegacy(data []byte) ([]Reset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var entries []Reset
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var r Reset
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		if r.WorldName == "" {
			r.WorldName = key
		}
		entries = append(entries, r)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return entries, nil
}

// BackupPath returns the sibling path a malformed file is moved to.
func BackupPath(path string, at time.Time) string {
	dir, base := filepath.Split(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"."+at.Local().Format(backupLayout)+".err.json")
}

func (s *Store) backupMalformed() error {
	backup := BackupPath(s.path, s.now())
	if err := os.Rename(s.path, backup); err != nil {
		slog.Error("Schedule: could not back up malformed worlds file", "path", s.path, "err", err)
	} else {
		slog.Warn("Schedule: malformed worlds file moved aside", "backup", backup)
	}
	return s.writeEmpty()
}

func (s *Store) writeEmpty() error {
	return writeAtomic(s.path, []byte("[]\n"))
}

// Save writes the current set as a JSON array, replacing the file atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal worlds: %w", err)
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("save worlds: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

// Schedule supersedes any entry for name with a new one due one interval
// from now.
func (s *Store) Schedule(name string, interval time.Duration) (Reset, Result) {
	r := NewReset(name, interval, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.resets[r.Key()]
	s.resets[r.Key()] = r
	slog.Info("Schedule: world scheduled", "world", name, "interval", interval, "replaced", existed)
	if existed {
		return r, Replaced
	}
	return r, Fresh
}

// Unschedule removes the entry for name and reports whether there was one.
func (s *Store) Unschedule(name string) bool {
	key := FoldName(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resets[key]; !ok {
		return false
	}
	delete(s.resets, key)
	slog.Info("Schedule: world unscheduled", "world", name)
	return true
}

// Get returns the entry for name.
func (s *Store) Get(name string) (Reset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[FoldName(name)]
	return r, ok
}

// Snapshot returns a copy of all entries ordered by world key.
func (s *Store) Snapshot() []Reset {
	s.mu.Lock()
	out := make([]Reset, 0, len(s.resets))
	for _, r := range s.resets {
		out = append(out, r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Replace swaps old for updated if old is still the stored entry for its
// world. It reports false when the entry changed or vanished in between.
func (s *Store) Replace(old, updated Reset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.resets[old.Key()]
	if !ok || !cur.Same(old) {
		return false
	}
	delete(s.resets, old.Key())
	s.resets[updated.Key()] = updated
	return true
}

// Remove deletes r if it is still the stored entry for its world.
func (s *Store) Remove(r Reset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.resets[r.Key()]
	if !ok || !cur.Same(r) {
		return false
	}
	delete(s.resets, r.Key())
	return true
}

// Len returns the number of scheduled worlds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resets)
}

// MarkShuttingDown sets the flag the auditor checks before each tick.
func (s *Store) MarkShuttingDown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
}

// ShuttingDown reports whether shutdown has begun.
func (s *Store) ShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// Shutdown sets the shutting-down flag and clears the in-memory set. The
// caller saves first.
func (s *Store) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.resets = make(map[string]Reset)
	s.mu.Unlock()
}
