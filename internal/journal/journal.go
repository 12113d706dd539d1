// Package journal records executed resets as zstd-compressed JSON lines, one
// file per day.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const prefix = "resets"

// Entry is one executed reset.
type Entry struct {
	ID            string    `json:"id"`
	World         string    `json:"world"`
	At            time.Time `json:"at"`
	PreviousReset time.Time `json:"previousReset"`
	NextReset     time.Time `json:"nextReset,omitzero"`
	Deleted       int       `json:"deleted"`
	Failed        int       `json:"failed"`
	FreedBytes    int64     `json:"freedBytes"`
	// Removed is set when the world directory was gone and the schedule
	// entry was dropped instead of rolled.
	Removed bool `json:"removed,omitempty"`
}

// Writer appends entries to <dir>/resets-YYYY-MM-DD.jsonl.zst.
type Writer struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

// NewWriter creates a journal writer. now defaults to time.Now.
func NewWriter(dir string, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{dir: dir, now: now}
}

// Dir returns the journal directory.
func (w *Writer) Dir() string { return w.dir }

// Append writes e, assigning an ID when it has none.
func (w *Writer) Append(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close finishes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(pathForDay(w.dir, day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 16*1024)
	w.curDay = day
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return err
}

func pathForDay(dir, day string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl.zst", prefix, day))
}

// ReadAll returns every entry in dir, oldest file first. A missing directory
// yields no entries. A file still being written may end in a partial frame;
// the entries before it are kept.
func ReadAll(dir string) ([]Entry, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var out []Entry
	for _, path := range files {
		entries, err := readFile(path)
		out = append(out, entries...)
		if err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return out, nil
}

func readFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var out []Entry
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return out, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}

// Last returns the newest n entries, newest first.
func Last(entries []Entry, n int) []Entry {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.After(sorted[j].At) })
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
