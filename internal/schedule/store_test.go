package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRolled(t *testing.T) {
	tests := []struct {
		name     string
		next     time.Time
		interval time.Duration
		now      time.Time
		want     time.Time
	}{
		{"not due", epoch.Add(time.Minute), time.Hour, epoch, epoch.Add(time.Minute)},
		{"exactly due", epoch, time.Hour, epoch, epoch},
		{"five minutes late", epoch.Add(-5 * time.Minute), time.Hour, epoch, epoch.Add(55 * time.Minute)},
		{"several intervals late", epoch.Add(-150 * time.Minute), time.Hour, epoch, epoch.Add(30 * time.Minute)},
		{"late by whole intervals", epoch.Add(-2 * time.Hour), time.Hour, epoch, epoch},
	}
	for _, tt := range tests {
		r := Reset{WorldName: "alpha", Interval: tt.interval, NextReset: tt.next}
		got := Rolled(r, tt.now)
		if !got.NextReset.Equal(tt.want) {
			t.Errorf("%s: NextReset = %v, want %v", tt.name, got.NextReset, tt.want)
		}
		if got.NextReset.Before(tt.now) {
			t.Errorf("%s: rolled deadline still before now", tt.name)
		}
		if got.NextReset.Sub(tt.next)%tt.interval != 0 {
			t.Errorf("%s: phase not preserved", tt.name)
		}
	}
}

func TestScheduleCaseInsensitive(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "worlds.json"), fixedClock(epoch))

	_, res := s.Schedule("alpha", time.Hour)
	if res != Fresh {
		t.Errorf("first schedule = %v, want fresh", res)
	}
	r, res := s.Schedule("ALPHA", 2*time.Hour)
	if res != Replaced {
		t.Errorf("second schedule = %v, want replaced", res)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	got, ok := s.Get("Alpha")
	if !ok || got.Interval != 2*time.Hour || got.WorldName != "ALPHA" {
		t.Errorf("Get = %+v, %v", got, ok)
	}
	if !r.NextReset.Equal(epoch.Add(2 * time.Hour)) {
		t.Errorf("NextReset = %v", r.NextReset)
	}
}

func TestFoldNameUnicode(t *testing.T) {
	if FoldName("Straße") != FoldName("STRASSE") {
		t.Error("full case folding should match ß with SS")
	}
	if FoldName("World_Nether") != FoldName("world_nether") {
		t.Error("ASCII names should fold together")
	}
}

func TestUnscheduleIdempotent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "worlds.json"), fixedClock(epoch))
	s.Schedule("alpha", time.Hour)

	first := s.Unschedule("Alpha")
	second := s.Unschedule("alpha")
	if !first || second {
		t.Errorf("Unschedule twice = %v, %v; want true, false", first, second)
	}
	if s.Unschedule("never") {
		t.Error("unscheduling an unknown world reported removal")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds.json")
	s := NewStore(path, fixedClock(epoch))
	s.Schedule("alpha", time.Hour)
	s.Schedule("Beta", 30*24*time.Hour)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var raw []map[string]any
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved file is not an array: %v", err)
	}
	if len(raw) != 2 || raw[0]["worldName"] != "alpha" {
		t.Errorf("saved = %s", data)
	}
	interval := raw[0]["interval"].(map[string]any)
	if interval["seconds"].(float64) != 3600 || interval["nanos"].(float64) != 0 {
		t.Errorf("interval encoding = %v", interval)
	}

	loaded := NewStore(path, nil)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := s.Snapshot()
	got := loaded.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("loaded %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].WorldName != want[i].WorldName || !got[i].Same(want[i]) {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadLegacyShape(t *testing.T) {
	dir := t.TempDir()
	next := epoch.Unix()
	array := `[{"worldName":"alpha","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":` + itoa(next) + `,"nanos":0}}]`
	legacy := `{"alpha":{"worldName":"alpha","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":` + itoa(next) + `,"nanos":0}}}`

	load := func(name, body string) []Reset {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(body), 0o644)
		s := NewStore(path, nil)
		if err := s.Load(); err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		return s.Snapshot()
	}

	a := load("array.json", array)
	b := load("legacy.json", legacy)
	if len(a) != 1 || len(b) != 1 || !a[0].Same(b[0]) || a[0].WorldName != b[0].WorldName {
		t.Errorf("array %+v != legacy %+v", a, b)
	}
}

func TestLoadLegacyCollisionLastWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds.json")
	body := `{
	  "alpha": {"worldName":"alpha","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":100,"nanos":0}},
	  "Alpha": {"worldName":"Alpha","interval":{"seconds":7200,"nanos":0},"nextReset":{"seconds":200,"nanos":0}}
	}`
	os.WriteFile(path, []byte(body), 0o644)

	s := NewStore(path, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].WorldName != "Alpha" || snap[0].Interval != 2*time.Hour {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestLoadMissingCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "worlds.json")
	s := NewStore(path, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("created file = %q", data)
	}
}

func TestLoadMalformedBacksUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worlds.json")
	os.WriteFile(path, []byte("not json"), 0o644)

	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.Local)
	s := NewStore(path, fixedClock(now))
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}

	backup := filepath.Join(dir, "worlds.2026-03-01T12:30:45.err.json")
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(data) != "not json" {
		t.Errorf("backup content = %q", data)
	}
	fresh, _ := os.ReadFile(path)
	if strings.TrimSpace(string(fresh)) != "[]" {
		t.Errorf("fresh file = %q", fresh)
	}
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds.json")
	body := `[
	  {"worldName":"","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":1,"nanos":0}},
	  {"worldName":"short","interval":{"seconds":5,"nanos":0},"nextReset":{"seconds":1,"nanos":0}},
	  {"worldName":"..","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":1,"nanos":0}},
	  {"worldName":".","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":1,"nanos":0}},
	  {"worldName":"a/../../x","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":1,"nanos":0}},
	  {"worldName":"ok","interval":{"seconds":10,"nanos":0},"nextReset":{"seconds":1,"nanos":0}}
	]`
	os.WriteFile(path, []byte(body), 0o644)

	s := NewStore(path, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].WorldName != "ok" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestValidWorldName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"world", true},
		{"world_the_end", true},
		{"Wörld", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../world", false},
		{"a/b", false},
		{`a\b`, false},
		{"/abs", false},
	}
	for _, tt := range tests {
		if err := ValidWorldName(tt.name); (err == nil) != tt.ok {
			t.Errorf("ValidWorldName(%q) = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestDecodeEntriesShapes(t *testing.T) {
	for _, body := range []string{"null", " [] ", "{}"} {
		entries, err := decodeEntries([]byte(body))
		if err != nil || len(entries) != 0 {
			t.Errorf("decodeEntries(%q) = %v, %v", body, entries, err)
		}
	}
	for _, body := range []string{"", "42", `"x"`, "[1]", "{} {}", `{"a": 1}`} {
		if _, err := decodeEntries([]byte(body)); err == nil {
			t.Errorf("decodeEntries(%q) should fail", body)
		}
	}
}

func TestReplaceIsConditional(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "worlds.json"), fixedClock(epoch))
	old, _ := s.Schedule("alpha", time.Hour)

	rolled := Rolled(old, epoch.Add(3*time.Hour))
	if !s.Replace(old, rolled) {
		t.Fatal("Replace of current entry failed")
	}
	if s.Replace(old, rolled) {
		t.Error("Replace with a stale entry succeeded")
	}

	s.Schedule("alpha", 2*time.Hour)
	if s.Remove(rolled) {
		t.Error("Remove of a superseded entry succeeded")
	}
	cur, _ := s.Get("alpha")
	if !s.Remove(cur) {
		t.Error("Remove of current entry failed")
	}
}

func TestShutdown(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "worlds.json"), fixedClock(epoch))
	s.Schedule("alpha", time.Hour)
	if s.ShuttingDown() {
		t.Fatal("shutting down before Shutdown")
	}
	s.Shutdown()
	if !s.ShuttingDown() || s.Len() != 0 {
		t.Errorf("after Shutdown: flag=%v len=%d", s.ShuttingDown(), s.Len())
	}
}

func TestBackupPath(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	got := BackupPath(filepath.Join("data", "worlds.json"), at)
	want := filepath.Join("data", "worlds.2026-01-02T03:04:05.err.json")
	if got != want {
		t.Errorf("BackupPath = %s, want %s", got, want)
	}
}

func TestReadFileLeavesFileAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds.json")
	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile of missing file succeeded")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("ReadFile created the file")
	}

	os.WriteFile(path, []byte("not json"), 0o644)
	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile of malformed file succeeded")
	}
	if data, _ := os.ReadFile(path); string(data) != "not json" {
		t.Errorf("malformed file rewritten: %q", data)
	}

	body := `{"beta":{"worldName":"beta","interval":{"seconds":60,"nanos":0},"nextReset":{"seconds":0,"nanos":0}},` +
		`"alpha":{"worldName":"alpha","interval":{"seconds":1,"nanos":0},"nextReset":{"seconds":0,"nanos":0}}}`
	os.WriteFile(path, []byte(body), 0o644)
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].WorldName != "beta" {
		t.Errorf("ReadFile = %+v, want only the valid beta entry", got)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
