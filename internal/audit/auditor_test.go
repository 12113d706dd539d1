package audit

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/host"
	"github.com/joebot/worldreset/internal/journal"
	"github.com/joebot/worldreset/internal/message"
	"github.com/joebot/worldreset/internal/schedule"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type sink struct {
	mu   sync.Mutex
	sent []string
}

func (s *sink) Send(c message.Component) {
	s.mu.Lock()
	s.sent = append(s.sent, message.Plain(c))
	s.mu.Unlock()
}

func (s *sink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type memJournal struct{ entries []journal.Entry }

func (m *memJournal) Append(e journal.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

type fixture struct {
	root    string
	store   *schedule.Store
	auditor *Auditor
	sink    *sink
	journal *memJournal
}

func newFixture(t *testing.T, configYAML string) *fixture {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "data", "config.yml")
	os.MkdirAll(filepath.Dir(cfgPath), 0o755)
	if err := os.WriteFile(cfgPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.NewAdapter(cfgPath)
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		root:    root,
		store:   schedule.NewStore(filepath.Join(root, "data", "worlds.json"), func() time.Time { return t0 }),
		sink:    &sink{},
		journal: &memJournal{},
	}
	f.auditor = New(Options{
		Store:     f.store,
		Config:    cfg,
		Worlds:    host.NewDirRegistry(filepath.Join(root, "worlds")),
		Broadcast: f.sink,
		Journal:   f.journal,
	})
	return f
}

func (f *fixture) world(t *testing.T, name string, files ...string) string {
	t.Helper()
	dir := filepath.Join(f.root, "worlds", name)
	for _, file := range append([]string{"level.dat"}, files...) {
		path := filepath.Join(dir, file)
		os.MkdirAll(filepath.Dir(path), 0o755)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCatchUpPrunesOverdueWorld(t *testing.T) {
	f := newFixture(t, "default-reset-interval: 1h\n")
	dir := f.world(t, "alpha", "r.0.0.mca", "r.0.-1.mca", "r.5.5.mca", "r.-3.2.mca")

	body := `[{"worldName":"alpha","interval":{"seconds":3600,"nanos":0},"nextReset":{"seconds":` +
		itoa(t0.Add(-5*time.Minute).Unix()) + `,"nanos":0}}]`
	os.WriteFile(f.store.Path(), []byte(body), 0o644)
	if err := f.store.Load(); err != nil {
		t.Fatal(err)
	}

	if n := f.auditor.CatchUp(t0); n != 1 {
		t.Fatalf("CatchUp = %d, want 1", n)
	}

	for _, keep := range []string{"r.0.0.mca", "r.0.-1.mca"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("%s removed", keep)
		}
	}
	for _, gone := range []string{"r.5.5.mca", "r.-3.2.mca"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); err == nil {
			t.Errorf("%s still present", gone)
		}
	}

	r, ok := f.store.Get("alpha")
	if !ok || !r.NextReset.Equal(t0.Add(55*time.Minute)) {
		t.Errorf("entry = %+v, %v; want next reset at +55m", r, ok)
	}

	reloaded := schedule.NewStore(f.store.Path(), nil)
	reloaded.Load()
	if got, _ := reloaded.Get("alpha"); !got.NextReset.Equal(t0.Add(55 * time.Minute)) {
		t.Errorf("rolled entry not persisted: %+v", got)
	}

	if len(f.journal.entries) != 1 || f.journal.entries[0].Deleted != 2 {
		t.Errorf("journal = %+v", f.journal.entries)
	}
}

func TestResetStaysInsideWorldContainer(t *testing.T) {
	f := newFixture(t, "")
	alpha := f.world(t, "alpha", "region/r.9.9.mca")
	outside := filepath.Join(f.root, "backup", "region", "r.7.7.mca")
	os.MkdirAll(filepath.Dir(outside), 0o755)
	os.WriteFile(outside, []byte("x"), 0o644)

	f.store.Schedule("..", time.Minute)
	f.store.Schedule(".", time.Minute)

	f.auditor.Tick(t0.Add(2 * time.Minute))

	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside the world container removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(alpha, "region", "r.9.9.mca")); err != nil {
		t.Errorf("world pruned through \".\": %v", err)
	}
	if f.store.Len() != 0 {
		t.Errorf("store = %+v, want unsafe names dropped", f.store.Snapshot())
	}
	if len(f.journal.entries) != 2 || !f.journal.entries[0].Removed || !f.journal.entries[1].Removed {
		t.Errorf("journal = %+v", f.journal.entries)
	}
}

func TestTickRemovesEntryForMissingWorld(t *testing.T) {
	f := newFixture(t, "")
	f.store.Schedule("ghost", time.Minute)

	f.auditor.Tick(t0.Add(2 * time.Minute))

	if f.store.Len() != 0 {
		t.Errorf("entry for missing world kept")
	}
	if len(f.journal.entries) != 1 || !f.journal.entries[0].Removed {
		t.Errorf("journal = %+v", f.journal.entries)
	}
}

func TestBroadcastEmission(t *testing.T) {
	f := newFixture(t, "broadcast-prior-reset: [\"1m\"]\nbroadcast-message: \"{world} in {time-left}\"\n")
	f.world(t, "alpha")
	f.store.Schedule("alpha", 70*time.Second)

	f.auditor.Tick(t0.Add(10 * time.Second))

	got := f.sink.messages()
	if len(got) != 1 || got[0] != "alpha in 1m" {
		t.Errorf("broadcasts = %q, want [\"alpha in 1m\"]", got)
	}
}

func TestBroadcastWindowAtMostOnce(t *testing.T) {
	f := newFixture(t, "broadcast-prior-reset: [\"1m\", \"30s\"]\nbroadcast-message: \"{world}: {time-left}\"\n")
	f.world(t, "alpha")
	f.store.Schedule("alpha", 10*time.Minute)
	deadline := t0.Add(10 * time.Minute)

	// One-second ticks land in each window several times.
	for at := deadline.Add(-75 * time.Second); at.Before(deadline.Add(-10 * time.Second)); at = at.Add(time.Second) {
		f.auditor.Tick(at)
	}

	got := f.sink.messages()
	want := []string{"alpha: 1m2s", "alpha: 32s"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("broadcasts = %q, want %q", got, want)
	}
}

func TestImminenceBroadcast(t *testing.T) {
	f := newFixture(t, "broadcast-prior-reset: []\nbroadcast-message: \"&7{world} resets in {time-left} ({time-left-long})\"\n")
	f.world(t, "alpha")
	f.store.Schedule("alpha", time.Minute)

	f.auditor.Tick(t0.Add(57 * time.Second))
	f.auditor.Tick(t0.Add(59 * time.Second))

	got := f.sink.messages()
	want := "alpha resets in the next restart (the next restart)"
	if len(got) != 1 || got[0] != want {
		t.Errorf("broadcasts = %q, want [%q]", got, want)
	}
}

func TestImminenceJustUnderFiveSeconds(t *testing.T) {
	f := newFixture(t, "broadcast-prior-reset: []\nbroadcast-message: \"{world} in {time-left}\"\n")
	f.world(t, "alpha")
	f.store.Schedule("alpha", time.Minute)
	deadline := t0.Add(time.Minute)

	f.auditor.Tick(deadline.Add(-4600 * time.Millisecond))
	f.auditor.Tick(deadline.Add(400 * time.Millisecond))

	got := f.sink.messages()
	if len(got) != 1 || got[0] != "alpha in the next restart" {
		t.Errorf("broadcasts = %q, want [\"alpha in the next restart\"]", got)
	}
}

func TestBroadcastsAtEveryTickPhase(t *testing.T) {
	for tenths := 0; tenths < 50; tenths++ {
		phase := time.Duration(tenths) * 100 * time.Millisecond
		f := newFixture(t, "broadcast-prior-reset: [\"1m\", \"30s\"]\nbroadcast-message: \"{world} in {time-left}\"\n")
		f.world(t, "alpha")
		f.store.Schedule("alpha", 200*time.Second)
		deadline := t0.Add(200 * time.Second)

		for at := t0.Add(phase); !at.After(deadline.Add(5 * time.Second)); at = at.Add(5 * time.Second) {
			f.auditor.Tick(at)
		}

		got := f.sink.messages()
		if len(got) != 3 || got[2] != "alpha in the next restart" {
			t.Errorf("phase %v: broadcasts = %q", phase, got)
		}
	}
}

func TestShortMomentFiresWithImminence(t *testing.T) {
	f := newFixture(t, "broadcast-prior-reset: [\"3s\"]\nbroadcast-message: \"{world} in {time-left}\"\n")
	f.world(t, "alpha")
	f.store.Schedule("alpha", time.Minute)

	f.auditor.Tick(t0.Add(57 * time.Second))

	got := f.sink.messages()
	want := []string{"alpha in the next restart", "alpha in 3s"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("broadcasts = %q, want %q", got, want)
	}
}

func TestTickSkippedWhileShuttingDown(t *testing.T) {
	f := newFixture(t, "")
	f.world(t, "alpha", "r.9.9.mca")
	f.store.Schedule("alpha", time.Minute)
	f.store.MarkShuttingDown()

	f.auditor.Tick(t0.Add(time.Hour))

	r, _ := f.store.Get("alpha")
	if !r.NextReset.Equal(t0.Add(time.Minute)) {
		t.Error("tick ran while shutting down")
	}
}

func TestRolloverPreservesPhase(t *testing.T) {
	f := newFixture(t, "")
	f.world(t, "alpha")
	f.store.Schedule("alpha", time.Hour)
	before, _ := f.store.Get("alpha")

	now := t0.Add(3*time.Hour + 20*time.Minute)
	f.auditor.Tick(now)

	after, _ := f.store.Get("alpha")
	if after.NextReset.Before(now) {
		t.Errorf("next reset %v still before now", after.NextReset)
	}
	if after.NextReset.Sub(before.NextReset)%time.Hour != 0 {
		t.Errorf("phase lost: %v -> %v", before.NextReset, after.NextReset)
	}
}

func TestParseMoments(t *testing.T) {
	got := ParseMoments([]string{"30s", "1m", "bogus", "60s", "2h"})
	want := []time.Duration{2 * time.Hour, time.Minute, 30 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("ParseMoments = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("moment %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSubstitute(t *testing.T) {
	got := Substitute("{world} {time-left} {time-left-long} {world} {time-left}", "alpha", "1m", "1 minute")
	if got != "alpha 1m 1 minute alpha 1m" {
		t.Errorf("Substitute = %q", got)
	}
	if got := Substitute("{time-left}", "w", "{world}", ""); got != "w" {
		t.Errorf("later placeholder not applied to earlier output: %q", got)
	}
	if got := Substitute("{world}", "{time-left}", "1m", ""); got != "{time-left}" {
		t.Errorf("world name expanded: %q", got)
	}
}

func TestRunAndStop(t *testing.T) {
	f := newFixture(t, "")
	if !f.auditor.Stop(time.Second) {
		t.Fatal("Stop before Run should return immediately")
	}

	a := New(Options{
		Store:        f.store,
		Config:       f.auditor.opts.Config,
		Worlds:       host.NewDirRegistry(f.root),
		InitialDelay: time.Millisecond,
		Period:       time.Millisecond,
	})
	done := make(chan struct{})
	go func() {
		a.Run(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	if !a.Stop(time.Second) {
		t.Fatal("Stop timed out")
	}
	<-done
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
