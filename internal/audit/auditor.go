// Package audit runs the periodic pass over the schedule: overdue worlds are
// pruned and rolled forward, pending ones get their pre-reset broadcasts.
package audit

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/duration"
	"github.com/joebot/worldreset/internal/journal"
	"github.com/joebot/worldreset/internal/message"
	"github.com/joebot/worldreset/internal/region"
	"github.com/joebot/worldreset/internal/schedule"
)

// PermissionReceiveBroadcast is held by the recipients of pre-reset broadcasts.
const PermissionReceiveBroadcast = "worldreset.receivebroadcast"

const (
	defaultPeriod = 5 * time.Second
	// imminent is how close a deadline must be for the "next restart" notice.
	imminent = 5 * time.Second
	// window is how far from a broadcast moment a tick may land and still
	// announce it.
	window = 3 * time.Second
	// nextRestart replaces the time left in the imminence notice.
	nextRestart = "the next restart"
	// imminentMoment is the latch slot of the imminence notice.
	imminentMoment time.Duration = -1
)

// Recorder stores executed resets.
type Recorder interface {
	Append(e journal.Entry) error
}

// Locator maps a world name to its directory, refusing names outside the
// world container.
type Locator interface {
	Dir(name string) (string, bool)
}

// Options configures an Auditor. Store, Config and Worlds are required.
type Options struct {
	Store     *schedule.Store
	Config    *config.Adapter
	Worlds    Locator
	Broadcast message.Audience
	Journal   Recorder

	Now          func() time.Time
	Prune        func(dir string) (region.Result, error)
	InitialDelay time.Duration
	Period       time.Duration
}

type latchKey struct {
	world    string
	deadline int64
	moment   time.Duration
}

// Auditor is the single cooperative task behind scheduled resets.
type Auditor struct {
	opts    Options
	moments []time.Duration

	mu      sync.Mutex
	latched map[latchKey]struct{}
	done    chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates an auditor. Broadcast moments are read from the config once;
// changing them needs a restart.
func New(opts Options) *Auditor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Prune == nil {
		opts.Prune = region.Prune
	}
	if opts.Period <= 0 {
		opts.Period = defaultPeriod
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = opts.Period
	}
	if opts.Broadcast == nil {
		opts.Broadcast = message.AudienceFunc(func(message.Component) {})
	}
	return &Auditor{
		opts:    opts,
		moments: ParseMoments(config.Get(opts.Config, config.BroadcastPriorReset)),
		latched: make(map[latchKey]struct{}),
		stop:    make(chan struct{}),
	}
}

// ParseMoments parses broadcast offsets, dropping invalid and duplicate ones.
// The result is sorted longest first.
func ParseMoments(raw []string) []time.Duration {
	seen := make(map[time.Duration]bool, len(raw))
	var out []time.Duration
	for _, s := range raw {
		d, err := duration.Parse(s)
		if err != nil {
			slog.Warn("Audit: ignoring broadcast moment", "value", s, "err", err)
			continue
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// Moments returns the parsed broadcast moments.
func (a *Auditor) Moments() []time.Duration {
	return append([]time.Duration(nil), a.moments...)
}

// Run ticks after the initial delay and then with a fixed delay between the
// end of one tick and the start of the next. It returns when ctx is
// cancelled or Stop is called.
func (a *Auditor) Run(ctx context.Context) {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return
	}
	done := make(chan struct{})
	a.done = done
	a.mu.Unlock()
	defer close(done)

	slog.Info("Audit: started", "period", a.opts.Period, "moments", len(a.moments))
	timer := time.NewTimer(a.opts.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Audit: stopped")
			return
		case <-a.stop:
			slog.Info("Audit: stopped")
			return
		case <-timer.C:
			a.Tick(a.opts.Now())
			timer.Reset(a.opts.Period)
		}
	}
}

// Stop ends Run and waits up to grace for a tick in progress. It reports
// whether the auditor finished in time.
func (a *Auditor) Stop(grace time.Duration) bool {
	a.stopOnce.Do(func() { close(a.stop) })

	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return true
	}

	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		slog.Warn("Audit: tick still running after grace period", "grace", grace)
		return false
	}
}

// CatchUp resets every overdue world before the periodic phase starts and
// returns how many were handled.
func (a *Auditor) CatchUp(now time.Time) int {
	if a.opts.Store.ShuttingDown() {
		return 0
	}
	n := 0
	for _, r := range a.opts.Store.Snapshot() {
		if r.Overdue(now) {
			a.reset(r, now)
			n++
		}
	}
	if n > 0 {
		a.save()
	}
	return n
}

// Tick runs one audit pass.
func (a *Auditor) Tick(now time.Time) {
	if a.opts.Store.ShuttingDown() {
		return
	}
	a.expireLatches(now)

	changed := false
	for _, r := range a.opts.Store.Snapshot() {
		if r.Overdue(now) {
			a.reset(r, now)
			changed = true
			continue
		}
		a.announce(r, now)
	}
	if changed {
		a.save()
	}
}

func (a *Auditor) save() {
	if err := a.opts.Store.Save(); err != nil {
		slog.Error("Audit: failed to save schedule", "err", err)
	}
}

// reset prunes the world of an overdue entry and rolls it forward. An entry
// whose world directory is gone is dropped.
func (a *Auditor) reset(r schedule.Reset, now time.Time) {
	entry := journal.Entry{World: r.WorldName, At: now, PreviousReset: r.NextReset}

	dir, ok := a.opts.Worlds.Dir(r.WorldName)
	if !ok {
		if a.opts.Store.Remove(r) {
			slog.Error("Audit: world name leaves the world container, unscheduled", "world", r.WorldName)
			entry.Removed = true
			a.record(entry)
		}
		return
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if a.opts.Store.Remove(r) {
			slog.Warn("Audit: world directory missing, unscheduled", "world", r.WorldName, "dir", dir)
			entry.Removed = true
			a.record(entry)
		}
		return
	}

	res, err := a.opts.Prune(dir)
	if err != nil {
		slog.Error("Audit: prune failed", "world", r.WorldName, "dir", dir, "err", err)
	}

	rolled := schedule.Rolled(r, now)
	if !a.opts.Store.Replace(r, rolled) {
		slog.Info("Audit: entry changed during reset, keeping the newer one", "world", r.WorldName)
	}
	slog.Info("Audit: world reset", "world", r.WorldName, "deleted", len(res.Deleted),
		"freed", humanize.Bytes(uint64(res.Freed)), "next", rolled.NextReset.Format(time.RFC3339))

	entry.NextReset = rolled.NextReset
	entry.Deleted = len(res.Deleted)
	entry.Failed = res.Failed
	entry.FreedBytes = res.Freed
	a.record(entry)
}

func (a *Auditor) record(e journal.Entry) {
	if a.opts.Journal == nil {
		return
	}
	if err := a.opts.Journal.Append(e); err != nil {
		slog.Warn("Audit: failed to write journal", "world", e.World, "err", err)
	}
}

// announce sends the imminence notice and at most one moment broadcast for
// r on this tick.
func (a *Auditor) announce(r schedule.Reset, now time.Time) {
	raw := r.NextReset.Sub(now)
	if raw < imminent && a.latch(r, imminentMoment) {
		a.broadcast(r, nextRestart, nextRestart)
	}

	left := raw.Round(time.Second)
	for _, m := range a.moments {
		diff := left - m
		if diff < 0 {
			diff = -diff
		}
		if diff < window {
			if a.latch(r, m) {
				a.broadcast(r, duration.Short(left), duration.Long(left))
			}
			break
		}
	}
}

// latch reports whether the (entry, deadline, moment) slot was still free,
// taking it.
func (a *Auditor) latch(r schedule.Reset, moment time.Duration) bool {
	key := latchKey{world: r.Key(), deadline: r.NextReset.UnixNano(), moment: moment}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.latched[key]; ok {
		return false
	}
	a.latched[key] = struct{}{}
	return true
}

func (a *Auditor) expireLatches(now time.Time) {
	cutoff := now.UnixNano()
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.latched {
		if k.deadline < cutoff {
			delete(a.latched, k)
		}
	}
}

func (a *Auditor) broadcast(r schedule.Reset, short, long string) {
	text := Substitute(config.Get(a.opts.Config, config.BroadcastMessage), r.WorldName, short, long)
	slog.Debug("Audit: broadcast", "world", r.WorldName, "text", text)
	a.opts.Broadcast.Send(message.FromLegacy(text, '&'))
}

// Substitute fills the broadcast placeholders. Each one is replaced in turn
// over the whole text: time left, long time left, then the world name.
func Substitute(template, world, short, long string) string {
	out := strings.ReplaceAll(template, "{time-left}", short)
	out = strings.ReplaceAll(out, "{time-left-long}", long)
	return strings.ReplaceAll(out, "{world}", world)
}
