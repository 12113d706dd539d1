package command

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/duration"
	"github.com/joebot/worldreset/internal/host"
	"github.com/joebot/worldreset/internal/message"
	"github.com/joebot/worldreset/internal/schedule"
)

// PermissionCommand gates the whole /worldreset tree.
const PermissionCommand = "worldreset.command"

// Deps are the collaborators of the /worldreset commands.
type Deps struct {
	Store   *schedule.Store
	Config  *config.Adapter
	Worlds  host.Registry
	Reload  func() error
	Now     func() time.Time
	Version string
	Authors string
}

type worldReset struct {
	Deps
	dispatcher *Dispatcher
}

// WorldReset builds the dispatcher for /worldreset.
func WorldReset(d Deps) *Dispatcher {
	if d.Now == nil {
		d.Now = time.Now
	}
	w := &worldReset{Deps: d}

	root := Literal("worldreset").Requires(PermissionCommand).Then(
		Literal("schedule").Executes(w.scheduleHere).Then(
			Argument("world", Word()).Suggests(w.suggestWorlds).Executes(w.scheduleDefault).Then(
				Argument("interval", DurationArg(schedule.MinInterval)).Executes(w.scheduleInterval),
			),
		),
		Literal("unschedule").Executes(w.unscheduleHere).Then(
			Argument("world", Word()).Suggests(w.suggestScheduled).Executes(w.unscheduleNamed),
		),
		Literal("list").Executes(w.list),
		Literal("help").Executes(w.help),
		Literal("reload").Executes(w.reload),
	)
	w.dispatcher = NewDispatcher(root)
	return w.dispatcher
}

func (w *worldReset) suggestWorlds(*Context, string) []string {
	return host.Names(w.Worlds)
}

func (w *worldReset) suggestScheduled(*Context, string) []string {
	snap := w.Store.Snapshot()
	names := make([]string, len(snap))
	for i, r := range snap {
		names[i] = r.WorldName
	}
	return names
}

// callerWorld returns the world the subject stands in, telling consoles to
// name one instead.
func callerWorld(ctx *Context) (string, bool) {
	name, ok := ctx.Subject.World()
	if !ok {
		message.ConsoleIncompleteCommand.Send(ctx.Subject, "provide a world")
	}
	return name, ok
}

func (w *worldReset) scheduleHere(ctx *Context) error {
	name, ok := callerWorld(ctx)
	if !ok {
		return nil
	}
	return w.schedule(ctx, name, config.Get(w.Config, config.DefaultResetInterval))
}

func (w *worldReset) scheduleDefault(ctx *Context) error {
	return w.schedule(ctx, ctx.String("world"), config.Get(w.Config, config.DefaultResetInterval))
}

func (w *worldReset) scheduleInterval(ctx *Context) error {
	return w.schedule(ctx, ctx.String("world"), ctx.Duration("interval"))
}

func (w *worldReset) schedule(ctx *Context, name string, interval time.Duration) error {
	world, ok := w.Worlds.Lookup(name)
	if !ok {
		message.UnknownWorld.Send(ctx.Subject, name)
		return nil
	}
	if interval < schedule.MinInterval {
		return fmt.Errorf("interval %s is below the minimum of %s", duration.Short(interval), duration.Short(schedule.MinInterval))
	}

	r, result := w.Store.Schedule(world.Name, interval)
	slog.Debug("Command: schedule", "world", r.WorldName, "result", result.String(), "by", ctx.Subject.Name())
	if !w.save(ctx) {
		return nil
	}

	tmpl := message.ScheduledSuccessfully
	if result == schedule.Replaced {
		tmpl = message.RescheduledSuccessfully
	}
	tmpl.Send(ctx.Subject, r.WorldName, duration.Short(interval), duration.Long(interval))
	return nil
}

func (w *worldReset) unscheduleHere(ctx *Context) error {
	name, ok := callerWorld(ctx)
	if !ok {
		return nil
	}
	return w.unschedule(ctx, name)
}

func (w *worldReset) unscheduleNamed(ctx *Context) error {
	return w.unschedule(ctx, ctx.String("world"))
}

// unschedule accepts any scheduled name, so entries for worlds that have
// since disappeared can still be removed.
func (w *worldReset) unschedule(ctx *Context, name string) error {
	display := name
	if world, ok := w.Worlds.Lookup(name); ok {
		display = world.Name
	} else if r, ok := w.Store.Get(name); ok {
		display = r.WorldName
	} else {
		message.UnknownWorld.Send(ctx.Subject, name)
		return nil
	}

	if !w.Store.Unschedule(name) {
		message.WasntScheduled.Send(ctx.Subject, display)
		return nil
	}
	slog.Debug("Command: unschedule", "world", display, "by", ctx.Subject.Name())
	if !w.save(ctx) {
		return nil
	}
	message.UnscheduledSuccessfully.Send(ctx.Subject, display)
	return nil
}

// save persists the store. The in-memory change stands when it fails.
func (w *worldReset) save(ctx *Context) bool {
	if err := w.Store.Save(); err != nil {
		slog.Error("Command: failed to save schedule", "path", w.Store.Path(), "err", err)
		message.ErrorWhileSaving.Send(ctx.Subject)
		return false
	}
	return true
}

func (w *worldReset) list(ctx *Context) error {
	snap := w.Store.Snapshot()
	if len(snap) == 0 {
		message.ListNoElement.Send(ctx.Subject)
		return nil
	}

	now := w.Now()
	message.ListTitle.Send(ctx.Subject)
	for _, r := range snap {
		short, long := duration.Short(r.Interval), duration.Long(r.Interval)
		left := r.NextReset.Sub(now).Truncate(time.Second)
		if left < 0 {
			message.ListElementNextRestart.Send(ctx.Subject, r.WorldName, short, long)
			continue
		}
		message.ListElement.Send(ctx.Subject, r.WorldName,
			duration.Short(left), duration.Long(left), short, long)
	}
	return nil
}

func (w *worldReset) help(ctx *Context) error {
	message.PluginInfo.Send(ctx.Subject, w.Authors, w.Version)
	message.UsageTitle.Send(ctx.Subject)
	for _, u := range w.dispatcher.Usages(ctx.Subject) {
		message.UsageCommand.Send(ctx.Subject, u)
	}
	return nil
}

func (w *worldReset) reload(ctx *Context) error {
	if w.Reload == nil {
		message.Reloaded.Send(ctx.Subject)
		return nil
	}
	if err := w.Reload(); err != nil {
		message.ReloadFailed.Send(ctx.Subject, err.Error())
		return nil
	}
	message.Reloaded.Send(ctx.Subject)
	return nil
}
