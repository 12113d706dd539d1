// Package engine wires the schedule, the auditor, the command pool and the
// delivery channels together and owns their lifecycle.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joebot/worldreset/internal/audit"
	"github.com/joebot/worldreset/internal/bus"
	"github.com/joebot/worldreset/internal/channel"
	"github.com/joebot/worldreset/internal/command"
	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/host"
	"github.com/joebot/worldreset/internal/journal"
	"github.com/joebot/worldreset/internal/message"
	"github.com/joebot/worldreset/internal/schedule"
)

// ShutdownGrace bounds how long shutdown waits for the auditor and for
// running commands.
const ShutdownGrace = 15 * time.Second

// Authors is shown by /worldreset help.
const Authors = "joebot"

// Options configures an Engine.
type Options struct {
	Runtime *config.Runtime
	Version string

	// Console receives messages for the local operator. Nil means stdout.
	Console      io.Writer
	ConsoleColor bool

	Now          func() time.Time
	AuditDelay   time.Duration
	AuditPeriod  time.Duration
	ShutdownWait time.Duration
}

// Engine is one running WorldReset instance.
type Engine struct {
	opts Options

	cfg        *config.Adapter
	store      *schedule.Store
	worlds     *host.DirRegistry
	journal    *journal.Writer
	bus        *bus.MessageBus
	pool       *command.Pool
	dispatcher *command.Dispatcher
	auditor    *audit.Auditor
	console    *channel.Console
	channels   []channel.Channel

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	dispatch sync.WaitGroup
	started  bool
	stopped  bool
}

// New creates an engine. Nothing is read from disk until Start.
func New(opts Options) *Engine {
	if opts.Runtime == nil {
		opts.Runtime = config.DefaultRuntime()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.ShutdownWait <= 0 {
		opts.ShutdownWait = ShutdownGrace
	}
	rt := opts.Runtime

	e := &Engine{
		opts:    opts,
		cfg:     config.NewAdapter(rt.ConfigPath()),
		store:   schedule.NewStore(rt.WorldsPath(), opts.Now),
		worlds:  host.NewDirRegistry(rt.WorldDir),
		journal: journal.NewWriter(rt.JournalDir(), opts.Now),
		bus:     bus.NewMessageBus(),
	}
	e.console = channel.NewConsole(opts.Console, opts.ConsoleColor,
		audit.PermissionReceiveBroadcast, command.PermissionCommand)
	e.dispatcher = command.WorldReset(command.Deps{
		Store:   e.store,
		Config:  e.cfg,
		Worlds:  e.worlds,
		Reload:  e.Reload,
		Now:     opts.Now,
		Version: opts.Version,
		Authors: Authors,
	})
	return e
}

// Config returns the config adapter.
func (e *Engine) Config() *config.Adapter { return e.cfg }

// Store returns the schedule store.
func (e *Engine) Store() *schedule.Store { return e.store }

// Worlds returns the world registry.
func (e *Engine) Worlds() *host.DirRegistry { return e.worlds }

// Console returns the local console sink.
func (e *Engine) Console() *channel.Console { return e.console }

// Load reads the config and the schedule. A malformed config is fatal; a
// malformed schedule is moved aside.
func (e *Engine) Load() error {
	if err := e.cfg.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := e.store.Load(); err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	return nil
}

// Start loads state, resets overdue worlds, and starts the auditor, the
// command pool, the bus and the channels.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	e.started = true
	e.mu.Unlock()

	if err := e.Load(); err != nil {
		return err
	}

	e.auditor = audit.New(audit.Options{
		Store:        e.store,
		Config:       e.cfg,
		Worlds:       e.worlds,
		Broadcast:    e.bus.Broadcast(audit.PermissionReceiveBroadcast),
		Journal:      e.journal,
		Now:          e.opts.Now,
		InitialDelay: e.opts.AuditDelay,
		Period:       e.opts.AuditPeriod,
	})
	e.pool = command.NewPool(command.DefaultWorkers)

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	e.channels = append(e.channels, e.console)
	rt := e.opts.Runtime
	if rt.Discord.Enabled() {
		e.channels = append(e.channels, channel.NewDiscord(rt.Discord, e.bus, e.dispatcher.Root(),
			audit.PermissionReceiveBroadcast))
	}
	if rt.FeedAddr != "" {
		e.channels = append(e.channels, channel.NewFeed(rt.FeedAddr, audit.PermissionReceiveBroadcast))
	}
	for _, ch := range e.channels {
		channel.Register(e.bus, ch)
	}

	e.dispatch.Add(1)
	go func() {
		defer e.dispatch.Done()
		e.bus.DispatchOutbound(ctx)
	}()

	if n := e.auditor.CatchUp(e.opts.Now()); n > 0 {
		slog.Info("Engine: reset overdue worlds at startup", "count", n)
	}

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.auditor.Run(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.consumeInbound(ctx)
	}()

	for _, ch := range e.channels {
		ch := ch
		go func() {
			if err := ch.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Engine: channel error", "channel", ch.Name(), "err", err)
			}
		}()
	}

	slog.Info("Engine: started", "worlds", e.store.Len(), "channels", len(e.channels),
		"moments", len(e.auditor.Moments()))
	return nil
}

// consumeInbound runs command lines arriving from remote channels.
func (e *Engine) consumeInbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-e.bus.Inbound:
			s := e.remoteSubject(msg)
			slog.Info("Engine: remote command", "channel", msg.Channel, "sender", s.Name(), "input", msg.Content)
			e.Execute(s, msg.Content)
		}
	}
}

// Execute runs line for s on the command pool. The returned channel yields
// the dispatcher's result once the command has run.
func (e *Engine) Execute(s message.Subject, line string) <-chan error {
	result := make(chan error, 1)
	if e.pool == nil {
		result <- fmt.Errorf("engine not started")
		return result
	}
	err := e.pool.Submit(func() {
		result <- e.dispatcher.Run(s, line)
	})
	if err != nil {
		result <- err
	}
	return result
}

// Complete returns completions for the last token of line.
func (e *Engine) Complete(s message.Subject, line string) []string {
	return e.dispatcher.Complete(s, line)
}

// Usages lists the commands s may run.
func (e *Engine) Usages(s message.Subject) []string {
	return e.dispatcher.Usages(s)
}

// Reload re-reads config.yml.
func (e *Engine) Reload() error {
	if err := e.cfg.Reload(); err != nil {
		return err
	}
	slog.Info("Engine: configuration reloaded", "path", e.cfg.Path())
	return nil
}

// Shutdown stops the auditor and the command pool, persists the schedule,
// and stops the channels. It does nothing unless Start succeeded, and is
// safe to call more than once.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.cancel == nil || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()

	slog.Info("Engine: shutting down")
	e.store.MarkShuttingDown()
	if e.auditor != nil {
		e.auditor.Stop(e.opts.ShutdownWait)
	}
	if e.pool != nil {
		e.pool.Shutdown(e.opts.ShutdownWait)
	}
	if err := e.store.Save(); err != nil {
		slog.Error("Engine: failed to save schedule on shutdown", "err", err)
	}
	e.store.Shutdown()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.dispatch.Wait()
	e.bus.Drain(context.Background())

	for _, ch := range e.channels {
		if err := ch.Stop(); err != nil {
			slog.Warn("Engine: channel stop failed", "channel", ch.Name(), "err", err)
		}
	}
	if err := e.journal.Close(); err != nil {
		slog.Warn("Engine: failed to close journal", "err", err)
	}
	slog.Info("Engine: stopped")
}
