package channel

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/joebot/worldreset/internal/bus"
	"github.com/joebot/worldreset/internal/message"
)

// ConsoleName is the channel name of the local operator console.
const ConsoleName = "console"

// Console prints messages to a terminal. The console operator holds every
// permission, so it also receives broadcasts.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	grants []string
	color  bool
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer, color bool, grants ...string) *Console {
	return &Console{w: w, color: color, grants: grants}
}

func (c *Console) Name() string     { return ConsoleName }
func (c *Console) Grants() []string { return c.grants }

func (c *Console) Start(context.Context) error { return nil }
func (c *Console) Stop() error                 { return nil }

// SetWriter redirects output, e.g. into an interactive program.
func (c *Console) SetWriter(w io.Writer) {
	c.mu.Lock()
	c.w = w
	c.mu.Unlock()
}

// Send writes msg as one line.
func (c *Console) Send(_ context.Context, msg *bus.OutboundMessage) error {
	text := msg.Content
	if c.color {
		text = message.ANSI(msg.Component)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, text)
	return err
}
