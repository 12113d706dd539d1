package engine

import (
	"slices"

	"github.com/joebot/worldreset/internal/bus"
	"github.com/joebot/worldreset/internal/channel"
	"github.com/joebot/worldreset/internal/command"
	"github.com/joebot/worldreset/internal/message"
)

// ConsoleName is the subject name of the local operator.
const ConsoleName = "CONSOLE"

// subject is a command sender whose replies go through the bus.
type subject struct {
	message.Audience
	name   string
	grants []string // nil grants everything
}

func (s *subject) Name() string { return s.name }

func (s *subject) HasPermission(perm string) bool {
	return s.grants == nil || slices.Contains(s.grants, perm)
}

// World is always absent: neither the console nor remote operators stand
// in a world.
func (s *subject) World() (string, bool) { return "", false }

// ConsoleSubject returns the local operator, who holds every permission.
func (e *Engine) ConsoleSubject() message.Subject {
	return &subject{
		Audience: e.bus.Reply(channel.ConsoleName, ""),
		name:     ConsoleName,
	}
}

// remoteSubject returns the sender of an inbound command line. Channels
// only publish lines from allowed senders, so they may use the commands.
func (e *Engine) remoteSubject(msg *bus.InboundMessage) message.Subject {
	name := msg.SenderName
	if name == "" {
		name = msg.SenderID
	}
	return &subject{
		Audience: e.bus.Reply(msg.Channel, msg.ChatID),
		name:     name,
		grants:   []string{command.PermissionCommand},
	}
}
