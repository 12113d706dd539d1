package bus

import (
	"time"

	"github.com/joebot/worldreset/internal/message"
)

// InboundMessage is a command line received from a remote channel.
type InboundMessage struct {
	Channel    string
	SenderID   string
	SenderName string
	ChatID     string
	Content    string
	Timestamp  time.Time
}

// SessionKey returns the unique key for the conversation the command came from.
func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage is a message for a channel. It is addressed either to one
// conversation (Channel and ChatID) or to every channel that grants
// Permission to its listeners.
type OutboundMessage struct {
	Channel    string
	ChatID     string
	Permission string
	Component  message.Component
	// Content is the plain rendering, filled in by Publish when empty.
	Content string
}
