// Package channel holds the sinks outbound messages are delivered to and the
// remote sources command lines arrive from.
package channel

import (
	"context"
	"slices"

	"github.com/joebot/worldreset/internal/bus"
)

// Channel is a delivery target registered on the bus.
type Channel interface {
	Name() string
	// Grants lists the permissions held by the channel's listeners.
	Grants() []string
	Start(ctx context.Context) error
	Stop() error
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// Register subscribes ch to b under its name and grants.
func Register(b *bus.MessageBus, ch Channel) {
	b.Subscribe(ch.Name(), ch.Grants(), ch.Send)
}

// IsAllowed checks if a sender is in the allow list.
// Empty allow list means everyone is allowed.
func IsAllowed(senderID string, allowList []string) bool {
	if len(allowList) == 0 {
		return true
	}
	return slices.Contains(allowList, senderID)
}
