package bus

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/joebot/worldreset/internal/message"
)

// OutboundHandler is a callback for outbound messages on a specific channel.
type OutboundHandler func(ctx context.Context, msg *OutboundMessage) error

type subscriber struct {
	channel string
	grants  []string
	handler OutboundHandler
}

// MessageBus decouples the delivery channels from the engine using Go channels.
type MessageBus struct {
	Inbound  chan *InboundMessage
	Outbound chan *OutboundMessage

	mu          sync.RWMutex
	subscribers []subscriber
}

// NewMessageBus creates a new message bus with buffered channels.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		Inbound:  make(chan *InboundMessage, 64),
		Outbound: make(chan *OutboundMessage, 64),
	}
}

// PublishInbound hands a command line from a channel to the engine.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	b.Inbound <- msg
}

// PublishOutbound queues a message for the channels.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	if msg.Content == "" {
		msg.Content = message.Plain(msg.Component)
	}
	b.Outbound <- msg
}

// Subscribe registers a handler for a channel. grants lists the permissions
// the channel's listeners hold; permission-addressed messages reach every
// channel granting that permission.
func (b *MessageBus) Subscribe(channel string, grants []string, handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber{channel: channel, grants: grants, handler: handler})
}

func (b *MessageBus) handlersFor(msg *OutboundMessage) []OutboundHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []OutboundHandler
	for _, s := range b.subscribers {
		if msg.Permission != "" {
			if slices.Contains(s.grants, msg.Permission) {
				out = append(out, s.handler)
			}
			continue
		}
		if s.channel == msg.Channel {
			out = append(out, s.handler)
		}
	}
	return out
}

// DispatchOutbound reads from the outbound queue and dispatches to subscribers.
// Blocks until ctx is cancelled.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Outbound:
			b.deliver(ctx, msg)
		}
	}
}

// Drain delivers whatever is still queued. Used on shutdown after the
// producers have stopped.
func (b *MessageBus) Drain(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (b *MessageBus) deliver(ctx context.Context, msg *OutboundMessage) {
	handlers := b.handlersFor(msg)
	if len(handlers) == 0 {
		slog.Debug("dispatch outbound: no subscriber", "channel", msg.Channel, "permission", msg.Permission)
		return
	}
	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			slog.Warn("dispatch outbound failed, attempting recovery", "channel", msg.Channel, "permission", msg.Permission, "err", err)
			b.recoverSend(ctx, h, msg)
		}
	}
}

// recoverSend tries progressively simpler messages when a delivery fails.
func (b *MessageBus) recoverSend(ctx context.Context, h OutboundHandler, original *OutboundMessage) {
	// Strategy 1: plain text only, no rich component.
	plain := &OutboundMessage{
		Channel:    original.Channel,
		ChatID:     original.ChatID,
		Permission: original.Permission,
		Component:  message.Component{Text: original.Content},
		Content:    original.Content,
	}
	if err := h(ctx, plain); err == nil {
		slog.Info("recovery: sent as plain text", "channel", original.Channel)
		return
	}

	// Strategy 2: truncated content.
	if len(original.Content) > 1500 {
		cut := original.Content[:1500] + "\n\n[message truncated]"
		truncated := &OutboundMessage{
			Channel:    original.Channel,
			ChatID:     original.ChatID,
			Permission: original.Permission,
			Component:  message.Component{Text: cut},
			Content:    cut,
		}
		if err := h(ctx, truncated); err == nil {
			slog.Info("recovery: sent truncated message", "channel", original.Channel)
			return
		}
	}

	slog.Error("recovery: all strategies failed, message dropped", "channel", original.Channel, "permission", original.Permission)
}

// Broadcast returns an audience reaching every channel that grants perm.
func (b *MessageBus) Broadcast(perm string) message.Audience {
	return message.AudienceFunc(func(c message.Component) {
		b.PublishOutbound(&OutboundMessage{Permission: perm, Component: c})
	})
}

// Reply returns an audience reaching one conversation on one channel.
func (b *MessageBus) Reply(channel, chatID string) message.Audience {
	return message.AudienceFunc(func(c message.Component) {
		b.PublishOutbound(&OutboundMessage{Channel: channel, ChatID: chatID, Component: c})
	})
}
