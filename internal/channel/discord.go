package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/joebot/worldreset/internal/bus"
	"github.com/joebot/worldreset/internal/config"
)

// DiscordName is the channel name of the Discord bridge.
const DiscordName = "discord"

// discordMaxLen is Discord's message length limit.
const discordMaxLen = 2000

type discordSession interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord relays broadcasts to a Discord channel and accepts /worldreset
// command lines from allowed users.
type Discord struct {
	config  config.DiscordConfig
	bus     *bus.MessageBus
	command string
	grants  []string

	mu      sync.Mutex
	session discordSession
}

// NewDiscord creates a Discord channel. command is the root literal that
// marks a message as a command line. Listeners in the configured channel
// are granted grants.
func NewDiscord(cfg config.DiscordConfig, b *bus.MessageBus, command string, grants ...string) *Discord {
	return &Discord{config: cfg, bus: b, command: command, grants: grants}
}

func (d *Discord) Name() string     { return DiscordName }
func (d *Discord) Grants() []string { return d.grants }

// Start opens the gateway session.
func (d *Discord) Start(ctx context.Context) error {
	if d.config.Token == "" {
		return fmt.Errorf("discord bot token not configured")
	}

	s, err := discordgo.New("Bot " + d.config.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Discord: connected", "user", r.User.Username)
	})
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		d.handleMessage(m)
	})

	slog.Info("Discord: connecting to gateway...")
	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	d.mu.Lock()
	d.session = s
	d.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

// Stop closes the gateway session.
func (d *Discord) Stop() error {
	s := d.current()
	if s == nil {
		return nil
	}
	return s.Close()
}

func (d *Discord) current() discordSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Send posts msg to its conversation, or to the configured channel when it
// is a broadcast.
func (d *Discord) Send(_ context.Context, msg *bus.OutboundMessage) error {
	s := d.current()
	if s == nil {
		return fmt.Errorf("discord session not open")
	}
	chatID := msg.ChatID
	if chatID == "" {
		chatID = d.config.ChannelID
	}
	if chatID == "" {
		return fmt.Errorf("discord: no channel to deliver to")
	}

	content := msg.Content
	if len(content) > discordMaxLen {
		content = content[:discordMaxLen]
	}
	if _, err := s.ChannelMessageSend(chatID, content); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

// handleMessage publishes command lines from allowed users.
func (d *Discord) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.Author.ID == "" || m.ChannelID == "" {
		return
	}
	if !d.isCommand(m.Content) {
		return
	}
	if !IsAllowed(m.Author.ID, d.config.AllowFrom) {
		slog.Debug("Discord: ignoring command from user not in allow list", "user", m.Author.ID)
		return
	}

	d.bus.PublishInbound(&bus.InboundMessage{
		Channel:    DiscordName,
		SenderID:   m.Author.ID,
		SenderName: m.Author.Username,
		ChatID:     m.ChannelID,
		Content:    strings.TrimSpace(m.Content),
		Timestamp:  time.Now(),
	})
}

func (d *Discord) isCommand(content string) bool {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(fields[0], "/"), d.command)
}
