package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Runtime holds process settings taken from the environment. Domain settings
// live in config.yml and are read through an Adapter.
type Runtime struct {
	DataDir  string // config.yml, worlds.json, journal/, worldreset.log
	WorldDir string // container holding one directory per world
	LogLevel string

	Discord  DiscordConfig
	FeedAddr string // websocket broadcast feed, empty disables it
}

// DiscordConfig holds Discord channel settings.
type DiscordConfig struct {
	Token     string
	ChannelID string
	AllowFrom []string
}

// Enabled reports whether the Discord channel should start.
func (d DiscordConfig) Enabled() bool { return d.Token != "" }

// DefaultRuntime returns settings for running from the current directory.
func DefaultRuntime() *Runtime {
	return &Runtime{
		DataDir:  filepath.Join("plugins", "WorldReset"),
		WorldDir: ".",
		LogLevel: "info",
	}
}

// RuntimeFromEnv applies WORLDRESET_* variables on top of the defaults.
func RuntimeFromEnv() *Runtime {
	r := DefaultRuntime()
	r.DataDir = envOr("WORLDRESET_DATA", r.DataDir)
	r.WorldDir = envOr("WORLDRESET_WORLDS", r.WorldDir)
	r.LogLevel = envOr("WORLDRESET_LOG_LEVEL", r.LogLevel)
	r.Discord.Token = os.Getenv("WORLDRESET_DISCORD_TOKEN")
	r.Discord.ChannelID = os.Getenv("WORLDRESET_DISCORD_CHANNEL")
	if allow := os.Getenv("WORLDRESET_DISCORD_ALLOW"); allow != "" {
		for _, id := range strings.Split(allow, ",") {
			if id = strings.TrimSpace(id); id != "" {
				r.Discord.AllowFrom = append(r.Discord.AllowFrom, id)
			}
		}
	}
	r.FeedAddr = os.Getenv("WORLDRESET_FEED_ADDR")
	return r
}

// ConfigPath returns the path of config.yml.
func (r *Runtime) ConfigPath() string { return filepath.Join(r.DataDir, "config.yml") }

// WorldsPath returns the path of worlds.json.
func (r *Runtime) WorldsPath() string { return filepath.Join(r.DataDir, "worlds.json") }

// JournalDir returns the directory of the reset journal.
func (r *Runtime) JournalDir() string { return filepath.Join(r.DataDir, "journal") }

// LogPath returns the log file used by the interactive console.
func (r *Runtime) LogPath() string { return filepath.Join(r.DataDir, "worldreset.log") }

// Validate checks the settings for invalid or missing values.
func (r *Runtime) Validate() error {
	if errs := r.validate(); len(errs) > 0 {
		return fmt.Errorf("runtime settings invalid:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (r *Runtime) validate() []string {
	var errs []string

	if strings.TrimSpace(r.DataDir) == "" {
		errs = append(errs, "WORLDRESET_DATA must not be empty")
	}
	if strings.TrimSpace(r.WorldDir) == "" {
		errs = append(errs, "WORLDRESET_WORLDS must not be empty")
	}
	switch strings.ToLower(r.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("WORLDRESET_LOG_LEVEL %q must be one of debug, info, warn, error", r.LogLevel))
	}

	if r.Discord.Enabled() && r.Discord.ChannelID == "" {
		errs = append(errs, "WORLDRESET_DISCORD_CHANNEL is required when a discord token is set")
	}
	if !r.Discord.Enabled() && len(r.Discord.AllowFrom) > 0 {
		errs = append(errs, "WORLDRESET_DISCORD_ALLOW has no effect without WORLDRESET_DISCORD_TOKEN")
	}

	if r.FeedAddr != "" {
		if _, _, err := net.SplitHostPort(r.FeedAddr); err != nil {
			errs = append(errs, fmt.Sprintf("WORLDRESET_FEED_ADDR %q: %v", r.FeedAddr, err))
		}
	}
	return errs
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
