package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joebot/worldreset/internal/audit"
	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/duration"
	"github.com/joebot/worldreset/internal/host"
	"github.com/joebot/worldreset/internal/message"
	"github.com/joebot/worldreset/internal/schedule"
)

// RunStatus displays the settings, the config values and the schedule.
// Nothing on disk is created or modified.
func RunStatus(rt *config.Runtime) {
	WriteStatus(os.Stdout, rt, time.Now())
}

// WriteStatus renders the status screen to w.
func WriteStatus(w io.Writer, rt *config.Runtime, now time.Time) {
	cfgPath := rt.ConfigPath()
	worldsPath := rt.WorldsPath()

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("  %s WorldReset Status", Logo)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %-12s %s  %s\n", "Config", StatusBadge(fileExists(cfgPath)), DimStyle.Render(cfgPath))
	fmt.Fprintf(w, "  %-12s %s  %s\n", "Schedule", StatusBadge(fileExists(worldsPath)), DimStyle.Render(worldsPath))
	fmt.Fprintf(w, "  %-12s %s  %s\n", "Worlds", StatusBadge(fileExists(rt.WorldDir)), DimStyle.Render(rt.WorldDir))
	fmt.Fprintf(w, "  %-12s %s  %s\n", "Journal", StatusBadge(fileExists(rt.JournalDir())), DimStyle.Render(rt.JournalDir()))
	fmt.Fprintln(w)

	// An adapter that was never loaded answers with the fallbacks.
	cfg := config.NewAdapter(cfgPath)
	if fileExists(cfgPath) {
		if err := cfg.Load(); err != nil {
			fmt.Fprintln(w, "  "+ErrStyle.Render("Config error: "+err.Error()))
			fmt.Fprintln(w)
		}
	}
	interval := config.Get(cfg, config.DefaultResetInterval)
	fmt.Fprintln(w, "  "+BoldStyle.Render("Settings"))
	fmt.Fprintf(w, "    %-22s %s %s\n", "default interval", duration.Short(interval), DimStyle.Render("("+duration.Long(interval)+")"))
	preview := audit.Substitute(config.Get(cfg, config.BroadcastMessage), "world", "1h", "1 hour")
	fmt.Fprintf(w, "    %-22s %s\n", "broadcast message", message.ANSI(message.FromLegacy(preview, '&')))
	var moments []string
	for _, m := range audit.ParseMoments(config.Get(cfg, config.BroadcastPriorReset)) {
		moments = append(moments, duration.Short(m))
	}
	fmt.Fprintf(w, "    %-22s %s\n", "broadcast before reset", strings.Join(moments, ", "))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  "+BoldStyle.Render("Channels"))
	fmt.Fprintf(w, "    %s  Console\n", StatusBadge(true))
	fmt.Fprintf(w, "    %s  Discord %s\n", StatusBadge(rt.Discord.Enabled()), DimStyle.Render(rt.Discord.ChannelID))
	fmt.Fprintf(w, "    %s  Feed %s\n", StatusBadge(rt.FeedAddr != ""), DimStyle.Render(rt.FeedAddr))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  "+BoldStyle.Render("Scheduled resets"))
	resets, err := schedule.ReadFile(worldsPath)
	switch {
	case err != nil && fileExists(worldsPath):
		fmt.Fprintln(w, "    "+ErrStyle.Render(err.Error()))
	case len(resets) == 0:
		fmt.Fprintln(w, "    "+DimStyle.Render("none"))
	}
	worlds := host.NewDirRegistry(rt.WorldDir)
	for _, r := range resets {
		_, known := worlds.Lookup(r.WorldName)
		next := humanize.RelTime(r.NextReset, now, "ago", "from now")
		if r.Overdue(now) {
			next = "next restart"
		}
		fmt.Fprintf(w, "    %s  %-20s every %-8s %s\n", StatusBadge(known), r.WorldName,
			duration.Short(r.Interval), DimStyle.Render(next))
	}
	fmt.Fprintln(w)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
