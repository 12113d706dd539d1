package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joebot/worldreset/internal/config"
	"github.com/joebot/worldreset/internal/journal"
)

// RunHistory prints the last n executed resets, newest first.
func RunHistory(rt *config.Runtime, n int) error {
	return WriteHistory(os.Stdout, rt.JournalDir(), n, time.Now())
}

// WriteHistory renders the journal in dir to w.
func WriteHistory(w io.Writer, dir string, n int, now time.Time) error {
	entries, err := journal.ReadAll(dir)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("  %s WorldReset History", Logo)))
	fmt.Fprintln(w)

	if len(entries) == 0 {
		fmt.Fprintln(w, "  "+DimStyle.Render("No resets recorded in "+dir))
		fmt.Fprintln(w)
		return nil
	}

	var freed int64
	for _, e := range entries {
		freed += e.FreedBytes
	}

	for _, e := range journal.Last(entries, n) {
		when := DimStyle.Render(fmt.Sprintf("%-14s", humanize.RelTime(e.At, now, "ago", "from now")))
		if e.Removed {
			fmt.Fprintf(w, "  %s %s  %-20s %s\n", when, ErrStyle.Render("✗"), e.World,
				DimStyle.Render("world missing, unscheduled"))
			continue
		}
		detail := fmt.Sprintf("%d region files, %s", e.Deleted, humanize.Bytes(uint64(e.FreedBytes)))
		if e.Failed > 0 {
			detail += ErrStyle.Render(fmt.Sprintf(", %d failed", e.Failed))
		}
		fmt.Fprintf(w, "  %s %s  %-20s %s\n", when, OkStyle.Render("✓"), e.World, detail)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("  %s resets, %s freed in total",
		humanize.Comma(int64(len(entries))), humanize.Bytes(uint64(freed)))))
	fmt.Fprintln(w)
	return nil
}
