package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const Logo = "⛏"

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

var (
	Accent = lipgloss.Color("#FFAA00")
	Subtle = lipgloss.Color("#555555")
	Green  = lipgloss.Color("#04B575")
	Red    = lipgloss.Color("#FF4444")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	BoldStyle   = lipgloss.NewStyle().Bold(true)
	PromptLabel = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	InputLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	ErrStyle    = lipgloss.NewStyle().Foreground(Red)
	OkStyle     = lipgloss.NewStyle().Foreground(Green).Bold(true)
	DimStyle    = lipgloss.NewStyle().Foreground(Subtle)
)

func StatusBadge(ok bool) string {
	if ok {
		return OkStyle.Render("✓")
	}
	return DimStyle.Render("✗")
}

// RenderBanner returns the title block shown on the console's empty screen.
func RenderBanner() string {
	lines := []string{
		TitleStyle.Render("  " + Logo + " WorldReset"),
		DimStyle.Render("  Scheduled regeneration of outer world regions · v" + Version),
	}
	return strings.Join(lines, "\n") + "\n"
}
