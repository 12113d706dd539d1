package cli

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joebot/worldreset/internal/config"
)

// --- init selection model ---

type initChoice int

const (
	choiceKeep initChoice = iota
	choiceOverwrite
)

type initModel struct {
	path    string
	choices []string
	cursor  int
	chosen  bool
	choice  initChoice
}

func (m initModel) Init() tea.Cmd { return nil }

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.choice = choiceKeep
			m.chosen = true
			return m, tea.Quit
		case tea.KeyUp, tea.KeyShiftTab:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown, tea.KeyTab:
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			m.choice = initChoice(m.cursor)
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m initModel) View() string {
	if m.chosen {
		return ""
	}

	s := "\n"
	s += fmt.Sprintf("  Config already exists at %s\n\n", DimStyle.Render(m.path))

	for i, choice := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = PromptLabel.Render("❯ ")
		}
		s += "  " + cursor + choice + "\n"
	}

	s += "\n" + DimStyle.Render("  ↑/↓ navigate · enter select · ctrl+c cancel") + "\n"
	return s
}

// RunInit prepares the data directory, asking before it replaces an
// existing config.yml.
func RunInit(rt *config.Runtime) error {
	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s WorldReset Init", Logo)))

	overwrite := false
	if fileExists(rt.ConfigPath()) {
		m := initModel{
			path: rt.ConfigPath(),
			choices: []string{
				"Skip: keep the current config",
				"Overwrite: replace with fresh defaults",
			},
		}
		final, err := tea.NewProgram(m).Run()
		if err != nil {
			return fmt.Errorf("config prompt: %w", err)
		}
		overwrite = final.(initModel).choice == choiceOverwrite
	}

	fmt.Println()
	if err := InitDataDir(os.Stdout, rt, overwrite); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(OkStyle.Render("  WorldReset is ready!"))
	fmt.Println()
	fmt.Println(DimStyle.Render("  Next steps:"))
	fmt.Println(DimStyle.Render("  1. Adjust " + rt.ConfigPath()))
	fmt.Println(DimStyle.Render("  2. Start: worldreset serve"))
	fmt.Println()
	return nil
}

// InitDataDir creates the data directory layout. An existing config.yml is
// only replaced when overwrite is set; an existing worlds.json is never
// touched.
func InitDataDir(w io.Writer, rt *config.Runtime, overwrite bool) error {
	if err := os.MkdirAll(rt.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	cfgPath := rt.ConfigPath()
	switch {
	case !fileExists(cfgPath):
		if err := os.WriteFile(cfgPath, config.DefaultYAML(), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintln(w, "  "+OkStyle.Render("✓")+" Created config at "+DimStyle.Render(cfgPath))
	case overwrite:
		if err := os.WriteFile(cfgPath, config.DefaultYAML(), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintln(w, "  "+OkStyle.Render("✓")+" Overwritten config")
	default:
		fmt.Fprintln(w, "  "+DimStyle.Render("Config unchanged"))
	}

	worldsPath := rt.WorldsPath()
	if !fileExists(worldsPath) {
		if err := os.WriteFile(worldsPath, []byte("[]\n"), 0o644); err != nil {
			return fmt.Errorf("write schedule: %w", err)
		}
		fmt.Fprintln(w, "    "+DimStyle.Render("created worlds.json"))
	}

	if err := os.MkdirAll(rt.JournalDir(), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	fmt.Fprintln(w, "  "+OkStyle.Render("✓")+" Journal at "+DimStyle.Render(rt.JournalDir()))
	return nil
}
