package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joebot/worldreset/internal/message"
)

// Commander runs and completes command lines for the console operator.
type Commander interface {
	ConsoleSubject() message.Subject
	Execute(s message.Subject, line string) <-chan error
	Complete(s message.Subject, line string) []string
}

// --- message types ---

type outputMsg struct {
	lines []string
}

type commandDoneMsg struct {
	err error
}

type completionMsg struct {
	line       string
	candidates []string
}

// --- output writer ---

// ConsoleWriter carries console output into the TUI line by line. Once the
// TUI has exited, output goes to a fallback writer instead.
type ConsoleWriter struct {
	lines  chan string
	closed chan struct{}

	mu       sync.Mutex
	fallback io.Writer
}

// NewConsoleWriter creates a writer that buffers output until the console
// starts reading it.
func NewConsoleWriter() *ConsoleWriter {
	return &ConsoleWriter{
		lines:  make(chan string, 256),
		closed: make(chan struct{}),
	}
}

func (w *ConsoleWriter) Write(b []byte) (int, error) {
	if fallback := w.current(); fallback != nil {
		return fallback.Write(b)
	}

	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		select {
		case w.lines <- line:
		case <-w.closed:
			fmt.Fprintln(w.current(), line)
		}
	}
	return len(b), nil
}

func (w *ConsoleWriter) current() io.Writer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fallback
}

// detach routes further output, and whatever is still buffered, to
// fallback.
func (w *ConsoleWriter) detach(fallback io.Writer) {
	w.mu.Lock()
	if w.fallback != nil {
		w.mu.Unlock()
		return
	}
	w.fallback = fallback
	close(w.closed)
	w.mu.Unlock()

	for {
		select {
		case line := <-w.lines:
			fmt.Fprintln(fallback, line)
		default:
			return
		}
	}
}

func waitForOutput(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		return outputMsg{lines: []string{<-lines}}
	}
}

// --- console entry ---

type consoleEntry struct {
	role    string // "input", "output", "error", "hint"
	content string
}

// ConsoleConfig holds display metadata for the console TUI.
type ConsoleConfig struct {
	Root     string // root command literal, added when the operator omits it
	WorldDir string
}

// --- interactive console model ---

type consoleModel struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history []consoleEntry
	waiting bool

	cmd     Commander
	subject message.Subject
	root    string
	output  <-chan string

	ready    bool
	width    int
	height   int
	worldDir string
}

func newConsoleModel(c Commander, cfg ConsoleConfig, output <-chan string) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "Type a command, e.g. list"
	ti.Focus()
	ti.CharLimit = 0
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(Accent)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)

	return consoleModel{
		input:    ti,
		spinner:  sp,
		cmd:      c,
		subject:  c.ConsoleSubject(),
		root:     cfg.Root,
		output:   output,
		worldDir: cfg.WorldDir,
	}
}

func (m consoleModel) Init() tea.Cmd {
	if m.output == nil {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, waitForOutput(m.output))
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Layout: header(1) + divider(1) + viewport + divider(1) + input(1) + status(1) = 5 fixed
		vpHeight := msg.Height - 5
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			if isExitCmd(input) {
				return m, tea.Quit
			}
			m.history = append(m.history, consoleEntry{role: "input", content: input})
			m.input.SetValue("")
			m.waiting = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.execute(m.qualify(input)))
		case tea.KeyTab:
			if m.waiting {
				return m, nil
			}
			return m, m.complete(m.input.Value())
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case outputMsg:
		for _, line := range msg.lines {
			m.history = append(m.history, consoleEntry{role: "output", content: line})
		}
		m.refresh()
		return m, waitForOutput(m.output)

	case commandDoneMsg:
		m.waiting = false
		if msg.err != nil {
			m.history = append(m.history, consoleEntry{role: "error", content: msg.err.Error()})
			m.refresh()
		}
		return m, nil

	case completionMsg:
		if msg.line != m.input.Value() {
			return m, nil
		}
		switch len(msg.candidates) {
		case 0:
		case 1:
			m.input.SetValue(replaceLastToken(msg.line, msg.candidates[0]))
			m.input.CursorEnd()
		default:
			if prefix := commonPrefix(msg.candidates); len(prefix) > len(lastToken(msg.line)) {
				m.input.SetValue(replaceLastToken(msg.line, prefix))
				m.input.CursorEnd()
			}
			m.history = append(m.history, consoleEntry{role: "hint", content: strings.Join(msg.candidates, "  ")})
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// qualify prefixes the root literal when the operator left it out.
func (m consoleModel) qualify(input string) string {
	if m.root == "" {
		return input
	}
	first, _, _ := strings.Cut(input, " ")
	if strings.EqualFold(strings.TrimPrefix(first, "/"), m.root) {
		return input
	}
	return m.root + " " + input
}

func (m consoleModel) execute(line string) tea.Cmd {
	done := m.cmd.Execute(m.subject, line)
	return func() tea.Msg {
		return commandDoneMsg{err: <-done}
	}
}

// complete asks for candidates off the UI goroutine.
func (m consoleModel) complete(line string) tea.Cmd {
	return func() tea.Msg {
		full := m.qualify(line)
		if strings.TrimSpace(line) == "" {
			full = m.root + " "
		}
		return completionMsg{line: line, candidates: m.cmd.Complete(m.subject, full)}
	}
}

func (m *consoleModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m consoleModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := TitleStyle.Render(fmt.Sprintf(" %s WorldReset console", Logo))
	divider := DimStyle.Render(strings.Repeat("─", m.width))

	var inputLine string
	if m.waiting {
		inputLine = fmt.Sprintf(" %s Running...", m.spinner.View())
	} else {
		inputLine = " " + m.input.View()
	}

	return header + "\n" +
		divider + "\n" +
		m.viewport.View() + "\n" +
		divider + "\n" +
		inputLine + "\n" +
		m.renderStatusBar()
}

func (m consoleModel) renderHistory() string {
	if len(m.history) == 0 {
		return m.renderWelcome()
	}

	var sb strings.Builder
	for _, entry := range m.history {
		switch entry.role {
		case "input":
			sb.WriteString("\n  " + InputLabel.Render("❯ "+entry.content) + "\n")
		case "output":
			sb.WriteString("  " + entry.content + "\n")
		case "hint":
			sb.WriteString("  " + DimStyle.Render(entry.content) + "\n")
		case "error":
			sb.WriteString("  " + ErrStyle.Render("Error: "+entry.content) + "\n")
		}
	}
	return sb.String()
}

func (m consoleModel) renderWelcome() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(RenderBanner())
	sb.WriteString("\n")
	sb.WriteString("  " + BoldStyle.Render("Tips:") + "\n")
	sb.WriteString(DimStyle.Render("  1. help lists every command") + "\n")
	sb.WriteString(DimStyle.Render("  2. schedule <world> [interval] to reset a world periodically") + "\n")
	sb.WriteString(DimStyle.Render("  3. Tab completes commands, worlds and durations") + "\n")
	sb.WriteString(DimStyle.Render("  4. exit or Ctrl+C stops the server") + "\n")
	return sb.String()
}

func (m consoleModel) renderStatusBar() string {
	left := DimStyle.Render(" " + m.worldDir)
	right := DimStyle.Render("v" + Version + " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func isExitCmd(s string) bool {
	s = strings.ToLower(s)
	return s == "exit" || s == "quit" || s == "stop" || s == "/exit" || s == "/quit" || s == ":q"
}

func lastToken(line string) string {
	if line == "" || strings.HasSuffix(line, " ") {
		return ""
	}
	return line[strings.LastIndex(line, " ")+1:]
}

func replaceLastToken(line, with string) string {
	return line[:len(line)-len(lastToken(line))] + with
}

func commonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(w, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// RunConsole starts the interactive console TUI and shows the output
// written to w. When the console exits, w falls back to after.
func RunConsole(ctx context.Context, c Commander, w *ConsoleWriter, cfg ConsoleConfig, after io.Writer) error {
	defer w.detach(after)

	p := tea.NewProgram(newConsoleModel(c, cfg, w.lines), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
