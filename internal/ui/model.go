package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nconklindev/csvrange/internal/parser"
	"github.com/nconklindev/csvrange/internal/render"
	"github.com/nconklindev/csvrange/internal/session"
	"github.com/nconklindev/csvrange/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateViewer state = iota
	stateFilePicker
)

type focus int

const (
	focusStart focus = iota
	focusEnd
)

// Lines taken by everything above and below the table viewport.
const chromeHeight = 16

type Options struct {
	Dir          string
	Path         string
	Range        types.Range
	MaxCellWidth int
	Loader       session.Loader
}

type Model struct {
	state        state
	filepicker   filepicker.Model
	session      *session.Session
	loader       session.Loader
	startInput   textinput.Model
	endInput     textinput.Model
	focus        focus
	viewport     viewport.Model
	progress     progress.Model
	progressChan chan float64
	resultChan   chan fileLoadedMsg
	cancel       context.CancelFunc
	loading      bool
	pending      string
	maxCellWidth int
	width        int
	height       int
}

type fileLoadedMsg struct {
	gen   uint64
	table *types.Table
	err   error
}

type progressMsg struct {
	gen     uint64
	percent float64
}

type waitForProgressMsg struct {
	gen uint64
}

func InitialModel(opts Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = parser.AllowedTypes
	fp.CurrentDirectory = opts.Dir

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	prog := progress.New(progress.WithGradient("#FF8C42", "#FF9F5A"))

	sess := session.New(opts.Range)

	start := newBoundInput(opts.Range.Start)
	start.Focus()
	end := newBoundInput(opts.Range.End)

	m := Model{
		state:        stateFilePicker,
		filepicker:   fp,
		session:      sess,
		loader:       opts.Loader,
		startInput:   start,
		endInput:     end,
		viewport:     viewport.New(80, 10),
		progress:     prog,
		pending:      opts.Path,
		maxCellWidth: opts.MaxCellWidth,
	}

	if opts.Path != "" {
		m.state = stateViewer
	}
	m.refreshOutput()

	return m
}

func newBoundInput(v int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = len(strconv.Itoa(999999))
	ti.Width = 8
	ti.SetValue(strconv.Itoa(v))
	return ti
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.filepicker.Init(), textinput.Blink}
	if m.pending != "" {
		path := m.pending
		cmds = append(cmds, func() tea.Msg { return selectPathMsg(path) })
	}
	return tea.Batch(cmds...)
}

// selectPathMsg loads a path that did not come from the file picker.
type selectPathMsg string

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := max(msg.Height-14, 5)
		m.filepicker.SetHeight(height)

		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.progress.Width = min(max(msg.Width-10, 10), 60)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m.quit()
			case "esc":
				if m.session.Path() != "" {
					m.state = stateViewer
					return m, nil
				}
			}

		case stateViewer:
			return m.updateViewerKeys(msg)
		}

	case tea.MouseMsg:
		if m.state == stateViewer {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case selectPathMsg:
		return m.selectFile(string(msg))

	case fileLoadedMsg:
		if msg.gen != m.session.Generation() {
			return m, nil
		}
		m.loading = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}

		if msg.err != nil {
			m.session.Failed(msg.gen, msg.err)
		} else {
			m.session.Loaded(msg.gen, msg.table)
		}
		m.refreshOutput()
		m.viewport.GotoTop()
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.loading && msg.gen == m.session.Generation() {
			cmd := m.progress.SetPercent(msg.percent)
			return m, tea.Batch(cmd, waitForProgress(msg.gen, m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		if msg.gen != m.session.Generation() {
			return m, nil
		}
		return m, waitForProgress(msg.gen, m.progressChan, m.resultChan)
	}

	// Handle filepicker updates
	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			return m.selectFile(path)
		}

		if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
			slog.Warn("could not find a file", "path", path, "allowed", parser.AllowedTypes)
			return m, cmd
		}

		return m, cmd
	}

	if m.state == stateViewer {
		var cmd tea.Cmd
		if m.focus == focusStart {
			m.startInput, cmd = m.startInput.Update(msg)
		} else {
			m.endInput, cmd = m.endInput.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) updateViewerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m.quit()
	case "o":
		m.state = stateFilePicker
		return m, m.filepicker.Init()
	case "tab", "shift+tab":
		return m.toggleFocus()
	case "up", "down", "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// Only digits reach the inputs; other runes are commands or noise.
	if msg.Type == tea.KeySpace {
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.focus == focusStart {
		before := m.startInput.Value()
		m.startInput, cmd = m.startInput.Update(msg)
		if m.startInput.Value() != before {
			m.session.SetStart(m.startInput.Value())
			m.refreshOutput()
		}
	} else {
		before := m.endInput.Value()
		m.endInput, cmd = m.endInput.Update(msg)
		if m.endInput.Value() != before {
			m.session.SetEnd(m.endInput.Value())
			m.refreshOutput()
		}
	}

	return m, cmd
}

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == focusStart {
		m.focus = focusEnd
		m.startInput.Blur()
		return m, m.endInput.Focus()
	}

	m.focus = focusStart
	m.endInput.Blur()
	return m, m.startInput.Focus()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

// selectFile starts parsing path. A parse still in flight is cancelled and
// its result will be dropped when it arrives.
func (m Model) selectFile(path string) (Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = stateViewer
	m.loading = true
	m.pending = ""

	gen := m.session.Select(path)
	m.refreshOutput()

	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan fileLoadedMsg, 1)

	// Capture channels for the goroutine
	progressChan := m.progressChan
	resultChan := m.resultChan
	loader := m.loader

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				table, err := loader.Load(ctx, path, progressChan)

				resultChan <- fileLoadedMsg{gen: gen, table: table, err: err}

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{gen: gen}
		},
		m.progress.SetPercent(0),
	)

	return m, cmd
}

func waitForProgress(gen uint64, progressChan chan float64, resultChan chan fileLoadedMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return res
			}
			return nil
		}

		return progressMsg{gen: gen, percent: p}
	}
}

// refreshOutput puts the current display state into the viewport.
func (m *Model) refreshOutput() {
	switch m.session.Display() {
	case session.DisplayTable:
		out, _, _ := m.session.Output()
		m.viewport.SetContent(render.View(out, render.ViewOptions{MaxCellWidth: m.maxCellWidth}))
	case session.DisplayPlaceholder:
		m.viewport.SetContent(PlaceholderStyle.Render(session.PlaceholderText))
	default:
		m.viewport.SetContent(PlaceholderStyle.Render(session.PromptText))
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateViewer:
		return m.viewViewer()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	title := TitleStyle.Render("▦ csvrange - CSV Row Range Viewer")

	subtitle := SubtitleStyle.Render("Choose CSV to upload")

	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, subtitle))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")

	help := "Press q to quit"
	if m.session.Path() != "" {
		help = "esc: back • q: quit"
	}
	s.WriteString(HelpStyle.Render(help))

	return s.String()
}

func (m Model) viewViewer() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ csvrange"))
	s.WriteString("\n")
	file := "no file selected"
	if path := m.session.Path(); path != "" {
		file = filepath.Base(path)
	}
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", file)))
	s.WriteString("\n")

	s.WriteString(m.viewInputs())
	s.WriteString("\n")
	s.WriteString(m.viewStatus())
	s.WriteString("\n\n")

	s.WriteString(SectionStyle.Render("CSV Data"))
	s.WriteString("\n")

	if m.loading {
		s.WriteString(m.progress.View())
		s.WriteString("\n")
	}
	if err := m.session.Err(); err != nil {
		s.WriteString(ErrorStyle.Render(fmt.Sprintf("✗ %v", err)))
		s.WriteString("\n")
	}

	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("0-9: edit • tab: switch field • ↑/↓/pgup/pgdn: scroll • o: open file • q: quit"))

	return s.String()
}

func (m Model) viewInputs() string {
	startLabel, endLabel := LabelStyle, LabelStyle
	if m.focus == focusStart {
		startLabel = FocusedLabelStyle
	} else {
		endLabel = FocusedLabelStyle
	}

	start := lipgloss.JoinHorizontal(lipgloss.Center,
		startLabel.Render("Starting row number "),
		BoxStyle.Render(m.startInput.View()),
	)
	end := lipgloss.JoinHorizontal(lipgloss.Center,
		endLabel.Render("  Last row number "),
		BoxStyle.Render(m.endInput.View()),
	)

	return lipgloss.JoinHorizontal(lipgloss.Center, start, end)
}

func (m Model) viewStatus() string {
	r := m.session.Range()
	line := fmt.Sprintf("Showing data rows [%d, %d)", r.Start, r.End)

	if out, reason, ok := m.session.Output(); ok {
		line += fmt.Sprintf(" • %d row(s)", len(out.Rows))
		if reason != types.ReasonNone {
			return WarningStyle.Render(fmt.Sprintf("%s • %s", line, reason))
		}
	}

	return PlaceholderStyle.Render(line)
}
