package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"cruisetrack/internal/track"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// rowMsg carries a selected row for the per-device table.
type rowMsg struct{ track.Combined }

// statusMsg replaces the status line in the header.
type statusMsg struct{ text string }

const maxLogLines = 2000

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TUIWriter renders prioritized rows in a bubbletea TUI.
type TUIWriter struct {
	program      teaProgram
	deviceColors map[string]string
	colorIdx     int
	done         chan struct{}
	sendSignal   atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(priority []string) *TUIWriter {
	w := &TUIWriter{deviceColors: make(map[string]string), done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(priority), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) deviceColor(id string) string {
	if c, ok := w.deviceColors[id]; ok {
		return c
	}
	c := devicePalette[w.colorIdx%len(devicePalette)]
	w.deviceColors[id] = c
	w.colorIdx++
	return c
}

// Write implements Writer.
func (w *TUIWriter) Write(c track.Combined) error {
	line := fmt.Sprintf("%s[%s]%s %s%s%s %slat=%.6f%s %slon=%.6f%s spd=%.2f %sflag=%s%s",
		colorGray, c.Time.UTC().Format(track.TimeLayout), colorReset,
		w.deviceColor(c.DeviceID), c.DeviceID, colorReset,
		colorGreen, c.Latitude, colorReset,
		colorYellow, c.Longitude, colorReset,
		c.Speed,
		flagColor(c.Overall), c.Overall, colorReset,
	)
	w.program.Send(logMsg{line: line})
	w.program.Send(rowMsg{c})
	return nil
}

// SetStatus updates the header status line.
func (w *TUIWriter) SetStatus(text string) {
	w.program.Send(statusMsg{text: text})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	priority   []string
	table      table.Model
	vp         viewport.Model
	logs       []string
	counts     map[string]int
	total      int
	status     string
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(priority []string) tuiModel {
	cols := []table.Column{
		{Title: "Rank", Width: 5},
		{Title: "Device", Width: 20},
		{Title: "Seconds", Width: 10},
		{Title: "Share", Width: 8},
	}
	m := tuiModel{
		priority:   priority,
		table:      table.New(table.WithColumns(cols), table.WithHeight(len(priority)+2)),
		vp:         viewport.New(0, 0),
		counts:     make(map[string]int),
		autoscroll: true,
		status:     "running",
	}
	m.refreshTable()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case rowMsg:
		m.counts[msg.DeviceID]++
		m.total++
		m.refreshTable()
	case statusMsg:
		m.status = msg.text
	}
	return m, nil
}

func (m *tuiModel) refreshTable() {
	rank := make(map[string]int, len(m.priority))
	for i, id := range m.priority {
		rank[id] = i + 1
	}
	ids := append([]string(nil), m.priority...)
	var extra []string
	for id := range m.counts {
		if _, ok := rank[id]; !ok {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	ids = append(ids, extra...)

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		r := "-"
		if n, ok := rank[id]; ok {
			r = fmt.Sprintf("%d", n)
		}
		share := 0.0
		if m.total > 0 {
			share = 100 * float64(m.counts[id]) / float64(m.total)
		}
		rows = append(rows, table.Row{r, id, fmt.Sprintf("%d", m.counts[id]), fmt.Sprintf("%.1f%%", share)})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.table.View()) - 2
	if h < 1 {
		h = 1
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	content := strings.Join(m.logs, "\n")
	if m.wrap && m.vp.Width > 0 {
		content = wordwrap.String(content, m.vp.Width)
	}
	m.vp.SetContent(content)
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	return titleStyle.Render("cruisetrack") + " " +
		statusStyle.Render(fmt.Sprintf("%s | %d seconds selected", m.status, m.total))
}

func (m tuiModel) View() string {
	help := helpStyle.Render("q quit • w wrap • s autoscroll")
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.table.View(), m.vp.View(), help)
}
