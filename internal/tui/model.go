// Package tui is the terminal dashboard: a symbol input above the chart and
// insight panels.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"marketview/internal/dashboard"
	"marketview/internal/symbol"
	"marketview/internal/viewmodel"
)

// Styles.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func statusStyle(s viewmodel.Status) lipgloss.Style {
	switch s {
	case viewmodel.StatusReady:
		return readyStyle
	case viewmodel.StatusLoading:
		return loadingStyle
	case viewmodel.StatusError:
		return errorStyle
	default:
		return dimStyle
	}
}

// Messages.
type tickMsg time.Time
type chartChangedMsg struct{}
type insightChangedMsg struct{}

// Options wires the dashboard to its controller and panels.
type Options struct {
	Controller *symbol.Controller
	Chart      *viewmodel.Chart
	Insight    *viewmodel.Insight
	Symbol     string         // initial symbol, may be empty
	Location   *time.Location // for timestamps; time.Local when nil
	Refresh    time.Duration  // auto-refresh period; zero disables
	Logger     *slog.Logger
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctrl    *symbol.Controller
	chart   *viewmodel.Chart
	insight *viewmodel.Insight
	loc     *time.Location
	refresh time.Duration
	logger  *slog.Logger

	chartSub, insightSub int
	chartCh, insightCh   <-chan struct{}
	input                textinput.Model
	viewport             viewport.Model
	ready                bool
	width, height        int
	lastRefresh          time.Time
}

// New subscribes to both panels and, if opts.Symbol is set, starts loading it.
// Call Close when the program exits.
func New(opts Options) Model {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	in := textinput.New()
	in.Prompt = "Symbol: "
	in.PromptStyle = promptStyle
	in.Placeholder = "e.g. AAPL"
	in.CharLimit = 16
	in.Focus()

	m := Model{
		ctrl:    opts.Controller,
		chart:   opts.Chart,
		insight: opts.Insight,
		loc:     loc,
		refresh: opts.Refresh,
		logger:  logger,
		input:   in,
	}
	m.chartSub, m.chartCh = m.chart.Subscribe()
	m.insightSub, m.insightCh = m.insight.Subscribe()

	if opts.Symbol != "" {
		m.input.SetValue(strings.ToUpper(opts.Symbol))
		m.ctrl.SetSymbol(opts.Symbol)
	}
	return m
}

// Close unsubscribes from both panels and stops any fetch in flight.
func (m Model) Close() {
	m.chart.Unsubscribe(m.chartSub)
	m.insight.Unsubscribe(m.insightSub)
	m.chart.Close()
	m.insight.Close()
}

// waitFor turns the next signal on ch into msg. A closed channel ends the
// loop.
func waitFor(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		waitFor(m.chartCh, chartChangedMsg{}),
		waitFor(m.insightCh, insightChangedMsg{}),
	}
	if m.refresh > 0 {
		cmds = append(cmds, tickCmd(m.refresh))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			m.logger.Info("manual refresh", "symbol", m.ctrl.Current())
			m.ctrl.Refresh()
			m.lastRefresh = time.Now()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if v := m.input.Value(); v != before {
			pos := m.input.Position()
			m.input.SetValue(strings.ToUpper(v))
			m.input.SetCursor(pos)
			m.ctrl.SetSymbol(v)
			m.setContent()
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 1
		inputH := 1
		footerH := 1
		vpHeight := m.height - headerH - inputH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.setContent()
		return m, nil

	case chartChangedMsg:
		m.setContent()
		return m, waitFor(m.chartCh, chartChangedMsg{})

	case insightChangedMsg:
		m.setContent()
		return m, waitFor(m.insightCh, insightChangedMsg{})

	case tickMsg:
		if m.ctrl.Current() != "" {
			m.ctrl.Refresh()
			m.lastRefresh = time.Time(msg)
		}
		return m, tickCmd(m.refresh)
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) setContent() {
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
}

func (m Model) renderContent() string {
	var b strings.Builder
	chartState := m.chart.State()
	insightState := m.insight.State()

	writeSection(&b, "Chart & indicators", chartState.Status, m.width)
	for _, line := range dashboard.ChartPanel(chartState, m.width-2) {
		writeLine(&b, line, chartState.Status)
	}
	b.WriteString("\n")

	writeSection(&b, "Insight & prediction", insightState.Status, m.width)
	for _, line := range dashboard.InsightPanel(insightState, m.loc, m.width-2) {
		writeLine(&b, line, insightState.Status)
	}
	return b.String()
}

func writeSection(b *strings.Builder, title string, s viewmodel.Status, width int) {
	b.WriteString(sectionStyle.Render(padOrTrunc(fmt.Sprintf(" %s  [%s] ", title, s), width)))
	b.WriteString("\n")
}

func writeLine(b *strings.Builder, line string, s viewmodel.Status) {
	b.WriteString("  ")
	if s == viewmodel.StatusError || (s == viewmodel.StatusLoading && strings.HasPrefix(line, "Loading")) {
		b.WriteString(statusStyle(s).Render(line))
	} else {
		b.WriteString(line)
	}
	b.WriteString("\n")
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	chartStatus := m.chart.State().Status
	insightStatus := m.insight.State().Status
	headerText := fmt.Sprintf(" marketview  %s    chart: %s  insight: %s ",
		orDash(m.ctrl.Current()), chartStatus, insightStatus)
	if !m.lastRefresh.IsZero() {
		headerText += fmt.Sprintf("   refreshed %s ", m.lastRefresh.In(m.loc).Format("15:04:05"))
	}
	headerBar := headerStyle.Render(padOrTrunc(headerText, m.width))

	pct := m.viewport.ScrollPercent() * 100
	footerLeft := " esc quit  ctrl+r refresh  pgup/dn scroll"
	footerRight := fmt.Sprintf("%.0f%% ", pct)
	gap := m.width - len(footerLeft) - len(footerRight)
	if gap < 0 {
		gap = 0
	}
	footerBar := footerStyle.Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))

	return headerBar + "\n" + m.input.View() + "\n" + m.viewport.View() + "\n" + footerBar
}

func orDash(s string) string {
	if s == "" {
		return dashboard.Placeholder
	}
	return s
}

func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// Run starts the dashboard on the alternate screen and blocks until the user
// quits.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
