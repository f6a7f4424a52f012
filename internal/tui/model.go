package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowbaker/workflow-monitor/internal/domain"
	"github.com/flowbaker/workflow-monitor/internal/monitor"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	renderInterval = 500 * time.Millisecond
	requestTimeout = 30 * time.Second
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")).Bold(true)

	colorStyles = map[string]lipgloss.Style{
		domain.ColorInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")),
		domain.ColorWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		domain.ColorSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		domain.ColorDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
		domain.ColorMuted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		domain.ColorNeutral: lipgloss.NewStyle(),
	}
)

type renderTickMsg time.Time

type refreshDoneMsg struct {
	err error
}

type cancelDoneMsg struct {
	workflowID string
	cancelled  bool
}

type cancelAllDoneMsg struct {
	attempted int
	cancelled int
}

type pollingToggledMsg struct {
	polling bool
	err     error
}

// Model is the live view of one monitor. It owns the monitor's polling while running.
type Model struct {
	monitor  *monitor.Monitor
	interval time.Duration
	now      func() time.Time

	table         table.Model
	state         monitor.State
	status        string
	statusErr     bool
	confirmingAll bool
	busy          bool
	width         int
}

func NewModel(m *monitor.Monitor, interval time.Duration) Model {
	columns := []table.Column{
		{Title: "ID", Width: 24},
		{Title: "Action", Width: 18},
		{Title: "Plateforme", Width: 10},
		{Title: "Statut", Width: 20},
		{Title: "Âge", Width: 8},
	}

	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(12))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	styles.Selected = styles.Selected.Bold(true)
	t.SetStyles(styles)

	return Model{
		monitor:  m,
		interval: interval,
		now:      time.Now,
		table:    t,
		state:    m.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(startPollingCmd(m.monitor, m.interval), renderTickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-8, 3))
		return m, nil
	case renderTickMsg:
		m.syncState()
		return m, renderTickCmd()
	case refreshDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(fmt.Sprintf("Refresh failed: %v", msg.err))
		} else {
			m.setStatus("Refreshed.")
		}
		m.syncState()
		return m, nil
	case cancelDoneMsg:
		m.busy = false
		if msg.cancelled {
			m.setStatus(fmt.Sprintf("Cancellation requested for %s.", msg.workflowID))
		} else {
			m.setError(fmt.Sprintf("Could not cancel %s.", msg.workflowID))
		}
		m.syncState()
		return m, nil
	case cancelAllDoneMsg:
		m.busy = false
		m.setStatus(fmt.Sprintf("Cancellation requested for %d of %d workflows.", msg.cancelled, msg.attempted))
		m.syncState()
		return m, nil
	case pollingToggledMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("Polling: %v", msg.err))
		} else if msg.polling {
			m.setStatus("Polling resumed.")
		} else {
			m.setStatus("Polling paused.")
		}
		m.syncState()
		return m, nil
	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmingAll {
		m.confirmingAll = false
		if msg.String() == "y" && !m.busy {
			m.busy = true
			m.setStatus("Cancelling all workflows...")
			return m, cancelAllCmd(m.monitor)
		}
		m.setStatus("Cancel all aborted.")
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.monitor.StopPolling()
		return m, tea.Quit
	case "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, refreshCmd(m.monitor)
	case "c":
		row := m.table.SelectedRow()
		if row == nil || m.busy {
			return m, nil
		}
		m.busy = true
		return m, cancelCmd(m.monitor, row[0])
	case "a":
		if len(m.state.Workflows) == 0 {
			m.setStatus("Nothing to cancel.")
			return m, nil
		}
		m.confirmingAll = true
		return m, nil
	case "p":
		if m.monitor.IsPolling() {
			m.monitor.StopPolling()
			return m, func() tea.Msg { return pollingToggledMsg{polling: false} }
		}
		return m, startPollingCmd(m.monitor, m.interval)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	platform := m.monitor.Platform()
	pollState := "paused"
	if m.state.IsPolling {
		pollState = "every " + m.monitor.PollInterval().String()
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %d active", platform.Name, m.state.ActiveCount)))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  polling %s", pollState)))
	if !m.state.LastRefresh.IsZero() {
		b.WriteString(helpStyle.Render(fmt.Sprintf(" · updated %s", m.state.LastRefresh.Format("15:04:05"))))
	}
	b.WriteString("\n\n")

	if len(m.state.Workflows) == 0 {
		b.WriteString(helpStyle.Render("No running workflows."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(m.selectedDetail())
	}

	b.WriteString("\n")
	if m.state.LastError != nil {
		b.WriteString(errorStyle.Render("Last error: " + m.state.LastError.Error()))
		b.WriteString("\n")
	}

	switch {
	case m.confirmingAll:
		b.WriteString(warnStyle.Render(fmt.Sprintf("Cancel all %d workflows? (y/N)", len(m.state.Workflows))))
	case m.statusErr:
		b.WriteString(errorStyle.Render(m.status))
	case m.status != "":
		b.WriteString(noticeStyle.Render(m.status))
	}
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("r refresh · c cancel · a cancel all · p pause/resume · q quit"))

	return b.String()
}

func (m Model) selectedDetail() string {
	row := m.table.SelectedRow()
	if row == nil {
		return ""
	}

	for _, workflow := range m.state.Workflows {
		if workflow.ID != row[0] {
			continue
		}
		status := string(workflow.Status)
		style := colorStyles[domain.StatusColor(status)]
		return fmt.Sprintf("%s  %s", helpStyle.Render(workflow.Type), style.Render(domain.StatusLabel(status)))
	}
	return ""
}

func (m *Model) syncState() {
	m.state = m.monitor.Snapshot()

	labeler := m.monitor.Labeler()
	now := m.now()

	rows := make([]table.Row, 0, len(m.state.Workflows))
	for _, workflow := range m.state.Workflows {
		rows = append(rows, table.Row{
			workflow.ID,
			labeler.ActionLabel(workflow.Type),
			labeler.PlatformName(workflow.Type),
			domain.StatusLabel(string(workflow.Status)),
			formatAge(workflow.StartTime, now),
		})
	}

	m.table.SetRows(rows)
	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m *Model) setStatus(status string) {
	m.status = status
	m.statusErr = false
}

func (m *Model) setError(status string) {
	m.status = status
	m.statusErr = true
}

func renderTickCmd() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return renderTickMsg(t)
	})
}

func refreshCmd(m *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := m.FetchActive(ctx)
		return refreshDoneMsg{err: err}
	}
}

func cancelCmd(m *monitor.Monitor, workflowID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return cancelDoneMsg{
			workflowID: workflowID,
			cancelled:  m.Cancel(ctx, workflowID),
		}
	}
}

func cancelAllCmd(m *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		attempted := len(m.Snapshot().Workflows)
		return cancelAllDoneMsg{
			attempted: attempted,
			cancelled: m.CancelAll(context.Background()),
		}
	}
}

func startPollingCmd(m *monitor.Monitor, interval time.Duration) tea.Cmd {
	return func() tea.Msg {
		err := m.StartPolling(interval)
		return pollingToggledMsg{polling: err == nil && m.IsPolling(), err: err}
	}
}

func formatAge(startTime *time.Time, now time.Time) string {
	if startTime == nil || startTime.IsZero() {
		return "-"
	}

	age := now.Sub(*startTime)
	switch {
	case age < 0:
		return "0s"
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", int(age.Hours()), int(age.Minutes())%60)
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

// Run shows the live view until the user quits, then releases the monitor.
func Run(m *monitor.Monitor, interval time.Duration) error {
	defer m.Close()

	_, err := tea.NewProgram(NewModel(m, interval), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("failed to run live view: %w", err)
	}
	return nil
}
