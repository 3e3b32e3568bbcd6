package triageconsole

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"supplyguard/internal/domain/issue"
	"supplyguard/internal/usecase/issues"
)

const (
	maxAuditLines   = 8
	consoleNotes    = "resolved from triage console"
	defaultInterval = 5 * time.Second
)

// IssueService is the part of the issue lifecycle the console drives.
type IssueService interface {
	List(ctx context.Context, input issues.ListInput) ([]issues.Issue, error)
	Summary(ctx context.Context) (issues.Summary, error)
	UpdateStatus(ctx context.Context, issueID string, rawStatus string) (issues.Issue, error)
	Resolve(ctx context.Context, issueID string, notes string) (issues.Issue, error)
	MergeDuplicates(ctx context.Context) (issues.MergeReport, error)
}

type Options struct {
	RefreshInterval time.Duration
	ShowAll         bool
	Severities      []string
}

type model struct {
	ctx             context.Context
	service         IssueService
	refreshInterval time.Duration
	showAll         bool
	severities      []string

	issues        []issues.Issue
	summary       issues.Summary
	selectedIndex int
	status        string
	auditLogs     []string
	now           func() time.Time
}

type issuesLoadedMsg struct {
	items   []issues.Issue
	summary issues.Summary
	err     error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action  string
	issueID string
	result  string
	err     error
}

func New(ctx context.Context, service IssueService, options Options) tea.Model {
	return newModel(ctx, service, options)
}

func newModel(ctx context.Context, service IssueService, options Options) *model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &model{
		ctx:             ctx,
		service:         service,
		refreshInterval: interval,
		showAll:         options.ShowAll,
		severities:      options.Severities,
		status:          "loading",
		now:             time.Now,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.loadIssuesCmd(), m.tickCmd())
}

func (m *model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadIssuesCmd(), m.tickCmd())
	case issuesLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.issues = msg.items
		m.summary = msg.summary
		if m.selectedIndex >= len(m.issues) {
			m.selectedIndex = len(m.issues) - 1
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if len(m.issues) == 0 {
			m.status = "queue is empty"
		} else {
			m.status = fmt.Sprintf("refreshed, %d issues", len(m.issues))
		}
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.issueID, "failed: "+msg.err.Error())
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.issueID, msg.result)
		}
		return m, m.loadIssuesCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadIssuesCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.issues)-1 {
				m.selectedIndex++
			}
			return m, nil
		case "a":
			m.showAll = !m.showAll
			return m, m.loadIssuesCmd()
		case "p":
			return m, m.transitionCmd("start", issue.StatusInProgress)
		case "r":
			return m, m.resolveCmd()
		case "x":
			return m, m.transitionCmd("close", issue.StatusClosed)
		case "m":
			return m, m.mergeCmd()
		}
	}
	return m, nil
}

func (m *model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	scope := "active"
	if m.showAll {
		scope = "all"
	}

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Supply Chain Triage"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"scope=%s total=%d active=%d critical=%d high=%d refresh=%s",
		scope,
		m.summary.Total,
		m.summary.Active,
		m.summary.ActiveBySeverity[issue.SeverityCritical],
		m.summary.ActiveBySeverity[issue.SeverityHigh],
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Queue"))
	builder.WriteString("\n")
	if len(m.issues) == 0 {
		builder.WriteString(dimStyle.Render("- no issues"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.issues {
			line := fmt.Sprintf("%s %s [%s] %s", item.IssueID, severityStyle(item.Severity).Render(fmt.Sprintf("%-8s", item.Severity)), item.Status, item.Title)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if selected, ok := m.selectedIssue(); ok {
		builder.WriteString(fmt.Sprintf("Issue: %s\n", selected.IssueID))
		builder.WriteString(fmt.Sprintf("Intent: %s  Severity: %s  Status: %s\n", selected.Intent, selected.Severity, selected.Status))
		builder.WriteString(fmt.Sprintf("Part: %s  Order: %s\n", deref(selected.PartID), deref(selected.OrderID)))
		builder.WriteString(fmt.Sprintf("Source: %s  Assignee: %s\n", deref(selected.SourceReference), selected.AssignedTo))
		builder.WriteString(fmt.Sprintf("Created: %s\n", selected.CreatedAt))
		if selected.ResolutionNotes != nil {
			builder.WriteString(fmt.Sprintf("Notes: %s\n", *selected.ResolutionNotes))
		}
		builder.WriteString(dimStyle.Render(firstLine(selected.Description)))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n- ")
	builder.WriteString(firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line + "\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  a active/all  p start  r resolve  x close  m merge  q quit"))
	return builder.String()
}

func (m *model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *model) loadIssuesCmd() tea.Cmd {
	input := issues.ListInput{ActiveOnly: !m.showAll, Severities: m.severities}
	return func() tea.Msg {
		items, err := m.service.List(m.ctx, input)
		if err != nil {
			return issuesLoadedMsg{err: err}
		}
		summary, err := m.service.Summary(m.ctx)
		if err != nil {
			return issuesLoadedMsg{err: err}
		}
		return issuesLoadedMsg{items: items, summary: summary}
	}
}

func (m *model) transitionCmd(action string, to issue.Status) tea.Cmd {
	selected, ok := m.selectedIssue()
	if !ok {
		m.status = "no issue selected"
		return nil
	}
	m.status = action + " in progress"
	return func() tea.Msg {
		updated, err := m.service.UpdateStatus(m.ctx, selected.IssueID, string(to))
		if err != nil {
			return actionDoneMsg{action: action, issueID: selected.IssueID, err: err}
		}
		return actionDoneMsg{action: action, issueID: updated.IssueID, result: string(updated.Status)}
	}
}

func (m *model) resolveCmd() tea.Cmd {
	selected, ok := m.selectedIssue()
	if !ok {
		m.status = "no issue selected"
		return nil
	}
	m.status = "resolve in progress"
	return func() tea.Msg {
		updated, err := m.service.Resolve(m.ctx, selected.IssueID, consoleNotes)
		if err != nil {
			return actionDoneMsg{action: "resolve", issueID: selected.IssueID, err: err}
		}
		return actionDoneMsg{action: "resolve", issueID: updated.IssueID, result: string(updated.Status)}
	}
}

func (m *model) mergeCmd() tea.Cmd {
	m.status = "merge in progress"
	return func() tea.Msg {
		report, err := m.service.MergeDuplicates(m.ctx)
		if err != nil {
			return actionDoneMsg{action: "merge", err: err}
		}
		return actionDoneMsg{action: "merge", result: fmt.Sprintf("%d groups, %d closed", len(report.Groups), report.Closed)}
	}
}

func (m *model) selectedIssue() (issues.Issue, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.issues) {
		return issues.Issue{}, false
	}
	return m.issues[m.selectedIndex], true
}

func (m *model) appendAuditLog(action, issueID, result string) {
	line := fmt.Sprintf("[%s] %s %s %s", m.now().Format(time.TimeOnly), action, firstNonEmpty(issueID, "-"), result)
	m.auditLogs = append(m.auditLogs, line)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[len(m.auditLogs)-maxAuditLines:]
	}
}

func severityStyle(severity issue.Severity) lipgloss.Style {
	switch severity {
	case issue.SeverityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	case issue.SeverityHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	case issue.SeverityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
}

func deref(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
