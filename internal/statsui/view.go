package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/stats"
)

const (
	colorText   = lipgloss.Color("#EDEDED")
	colorDim    = lipgloss.Color("#7A7A7A")
	colorBorder = lipgloss.Color("#454545")
	colorAccent = lipgloss.Color("#5FAF87")
	colorError  = lipgloss.Color("#E5534B")
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(colorBorder).
			Foreground(colorDim)
	activeTabStyle = tabStyle.
			BorderForeground(colorAccent).
			Foreground(colorText).
			Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(colorBorder)
	cardValueStyle = lipgloss.NewStyle().Foreground(colorText).Bold(true)
)

// overviewCards lays out headline numbers, two rows on wide terminals.
func overviewCards(sum stats.Summary, width int) string {
	card := func(label, value string) string {
		return cardStyle.Render(dimStyle.Render(label) + "\n" + cardValueStyle.Render(value))
	}
	cards := []string{
		card("Sessions", strconv.Itoa(sum.Sessions)),
		card("Time", stats.FormatMinutes(sum.Minutes)),
		card("Avg Eff.", fmt.Sprintf("%.1f", sum.AvgEffectiveness)),
		card("Streak", strconv.Itoa(sum.CurrentStreak)),
		card("Best Streak", strconv.Itoa(sum.LongestStreak)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...))
}

func renderOverview(r stats.Report, width int) string {
	cards := overviewCards(r.Summary, width)
	if r.Summary.Sessions == 0 {
		return cards + "\n\nNo sessions found."
	}
	var buf bytes.Buffer
	if err := stats.RenderDaily(&buf, r.Summary.Daily, r.Window); err != nil {
		return fmt.Sprintf("failed to render daily chart: %v", err)
	}
	if err := stats.RenderTaskTable(&buf, r.Summary.Tasks); err != nil {
		return fmt.Sprintf("failed to render tasks: %v", err)
	}
	if top := stats.TopSubjectsByMinutes(r.Summary.Subjects, 3); len(top) > 0 {
		fmt.Fprintf(&buf, "Most studied: %s\n", strings.Join(top, ", "))
	}
	if weak := stats.WeakestSubjects(r.Summary.Subjects, 1); len(weak) == 1 {
		fmt.Fprintf(&buf, "Least effective: %s (%.1f)\n", weak[0].Name, weak[0].AvgEffectiveness)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

// renderSessionList lists sessions newest first.
func renderSessionList(sessions []model.Session) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	lines := make([]string, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		lines = append(lines, fmt.Sprintf("%s  %-12s %-20s %7s  eff %d",
			s.Timestamp.Local().Format("2006-01-02 15:04"),
			ellipsize(s.Subject, 12),
			s.Task.Label(),
			stats.FormatMinutes(s.DurationMinutes),
			s.Effectiveness))
	}
	return strings.Join(lines, "\n")
}

func newSubjectTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Subject", Width: 14},
			{Title: "Conf.", Width: 5},
			{Title: "Exam", Width: 6},
			{Title: "Sessions", Width: 8},
			{Title: "Time", Width: 8},
			{Title: "Avg Eff.", Width: 8},
		}),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(colorBorder).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell.Foreground(colorAccent).Bold(true)
	t.SetStyles(styles)
	return t
}

func subjectRows(rows []stats.SubjectSummary) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		conf, avg := "-", "-"
		if r.Registered {
			conf = strconv.Itoa(r.Confidence)
		}
		if r.Sessions > 0 {
			avg = fmt.Sprintf("%.1f", r.AvgEffectiveness)
		}
		out = append(out, table.Row{
			r.Name, conf, stats.ExamLabel(r.DaysUntilExam),
			strconv.Itoa(r.Sessions), stats.FormatMinutes(r.Minutes), avg,
		})
	}
	return out
}

func (m *Model) renderHeader() string {
	tabs := make([]string, len(m.tabs))
	for i, name := range m.tabs {
		style := tabStyle
		if i == m.activeTab {
			style = activeTabStyle
		}
		tabs[i] = style.Render(name)
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	subject, last := "all", "all"
	if m.cfg.Subject != "" {
		subject = m.cfg.Subject
	}
	if m.cfg.LastDays > 0 {
		last = strconv.Itoa(m.cfg.LastDays) + "d"
	}
	filters := fmt.Sprintf("Filters: subject=%s  last=%s  chart=%dd", subject, last, m.cfg.Days)
	return bar + "\n" + dimStyle.Render(ellipsize(filters, m.width))
}

func (m *Model) renderFooter() string {
	if m.filter.open {
		return dimStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := dimStyle.Render("Tabs: left/right  Scroll: up/down  Chart: -/=  Filter: /  Reload: r  Quit: q")
	if m.errMsg != "" {
		help += "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	switch {
	case m.filter.open:
		return m.filter.view()
	case m.activeTab != tabSubjects:
		return m.viewports[m.activeTab].View()
	case len(m.report.Summary.Subjects) == 0:
		return "No subjects found."
	}
	return m.subjects.View()
}
