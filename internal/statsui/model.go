// Package statsui is the interactive stats dashboard.
package statsui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/stats"
)

const (
	tabOverview = iota
	tabSubjects
	tabSessions
)

const (
	defaultChartDays = 14
	chartStep        = 7
	minChartDays     = 7
	maxChartDays     = 90
)

// Model is the dashboard state. The Subjects tab uses a table; the other
// tabs scroll in viewports.
type Model struct {
	src stats.Source
	cfg model.StatsConfig
	now func() time.Time

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	subjects  table.Model
	filter    filterForm

	width  int
	height int
}

// NewModel builds a dashboard over src. now is read on every refresh.
func NewModel(src stats.Source, cfg model.StatsConfig, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	if cfg.Days <= 0 {
		cfg.Days = defaultChartDays
	}
	m := &Model{
		src:      src,
		cfg:      cfg,
		now:      now,
		tabs:     []string{"Overview", "Subjects", "Sessions"},
		subjects: newSubjectTable(),
		filter:   newFilterForm(),
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.fillViewports()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filter.open {
			cfg, applied, cmd := m.filter.update(msg, m.cfg)
			if applied {
				m.cfg = cfg
				m.refresh()
				m.resize()
			}
			return m, cmd
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.switchTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.switchTab(1)
		return m, tea.ClearScreen
	case "=", "+":
		m.cfg.Days = min(maxChartDays, m.cfg.Days+chartStep)
		m.refresh()
	case "-":
		m.cfg.Days = max(minChartDays, m.cfg.Days-chartStep)
		m.refresh()
	case "/":
		return m, m.filter.start(m.cfg)
	case "r":
		m.refresh()
	case "g", "home":
		if m.activeTab == tabSubjects {
			m.subjects.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
	case "G", "end":
		if m.activeTab == tabSubjects {
			m.subjects.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
	default:
		var cmd tea.Cmd
		if m.activeTab == tabSubjects {
			m.subjects, cmd = m.subjects.Update(msg)
		} else {
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	header, body, footer := m.heights()
	return strings.Join([]string{
		frame(m.renderHeader(), m.width, header),
		frame(m.renderBody(), m.width, body),
		frame(m.renderFooter(), m.width, footer),
	}, "\n")
}

// heights splits the screen between the tab bar plus filter line, the body
// and the help footer.
func (m *Model) heights() (header, body, footer int) {
	header = lipgloss.Height(activeTabStyle.Render("x")) + 1
	footer = 1
	if !m.filter.open && m.errMsg != "" {
		footer++
	}
	body = max(1, m.height-header-footer)
	return header, body, footer
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, body, _ := m.heights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = body
	}
	m.subjects.SetWidth(m.width)
	m.subjects.SetHeight(max(1, body-1))
	m.filter.setWidth(m.width)
}

func (m *Model) switchTab(delta int) {
	n := len(m.tabs)
	m.activeTab = ((m.activeTab+delta)%n + n) % n
	if m.activeTab == tabSubjects {
		m.subjects.Focus()
	} else {
		m.subjects.Blur()
	}
}

// refresh rebuilds the report from the source with the current filters.
func (m *Model) refresh() {
	m.errMsg = ""
	if name := m.cfg.Subject; name != "" && !m.knownSubject(name) {
		m.errMsg = fmt.Sprintf("unknown subject %q", name)
	}
	m.report = stats.BuildReport(m.src, m.cfg, m.now())
	m.subjects.SetRows(subjectRows(m.report.Summary.Subjects))
	m.fillViewports()
}

// knownSubject accepts registered subjects and removed ones that still have
// sessions in the log.
func (m *Model) knownSubject(name string) bool {
	for _, s := range m.src.Subjects() {
		if s.Name == name {
			return true
		}
	}
	return len(m.src.Sessions(model.SessionFilter{Subject: name, Last: 1})) > 0
}

func (m *Model) fillViewports() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))

	filter := model.SessionFilter{Subject: m.cfg.Subject}
	if m.cfg.LastDays > 0 {
		since := m.now().AddDate(0, 0, -m.cfg.LastDays)
		filter.Since = &since
	}
	m.viewports[tabSessions].SetContent(renderSessionList(m.src.Sessions(filter)))
}
