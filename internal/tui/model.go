// Package tui provides the Bubble Tea instant-mode interface: pick energy and
// time, walk the ranked suggestions, then rate and log the session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/nextstep/internal/engine"
	"github.com/verte-zerg/nextstep/internal/model"
	"github.com/verte-zerg/nextstep/internal/stats"
)

// Planner is the tracker surface instant mode needs.
type Planner interface {
	Bounds() model.Bounds
	Recommend(now time.Time, req engine.Request) (model.Recommendation, error)
	LogSession(ctx context.Context, s model.Session, confidence *int) (model.Session, error)
	CurrentStreak(now time.Time) int
}

type step int

const (
	stepSetup step = iota
	stepSuggest
	stepRate
	stepDone
)

const (
	fieldMinutes = iota
	fieldEffectiveness
	fieldConfidence
)

var energyLevels = []model.Energy{model.EnergyLow, model.EnergyMedium, model.EnergyHigh}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	subjectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A8CC8")).Bold(true)
	reasonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	numberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Underline(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Options configure instant mode.
type Options struct {
	Energy  model.Energy
	Minutes int
	Now     func() time.Time
	Logger  *zap.Logger
}

// Model implements the Bubble Tea instant-mode UI.
type Model struct {
	planner Planner
	now     func() time.Time
	logger  *zap.Logger

	width  int
	height int

	step        step
	energyIndex int
	minutes     textinput.Model

	walk    []model.Candidate
	walkIdx int
	chosen  model.Candidate

	rateInputs []textinput.Model
	rateIndex  int

	logged  model.Session
	streak  int
	errMsg  string
	noteMsg string
}

// NewModel constructs an instant-mode model.
func NewModel(p Planner, opts Options) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		planner:     p,
		now:         now,
		logger:      logger,
		energyIndex: 1,
	}
	for i, e := range energyLevels {
		if e == opts.Energy {
			m.energyIndex = i
		}
	}
	m.minutes = newInput("Minutes available: ", "30")
	if opts.Minutes > 0 {
		m.minutes.SetValue(strconv.Itoa(opts.Minutes))
	}
	m.minutes.Focus()
	m.streak = p.CurrentStreak(now())
	return m
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = 4
	input.Width = 6
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.step {
		case stepSetup:
			return m.updateSetup(msg)
		case stepSuggest:
			return m.updateSuggest(msg)
		case stepRate:
			return m.updateRate(msg)
		case stepDone:
			return m.updateDone(msg)
		}
	}
	return m, nil
}

func (m *Model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyLeft:
		m.energyIndex = max(0, m.energyIndex-1)
		return m, nil
	case tea.KeyRight:
		m.energyIndex = min(len(energyLevels)-1, m.energyIndex+1)
		return m, nil
	case tea.KeyEnter:
		m.suggest()
		return m, nil
	}
	var cmd tea.Cmd
	m.minutes, cmd = m.minutes.Update(msg)
	return m, cmd
}

func (m *Model) suggest() {
	minutes, err := parseOptional(m.minutes.Value(), 1, 24*60)
	if err != nil || minutes == nil {
		m.errMsg = "minutes must be a number between 1 and 1440"
		return
	}
	req := engine.Request{Energy: energyLevels[m.energyIndex], Minutes: *minutes}
	rec, err := m.planner.Recommend(m.now(), req)
	if err != nil {
		if errors.Is(err, model.ErrNoEligibleSubjects) {
			m.errMsg = "Nothing to suggest right now: " + err.Error()
		} else {
			m.errMsg = err.Error()
		}
		return
	}
	m.errMsg = ""
	m.noteMsg = ""
	m.walk = walkOrder(rec)
	m.walkIdx = 0
	m.step = stepSuggest
}

// walkOrder lists the best candidate first, then the best remaining task for
// each other subject, skipping tasks that need more energy than available.
func walkOrder(rec model.Recommendation) []model.Candidate {
	out := []model.Candidate{rec.Best}
	seen := map[string]struct{}{rec.Best.Subject: {}}
	for _, c := range rec.Ranked {
		if c.Overshoot {
			continue
		}
		if _, ok := seen[c.Subject]; ok {
			continue
		}
		seen[c.Subject] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (m *Model) updateSuggest(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.chosen = m.walk[m.walkIdx]
		m.startRate()
		return m, m.rateInputs[m.rateIndex].Focus()
	case "n", "right", "down":
		if m.walkIdx+1 >= len(m.walk) {
			m.noteMsg = "No more suggestions; adjust your energy or time."
			m.step = stepSetup
			return m, nil
		}
		m.walkIdx++
		return m, nil
	case "b", "left", "up":
		if m.walkIdx > 0 {
			m.walkIdx--
		}
		return m, nil
	case "esc":
		m.step = stepSetup
		return m, nil
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startRate() {
	b := m.planner.Bounds()
	m.rateInputs = []textinput.Model{
		newInput("Minutes studied: ", m.minutes.Value()),
		newInput(fmt.Sprintf("Effectiveness (%d-%d): ", b.Effectiveness.Min, b.Effectiveness.Max), ""),
		newInput(fmt.Sprintf("New confidence (%d-%d, blank keeps): ", b.Confidence.Min, b.Confidence.Max), ""),
	}
	m.rateInputs[fieldMinutes].SetValue(strings.TrimSpace(m.minutes.Value()))
	m.rateIndex = fieldEffectiveness
	m.errMsg = ""
	m.step = stepRate
}

func (m *Model) updateRate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.step = stepSuggest
		m.errMsg = ""
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.focusRate(m.rateIndex + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.focusRate(m.rateIndex - 1)
	case tea.KeyEnter:
		if err := m.logSession(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.step = stepDone
		return m, nil
	}
	var cmd tea.Cmd
	m.rateInputs[m.rateIndex], cmd = m.rateInputs[m.rateIndex].Update(msg)
	return m, cmd
}

func (m *Model) focusRate(idx int) tea.Cmd {
	count := len(m.rateInputs)
	m.rateIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.rateInputs {
		if i == m.rateIndex {
			cmd = m.rateInputs[i].Focus()
		} else {
			m.rateInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) logSession() error {
	b := m.planner.Bounds()
	minutes, err := parseOptional(m.rateInputs[fieldMinutes].Value(), 1, 24*60)
	if err != nil || minutes == nil {
		return fmt.Errorf("minutes must be a number between 1 and 1440")
	}
	eff, err := parseOptional(m.rateInputs[fieldEffectiveness].Value(), b.Effectiveness.Min, b.Effectiveness.Max)
	if err != nil || eff == nil {
		return fmt.Errorf("effectiveness must be between %d and %d", b.Effectiveness.Min, b.Effectiveness.Max)
	}
	conf, err := parseOptional(m.rateInputs[fieldConfidence].Value(), b.Confidence.Min, b.Confidence.Max)
	if err != nil {
		return fmt.Errorf("confidence must be between %d and %d", b.Confidence.Min, b.Confidence.Max)
	}
	now := m.now()
	logged, err := m.planner.LogSession(context.Background(), model.Session{
		Subject:         m.chosen.Subject,
		Task:            m.chosen.Task,
		DurationMinutes: *minutes,
		Effectiveness:   *eff,
		Timestamp:       now,
	}, conf)
	if err != nil {
		m.logger.Warn("failed to log session", zap.Error(err))
		return err
	}
	m.logged = logged
	m.streak = m.planner.CurrentStreak(now)
	return nil
}

func (m *Model) updateDone(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "a":
		m.step = stepSetup
		m.noteMsg = ""
		return m, m.minutes.Focus()
	case "q", "esc":
		return m, tea.Quit
	}
	return m, nil
}

// parseOptional returns nil for blank input.
func parseOptional(raw string, lo, hi int) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	if n < lo || n > hi {
		return nil, fmt.Errorf("%d outside %d-%d", n, lo, hi)
	}
	return &n, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.step {
	case stepSetup:
		body = m.viewSetup()
	case stepSuggest:
		body = m.viewSuggest()
	case stepRate:
		body = m.viewRate()
	case stepDone:
		body = m.viewDone()
	}
	if m.errMsg != "" {
		body += "\n\n" + errorStyle.Render(m.errMsg)
	}
	if m.width == 0 || m.height == 0 {
		return body + "\n\n" + m.renderFooter()
	}
	content := lipgloss.NewStyle().Width(m.contentWidth()).Render(body)
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	page := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footer := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return page + "\n" + footer
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(20, int(float64(m.width)*0.70))
}

func (m *Model) viewSetup() string {
	parts := make([]string, 0, len(energyLevels))
	for i, e := range energyLevels {
		label := e.String()
		if i == m.energyIndex {
			parts = append(parts, selectedStyle.Render(label))
		} else {
			parts = append(parts, mutedStyle.Render(label))
		}
	}
	lines := []string{
		titleStyle.Render("What should I study next?"),
		"",
		"Energy: " + strings.Join(parts, "  "),
		m.minutes.View(),
	}
	if m.noteMsg != "" {
		lines = append(lines, "", mutedStyle.Render(m.noteMsg))
	}
	lines = append(lines, "", mutedStyle.Render("left/right: energy  enter: suggest  esc: quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) viewSuggest() string {
	c := m.walk[m.walkIdx]
	spec, _ := c.Task.Spec()
	lines := []string{
		mutedStyle.Render(fmt.Sprintf("Suggestion %d of %d", m.walkIdx+1, len(m.walk))),
		"",
		subjectStyle.Render(c.Subject) + "  " + titleStyle.Render(c.Task.Label()),
		mutedStyle.Render(fmt.Sprintf("%s energy, at least %d min, score %.2f", spec.Energy, spec.MinMinutes, c.Score)),
		"",
	}
	width := m.contentWidth()
	for _, reason := range engine.Rationale(c) {
		lines = append(lines, wrapReason(reason, width, reasonStyle, numberStyle))
	}
	lines = append(lines, "", mutedStyle.Render("y/enter: study this  n: next  b: back  esc: change inputs"))
	return strings.Join(lines, "\n")
}

func (m *Model) viewRate() string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("How did %s go?", m.chosen.Subject)),
		mutedStyle.Render(m.chosen.Task.Label()),
		"",
	}
	for _, input := range m.rateInputs {
		lines = append(lines, input.View())
	}
	lines = append(lines, "", mutedStyle.Render("tab: next field  enter: log session  esc: back"))
	return strings.Join(lines, "\n")
}

func (m *Model) viewDone() string {
	lines := []string{
		titleStyle.Render("Session logged."),
		fmt.Sprintf("%s, %s for %s (effectiveness %d)",
			m.logged.Subject, m.logged.Task.Label(), stats.FormatMinutes(m.logged.DurationMinutes), m.logged.Effectiveness),
		"",
		mutedStyle.Render("enter: plan another  q: quit"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Streak %s", streakLabel(m.streak))}
	segments = append(segments, fmt.Sprintf("Energy %s", energyLevels[m.energyIndex]))
	if v := strings.TrimSpace(m.minutes.Value()); v != "" {
		segments = append(segments, fmt.Sprintf("Time %sm", v))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func streakLabel(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
