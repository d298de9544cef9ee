package statsui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/nextstep/internal/model"
)

const (
	fieldSubject = iota
	fieldLastDays
	fieldChartDays
)

// filterForm edits the dashboard filters. While open it replaces the body.
type filterForm struct {
	inputs []textinput.Model
	focus  int
	err    string
	open   bool
}

func newFilterForm() filterForm {
	prompts := []string{"Subject: ", "Last days: ", "Chart days: "}
	f := filterForm{inputs: make([]textinput.Model, len(prompts))}
	for i, prompt := range prompts {
		in := textinput.New()
		in.Prompt = prompt
		in.Cursor.SetMode(cursor.CursorBlink)
		f.inputs[i] = in
	}
	return f
}

func (f *filterForm) start(cfg model.StatsConfig) tea.Cmd {
	f.open = true
	f.err = ""
	f.inputs[fieldSubject].SetValue(cfg.Subject)
	f.inputs[fieldLastDays].SetValue("")
	if cfg.LastDays > 0 {
		f.inputs[fieldLastDays].SetValue(strconv.Itoa(cfg.LastDays))
	}
	f.inputs[fieldChartDays].SetValue(strconv.Itoa(cfg.Days))
	return f.focusField(fieldSubject)
}

func (f *filterForm) close() {
	f.open = false
	f.err = ""
}

func (f *filterForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-len(f.inputs[i].Prompt)-2)
	}
}

func (f *filterForm) focusField(idx int) tea.Cmd {
	n := len(f.inputs)
	f.focus = (idx%n + n) % n
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
			continue
		}
		f.inputs[i].Blur()
	}
	return cmd
}

// update handles a key press. applied is true once enter produced a valid
// config; the form is closed then.
func (f *filterForm) update(msg tea.KeyMsg, current model.StatsConfig) (cfg model.StatsConfig, applied bool, cmd tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		f.close()
		return current, false, nil
	case tea.KeyEnter:
		cfg, err := f.parse(current.Days)
		if err != nil {
			f.err = err.Error()
			return current, false, nil
		}
		f.close()
		return cfg, true, nil
	case tea.KeyTab, tea.KeyDown:
		return current, false, f.focusField(f.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return current, false, f.focusField(f.focus - 1)
	}
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return current, false, cmd
}

func (f *filterForm) parse(fallbackDays int) (model.StatsConfig, error) {
	lastDays, err := parseCount(f.inputs[fieldLastDays].Value(), "last days")
	if err != nil {
		return model.StatsConfig{}, err
	}
	days, err := parseCount(f.inputs[fieldChartDays].Value(), "chart days")
	if err != nil {
		return model.StatsConfig{}, err
	}
	if days == 0 {
		days = fallbackDays
	}
	if days > maxChartDays {
		return model.StatsConfig{}, fmt.Errorf("chart days must be at most %d", maxChartDays)
	}
	return model.StatsConfig{
		Subject:  strings.TrimSpace(f.inputs[fieldSubject].Value()),
		LastDays: lastDays,
		Days:     days,
	}, nil
}

func (f *filterForm) view() string {
	lines := []string{"Filters (enter to apply, esc to cancel)"}
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

// parseCount accepts a blank field as 0.
func parseCount(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a whole number >= 0", name)
	}
	return n, nil
}
