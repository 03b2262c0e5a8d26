package statsui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/chordarena/internal/model"
)

// filterField is one input of the settings form; apply parses its value into cfg.
type filterField struct {
	input textinput.Model
	apply func(value string, cfg *model.StatsConfig) error
}

type filterForm struct {
	fields []filterField
	focus  int
	err    string
}

func newFilterForm(cfg model.StatsConfig, width int) *filterForm {
	since := ""
	if cfg.Since != nil {
		since = cfg.Since.Format(dateLayout)
	}
	last := ""
	if cfg.Last > 0 {
		last = strconv.Itoa(cfg.Last)
	}
	f := &filterForm{fields: []filterField{
		{input: newInput("Since (YYYY-MM-DD): ", since), apply: applySince},
		{input: newInput("Last: ", last), apply: applyLast},
		{input: newInput("Curve window: ", strconv.Itoa(cfg.CurveWindow)), apply: applyWindow},
	}}
	f.resize(width)
	return f
}

func newInput(prompt, value string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Cursor.SetMode(cursor.CursorBlink)
	input.SetValue(value)
	return input
}

func (f *filterForm) resize(width int) {
	for i := range f.fields {
		f.fields[i].input.Width = max(10, width-lipgloss.Width(f.fields[i].input.Prompt)-2)
	}
}

func (f *filterForm) focusField(idx int) tea.Cmd {
	n := len(f.fields)
	f.focus = (idx%n + n) % n
	var cmd tea.Cmd
	for i := range f.fields {
		if i == f.focus {
			cmd = f.fields[i].input.Focus()
			continue
		}
		f.fields[i].input.Blur()
	}
	return cmd
}

func (f *filterForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

// submit builds a fresh config from the form. The device filter is not editable here.
func (f *filterForm) submit(base model.StatsConfig) (model.StatsConfig, error) {
	cfg := model.StatsConfig{DeviceID: base.DeviceID}
	for _, field := range f.fields {
		if err := field.apply(strings.TrimSpace(field.input.Value()), &cfg); err != nil {
			return base, err
		}
	}
	return cfg, nil
}

func (f *filterForm) view() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, field := range f.fields {
		lines = append(lines, field.input.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

func applySince(value string, cfg *model.StatsConfig) error {
	if value == "" {
		return nil
	}
	since, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return errors.New("invalid since date (expected YYYY-MM-DD)")
	}
	cfg.Since = &since
	return nil
}

func applyLast(value string, cfg *model.StatsConfig) error {
	n, err := parseAtLeast(value, 0)
	if err != nil {
		return errors.New("invalid last value (use 0 or a positive integer)")
	}
	cfg.Last = n
	return nil
}

func applyWindow(value string, cfg *model.StatsConfig) error {
	n, err := parseAtLeast(value, 1)
	if err != nil {
		return errors.New("invalid curve window (use an integer >= 1)")
	}
	cfg.CurveWindow = n
	return nil
}

// parseAtLeast parses a non-empty value as an integer >= lo. Empty means 0.
func parseAtLeast(value string, lo int) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < lo {
		return 0, errors.New("out of range")
	}
	return n, nil
}
