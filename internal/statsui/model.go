// Package statsui is the interactive stats browser: an overview of recent sessions,
// a per-arena table and the session history.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/chordarena/internal/arena"
	"github.com/verte-zerg/chordarena/internal/model"
	"github.com/verte-zerg/chordarena/internal/stats"
)

type tab int

const (
	tabOverview tab = iota
	tabArenas
	tabHistory
	tabCount
)

func (t tab) String() string {
	return [...]string{"Overview", "Arenas", "History"}[t]
}

const (
	loadTimeout = 5 * time.Second
	windowStep  = 5
	dateLayout  = "2006-01-02"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			Foreground(lipgloss.Color("#B0B0B0")).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	activeTabStyle = tabStyle.
			Bold(true).
			Foreground(lipgloss.Color("#F0F0F0")).
			BorderForeground(lipgloss.Color("#B37FEB"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	lister  stats.SessionLister
	cfg     model.StatsConfig
	report  stats.Report
	loadErr error

	active   tab
	overview viewport.Model
	arenas   table.Model
	history  table.Model

	width  int
	height int

	// form is non-nil while the settings form is open.
	form *filterForm
}

// NewModel constructs a stats UI model reading sessions from lister.
func NewModel(lister stats.SessionLister, cfg model.StatsConfig) *Model {
	m := &Model{
		lister:   lister,
		cfg:      cfg,
		overview: viewport.New(0, 0),
		arenas:   newTable(arenaColumns()),
		history:  newTable(historyColumns()),
	}
	m.reload()
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
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (m.form == nil && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.form != nil {
			return m, m.updateForm(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "left", "h":
		m.switchTab(-1)
		return tea.ClearScreen
	case "right", "l":
		m.switchTab(1)
		return tea.ClearScreen
	case "=":
		m.cfg.CurveWindow = stepWindow(m.cfg.CurveWindow, 1)
		m.reload()
	case "-":
		m.cfg.CurveWindow = stepWindow(m.cfg.CurveWindow, -1)
		m.reload()
	case "/":
		m.form = newFilterForm(m.cfg, m.width)
		m.resize()
		return m.form.focusField(0)
	default:
		return m.scroll(msg)
	}
	return nil
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	f := m.form
	switch msg.Type {
	case tea.KeyEsc:
		m.form = nil
		m.resize()
		return nil
	case tea.KeyEnter:
		cfg, err := f.submit(m.cfg)
		if err != nil {
			f.err = err.Error()
			return nil
		}
		m.form = nil
		m.cfg = cfg
		m.reload()
		return nil
	case tea.KeyTab:
		return f.focusField(f.focus + 1)
	case tea.KeyShiftTab:
		return f.focusField(f.focus - 1)
	}
	return f.update(msg)
}

func (m *Model) scroll(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.active {
	case tabArenas:
		m.arenas, cmd = m.arenas.Update(msg)
	case tabHistory:
		m.history, cmd = m.history.Update(msg)
	default:
		switch msg.String() {
		case "g", "home":
			m.overview.GotoTop()
		case "G", "end":
			m.overview.GotoBottom()
		default:
			m.overview, cmd = m.overview.Update(msg)
		}
	}
	return cmd
}

func (m *Model) switchTab(delta int) {
	m.active = (m.active + tab(delta) + tabCount) % tabCount
	m.arenas.Blur()
	m.history.Blur()
	switch m.active {
	case tabArenas:
		m.arenas.Focus()
	case tabHistory:
		m.history.Focus()
	}
}

// reload queries the sessions for the current settings and rebuilds every tab.
func (m *Model) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	report, err := stats.BuildReport(ctx, m.lister, m.cfg)
	m.loadErr = err
	if err == nil {
		m.report = report
		m.arenas.SetRows(arenaRows(report.Arenas))
		m.history.SetRows(historyRows(report.Sessions))
	}
	m.resize()
}

func (m *Model) resize() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	height := m.bodyHeight()
	m.overview.Width = width
	m.overview.Height = height
	for _, t := range []*table.Model{&m.arenas, &m.history} {
		t.SetWidth(width)
		t.SetHeight(max(1, height-1))
	}
	if m.form != nil {
		m.form.resize(width)
	}
	m.overview.SetContent(m.overviewContent(width))
}

func (m *Model) bodyHeight() int {
	chrome := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderFooter())
	return max(m.height-chrome, 1)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	return strings.Join([]string{
		fit(header, m.width, lipgloss.Height(header)),
		fit(m.renderBody(), m.width, m.bodyHeight()),
		fit(footer, m.width, lipgloss.Height(footer)),
	}, "\n")
}

func (m *Model) renderHeader() string {
	tabs := make([]string, 0, tabCount)
	for t := tabOverview; t < tabCount; t++ {
		style := tabStyle
		if t == m.active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" + m.renderSettings()
}

func (m *Model) renderSettings() string {
	device, since, last := "all", "any", "all"
	if m.cfg.DeviceID != "" {
		device = m.cfg.DeviceID
	}
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(dateLayout)
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	line := fmt.Sprintf("Settings: device=%s  since=%s  last=%s  window=%d", device, since, last, m.cfg.CurveWindow)
	if m.width > 0 {
		line = runewidth.Truncate(line, m.width, "...")
	}
	return mutedStyle.Render(line)
}

func (m *Model) renderFooter() string {
	if m.form != nil {
		return mutedStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := mutedStyle.Render("Tabs: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q")
	if m.loadErr != nil {
		return help + "\n" + errorStyle.Render(m.loadErr.Error())
	}
	return help
}

func (m *Model) renderBody() string {
	switch {
	case m.form != nil:
		return m.form.view()
	case m.active == tabOverview:
		return m.overview.View()
	case len(m.report.Sessions) == 0:
		return "No sessions found."
	case m.active == tabArenas:
		return tableTextStyle.Render(m.arenas.View())
	default:
		return tableTextStyle.Render(m.history.View())
	}
}

func (m *Model) overviewContent(width int) string {
	switch {
	case m.loadErr != nil:
		return "Failed to load stats."
	case len(m.report.Sessions) == 0:
		return "No sessions found."
	}
	sessions := m.report.Sessions
	var buf bytes.Buffer
	var curves string
	if err := stats.RenderCurves(&buf, sessions, m.cfg.CurveWindow, stats.PlotWidthFor(width), true); err != nil {
		curves = fmt.Sprintf("Failed to render curves: %v", err)
	} else {
		curves = strings.TrimRight(buf.String(), "\n")
	}
	return strings.TrimRight(summaryCards(sessions, width)+"\n\n"+curves, "\n")
}

// summaryCards lays six metric cards out three per row, or stacked on narrow terminals.
func summaryCards(sessions []model.SessionAggregate, width int) string {
	var totalScore, totalXP, bestScore, bestCombo, correct, wrong int
	for _, s := range sessions {
		totalScore += s.Score
		totalXP += s.XP
		bestScore = max(bestScore, s.Score)
		bestCombo = max(bestCombo, s.MaxCombo)
		correct += s.Correct
		wrong += s.Wrong
	}
	acc, _ := stats.SessionMetrics(correct, wrong, 0)
	metrics := [][2]string{
		{"Sessions", strconv.Itoa(len(sessions))},
		{"Avg Score", fmt.Sprintf("%.1f", float64(totalScore)/float64(len(sessions)))},
		{"Best Score", strconv.Itoa(bestScore)},
		{"Best Combo", strconv.Itoa(bestCombo)},
		{"Total XP", strconv.Itoa(totalXP)},
		{"Accuracy", fmt.Sprintf("%.1f%%", acc*100)},
	}
	cards := make([]string, len(metrics))
	for i, mt := range metrics {
		cards[i] = cardStyle.Render(cardLabelStyle.Render(mt[0]) + "\n" + cardValueStyle.Render(mt[1]))
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	perRow := 3
	rows := make([]string, 0, len(cards)/perRow)
	for i := 0; i < len(cards); i += perRow {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:min(i+perRow, len(cards))]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func newTable(cols []table.Column) table.Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		Foreground(lipgloss.Color("#C0C0C0")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	return table.New(
		table.WithColumns(cols),
		table.WithHeight(1),
		table.WithStyles(styles),
	)
}

func arenaColumns() []table.Column {
	return []table.Column{
		{Title: "Arena", Width: 24},
		{Title: "Sessions", Width: 8},
		{Title: "Best", Width: 6},
		{Title: "XP", Width: 8},
		{Title: "Accuracy", Width: 9},
	}
}

func arenaRows(rows []stats.ArenaStats) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		name := fmt.Sprintf("#%d", r.ArenaID)
		if a, ok := arena.ByID(r.ArenaID); ok {
			name = fmt.Sprintf("#%d %s", a.ID, a.Title)
		}
		acc, _ := stats.SessionMetrics(r.Correct, r.Wrong, 0)
		out = append(out, table.Row{
			name,
			strconv.Itoa(r.Sessions),
			strconv.Itoa(r.BestScore),
			strconv.Itoa(r.XP),
			fmt.Sprintf("%.1f%%", acc*100),
		})
	}
	return out
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Ended", Width: 16},
		{Title: "Arena", Width: 5},
		{Title: "Score", Width: 6},
		{Title: "Level", Width: 5},
		{Title: "XP", Width: 6},
		{Title: "Combo", Width: 5},
		{Title: "Accuracy", Width: 9},
		{Title: "APM", Width: 6},
	}
}

// historyRows lists sessions newest first.
func historyRows(sessions []model.SessionAggregate) []table.Row {
	out := make([]table.Row, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		acc, apm := stats.SessionMetrics(s.Correct, s.Wrong, s.DurationMs)
		out = append(out, table.Row{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(s.ArenaID),
			strconv.Itoa(s.Score),
			strconv.Itoa(s.Level),
			strconv.Itoa(s.XP),
			strconv.Itoa(s.MaxCombo),
			fmt.Sprintf("%.1f%%", acc*100),
			fmt.Sprintf("%.1f", apm),
		})
	}
	return out
}

// stepWindow moves the curve window to the neighbouring multiple of windowStep,
// never below 1.
func stepWindow(n, dir int) int {
	if dir > 0 {
		return (n/windowStep + 1) * windowStep
	}
	return max((n-1)/windowStep*windowStep, 1)
}

// fit pads or crops s to exactly height lines of at least width cells.
func fit(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(width, lipgloss.Left, line)
	}
	return strings.Join(lines, "\n")
}
