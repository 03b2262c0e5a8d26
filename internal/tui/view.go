package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/chordarena/internal/arena"
	"github.com/verte-zerg/chordarena/internal/session"
)

const (
	barWidth     = 20
	optionWidth  = 28
	contentRatio = 0.70
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	chordStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0")).Padding(1, 4).Border(lipgloss.RoundedBorder())
	optionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	wrongStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	bossBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B37FEB"))
	hpBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF7A45"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.screen {
	case screenLoading:
		content = mutedStyle.Render("Loading profile...")
	case screenStory:
		content = m.renderStory()
	case screenPlay:
		content = m.renderPlay()
	case screenVictory:
		content = m.renderVictory()
	case screenResult:
		content = m.renderResult()
	}
	if m.notice != "" {
		content += "\n\n" + noticeStyle.Render(m.notice)
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	contentWidth := max(int(float64(m.width)*contentRatio), 1)
	content = lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(content)
	footer := footerStyle.Render(m.help.View(m.keys))
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderStory() string {
	a := m.story
	return strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("Arena %d: %s", a.ID, a.Title)),
		"",
		a.Intro,
		"",
		mutedStyle.Render("Boss: " + a.Boss),
		mutedStyle.Render("Press enter to begin."),
	}, "\n")
}

func (m *Model) renderVictory() string {
	a := m.victory
	lines := []string{
		titleStyle.Render(a.Boss + " defeated!"),
		"",
		a.Victory,
		"",
	}
	if next, ok := arena.Next(a); ok {
		lines = append(lines, mutedStyle.Render("Press enter to enter "+next.Title+"."))
	} else {
		lines = append(lines, mutedStyle.Render("Press enter to keep playing."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderPlay() string {
	a := m.engine.Arena()
	s := m.engine.State()

	bossHP := arena.BossHP(m.profile.TotalXP+s.SessionXP, a)
	bossLine := fmt.Sprintf("Boss %s %3.0f%%", bossBarStyle.Render(bar(bossHP, 100)), bossHP)
	if w := m.engine.Watch(); w.Active {
		bossLine += mutedStyle.Render(fmt.Sprintf("  %d XP to victory", w.Remaining(s.SessionXP)))
	}
	header := []string{
		titleStyle.Render(fmt.Sprintf("%s  vs  %s", a.Title, a.Boss)),
		bossLine,
		fmt.Sprintf("HP   %s %3d", hpBarStyle.Render(bar(float64(s.HP), session.MaxHP)), s.HP),
		fmt.Sprintf("Time %s  Score %d  Level %d  Combo %d", formatClock(s.TimeRemaining), s.Score, s.Level, s.Combo),
	}
	if s.SpecialCharged {
		header = append(header, correctStyle.Render("Special attack ready: next hit deals double XP"))
	}

	lines := append(header, "", chordStyle.Render(m.engine.Current().Symbol), "")
	for i, opt := range s.Options {
		lines = append(lines, m.renderOption(i, opt, s.Feedback))
	}
	if s.Feedback.Kind == session.FeedbackWrong {
		lines = append(lines, "", wrongStyle.Render("It was "+s.Feedback.Expected))
	}
	if m.taunt != "" {
		lines = append(lines, "", mutedStyle.Render(a.Boss+": \""+m.taunt+"\""))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderOption(i int, name string, fb session.Feedback) string {
	label := runewidth.FillRight(runewidth.Truncate(name, optionWidth, "…"), optionWidth)
	line := fmt.Sprintf("%d  %s", i+1, label)
	switch {
	case fb.Kind == session.FeedbackCorrect && fb.Slot == i:
		return correctStyle.Render(line)
	case fb.Kind == session.FeedbackWrong && fb.Slot == i:
		return wrongStyle.Render(line)
	case fb.Kind == session.FeedbackWrong && name == fb.Expected:
		return correctStyle.Render(line)
	}
	return optionStyle.Render(line)
}

func (m *Model) renderResult() string {
	s := m.summary
	lines := []string{
		titleStyle.Render("Session over: " + endReasonText(s.Reason)),
		"",
		fmt.Sprintf("Score %d  Level %d  XP %d", s.Score, s.Level, s.XP),
		fmt.Sprintf("Correct %d  Wrong %d  Best combo %d", s.Correct, s.Wrong, s.MaxCombo),
	}
	if s.BossesDefeated > 0 {
		lines = append(lines, fmt.Sprintf("Bosses defeated %d", s.BossesDefeated))
	}
	switch {
	case m.outcome == nil && m.quitting:
		lines = append(lines, "", mutedStyle.Render("Saving session before exit..."))
	case m.outcome == nil:
		lines = append(lines, "", mutedStyle.Render("Syncing..."))
	default:
		ack := m.outcome.Ack
		if ack.Accepted {
			lines = append(lines, "", fmt.Sprintf("Rank #%d", ack.Rank))
		}
		for _, ms := range m.outcome.Missions {
			mark := "[ ]"
			if ms.Completed {
				mark = "[x]"
			}
			lines = append(lines, fmt.Sprintf("%s %s %d/%d", mark, ms.Title, min(ms.Current, ms.Target), ms.Target))
		}
		if n := len(m.outcome.Completed); n > 0 {
			lines = append(lines, correctStyle.Render(fmt.Sprintf("%d mission(s) ready to claim: chordarena missions --claim <id>", n)))
		}
	}
	if m.quitting {
		lines = append(lines, "", mutedStyle.Render("Press ctrl+c again to quit without waiting."))
	} else {
		lines = append(lines, "", mutedStyle.Render("Press enter to play again or esc to quit."))
	}
	return strings.Join(lines, "\n")
}

func endReasonText(r session.EndReason) string {
	switch r {
	case session.EndTimeUp:
		return "time up"
	case session.EndHPDepleted:
		return "out of HP"
	case session.EndAbandoned:
		return "abandoned"
	default:
		return "finished"
	}
}

// bar renders value/total as a fixed-width block bar.
func bar(value, total float64) string {
	if total <= 0 {
		return strings.Repeat("░", barWidth)
	}
	filled := int(value / total * barWidth)
	filled = min(max(filled, 0), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
