// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/chordarena/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes accuracy (0-1) and answers per minute for a session.
func SessionMetrics(correct, wrong int, durationMs int64) (accuracy, apm float64) {
	if total := correct + wrong; total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	if durationMs > 0 {
		apm = float64(correct+wrong) / (float64(durationMs) / 60000.0)
	}
	return accuracy, apm
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// RenderSummary prints lifetime totals for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalScore, totalXP, bestScore, bestCombo, correct, wrong int
	for _, s := range sessions {
		totalScore += s.Score
		totalXP += s.XP
		bestScore = max(bestScore, s.Score)
		bestCombo = max(bestCombo, s.MaxCombo)
		correct += s.Correct
		wrong += s.Wrong
	}
	acc, _ := SessionMetrics(correct, wrong, 0)
	scores := make([]float64, len(sessions))
	for i, s := range sessions {
		scores[i] = float64(s.Score)
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Avg Score: %.1f", float64(totalScore)/float64(len(sessions))),
		fmt.Sprintf("Best Score: %d", bestScore),
		fmt.Sprintf("Best Combo: %d", bestCombo),
		fmt.Sprintf("Total XP: %d", totalXP),
		fmt.Sprintf("Accuracy: %.2f%%", acc*100),
		fmt.Sprintf("Scores: %s", Sparkline(scores)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints one row per session, newest last.
func RenderHistory(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	headers := []string{"Ended", "Arena", "Score", "Level", "XP", "Accuracy", "APM", "Combo"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		acc, apm := SessionMetrics(s.Correct, s.Wrong, s.DurationMs)
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.ArenaID),
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%d", s.Level),
			fmt.Sprintf("%d", s.XP),
			fmt.Sprintf("%.1f%%", acc*100),
			fmt.Sprintf("%.1f", apm),
			fmt.Sprintf("%d", s.MaxCombo),
		})
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves plots moving averages of score and accuracy.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window, width int, color bool) error {
	if len(sessions) < 2 {
		return nil
	}
	scores := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		acc, _ := SessionMetrics(s.Correct, s.Wrong, s.DurationMs)
		scores[i] = float64(s.Score)
		accs[i] = acc * 100
	}
	return Plot(w, "Learning Curves", []Series{
		{Name: "Score", Values: MovingAverage(scores, window)},
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
	}, width, 0, color)
}
