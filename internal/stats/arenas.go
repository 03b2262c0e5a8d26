package stats

import (
	"fmt"
	"io"

	"github.com/verte-zerg/chordarena/internal/arena"
)

// RenderArenas prints per-arena aggregates with the arena's title.
func RenderArenas(w io.Writer, rows []ArenaStats) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Arenas"); err != nil {
		return err
	}
	headers := []string{"Arena", "Sessions", "Best", "XP", "Accuracy"}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		name := fmt.Sprintf("#%d", r.ArenaID)
		if a, ok := arena.ByID(r.ArenaID); ok {
			name = fmt.Sprintf("#%d %s", a.ID, a.Title)
		}
		acc, _ := SessionMetrics(r.Correct, r.Wrong, 0)
		table = append(table, []string{
			name,
			fmt.Sprintf("%d", r.Sessions),
			fmt.Sprintf("%d", r.BestScore),
			fmt.Sprintf("%d", r.XP),
			fmt.Sprintf("%.1f%%", acc*100),
		})
	}
	for _, line := range formatTable(headers, table, map[int]bool{1: true, 2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
