package stats

import (
	"context"
	"sort"

	"github.com/verte-zerg/chordarena/internal/model"
)

// SessionLister is the part of the store the report reads from.
type SessionLister interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

// ArenaStats aggregates sessions fought in one arena.
type ArenaStats struct {
	ArenaID   int
	Sessions  int
	BestScore int
	XP        int
	Correct   int
	Wrong     int
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions []model.SessionAggregate
	Window   []model.SessionAggregate
	Arenas   []ArenaStats
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st SessionLister, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	window := sessions
	if cfg.CurveWindow > 0 && len(sessions) > cfg.CurveWindow {
		window = sessions[len(sessions)-cfg.CurveWindow:]
	}
	return Report{
		Sessions: sessions,
		Window:   window,
		Arenas:   ByArena(sessions),
	}, nil
}

// ByArena groups sessions per arena, most played first.
func ByArena(sessions []model.SessionAggregate) []ArenaStats {
	idx := map[int]int{}
	var out []ArenaStats
	for _, s := range sessions {
		i, ok := idx[s.ArenaID]
		if !ok {
			i = len(out)
			idx[s.ArenaID] = i
			out = append(out, ArenaStats{ArenaID: s.ArenaID})
		}
		a := &out[i]
		a.Sessions++
		a.BestScore = max(a.BestScore, s.Score)
		a.XP += s.XP
		a.Correct += s.Correct
		a.Wrong += s.Wrong
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions == out[j].Sessions {
			return out[i].ArenaID < out[j].ArenaID
		}
		return out[i].Sessions > out[j].Sessions
	})
	return out
}
