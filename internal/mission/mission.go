// Package mission turns session counters into proposed daily-mission progress.
package mission

import "github.com/verte-zerg/chordarena/internal/model"

// Counters are collected during one session and reset when the next one starts.
type Counters struct {
	FlatCount  int
	SharpCount int
	MinorCount int
	MaxCombo   int
	PerfectRun int
	SessionXP  int
}

// Proposal is a candidate new value for one mission. Rewards are never issued here.
type Proposal struct {
	MissionID int64
	Goal      string
	Previous  int
	Value     int
	Target    int
	Completed bool
}

// Changed reports whether the proposal moves the mission.
func (p Proposal) Changed() bool {
	return p.Value != p.Previous
}

// Propose computes new progress for every incomplete mission.
// Counting goals accumulate, high-water goals keep the best value,
// and games played always advances by one.
func Propose(c Counters, missions []model.Mission) []Proposal {
	out := make([]Proposal, 0, len(missions))
	for _, m := range missions {
		if m.Completed || m.Claimed {
			continue
		}
		value, ok := next(c, m)
		if !ok {
			continue
		}
		out = append(out, Proposal{
			MissionID: m.ID,
			Goal:      m.Goal,
			Previous:  m.Current,
			Value:     value,
			Target:    m.Target,
			Completed: value >= m.Target,
		})
	}
	return out
}

func next(c Counters, m model.Mission) (int, bool) {
	switch m.Goal {
	case model.GoalFlatCount:
		return m.Current + c.FlatCount, true
	case model.GoalSharpCount:
		return m.Current + c.SharpCount, true
	case model.GoalMinorCount:
		return m.Current + c.MinorCount, true
	case model.GoalMaxCombo:
		return max(m.Current, c.MaxCombo), true
	case model.GoalPerfectRun:
		return max(m.Current, c.PerfectRun), true
	case model.GoalSessionXP:
		return max(m.Current, c.SessionXP), true
	case model.GoalGamesPlayed:
		return m.Current + 1, true
	default:
		return 0, false
	}
}
