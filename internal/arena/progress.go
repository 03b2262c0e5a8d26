package arena

// Progress is the percentage of the way from a to next, clamped to [0,100].
// Without a next arena the span is FinalRange.
func Progress(xp int, a Arena, next *Arena) float64 {
	span := FinalRange
	if next != nil {
		span = next.MinXP - a.MinXP
	}
	if span <= 0 {
		return 100
	}
	p := float64(xp-a.MinXP) / float64(span) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ProgressIn computes Progress against the arena following a.
func ProgressIn(xp int, a Arena) float64 {
	if next, ok := Next(a); ok {
		return Progress(xp, a, &next)
	}
	return Progress(xp, a, nil)
}

// BossHP is the boss health bar value for a player with xp fighting in a.
func BossHP(xp int, a Arena) float64 {
	return 100 - ProgressIn(xp, a)
}

// Effective selects the arena a player enters. The ceiling is the lower of the arena
// reached by xp and the highest unlocked id; the last played arena wins when it is
// at or below that ceiling.
func Effective(xp, unlocked, lastPlayed int) Arena {
	ceiling := For(xp)
	if unlocked < ceiling.ID {
		if a, ok := highestAtMost(unlocked); ok {
			ceiling = a
		} else {
			ceiling = First()
		}
	}
	if lastPlayed > 0 && lastPlayed <= ceiling.ID {
		if a, ok := ByID(lastPlayed); ok {
			return a
		}
	}
	return ceiling
}

func highestAtMost(id int) (Arena, bool) {
	var best Arena
	found := false
	for _, a := range arenas {
		if a.ID <= id && (!found || a.ID > best.ID) {
			best = a
			found = true
		}
	}
	return best, found
}

// BossWatch detects, during play, the moment lifetime plus session XP crosses the
// next arena's threshold. It is only armed while fighting in the highest unlocked arena.
type BossWatch struct {
	LifetimeXP int
	Threshold  int
	Active     bool
}

// NewBossWatch arms a watch for a session fought in playing.
func NewBossWatch(lifetimeXP, unlocked int, playing Arena) BossWatch {
	w := BossWatch{LifetimeXP: lifetimeXP}
	if playing.ID != unlocked {
		return w
	}
	next, ok := Next(playing)
	if !ok {
		return w
	}
	w.Threshold = next.MinXP
	w.Active = true
	return w
}

// Defeated reports whether sessionXP on top of the lifetime total reaches the threshold.
func (w BossWatch) Defeated(sessionXP int) bool {
	return w.Active && w.LifetimeXP+sessionXP >= w.Threshold
}

// Remaining is the XP still needed to defeat the boss.
func (w BossWatch) Remaining(sessionXP int) int {
	if !w.Active {
		return 0
	}
	left := w.Threshold - w.LifetimeXP - sessionXP
	if left < 0 {
		return 0
	}
	return left
}
