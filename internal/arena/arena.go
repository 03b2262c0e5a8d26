// Package arena maps cumulative experience onto arenas, boss HP and boss-defeat thresholds.
package arena

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

// FinalRange is the XP span used as the progress denominator in the last arena.
const FinalRange = 25000

// InterferenceFrom is the first arena whose boss interferes with the options.
const InterferenceFrom = 3

//go:embed arenas.toml
var arenasTOML string

// Arena is a static progression tier.
type Arena struct {
	ID           int      `toml:"id"`
	MinXP        int      `toml:"min-xp"`
	XPMultiplier int      `toml:"xp-multiplier"`
	Title        string   `toml:"title"`
	Boss         string   `toml:"boss"`
	StoryID      string   `toml:"story-id"`
	Intro        string   `toml:"intro"`
	Victory      string   `toml:"victory"`
	Taunts       []string `toml:"taunts"`
}

type table struct {
	Arena []Arena `toml:"arena"`
}

var arenas = mustLoad(arenasTOML)

func mustLoad(data string) []Arena {
	out, err := parse(data)
	if err != nil {
		panic(err)
	}
	return out
}

func parse(data string) ([]Arena, error) {
	var t table
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode arena table: %w", err)
	}
	if len(t.Arena) == 0 {
		return nil, fmt.Errorf("arena table is empty")
	}
	sort.SliceStable(t.Arena, func(i, j int) bool { return t.Arena[i].MinXP < t.Arena[j].MinXP })
	return t.Arena, nil
}

// All returns the arenas in ascending threshold order.
func All() []Arena {
	out := make([]Arena, len(arenas))
	copy(out, arenas)
	return out
}

// First returns the lowest arena.
func First() Arena {
	return arenas[0]
}

// ByID looks up an arena by id.
func ByID(id int) (Arena, bool) {
	for _, a := range arenas {
		if a.ID == id {
			return a, true
		}
	}
	return Arena{}, false
}

// For returns the arena with the greatest threshold not exceeding xp.
func For(xp int) Arena {
	current := arenas[0]
	for _, a := range arenas {
		if xp >= a.MinXP {
			current = a
		}
	}
	return current
}

// Next returns the arena following a, if any.
func Next(a Arena) (Arena, bool) {
	for i, candidate := range arenas {
		if candidate.ID == a.ID && i+1 < len(arenas) {
			return arenas[i+1], true
		}
	}
	return Arena{}, false
}

// Multiplier is the XP scaling factor, never below 1.
func (a Arena) Multiplier() int {
	if a.XPMultiplier < 1 {
		return 1
	}
	return a.XPMultiplier
}

// Damage is the HP a single boss counterattack removes.
func (a Arena) Damage() int {
	return 2 + a.ID
}

// Cadence is how long the boss waits for a correct answer before counterattacking.
func (a Arena) Cadence() time.Duration {
	switch {
	case a.ID >= 5:
		return 3000 * time.Millisecond
	case a.ID >= 3:
		return 3500 * time.Millisecond
	default:
		return 4000 * time.Millisecond
	}
}

// Interferes reports whether the boss disrupts options after correct answers.
func (a Arena) Interferes() bool {
	return a.ID >= InterferenceFrom
}

// Taunt picks a taunt line by index, wrapping around.
func (a Arena) Taunt(n int) string {
	if len(a.Taunts) == 0 {
		return ""
	}
	if n < 0 {
		n = -n
	}
	return a.Taunts[n%len(a.Taunts)]
}
