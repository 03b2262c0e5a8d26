package chord

import (
	"math/rand"
	"strings"
	"time"
)

// OptionCount is the number of choices offered per chord.
const OptionCount = 4

// Generator produces shuffled pools and multiple-choice options.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a Generator seeded with the current time.
func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithRand returns a Generator drawing from rnd.
func NewGeneratorWithRand(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Pool returns a freshly shuffled copy of the level's chord set.
func (g *Generator) Pool(level int) []Chord {
	pool := ForLevel(level)
	g.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// Options returns OptionCount distinct names for c, one of which is c.Name, in random order.
func (g *Generator) Options(c Chord) []string {
	set := newNameSet(OptionCount)
	set.add(c.Name)

	if inverse := NameFor(inverseSymbol(c.Symbol)); inverse != "" && inverse != c.Name {
		set.add(inverse)
	}

	suffix := qualitySuffix(c.Name)
	for _, i := range g.rnd.Perm(len(Roots)) {
		if set.len() >= OptionCount {
			break
		}
		name := Roots[i]
		if suffix != "" {
			name += " " + suffix
		}
		set.add(name)
	}

	if set.len() < OptionCount {
		all := All()
		for _, i := range g.rnd.Perm(len(all)) {
			if set.len() >= OptionCount {
				break
			}
			set.add(all[i].Name)
		}
	}

	out := set.names
	g.Shuffle(out)
	return out
}

// Shuffle reorders options in place.
func (g *Generator) Shuffle(options []string) {
	g.rnd.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
}

// inverseSymbol toggles the trailing minor marker.
func inverseSymbol(symbol string) string {
	if strings.HasSuffix(symbol, "m") {
		return strings.TrimSuffix(symbol, "m")
	}
	return symbol + "m"
}

// qualitySuffix is every word of the name after the root word.
func qualitySuffix(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words[1:], " ")
}

type nameSet struct {
	seen  map[string]struct{}
	names []string
}

func newNameSet(capacity int) *nameSet {
	return &nameSet{seen: make(map[string]struct{}, capacity), names: make([]string, 0, capacity)}
}

func (s *nameSet) add(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
}

func (s *nameSet) len() int {
	return len(s.names)
}
