// Package chord provides the chord catalog and multiple-choice option generation.
package chord

import "strings"

// MaxLevel is the highest difficulty level.
const MaxLevel = 7

// Chord is a catalog entry. Name is always NameFor(Symbol).
type Chord struct {
	Symbol string
	Name   string
	Level  int
}

// Flat reports whether the cipher carries a flat marker.
func (c Chord) Flat() bool { return !strings.Contains(c.Symbol, "#") && strings.Contains(c.Symbol, "b") }

// Sharp reports whether the cipher carries a sharp marker.
func (c Chord) Sharp() bool { return strings.Contains(c.Symbol, "#") }

// Minor reports whether the chord has minor quality.
func (c Chord) Minor() bool { return isMinor(c.Symbol) }

var rootNames = map[byte]string{
	'C': "Do",
	'D': "Re",
	'E': "Mi",
	'F': "Fa",
	'G': "Sol",
	'A': "La",
	'B': "Si",
}

// Roots lists the base root names in scale order.
var Roots = []string{"Do", "Re", "Mi", "Fa", "Sol", "La", "Si"}

type extension struct {
	token  string
	suffix string
}

// Checked in order; the first match wins.
var extensions = []extension{
	{token: "7M", suffix: " Major Seventh"},
	{token: "7", suffix: " Seventh"},
	{token: "sus2", suffix: " Suspended Second"},
	{token: "sus4", suffix: " Suspended Fourth"},
	{token: "add9", suffix: " Added Ninth"},
	{token: "dim", suffix: " Diminished"},
	{token: "aug", suffix: " Augmented"},
}

var levels = [MaxLevel - 1][]string{
	{"C", "D", "E", "F", "G", "A", "B"},
	{"Cm", "Dm", "Em", "Fm", "Gm", "Am", "Bm"},
	{"C#", "Db", "Eb", "F#", "Gb", "Ab", "Bb", "C#m", "Ebm", "F#m", "G#m", "Bbm"},
	{"C7", "D7", "E7", "F7", "G7", "A7", "B7", "Cm7", "Dm7", "Em7", "Am7"},
	{"C7M", "D7M", "F7M", "G7M", "A7M", "Bb7M", "Eb7M", "Csus2", "Dsus4", "Esus4", "Gsus2", "Asus4"},
	{"Cadd9", "Dadd9", "Gadd9", "Bdim", "C#dim", "F#dim", "Caug", "Eaug", "Abaug", "F#m7", "C#7", "Bbm7"},
}

// NameFor derives the canonical name of a chord cipher.
// Accidentals are detected by character presence anywhere in the symbol, not by position.
// An unknown root letter falls back to the first root.
func NameFor(symbol string) string {
	var b strings.Builder
	root := Roots[0]
	if len(symbol) > 0 {
		if name, ok := rootNames[symbol[0]]; ok {
			root = name
		}
	}
	b.WriteString(root)

	switch {
	case strings.Contains(symbol, "#"):
		b.WriteString(" Sharp")
	case strings.Contains(symbol, "b"):
		b.WriteString(" Flat")
	}

	if isMinor(symbol) {
		b.WriteString(" Minor")
	}

	for _, ext := range extensions {
		if strings.Contains(symbol, ext.token) {
			b.WriteString(ext.suffix)
			break
		}
	}
	return b.String()
}

func isMinor(symbol string) bool {
	return strings.Contains(symbol, "m") && !strings.Contains(symbol, "dim")
}

// ForLevel returns the chord set for a level. Level 7 is a weighted union:
// levels 5 and 6 twice each plus one copy of the whole catalog.
func ForLevel(level int) []Chord {
	if level < 1 {
		level = 1
	}
	if level < MaxLevel {
		return build(level, levels[level-1])
	}
	var out []Chord
	for i := 0; i < 2; i++ {
		out = append(out, build(5, levels[4])...)
		out = append(out, build(6, levels[5])...)
	}
	return append(out, All()...)
}

// All returns every catalog chord once, ordered by level.
func All() []Chord {
	var out []Chord
	for i, symbols := range levels {
		out = append(out, build(i+1, symbols)...)
	}
	return out
}

func build(level int, symbols []string) []Chord {
	out := make([]Chord, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, Chord{Symbol: s, Name: NameFor(s), Level: level})
	}
	return out
}
