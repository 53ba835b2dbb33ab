package tone

import (
	"fmt"
	"strings"
)

// Note is one of the seven solfège names of the C major scale in octave 4.
type Note string

const (
	Do  Note = "do"
	Re  Note = "re"
	Mi  Note = "mi"
	Fa  Note = "fa"
	Sol Note = "sol"
	La  Note = "la"
	Si  Note = "si"
)

var noteOrder = []Note{Do, Re, Mi, Fa, Sol, La, Si}

// Fundamental frequencies in Hz (C4..B4).
var noteFrequencies = map[Note]float64{
	Do:  261.63,
	Re:  293.66,
	Mi:  329.63,
	Fa:  349.23,
	Sol: 392.00,
	La:  440.00,
	Si:  493.88,
}

// Notes returns all notes in ascending pitch order.
func Notes() []Note {
	return append([]Note(nil), noteOrder...)
}

// ParseNote resolves a note name, ignoring case and surrounding space.
func ParseNote(s string) (Note, error) {
	n := Note(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNote, s)
	}
	return n, nil
}

// Valid reports whether n is one of the seven known notes.
func (n Note) Valid() bool {
	_, ok := noteFrequencies[n]
	return ok
}

// Frequency returns the fundamental in Hz, or 0 for an unknown note.
func (n Note) Frequency() float64 {
	return noteFrequencies[n]
}

// Index returns the scale degree (do=0 .. si=6), or -1 for an unknown note.
func (n Note) Index() int {
	for i, m := range noteOrder {
		if m == n {
			return i
		}
	}
	return -1
}

// Interval returns the signed number of scale degrees from a to b.
func Interval(a, b Note) int {
	return b.Index() - a.Index()
}

func (n Note) String() string { return string(n) }
