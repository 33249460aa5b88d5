package models

import (
	"fmt"
	"strings"
)

// Mood is a value on the fixed five-point survey scale
type Mood int

const (
	MoodVeryUnhappy Mood = iota + 1
	MoodUnhappy
	MoodNeutral
	MoodHappy
	MoodVeryHappy
)

// MoodScale lists every mood in ascending order
var MoodScale = []Mood{MoodVeryUnhappy, MoodUnhappy, MoodNeutral, MoodHappy, MoodVeryHappy}

var moodLabels = map[Mood]string{
	MoodVeryUnhappy: "Very Unhappy",
	MoodUnhappy:     "Unhappy",
	MoodNeutral:     "Neutral",
	MoodHappy:       "Happy",
	MoodVeryHappy:   "Very Happy",
}

var moodSymbols = map[Mood]string{
	MoodVeryUnhappy: "😢",
	MoodUnhappy:     "😕",
	MoodNeutral:     "😐",
	MoodHappy:       "🙂",
	MoodVeryHappy:   "😄",
}

// Valid reports whether m is on the scale
func (m Mood) Valid() bool {
	return m >= MoodVeryUnhappy && m <= MoodVeryHappy
}

// Label returns the display label of the mood
func (m Mood) Label() string {
	return moodLabels[m]
}

// Symbol returns the emoji used to select the mood
func (m Mood) Symbol() string {
	return moodSymbols[m]
}

func (m Mood) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mood(%d)", int(m))
	}
	return m.Label()
}

// MoodFromSymbol maps a reaction emoji to its mood.
// The emoji variation selector is ignored so "🙂️" matches "🙂".
func MoodFromSymbol(symbol string) (Mood, bool) {
	symbol = strings.ReplaceAll(strings.TrimSpace(symbol), "\uFE0F", "")
	for _, m := range MoodScale {
		if moodSymbols[m] == symbol {
			return m, true
		}
	}
	return 0, false
}

// MoodFromLabel maps a stored label back to its mood (case-insensitive)
func MoodFromLabel(label string) (Mood, bool) {
	label = strings.TrimSpace(label)
	for _, m := range MoodScale {
		if strings.EqualFold(moodLabels[m], label) {
			return m, true
		}
	}
	return 0, false
}

// MoodPrompt renders the scale as one option per line, best mood first
func MoodPrompt() string {
	var b strings.Builder
	for i := len(MoodScale) - 1; i >= 0; i-- {
		m := MoodScale[i]
		fmt.Fprintf(&b, "%s  %s\n", m.Symbol(), m.Label())
	}
	return strings.TrimRight(b.String(), "\n")
}
