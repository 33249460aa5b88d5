package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoodScale_SymbolLabelBijection(t *testing.T) {
	t.Parallel()

	seenSymbols := make(map[string]bool)
	seenLabels := make(map[string]bool)

	for i, m := range MoodScale {
		assert.Equal(t, i+1, int(m), "scale values are 1..5 in order")
		require.True(t, m.Valid())

		assert.False(t, seenSymbols[m.Symbol()], "duplicate symbol %s", m.Symbol())
		assert.False(t, seenLabels[m.Label()], "duplicate label %s", m.Label())
		seenSymbols[m.Symbol()] = true
		seenLabels[m.Label()] = true

		bySymbol, ok := MoodFromSymbol(m.Symbol())
		require.True(t, ok)
		assert.Equal(t, m, bySymbol)

		byLabel, ok := MoodFromLabel(m.Label())
		require.True(t, ok)
		assert.Equal(t, m, byLabel)
	}
}

func TestMoodFromSymbol_IgnoresVariationSelector(t *testing.T) {
	t.Parallel()

	m, ok := MoodFromSymbol("🙂️")
	require.True(t, ok)
	assert.Equal(t, MoodHappy, m)

	_, ok = MoodFromSymbol("👍")
	assert.False(t, ok)
}

func TestMoodFromLabel_CaseInsensitive(t *testing.T) {
	t.Parallel()

	m, ok := MoodFromLabel("  very happy ")
	require.True(t, ok)
	assert.Equal(t, MoodVeryHappy, m)

	_, ok = MoodFromLabel("Ecstatic")
	assert.False(t, ok)
}

func TestMood_StringOutOfRange(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mood(9)", Mood(9).String())
	assert.Equal(t, "Neutral", MoodNeutral.String())
}

func TestMoodPrompt_ListsEveryOption(t *testing.T) {
	t.Parallel()

	prompt := MoodPrompt()
	for _, m := range MoodScale {
		assert.Contains(t, prompt, m.Symbol()+"  "+m.Label())
	}
}

func TestMoodRecord_RowRoundTrip(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*3600)
	mood := MoodHappy
	reason := "great tournament"
	pending := PendingResponse{
		RecipientID: "5511999990000@s.whatsapp.net",
		DisplayName: "Ana",
		Mood:        &mood,
		Reason:      &reason,
	}

	at := time.Date(2026, 3, 9, 14, 5, 7, 0, loc)
	rec, err := NewMoodRecord(pending, at)
	require.NoError(t, err)

	row := rec.Row()
	assert.Equal(t, []string{"09/03/2026 14:05:07", pending.RecipientID, "Ana", "Happy", "great tournament"}, row)

	parsed, err := ParseMoodRecord(row, loc)
	require.NoError(t, err)
	assert.True(t, parsed.Timestamp.Equal(at))
	assert.Equal(t, rec.MoodLabel, parsed.MoodLabel)
	assert.Equal(t, rec.Reason, parsed.Reason)
}

func TestNewMoodRecord_Incomplete(t *testing.T) {
	t.Parallel()

	mood := MoodNeutral
	_, err := NewMoodRecord(PendingResponse{RecipientID: "x", Mood: &mood}, time.Now())
	assert.Error(t, err)
}

func TestParseMoodRecord_Malformed(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"short row":     {"09/03/2026 14:05:07", "id"},
		"bad timestamp": {"2026-03-09", "id", "Ana", "Happy", ""},
		"empty id":      {"09/03/2026 14:05:07", " ", "Ana", "Happy", ""},
		"unknown mood":  {"09/03/2026 14:05:07", "id", "Ana", "Ecstatic", ""},
		"header row":    {"Timestamp", "Recipient", "Name", "Mood", "Reason"},
	}

	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMoodRecord(row, time.UTC)
			assert.True(t, errors.Is(err, ErrMalformedRow), "got %v", err)
		})
	}
}

func TestParseMoodRecord_MissingReasonColumn(t *testing.T) {
	t.Parallel()

	rec, err := ParseMoodRecord([]string{"09/03/2026 14:05:07", "id", "Ana", "Unhappy"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "", rec.Reason)
	m, ok := rec.Mood()
	require.True(t, ok)
	assert.Equal(t, MoodUnhappy, m)
}
