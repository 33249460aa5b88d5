package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the DD/MM/YYYY HH:MM:SS layout used in the spreadsheet
const TimestampLayout = "02/01/2006 15:04:05"

// ErrMalformedRow is returned for spreadsheet rows that cannot be parsed
var ErrMalformedRow = errors.New("malformed record row")

// PendingResponse is an in-flight survey answer for one recipient
type PendingResponse struct {
	RecipientID     string
	PromptMessageID string
	DisplayName     string
	Mood            *Mood
	Reason          *string
}

// Complete reports whether both the mood and the reason were provided
func (p PendingResponse) Complete() bool {
	return p.Mood != nil && p.Reason != nil
}

// MoodRecord is one completed survey response as persisted
type MoodRecord struct {
	Timestamp   time.Time
	RecipientID string
	DisplayName string
	MoodLabel   string
	Reason      string
}

// NewMoodRecord builds the record for a finalized response
func NewMoodRecord(p PendingResponse, at time.Time) (MoodRecord, error) {
	if !p.Complete() {
		return MoodRecord{}, fmt.Errorf("response for %s is incomplete", p.RecipientID)
	}
	return MoodRecord{
		Timestamp:   at,
		RecipientID: p.RecipientID,
		DisplayName: p.DisplayName,
		MoodLabel:   p.Mood.Label(),
		Reason:      *p.Reason,
	}, nil
}

// Row returns the record in spreadsheet column order
func (r MoodRecord) Row() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		r.RecipientID,
		r.DisplayName,
		r.MoodLabel,
		r.Reason,
	}
}

// Mood returns the scale value of the stored label
func (r MoodRecord) Mood() (Mood, bool) {
	return MoodFromLabel(r.MoodLabel)
}

// ParseMoodRecord parses a spreadsheet row. Timestamps are read in loc.
func ParseMoodRecord(row []string, loc *time.Location) (MoodRecord, error) {
	if len(row) < 4 {
		return MoodRecord{}, fmt.Errorf("%w: %d columns", ErrMalformedRow, len(row))
	}

	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(row[0]), loc)
	if err != nil {
		return MoodRecord{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRow, row[0])
	}

	id := strings.TrimSpace(row[1])
	if id == "" {
		return MoodRecord{}, fmt.Errorf("%w: empty recipient", ErrMalformedRow)
	}

	mood, ok := MoodFromLabel(row[3])
	if !ok {
		return MoodRecord{}, fmt.Errorf("%w: mood %q", ErrMalformedRow, row[3])
	}

	rec := MoodRecord{
		Timestamp:   ts,
		RecipientID: id,
		DisplayName: strings.TrimSpace(row[2]),
		MoodLabel:   mood.Label(),
	}
	if len(row) > 4 {
		rec.Reason = row[4]
	}
	return rec, nil
}
