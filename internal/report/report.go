// Package report aggregates the last week of mood records into per-user
// summaries and charts.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/davidmdi/moodbot/internal/models"
)

// Window is how far back a weekly report looks
const Window = 7 * 24 * time.Hour

// Point is one answer on a user's timeline
type Point struct {
	At   time.Time
	Mood models.Mood
}

// UserReport is the weekly aggregate for one recipient
type UserReport struct {
	RecipientID string
	DisplayName string
	Points      []Point
	Counts      map[models.Mood]int
	Mean        float64
	Mode        models.Mood
}

// InWindow reports whether ts falls inside the week ending at now.
// The lower bound is inclusive: a record exactly 7 days old still counts.
func InWindow(ts, now time.Time) bool {
	return !ts.Before(now.Add(-Window))
}

// Build groups the records of the trailing week by recipient.
// Reports are ordered by display name, then recipient ID.
func Build(records []models.MoodRecord, now time.Time) []UserReport {
	byUser := make(map[string]*UserReport)
	latest := make(map[string]time.Time)

	for _, rec := range records {
		if !InWindow(rec.Timestamp, now) {
			continue
		}
		mood, ok := rec.Mood()
		if !ok {
			continue
		}

		r, ok := byUser[rec.RecipientID]
		if !ok {
			r = &UserReport{RecipientID: rec.RecipientID}
			byUser[rec.RecipientID] = r
		}
		r.Points = append(r.Points, Point{At: rec.Timestamp, Mood: mood})

		if !rec.Timestamp.Before(latest[rec.RecipientID]) && rec.DisplayName != "" {
			r.DisplayName = rec.DisplayName
			latest[rec.RecipientID] = rec.Timestamp
		}
	}

	reports := make([]UserReport, 0, len(byUser))
	for _, r := range byUser {
		sort.SliceStable(r.Points, func(i, j int) bool {
			return r.Points[i].At.Before(r.Points[j].At)
		})
		if r.DisplayName == "" {
			r.DisplayName = r.RecipientID
		}
		r.Counts, r.Mean, r.Mode = stats(r.Points)
		reports = append(reports, *r)
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].DisplayName != reports[j].DisplayName {
			return reports[i].DisplayName < reports[j].DisplayName
		}
		return reports[i].RecipientID < reports[j].RecipientID
	})
	return reports
}

// stats expects points sorted chronologically. When several moods share the
// highest count, the one answered first wins.
func stats(points []Point) (map[models.Mood]int, float64, models.Mood) {
	counts := make(map[models.Mood]int)
	if len(points) == 0 {
		return counts, 0, 0
	}

	var (
		sum  int
		mode models.Mood
		best int
	)
	for _, p := range points {
		counts[p.Mood]++
		sum += int(p.Mood)
	}
	for _, p := range points {
		if c := counts[p.Mood]; c > best {
			best = c
			mode = p.Mood
		}
	}

	return counts, float64(sum) / float64(len(points)), mode
}

// NearestMood rounds a mean back onto the scale
func NearestMood(mean float64) models.Mood {
	m := models.Mood(math.Round(mean))
	if m < models.MoodVeryUnhappy {
		return models.MoodVeryUnhappy
	}
	if m > models.MoodVeryHappy {
		return models.MoodVeryHappy
	}
	return m
}

// Summary renders the report as a chat message
func (r UserReport) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *Weekly mood report: %s*\n\n", r.DisplayName)
	fmt.Fprintf(&b, "Responses: %d\n", len(r.Points))
	fmt.Fprintf(&b, "Average: %.2f (%s)\n", r.Mean, NearestMood(r.Mean).Label())
	if r.Mode.Valid() {
		fmt.Fprintf(&b, "Most frequent: %s %s\n", r.Mode.Symbol(), r.Mode.Label())
	}

	b.WriteString("\n")
	for i := len(models.MoodScale) - 1; i >= 0; i-- {
		m := models.MoodScale[i]
		if c := r.Counts[m]; c > 0 {
			fmt.Fprintf(&b, "%s %s: %d\n", m.Symbol(), m.Label(), c)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
