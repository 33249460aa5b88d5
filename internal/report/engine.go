package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidmdi/moodbot/internal/models"
)

// RecordSource reads back every persisted row
type RecordSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Publisher posts to a chat
type Publisher interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
	SendImage(ctx context.Context, chatID string, png []byte, caption string) error
}

// Result counts what one report run did
type Result struct {
	Records int
	Skipped int
	Users   int
	Failed  int
}

// Engine posts the weekly reports to the operations chat
type Engine struct {
	source  RecordSource
	out     Publisher
	opsChat string
	loc     *time.Location
	now     func() time.Time
	render  func(UserReport) ([]byte, error)
	log     zerolog.Logger
}

// NewEngine creates a reporting engine. Timestamps are read in loc.
func NewEngine(source RecordSource, out Publisher, opsChat string, loc *time.Location, log zerolog.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		source:  source,
		out:     out,
		opsChat: opsChat,
		loc:     loc,
		now:     time.Now,
		render:  RenderChart,
		log:     log.With().Str("component", "Report").Logger(),
	}
}

// ParseRows converts spreadsheet rows to records, skipping rows that do not
// parse (including the header row)
func ParseRows(rows [][]string, loc *time.Location) ([]models.MoodRecord, int) {
	records := make([]models.MoodRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		rec, err := models.ParseMoodRecord(row, loc)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// Run builds and posts the report for the week ending now
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var res Result

	rows, err := e.source.Rows(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("Cannot read records, skipping report")
		return res, fmt.Errorf("failed to read records: %w", err)
	}

	records, skipped := ParseRows(rows, e.loc)
	res.Records = len(records)
	res.Skipped = skipped
	if skipped > 0 {
		e.log.Debug().Int("skipped", skipped).Msg("Skipped unparseable rows")
	}

	reports := Build(records, e.now().In(e.loc))
	res.Users = len(reports)

	if len(reports) == 0 {
		if _, err := e.out.SendText(ctx, e.opsChat, "📊 No mood responses in the last 7 days."); err != nil {
			return res, fmt.Errorf("failed to post empty report: %w", err)
		}
		return res, nil
	}

	for _, r := range reports {
		if err := e.publish(ctx, r); err != nil {
			res.Failed++
			e.log.Error().Err(err).Str("recipient", r.RecipientID).Msg("Failed to post report")
		}
	}

	e.log.Info().
		Int("users", res.Users).
		Int("records", res.Records).
		Int("failed", res.Failed).
		Msg("Weekly report posted")

	if res.Failed == res.Users {
		return res, errors.New("no report could be posted")
	}
	return res, nil
}

// publish renders the chart before posting anything, so a user whose chart
// cannot be drawn gets no orphan summary
func (e *Engine) publish(ctx context.Context, r UserReport) error {
	png, err := e.render(r)
	if err != nil {
		return err
	}

	if _, err := e.out.SendText(ctx, e.opsChat, r.Summary()); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	if err := e.out.SendImage(ctx, e.opsChat, png, r.DisplayName); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	return nil
}
