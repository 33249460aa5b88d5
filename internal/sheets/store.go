// Package sheets persists mood records to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/davidmdi/moodbot/internal/models"
)

// ErrUnavailable is returned by every operation when no spreadsheet is configured
var ErrUnavailable = errors.New("record storage unavailable")

// Credentials locates the service account key: inline JSON wins over File
type Credentials struct {
	JSON string
	File string
}

// Config selects the spreadsheet and the table range holding the records
type Config struct {
	SpreadsheetID string
	Range         string
	Credentials   Credentials
}

type valuesAPI interface {
	append(ctx context.Context, row []interface{}) error
	get(ctx context.Context) ([][]interface{}, error)
}

// Store appends and reads back mood records
type Store struct {
	values valuesAPI
	log    zerolog.Logger
}

// New connects to the Sheets API with a service account.
// It returns an error wrapping ErrUnavailable when nothing is configured.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: no spreadsheet id", ErrUnavailable)
	}

	creds, err := clientCredentials(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	svc, err := gsheets.NewService(ctx, creds, option.WithScopes(gsheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	rng := cfg.Range
	if rng == "" {
		rng = "A:E"
	}

	return &Store{
		values: &googleValues{svc: svc, spreadsheetID: cfg.SpreadsheetID, rng: rng},
		log:    log.With().Str("component", "Sheets").Logger(),
	}, nil
}

func clientCredentials(c Credentials) (option.ClientOption, error) {
	if c.JSON != "" {
		return option.WithCredentialsJSON([]byte(c.JSON)), nil
	}
	if c.File != "" {
		if _, err := os.Stat(c.File); err == nil {
			return option.WithCredentialsFile(c.File), nil
		}
	}
	return nil, fmt.Errorf("%w: no service account credentials", ErrUnavailable)
}

// Enabled reports that records are persisted
func (s *Store) Enabled() bool { return true }

// Append adds one row at the end of the table
func (s *Store) Append(ctx context.Context, rec models.MoodRecord) error {
	row := make([]interface{}, 0, 5)
	for _, cell := range rec.Row() {
		row = append(row, cell)
	}

	if err := s.values.append(ctx, row); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	s.log.Info().Str("recipient", rec.RecipientID).Str("mood", rec.MoodLabel).Msg("Record appended")
	return nil
}

// Rows returns every row of the table as strings, header included
func (s *Store) Rows(ctx context.Context) ([][]string, error) {
	values, err := s.values.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return toStrings(values), nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

type googleValues struct {
	svc           *gsheets.Service
	spreadsheetID string
	rng           string
}

func (g *googleValues) append(ctx context.Context, row []interface{}) error {
	_, err := g.svc.Spreadsheets.Values.
		Append(g.spreadsheetID, g.rng, &gsheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *googleValues) get(ctx context.Context) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, g.rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Disabled stands in for the store when the spreadsheet is unreachable.
// Every call fails with ErrUnavailable.
type Disabled struct {
	Cause error
}

// Enabled reports that nothing is persisted
func (Disabled) Enabled() bool { return false }

// Append always fails
func (d Disabled) Append(context.Context, models.MoodRecord) error {
	return d.err()
}

// Rows always fails
func (d Disabled) Rows(context.Context) ([][]string, error) {
	return nil, d.err()
}

func (d Disabled) err() error {
	if d.Cause != nil && !errors.Is(d.Cause, ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUnavailable, d.Cause)
	}
	if d.Cause != nil {
		return d.Cause
	}
	return ErrUnavailable
}
