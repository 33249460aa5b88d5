// Package scheduler fires the daily survey and the weekly report.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled task. Errors are logged, never retried.
type Job func(ctx context.Context) error

// Scheduler runs the survey and report jobs on cron specs in one time zone
type Scheduler struct {
	cron     *cron.Cron
	surveyID cron.EntryID
	reportID cron.EntryID
	timeout  time.Duration
	log      zerolog.Logger
}

// Config holds the cron specs (minute hour dom month dow)
type Config struct {
	SurveySpec string
	ReportSpec string
	Location   *time.Location
	JobTimeout time.Duration
}

// ValidateSpec checks a five-field cron expression
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// New registers both jobs. Nothing runs until Start.
func New(cfg Config, survey, report Job, log zerolog.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		timeout: timeout,
		log:     log.With().Str("component", "Scheduler").Logger(),
	}

	var err error
	if s.surveyID, err = s.cron.AddFunc(cfg.SurveySpec, s.wrap("survey", survey)); err != nil {
		return nil, fmt.Errorf("invalid survey schedule %q: %w", cfg.SurveySpec, err)
	}
	if s.reportID, err = s.cron.AddFunc(cfg.ReportSpec, s.wrap("report", report)); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", cfg.ReportSpec, err)
	}

	return s, nil
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		s.log.Info().Str("job", name).Msg("Scheduled job started")
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
			return
		}
		s.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("Scheduled job finished")
	}
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().
		Time("next_survey", s.NextSurvey()).
		Time("next_report", s.NextReport()).
		Msg("🚀 Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("🛑 Scheduler stopped")
}

// NextSurvey returns the next survey run, zero if not started
func (s *Scheduler) NextSurvey() time.Time {
	return s.cron.Entry(s.surveyID).Next
}

// NextReport returns the next report run, zero if not started
func (s *Scheduler) NextReport() time.Time {
	return s.cron.Entry(s.reportID).Next
}
