// Package scheduler runs the recurring background jobs: the hourly
// analytics refresh and the daily cache sweep plus ledger maintenance.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one recurring unit of background work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler owns the cron runner and wraps every job with outcome
// logging so a failing job never goes silent.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a job under a standard cron expression or a
// descriptor such as "@hourly" or "@daily".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()
		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Background job failed")
			return
		}
		s.log.Debug().
			Str("job", job.Name()).
			Dur("took", time.Since(start)).
			Msg("Background job finished")
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("job", job.Name()).
		Str("schedule", schedule).
		Msg("Registered background job")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}
