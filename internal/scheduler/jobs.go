package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradepulse/internal/database"
)

// refresher schedules an ordinary (unforced) analytics pass over the
// stored ledger.
type refresher interface {
	Refresh() error
}

// RefreshJob periodically re-feeds the stored ledger to the analytics
// pipeline. The fingerprint guard makes this free when nothing changed,
// so the job's real purpose is recovering from dropped computations
// (worker errors, superseded runs) without waiting for the next import.
type RefreshJob struct {
	service refresher
	log     zerolog.Logger
}

// NewRefreshJob creates a scheduled analytics refresh job
func NewRefreshJob(service refresher, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		service: service,
		log:     log.With().Str("job", "analytics_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "analytics_refresh"
}

// Run schedules an unforced compute over the stored ledger
func (j *RefreshJob) Run() error {
	if err := j.service.Refresh(); err != nil {
		return fmt.Errorf("scheduled refresh failed: %w", err)
	}
	return nil
}

// cacheInvalidator drops every cached analytics result.
type cacheInvalidator interface {
	InvalidateCache()
}

// MaintenanceJob sweeps the analytics result cache, checkpoints the
// ledger WAL, and verifies database integrity.
type MaintenanceJob struct {
	db    *database.DB
	cache cacheInvalidator
	log   zerolog.Logger
}

// NewMaintenanceJob creates a daily maintenance job
func NewMaintenanceJob(db *database.DB, cache cacheInvalidator, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:    db,
		cache: cache,
		log:   log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run sweeps the result cache, checkpoints the WAL, and runs a quick
// integrity check
func (j *MaintenanceJob) Run() error {
	j.cache.InvalidateCache()

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.QuickCheck(ctx); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("Maintenance pass complete")
	return nil
}
