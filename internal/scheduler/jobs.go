package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/database"
	"github.com/akaramanis/signalbridge/internal/store"
)

// SweepJob expires aged-out signals from the delivery store.
type SweepJob struct {
	store *store.Store
	log   zerolog.Logger
}

// NewSweepJob creates the expiry sweep job.
func NewSweepJob(st *store.Store, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		store: st,
		log:   log.With().Str("job", "signal-sweep").Logger(),
	}
}

// Name returns the job name
func (j *SweepJob) Name() string {
	return "signal-sweep"
}

// Run sweeps expired signals.
func (j *SweepJob) Run() error {
	removed := j.store.Sweep()
	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("Swept expired signals")
	}
	return nil
}

// CheckpointJob truncates the archive WAL to keep it from growing
// unbounded on a long-running instance.
type CheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewCheckpointJob creates the WAL checkpoint job.
func NewCheckpointJob(db *database.DB, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal-checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *CheckpointJob) Name() string {
	return "wal-checkpoint"
}

// Run forces a TRUNCATE checkpoint.
func (j *CheckpointJob) Run() error {
	return j.db.WALCheckpoint("TRUNCATE")
}

// IntegrityJob runs the full integrity check on the archive and logs its
// size, surfacing ledger corruption while the original data is still on
// the source channels.
type IntegrityJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewIntegrityJob creates the archive integrity job.
func NewIntegrityJob(db *database.DB, log zerolog.Logger) *IntegrityJob {
	return &IntegrityJob{
		db:  db,
		log: log.With().Str("job", "archive-integrity").Logger(),
	}
}

// Name returns the job name
func (j *IntegrityJob) Name() string {
	return "archive-integrity"
}

// Run verifies archive integrity and logs size statistics.
func (j *IntegrityJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		return err
	}

	stats, err := j.db.GetStats()
	if err != nil {
		return err
	}
	j.log.Info().
		Int64("size_bytes", stats.SizeBytes).
		Int64("wal_bytes", stats.WALSizeBytes).
		Int64("free_pages", stats.FreelistCount).
		Msg("Archive integrity verified")
	return nil
}
