package database

import (
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/events"
)

// CheckpointJob truncates the WAL of every registered database on a
// schedule so the log files do not grow without bound between restarts.
type CheckpointJob struct {
	dbs          []*DB
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewCheckpointJob creates a checkpoint job over the given databases
func NewCheckpointJob(eventManager *events.Manager, log zerolog.Logger, dbs ...*DB) *CheckpointJob {
	return &CheckpointJob{
		dbs:          dbs,
		eventManager: eventManager,
		log:          log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *CheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database, continuing past individual failures
func (j *CheckpointJob) Run() error {
	var firstErr error
	for _, db := range j.dbs {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			j.eventManager.EmitError("database", err, map[string]interface{}{
				"database": db.Name(),
				"path":     db.Path(),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("WAL checkpointed")
	}
	return firstErr
}
