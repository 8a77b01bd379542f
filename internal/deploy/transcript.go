package deploy

import (
	"context"
	"time"

	"github.com/kingrea/arc-wizard/internal/logging"
	"github.com/kingrea/arc-wizard/internal/migration"
)

// TranscriptMigrator runs a CommandMigrator and records each run in its own
// timestamped transcript under LogDir.
type TranscriptMigrator struct {
	Command CommandMigrator
	LogDir  string
	Now     func() time.Time
}

// Migrate implements Migrator.
func (t *TranscriptMigrator) Migrate(ctx context.Context, params migration.Params, cb Callbacks) (Result, error) {
	now := t.Now
	if now == nil {
		now = time.Now
	}
	logger, err := logging.NewTranscript(t.LogDir, t.Command.Network, now())
	if err != nil {
		return Result{}, err
	}
	defer logger.Close()

	run := t.Command
	run.Transcript = logger
	logger.Printf("migrating %q on %s with %s", params.OrgName, run.Network, run.Command)

	res, err := run.Migrate(ctx, params, cb)
	if err != nil {
		logger.Printf("migration failed: %v", err)
		return res, err
	}
	logger.Printf("migration complete: avatar %s", res.Avatar.Hex())
	return res, nil
}

// TranscriptPath reports where a run started at started would be logged.
func (t *TranscriptMigrator) TranscriptPath(started time.Time) string {
	return logging.TranscriptPath(t.LogDir, t.Command.Network, started)
}
