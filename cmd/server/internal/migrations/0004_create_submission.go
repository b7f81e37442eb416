package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0004, Down0004)
}

func Up0004(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE TABLE submission (
    id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
    owner_id UUID NOT NULL,
    challenge_id UUID NOT NULL REFERENCES challenge (id),
    day_index INTEGER NOT NULL,
    state TEXT NOT NULL,
    error_message TEXT DEFAULT NULL,
    topic TEXT DEFAULT NULL,
    topic_error TEXT DEFAULT NULL,
    host_asset_id TEXT DEFAULT NULL,
    upload_url TEXT DEFAULT NULL,
    transcoded_url TEXT DEFAULT NULL,
    analyzer_file_id TEXT DEFAULT NULL,
    analysis JSONB DEFAULT NULL,
    raw_analysis TEXT DEFAULT NULL,
    poll_started_at TIMESTAMP WITH TIME ZONE DEFAULT NULL,
    poll_retries INTEGER NOT NULL DEFAULT 0,
    lock_version INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);
`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_submission_owner_id ON submission (owner_id);`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_submission_challenge_id ON submission (challenge_id);`)
	if err != nil {
		return err
	}

	// one open slot per challenge
	_, err = tx.ExecContext(ctx, `
CREATE UNIQUE INDEX idx_submission_open_slot ON submission (challenge_id) WHERE state = 'initial';
`)
	if err != nil {
		return err
	}

	return nil
}

func Down0004(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE submission;`)
	if err != nil {
		return err
	}

	return nil
}
