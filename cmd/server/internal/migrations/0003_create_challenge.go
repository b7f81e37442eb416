package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0003, Down0003)
}

func Up0003(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE TABLE challenge (
    id UUID PRIMARY KEY DEFAULT uuidv7_sub_ms(),
    owner_id UUID NOT NULL,
    title TEXT NOT NULL,
    goal_prompt TEXT NOT NULL,
    improvement_tags JSONB NOT NULL DEFAULT '[]',
    required_takes INTEGER NOT NULL,
    auto_topics BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT current_timestamp
);
`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_challenge_owner_id ON challenge (owner_id);`)
	if err != nil {
		return err
	}

	return nil
}

func Down0003(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE challenge;`)
	if err != nil {
		return err
	}

	return nil
}
