package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates the polls table. Safe to call on every start.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS polls (
    id            TEXT PRIMARY KEY,
    question      TEXT NOT NULL,
    options       TEXT[] NOT NULL,
    votes         INTEGER[] NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT polls_votes_aligned CHECK (cardinality(options) = cardinality(votes))
);
`
