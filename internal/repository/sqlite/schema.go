package sqlite

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
    options       TEXT NOT NULL CHECK (json_valid(options)),
    votes         TEXT NOT NULL CHECK (json_valid(votes)),
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    CHECK (json_array_length(options) = json_array_length(votes))
);
`
