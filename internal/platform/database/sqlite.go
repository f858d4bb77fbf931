package database

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// NewSQLite opens a file-backed database with a single connection. SQLite
// allows one writer at a time; funnelling everything through one connection
// turns concurrent writers into a queue instead of SQLITE_BUSY errors.
func NewSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
