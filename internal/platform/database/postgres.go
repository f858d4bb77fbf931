package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"quickpoll/internal/retry"
)

const (
	connectAttempts = 6
	connectDelay    = 500 * time.Millisecond
)

func NewPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := ping(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping retries fn with backoff; stores are often still booting when the
// service starts alongside them.
func ping(ctx context.Context, fn func(context.Context) error) error {
	return retry.DoWithRetry(ctx, connectAttempts, connectDelay, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return fn(pingCtx)
	})
}
