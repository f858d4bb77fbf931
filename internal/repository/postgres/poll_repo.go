package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"quickpoll/internal/domain/poll"
)

type PollRepo struct {
	db   *sql.DB
	tmap *pgtype.Map
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db, tmap: pgtype.NewMap()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO polls (id, question, options, votes, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, id, p.Question, p.Options, toInt32(p.Votes), p.PasswordHash, p.CreatedAt)
	if err != nil {
		return "", err
	}
	p.ID = id
	return id, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, question, options, votes, password_hash, created_at
        FROM polls WHERE id = $1
    `, id)
	return r.scan(row)
}

// IncrementVote bumps a single array element in place; Postgres takes the
// row lock for the UPDATE so concurrent increments serialize.
func (r *PollRepo) IncrementVote(ctx context.Context, id string, index int) (*poll.Poll, error) {
	// Postgres arrays are 1-based.
	row := r.db.QueryRowContext(ctx, `
        UPDATE polls
        SET votes[$2::int + 1] = votes[$2::int + 1] + 1
        WHERE id = $1 AND $2::int >= 0 AND $2::int < cardinality(votes)
        RETURNING id, question, options, votes, password_hash, created_at
    `, id, index)

	p, err := r.scan(row)
	if errors.Is(err, poll.ErrPollNotFound) {
		exists, existsErr := r.exists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if exists {
			return nil, poll.ErrInvalidOptionIndex
		}
	}
	return p, err
}

func (r *PollRepo) Update(ctx context.Context, id string, fn func(p *poll.Poll) error) (*poll.Poll, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := r.scan(tx.QueryRowContext(ctx, `
        SELECT id, question, options, votes, password_hash, created_at
        FROM polls WHERE id = $1
        FOR UPDATE
    `, id))
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE polls SET options = $2, votes = $3 WHERE id = $1
    `, id, p.Options, toInt32(p.Votes)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PollRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PollRepo) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM polls WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *PollRepo) scan(row rowScanner) (*poll.Poll, error) {
	var (
		p       poll.Poll
		options []string
		votes   []int32
	)
	err := row.Scan(&p.ID, &p.Question, r.tmap.SQLScanner(&options), r.tmap.SQLScanner(&votes),
		&p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, poll.ErrPollNotFound
		}
		return nil, fmt.Errorf("scan poll: %w", err)
	}

	p.Options = options
	p.Votes = make([]int, len(votes))
	for i, v := range votes {
		p.Votes[i] = int(v)
	}
	return &p, nil
}

func toInt32(votes []int) []int32 {
	out := make([]int32, len(votes))
	for i, v := range votes {
		out[i] = int32(v)
	}
	return out
}
