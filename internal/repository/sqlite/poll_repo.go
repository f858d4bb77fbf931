package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quickpoll/internal/domain/poll"
)

// PollRepo stores options and votes as JSON arrays. The connection pool is
// expected to hold a single connection (see database.NewSQLite), so every
// statement and transaction is serialized by SQLite itself.
type PollRepo struct {
	db *sql.DB
}

func NewPollRepo(db *sql.DB) *PollRepo {
	return &PollRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (string, error) {
	options, votes, err := encode(p)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO polls (id, question, options, votes, password_hash, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, id, p.Question, options, votes, p.PasswordHash, p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	p.ID = id
	return id, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	return scan(r.db.QueryRowContext(ctx, selectPoll, id))
}

func (r *PollRepo) IncrementVote(ctx context.Context, id string, index int) (*poll.Poll, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	path := fmt.Sprintf("$[%d]", index)
	res, err := tx.ExecContext(ctx, `
        UPDATE polls
        SET votes = json_set(votes, ?, json_extract(votes, ?) + 1)
        WHERE id = ? AND ? >= 0 AND ? < json_array_length(votes)
    `, path, path, id, index, index)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	p, err := scan(tx.QueryRowContext(ctx, selectPoll, id))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, poll.ErrInvalidOptionIndex
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PollRepo) Update(ctx context.Context, id string, fn func(p *poll.Poll) error) (*poll.Poll, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := scan(tx.QueryRowContext(ctx, selectPoll, id))
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	options, votes, err := encode(p)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE polls SET options = ?, votes = ? WHERE id = ?`,
		options, votes, id); err != nil {
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

const selectPoll = `
    SELECT id, question, options, votes, password_hash, created_at
    FROM polls WHERE id = ?
`

func scan(row rowScanner) (*poll.Poll, error) {
	var (
		p                       poll.Poll
		options, votes, created string
	)
	if err := row.Scan(&p.ID, &p.Question, &options, &votes, &p.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, poll.ErrPollNotFound
		}
		return nil, fmt.Errorf("scan poll: %w", err)
	}

	if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if err := json.Unmarshal([]byte(votes), &p.Votes); err != nil {
		return nil, fmt.Errorf("decode votes: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	p.CreatedAt = t
	return &p, nil
}

func encode(p *poll.Poll) (string, string, error) {
	options, err := json.Marshal(p.Options)
	if err != nil {
		return "", "", err
	}
	votes, err := json.Marshal(p.Votes)
	if err != nil {
		return "", "", err
	}
	return string(options), string(votes), nil
}
