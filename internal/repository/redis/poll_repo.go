package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	goredis "github.com/redis/go-redis/v9"

	"quickpoll/internal/domain/poll"
)

// maxUpdateAttempts bounds the WATCH/MULTI retry loop in Update.
const maxUpdateAttempts = 10

var ErrUpdateConflict = errors.New("poll changed concurrently too many times")

// incrementScript bumps one list element in place. Redis runs scripts
// atomically, so concurrent votes cannot overwrite each other.
var incrementScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local i = tonumber(ARGV[1])
if i < 0 or i >= redis.call('LLEN', KEYS[2]) then
  return -2
end
local v = tonumber(redis.call('LINDEX', KEYS[2], i)) + 1
redis.call('LSET', KEYS[2], i, v)
return v
`)

// pollHash is the scalar part of a poll, stored as a Redis hash.
type pollHash struct {
	Question     string `mapstructure:"question"`
	PasswordHash string `mapstructure:"password_hash"`
	CreatedAt    string `mapstructure:"created_at"`
}

type PollRepo struct {
	rdb *goredis.Client
}

func NewPollRepo(rdb *goredis.Client) *PollRepo {
	return &PollRepo{rdb: rdb}
}

func pollKey(id string) string    { return "poll:" + id }
func optionsKey(id string) string { return "poll:" + id + ":options" }
func votesKey(id string) string   { return "poll:" + id + ":votes" }

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (string, error) {
	id := uuid.NewString()

	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, pollKey(id), map[string]any{
			"question":      p.Question,
			"password_hash": p.PasswordHash,
			"created_at":    p.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		writeLists(ctx, pipe, id, p)
		return nil
	})
	if err != nil {
		return "", err
	}
	p.ID = id
	return id, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	return r.load(ctx, r.rdb.TxPipelined, id)
}

func (r *PollRepo) IncrementVote(ctx context.Context, id string, index int) (*poll.Poll, error) {
	res, err := incrementScript.Run(ctx, r.rdb, []string{pollKey(id), votesKey(id)}, index).Int64()
	if err != nil {
		return nil, err
	}
	switch res {
	case -1:
		return nil, poll.ErrPollNotFound
	case -2:
		return nil, poll.ErrInvalidOptionIndex
	}
	return r.load(ctx, r.rdb.TxPipelined, id)
}

// Update watches the option and vote lists; a concurrent vote or edit aborts
// the transaction and the whole read-modify-write is retried.
func (r *PollRepo) Update(ctx context.Context, id string, fn func(p *poll.Poll) error) (*poll.Poll, error) {
	var updated *poll.Poll

	txf := func(tx *goredis.Tx) error {
		p, err := r.load(ctx, tx.Pipelined, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, optionsKey(id), votesKey(id))
			writeLists(ctx, pipe, id, p)
			return nil
		})
		if err != nil {
			return err
		}
		updated = p
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, pollKey(id), optionsKey(id), votesKey(id))
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrUpdateConflict
}

func (r *PollRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// pipelineFunc is satisfied by Client.TxPipelined and Tx.Pipelined.
type pipelineFunc func(ctx context.Context, fn func(goredis.Pipeliner) error) ([]goredis.Cmder, error)

// load reads the hash and both lists in one round trip so the three keys are
// observed together.
func (r *PollRepo) load(ctx context.Context, pipelined pipelineFunc, id string) (*poll.Poll, error) {
	var (
		fieldsCmd  *goredis.MapStringStringCmd
		optionsCmd *goredis.StringSliceCmd
		votesCmd   *goredis.StringSliceCmd
	)
	_, err := pipelined(ctx, func(pipe goredis.Pipeliner) error {
		fieldsCmd = pipe.HGetAll(ctx, pollKey(id))
		optionsCmd = pipe.LRange(ctx, optionsKey(id), 0, -1)
		votesCmd = pipe.LRange(ctx, votesKey(id), 0, -1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, poll.ErrPollNotFound
	}

	var h pollHash
	if err := mapstructure.Decode(fields, &h); err != nil {
		return nil, fmt.Errorf("decode poll hash: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}

	rawVotes := votesCmd.Val()
	votes := make([]int, len(rawVotes))
	for i, v := range rawVotes {
		if votes[i], err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("decode vote %d: %w", i, err)
		}
	}

	return &poll.Poll{
		ID:           id,
		Question:     h.Question,
		Options:      optionsCmd.Val(),
		Votes:        votes,
		PasswordHash: h.PasswordHash,
		CreatedAt:    createdAt,
	}, nil
}

func writeLists(ctx context.Context, pipe goredis.Pipeliner, id string, p *poll.Poll) {
	options := make([]any, len(p.Options))
	for i, o := range p.Options {
		options[i] = o
	}
	votes := make([]any, len(p.Votes))
	for i, v := range p.Votes {
		votes[i] = v
	}
	if len(options) > 0 {
		pipe.RPush(ctx, optionsKey(id), options...)
	}
	if len(votes) > 0 {
		pipe.RPush(ctx, votesKey(id), votes...)
	}
}
