package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"quickpoll/internal/domain/poll"
)

// PollRepo keeps polls in process memory. A single mutex serializes every
// read-modify-write, which is what makes votes and edits atomic here.
type PollRepo struct {
	mu    sync.Mutex
	polls map[string]*poll.Poll
}

func NewPollRepo() *PollRepo {
	return &PollRepo{polls: make(map[string]*poll.Poll)}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.NewString()
	r.polls[p.ID] = p.Clone()
	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[id]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	return p.Clone(), nil
}

func (r *PollRepo) IncrementVote(ctx context.Context, id string, index int) (*poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[id]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	if index < 0 || index >= len(p.Votes) {
		return nil, poll.ErrInvalidOptionIndex
	}
	p.Votes[index]++
	return p.Clone(), nil
}

func (r *PollRepo) Update(ctx context.Context, id string, fn func(p *poll.Poll) error) (*poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[id]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	working := p.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	p.Options = working.Options
	p.Votes = working.Votes
	return p.Clone(), nil
}

func (r *PollRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}
