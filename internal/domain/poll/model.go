package poll

import (
	"context"
	"time"
)

// MinOptions is the smallest option count a poll may ever hold.
const MinOptions = 2

type Poll struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	Votes        []int     `json:"votes"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Clone returns a deep copy so callers can mutate options and votes freely.
func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	c.Votes = append([]int(nil), p.Votes...)
	return &c
}

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

type CreateInput struct {
	Question string
	Options  []string
	Password string
}

// EditInput carries the option either as a label (add) or as an index
// (remove). Index is nil when the caller did not send an integer.
type EditInput struct {
	Password string
	Action   Action
	Label    string
	Index    *int
}

// Repository is the persistence collaborator. Implementations must apply
// IncrementVote and Update atomically per poll so concurrent votes and
// edits never lose each other's writes.
type Repository interface {
	Create(ctx context.Context, p *Poll) (string, error)
	GetByID(ctx context.Context, id string) (*Poll, error)
	// IncrementVote adds one to votes[index]. It returns ErrPollNotFound for
	// an unknown id and ErrInvalidOptionIndex when index is past the end.
	IncrementVote(ctx context.Context, id string, index int) (*Poll, error)
	// Update runs fn against the current state and persists the resulting
	// options and votes. An error from fn aborts the write and is returned
	// unchanged.
	Update(ctx context.Context, id string, fn func(p *Poll) error) (*Poll, error)
}

// Hasher is the credential collaborator.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}
