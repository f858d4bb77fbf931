package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	repo   Repository
	hasher Hasher
	now    func() time.Time
}

func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" || len(in.Options) == 0 || in.Password == "" {
		return "", ErrMissingFields
	}
	if len(in.Options) < MinOptions {
		return "", ErrTooFewOptions
	}

	options := make([]string, len(in.Options))
	for i, opt := range in.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return "", ErrEmptyOption
		}
		options[i] = opt
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if IsValidation(err) {
			return "", err
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	p := &Poll{
		Question:     question,
		Options:      options,
		Votes:        make([]int, len(options)),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return "", fmt.Errorf("create poll: %w", err)
	}
	return id, nil
}

func (s *Service) Results(ctx context.Context, id string) (*Results, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Tally(p), nil
}

func (s *Service) Vote(ctx context.Context, id string, optionIndex int) (*Results, error) {
	if optionIndex < 0 {
		return nil, ErrOptionIndexRequired
	}

	p, err := s.repo.IncrementVote(ctx, id, optionIndex)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) || errors.Is(err, ErrInvalidOptionIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("increment vote: %w", err)
	}
	return Tally(p), nil
}

// Edit adds or removes an option after checking the edit password. The
// password is verified against a snapshot; the mutation itself runs against
// the store's current state so a concurrent vote or edit is never lost.
func (s *Service) Edit(ctx context.Context, id string, in EditInput) ([]string, error) {
	if in.Password == "" || in.Action == "" {
		return nil, ErrEditFieldsRequired
	}

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(in.Password, p.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	mutate, err := editFunc(in)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, mutate)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) || IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update poll: %w", err)
	}
	return updated.Options, nil
}

func editFunc(in EditInput) (func(p *Poll) error, error) {
	label := strings.TrimSpace(in.Label)

	switch {
	case in.Action == ActionAdd && label != "":
		return func(p *Poll) error {
			p.Options = append(p.Options, label)
			p.Votes = append(p.Votes, 0)
			return nil
		}, nil

	case in.Action == ActionRemove && in.Index != nil:
		i := *in.Index
		return func(p *Poll) error {
			if i < 0 || i >= len(p.Options) {
				return ErrInvalidOptionIndex
			}
			if len(p.Options) <= MinOptions {
				return ErrTooFewOptions
			}
			p.Options = append(p.Options[:i], p.Options[i+1:]...)
			p.Votes = append(p.Votes[:i], p.Votes[i+1:]...)
			return nil
		}, nil

	default:
		return nil, ErrInvalidEdit
	}
}

func (s *Service) get(ctx context.Context, id string) (*Poll, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrPollNotFound
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPollNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch poll: %w", err)
	}
	return p, nil
}
