// Package repotest holds the behaviour every poll.Repository implementation
// must share. Store packages call Run from their own tests.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickpoll/internal/domain/poll"
)

// Run exercises repo. newRepo is called once per subtest; stores may share
// a backing database between calls since every subtest creates fresh polls.
func Run(t *testing.T, newRepo func(t *testing.T) poll.Repository) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, newRepo(t)) })
	t.Run("IncrementVote", func(t *testing.T) { testIncrementVote(t, newRepo(t)) })
	t.Run("IncrementVoteBadIndex", func(t *testing.T) { testIncrementVoteBadIndex(t, newRepo(t)) })
	t.Run("UpdateAddAndRemove", func(t *testing.T) { testUpdateAddAndRemove(t, newRepo(t)) })
	t.Run("UpdateAbortsOnError", func(t *testing.T) { testUpdateAbortsOnError(t, newRepo(t)) })
	t.Run("ConcurrentVotes", func(t *testing.T) { testConcurrentVotes(t, newRepo(t)) })
	t.Run("ConcurrentVotesAndEdit", func(t *testing.T) { testConcurrentVotesAndEdit(t, newRepo(t)) })
}

func newPoll(options ...string) *poll.Poll {
	return &poll.Poll{
		Question:     "Which one?",
		Options:      options,
		Votes:        make([]int, len(options)),
		PasswordHash: "$2a$04$digest",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func create(t *testing.T, repo poll.Repository, options ...string) string {
	t.Helper()
	id, err := repo.Create(context.Background(), newPoll(options...))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func testCreateAndGet(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	p := newPoll("A", "B", "C")

	id, err := repo.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, p.Question, got.Question)
	assert.Equal(t, []string{"A", "B", "C"}, got.Options)
	assert.Equal(t, []int{0, 0, 0}, got.Votes)
	assert.Equal(t, p.PasswordHash, got.PasswordHash)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Millisecond)

	other := create(t, repo, "X", "Y")
	assert.NotEqual(t, id, other)
}

func testGetUnknown(t *testing.T, repo poll.Repository) {
	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, poll.ErrPollNotFound)
}

func testIncrementVote(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	id := create(t, repo, "A", "B", "C")

	got, err := repo.IncrementVote(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, got.Votes)

	_, err = repo.IncrementVote(ctx, id, 1)
	require.NoError(t, err)
	_, err = repo.IncrementVote(ctx, id, 2)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, stored.Votes)
	assert.Equal(t, []string{"A", "B", "C"}, stored.Options)
}

func testIncrementVoteBadIndex(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	id := create(t, repo, "A", "B")

	_, err := repo.IncrementVote(ctx, id, 2)
	assert.ErrorIs(t, err, poll.ErrInvalidOptionIndex)
	_, err = repo.IncrementVote(ctx, id, -1)
	assert.ErrorIs(t, err, poll.ErrInvalidOptionIndex)
	_, err = repo.IncrementVote(ctx, uuid.NewString(), 0)
	assert.ErrorIs(t, err, poll.ErrPollNotFound)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, stored.Votes)
}

func testUpdateAddAndRemove(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	id := create(t, repo, "A", "B", "C")
	_, err := repo.IncrementVote(ctx, id, 2)
	require.NoError(t, err)

	got, err := repo.Update(ctx, id, func(p *poll.Poll) error {
		p.Options = append(p.Options, "D")
		p.Votes = append(p.Votes, 0)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, got.Options)

	got, err = repo.Update(ctx, id, func(p *poll.Poll) error {
		p.Options = append(p.Options[:1], p.Options[2:]...)
		p.Votes = append(p.Votes[:1], p.Votes[2:]...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, got.Options)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, stored.Options)
	assert.Equal(t, []int{0, 1, 0}, stored.Votes)

	_, err = repo.Update(ctx, uuid.NewString(), func(*poll.Poll) error { return nil })
	assert.ErrorIs(t, err, poll.ErrPollNotFound)
}

func testUpdateAbortsOnError(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	id := create(t, repo, "A", "B")
	boom := errors.New("boom")

	_, err := repo.Update(ctx, id, func(p *poll.Poll) error {
		p.Options = append(p.Options, "C")
		p.Votes = append(p.Votes, 0)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, stored.Options)
	assert.Equal(t, []int{0, 0}, stored.Votes)
}

func testConcurrentVotes(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	id := create(t, repo, "A", "B")

	const voters = 20
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.IncrementVote(ctx, id, i%2)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{voters / 2, voters / 2}, stored.Votes)
}

// testConcurrentVotesAndEdit keeps the vote count below the stores' retry
// budget so an optimistic Update is guaranteed to land.
func testConcurrentVotesAndEdit(t *testing.T, repo poll.Repository) {
	ctx := context.Background()
	id := create(t, repo, "A", "B")

	const voters = 8
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementVote(ctx, id, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := repo.Update(ctx, id, func(p *poll.Poll) error {
			p.Options = append(p.Options, "C")
			p.Votes = append(p.Votes, 0)
			return nil
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, stored.Options)
	assert.Equal(t, []int{voters, 0, 0}, stored.Votes)
}
