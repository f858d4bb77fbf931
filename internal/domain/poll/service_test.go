package poll

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"
)

type memoryPollRepo struct {
	mu     sync.Mutex
	polls  map[string]*Poll
	nextID int
}

func newMemoryPollRepo() *memoryPollRepo {
	return &memoryPollRepo{polls: make(map[string]*Poll)}
}

func (r *memoryPollRepo) Create(ctx context.Context, p *Poll) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = "poll-" + strconv.Itoa(r.nextID)
	r.polls[p.ID] = p.Clone()
	return p.ID, nil
}

func (r *memoryPollRepo) GetByID(ctx context.Context, id string) (*Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, ErrPollNotFound
	}
	return p.Clone(), nil
}

func (r *memoryPollRepo) IncrementVote(ctx context.Context, id string, index int) (*Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, ErrPollNotFound
	}
	if index < 0 || index >= len(p.Votes) {
		return nil, ErrInvalidOptionIndex
	}
	p.Votes[index]++
	return p.Clone(), nil
}

func (r *memoryPollRepo) Update(ctx context.Context, id string, fn func(p *Poll) error) (*Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, ErrPollNotFound
	}
	working := p.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.polls[id] = working
	return working.Clone(), nil
}

// plainHasher stands in for bcrypt; digests are just prefixed plaintext.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(plain, digest string) bool  { return digest == "hashed:"+plain }

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }
func (failingHasher) Verify(string, string) bool  { return false }

func newTestService() (*Service, *memoryPollRepo) {
	repo := newMemoryPollRepo()
	svc := NewService(repo, plainHasher{})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func mustCreate(t *testing.T, svc *Service, options ...string) string {
	t.Helper()
	id, err := svc.Create(context.Background(), CreateInput{
		Question: "Favorite?",
		Options:  options,
		Password: "pw",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func intPtr(i int) *int { return &i }

func TestCreateStartsWithZeroVotes(t *testing.T) {
	svc, repo := newTestService()

	id, err := svc.Create(context.Background(), CreateInput{
		Question: "  Favorite color?  ",
		Options:  []string{" Red", "Blue ", "Green"},
		Password: "pw",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), id)
	if stored.Question != "Favorite color?" {
		t.Fatalf("question not trimmed: %q", stored.Question)
	}
	if !reflect.DeepEqual(stored.Options, []string{"Red", "Blue", "Green"}) {
		t.Fatalf("unexpected options %v", stored.Options)
	}
	if !reflect.DeepEqual(stored.Votes, []int{0, 0, 0}) {
		t.Fatalf("unexpected votes %v", stored.Votes)
	}
	if stored.PasswordHash != "hashed:pw" {
		t.Fatalf("password stored as %q", stored.PasswordHash)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("createdAt not set")
	}

	res, err := svc.Results(context.Background(), id)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if res.TotalVotes != 0 {
		t.Fatalf("expected 0 total, got %d", res.TotalVotes)
	}
	for _, r := range res.Results {
		if r.Votes != 0 || r.Percentage != 0 {
			t.Fatalf("expected zeroed result, got %+v", r)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"no question", CreateInput{Options: []string{"A", "B"}, Password: "pw"}, ErrMissingFields},
		{"blank question", CreateInput{Question: "   ", Options: []string{"A", "B"}, Password: "pw"}, ErrMissingFields},
		{"no options", CreateInput{Question: "Q", Password: "pw"}, ErrMissingFields},
		{"no password", CreateInput{Question: "Q", Options: []string{"A", "B"}}, ErrMissingFields},
		{"single option", CreateInput{Question: "Q", Options: []string{"A"}, Password: "pw"}, ErrTooFewOptions},
		{"blank option", CreateInput{Question: "Q", Options: []string{"A", " "}, Password: "pw"}, ErrEmptyOption},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService()
			_, err := svc.Create(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(repo.polls) != 0 {
				t.Fatalf("invalid poll was stored")
			}
		})
	}
}

func TestCreateWrapsHasherFailure(t *testing.T) {
	svc := NewService(newMemoryPollRepo(), failingHasher{})
	_, err := svc.Create(context.Background(), CreateInput{Question: "Q", Options: []string{"A", "B"}, Password: "pw"})
	if err == nil || IsValidation(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestResultsUnknownPoll(t *testing.T) {
	svc, _ := newTestService()
	for _, id := range []string{"", "missing"} {
		if _, err := svc.Results(context.Background(), id); !errors.Is(err, ErrPollNotFound) {
			t.Fatalf("id %q: expected ErrPollNotFound, got %v", id, err)
		}
	}
}

func TestVoteTotalsAndPercentages(t *testing.T) {
	svc, _ := newTestService()
	id := mustCreate(t, svc, "A", "B", "C")

	res, err := svc.Vote(context.Background(), id, 0)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if got := percentages(res); !reflect.DeepEqual(got, []int{100, 0, 0}) {
		t.Fatalf("expected [100 0 0], got %v", got)
	}

	for _, idx := range []int{1, 2} {
		if res, err = svc.Vote(context.Background(), id, idx); err != nil {
			t.Fatalf("vote %d: %v", idx, err)
		}
	}
	if got := percentages(res); !reflect.DeepEqual(got, []int{33, 33, 33}) {
		t.Fatalf("expected [33 33 33], got %v", got)
	}
	if res.TotalVotes != 3 {
		t.Fatalf("expected 3 votes, got %d", res.TotalVotes)
	}
}

func TestVoteRejectsBadIndex(t *testing.T) {
	svc, repo := newTestService()
	id := mustCreate(t, svc, "A", "B")

	if _, err := svc.Vote(context.Background(), id, 2); !errors.Is(err, ErrInvalidOptionIndex) {
		t.Fatalf("expected ErrInvalidOptionIndex, got %v", err)
	}
	if _, err := svc.Vote(context.Background(), id, -1); !errors.Is(err, ErrOptionIndexRequired) {
		t.Fatalf("expected ErrOptionIndexRequired, got %v", err)
	}
	if _, err := svc.Vote(context.Background(), "missing", 0); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}

	p, _ := repo.GetByID(context.Background(), id)
	if !reflect.DeepEqual(p.Votes, []int{0, 0}) {
		t.Fatalf("votes changed: %v", p.Votes)
	}
}

func TestConcurrentVotesAreNotLost(t *testing.T) {
	svc, _ := newTestService()
	id := mustCreate(t, svc, "A", "B")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Vote(context.Background(), id, 0); err != nil {
				t.Errorf("vote: %v", err)
			}
		}()
	}
	wg.Wait()

	res, _ := svc.Results(context.Background(), id)
	if res.Results[0].Votes != 2 {
		t.Fatalf("expected 2 votes, got %d", res.Results[0].Votes)
	}
}

func TestEditAddOption(t *testing.T) {
	svc, repo := newTestService()
	id := mustCreate(t, svc, "A", "B", "C")

	opts, err := svc.Edit(context.Background(), id, EditInput{Password: "pw", Action: ActionAdd, Label: " D "})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !reflect.DeepEqual(opts, []string{"A", "B", "C", "D"}) {
		t.Fatalf("unexpected options %v", opts)
	}
	p, _ := repo.GetByID(context.Background(), id)
	if !reflect.DeepEqual(p.Votes, []int{0, 0, 0, 0}) {
		t.Fatalf("unexpected votes %v", p.Votes)
	}
}

func TestEditRemoveOption(t *testing.T) {
	svc, repo := newTestService()
	id := mustCreate(t, svc, "A", "B", "C")
	for _, idx := range []int{0, 1, 2, 2} {
		if _, err := svc.Vote(context.Background(), id, idx); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	opts, err := svc.Edit(context.Background(), id, EditInput{Password: "pw", Action: ActionRemove, Index: intPtr(1)})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !reflect.DeepEqual(opts, []string{"A", "C"}) {
		t.Fatalf("unexpected options %v", opts)
	}
	p, _ := repo.GetByID(context.Background(), id)
	if !reflect.DeepEqual(p.Votes, []int{1, 2}) {
		t.Fatalf("unexpected votes %v", p.Votes)
	}
}

func TestEditKeepsAtLeastTwoOptions(t *testing.T) {
	svc, repo := newTestService()
	id := mustCreate(t, svc, "A", "B")

	_, err := svc.Edit(context.Background(), id, EditInput{Password: "pw", Action: ActionRemove, Index: intPtr(0)})
	if !errors.Is(err, ErrTooFewOptions) {
		t.Fatalf("expected ErrTooFewOptions, got %v", err)
	}
	p, _ := repo.GetByID(context.Background(), id)
	if len(p.Options) != 2 {
		t.Fatalf("options changed: %v", p.Options)
	}
}

func TestEditRejections(t *testing.T) {
	cases := []struct {
		name string
		in   EditInput
		want error
	}{
		{"wrong password", EditInput{Password: "nope", Action: ActionAdd, Label: "D"}, ErrInvalidPassword},
		{"no password", EditInput{Action: ActionAdd, Label: "D"}, ErrEditFieldsRequired},
		{"no action", EditInput{Password: "pw", Label: "D"}, ErrEditFieldsRequired},
		{"unknown action", EditInput{Password: "pw", Action: "rename", Label: "D"}, ErrInvalidEdit},
		{"add without label", EditInput{Password: "pw", Action: ActionAdd, Label: "  "}, ErrInvalidEdit},
		{"remove without index", EditInput{Password: "pw", Action: ActionRemove, Label: "A"}, ErrInvalidEdit},
		{"remove past end", EditInput{Password: "pw", Action: ActionRemove, Index: intPtr(3)}, ErrInvalidOptionIndex},
		{"remove negative", EditInput{Password: "pw", Action: ActionRemove, Index: intPtr(-1)}, ErrInvalidOptionIndex},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService()
			id := mustCreate(t, svc, "A", "B", "C")
			if _, err := svc.Vote(context.Background(), id, 1); err != nil {
				t.Fatalf("vote: %v", err)
			}

			_, err := svc.Edit(context.Background(), id, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			p, _ := repo.GetByID(context.Background(), id)
			if !reflect.DeepEqual(p.Options, []string{"A", "B", "C"}) || !reflect.DeepEqual(p.Votes, []int{0, 1, 0}) {
				t.Fatalf("poll changed: %v %v", p.Options, p.Votes)
			}
		})
	}
}

func TestEditUnknownPoll(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Edit(context.Background(), "missing", EditInput{Password: "pw", Action: ActionAdd, Label: "D"})
	if !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
}

func percentages(res *Results) []int {
	out := make([]int, len(res.Results))
	for i, r := range res.Results {
		out[i] = r.Percentage
	}
	return out
}
