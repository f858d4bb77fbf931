package poll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTally(t *testing.T) {
	cases := []struct {
		name  string
		votes []int
		total int
		want  []int
	}{
		{"no votes", []int{0, 0}, 0, []int{0, 0}},
		{"single winner", []int{1, 0, 0}, 1, []int{100, 0, 0}},
		{"three way tie", []int{1, 1, 1}, 3, []int{33, 33, 33}},
		{"half rounds up", []int{1, 7}, 8, []int{13, 88}},
		{"two thirds", []int{2, 1}, 3, []int{67, 33}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := make([]string, len(tc.votes))
			for i := range opts {
				opts[i] = string(rune('A' + i))
			}
			res := Tally(&Poll{ID: "p", Question: "Q", Options: opts, Votes: tc.votes})

			assert.Equal(t, tc.total, res.TotalVotes)
			got := make([]int, len(res.Results))
			for i, r := range res.Results {
				assert.Equal(t, opts[i], r.Option)
				assert.Equal(t, tc.votes[i], r.Votes)
				got[i] = r.Percentage
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTallyCopiesOptions(t *testing.T) {
	p := &Poll{Options: []string{"A", "B"}, Votes: []int{0, 0}}
	res := Tally(p)
	res.Options[0] = "changed"
	assert.Equal(t, "A", p.Options[0])
}
