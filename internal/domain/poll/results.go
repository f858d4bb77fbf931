package poll

import (
	"math"
	"time"
)

type Result struct {
	Option     string `json:"option"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

type Results struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Options    []string  `json:"options"`
	Results    []Result  `json:"results"`
	TotalVotes int       `json:"totalVotes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Tally derives per-option shares from the raw vote counts. Percentages are
// rounded half up independently, so their sum may land just under or over 100.
func Tally(p *Poll) *Results {
	total := 0
	for _, v := range p.Votes {
		total += v
	}

	res := make([]Result, len(p.Options))
	for i, opt := range p.Options {
		var votes int
		if i < len(p.Votes) {
			votes = p.Votes[i]
		}
		res[i] = Result{
			Option:     opt,
			Votes:      votes,
			Percentage: percentage(votes, total),
		}
	}

	return &Results{
		ID:         p.ID,
		Question:   p.Question,
		Options:    append([]string(nil), p.Options...),
		Results:    res,
		TotalVotes: total,
		CreatedAt:  p.CreatedAt,
	}
}

func percentage(votes, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(votes)*100/float64(total) + 0.5))
}
