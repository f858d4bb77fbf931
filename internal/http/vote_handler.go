package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quickpoll/internal/domain/poll"
	"quickpoll/internal/platform/apperr"
	"quickpoll/internal/worker"
)

type voteRequest struct {
	OptionIndex json.RawMessage `json:"optionIndex" swaggertype:"integer"`
}

type voteResponse struct {
	Message    string        `json:"message"`
	Results    []poll.Result `json:"results"`
	TotalVotes int           `json:"totalVotes"`
}

// @Summary     Vote for an option
// @Description No authentication. Duplicate votes are only discouraged client side.
// @Tags        votes
// @Accept      json
// @Produce     json
// @Param       id       path      string       true  "Poll ID"
// @Param       request  body      voteRequest  true  "Zero-based option index"
// @Success     200      {object}  voteResponse
// @Failure     400      {object}  apperr.AppError  "invalid option index"
// @Failure     404      {object}  apperr.AppError  "not found"
// @Failure     500      {object}  apperr.AppError  "server error"
// @Router      /polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "Invalid request body", err))
		return
	}
	idx, ok := parseIndex(req.OptionIndex)
	if !ok {
		errorResponse(w, poll.ErrOptionIndexRequired)
		return
	}

	res, err := h.pollSvc.Vote(r.Context(), id, idx)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.EventVoted, id, strconv.Itoa(idx))

	writeJSON(w, http.StatusOK, voteResponse{
		Message:    "Vote recorded successfully",
		Results:    res.Results,
		TotalVotes: res.TotalVotes,
	})
}
