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

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Password string   `json:"password"`
}

type createPollResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type editPollRequest struct {
	Password string          `json:"password"`
	Action   string          `json:"action"`
	Option   json.RawMessage `json:"option" swaggertype:"string"`
}

type editPollResponse struct {
	Message string   `json:"message"`
	Options []string `json:"options"`
}

// @Summary     Create a poll
// @Tags        polls
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest   true  "Question, options and edit password"
// @Success     201      {object}  createPollResponse
// @Failure     400      {object}  apperr.AppError     "missing or invalid fields"
// @Failure     500      {object}  apperr.AppError     "server error"
// @Router      /polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "Invalid request body", err))
		return
	}

	id, err := h.pollSvc.Create(r.Context(), poll.CreateInput{
		Question: req.Question,
		Options:  req.Options,
		Password: req.Password,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.EventCreated, id, strconv.Itoa(len(req.Options)))

	writeJSON(w, http.StatusCreated, createPollResponse{
		ID:      id,
		Message: "Poll created successfully",
	})
}

// @Summary     Poll with results
// @Tags        polls
// @Produce     json
// @Param       id   path      string  true  "Poll ID"
// @Success     200  {object}  poll.Results
// @Failure     404  {object}  apperr.AppError  "not found"
// @Failure     500  {object}  apperr.AppError  "server error"
// @Router      /polls/{id} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	res, err := h.pollSvc.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary     Add or remove an option
// @Description Requires the edit password chosen at creation. "option" is the new label for action=add and the zero-based index for action=remove.
// @Tags        polls
// @Accept      json
// @Produce     json
// @Param       id       path      string           true  "Poll ID"
// @Param       request  body      editPollRequest  true  "Edit payload"
// @Success     200      {object}  editPollResponse
// @Failure     400      {object}  apperr.AppError  "invalid action or option"
// @Failure     401      {object}  apperr.AppError  "invalid password"
// @Failure     404      {object}  apperr.AppError  "not found"
// @Failure     500      {object}  apperr.AppError  "server error"
// @Router      /polls/{id}/edit [post]
func (h *Handler) handleEditPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req editPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "Invalid request body", err))
		return
	}

	in := poll.EditInput{
		Password: req.Password,
		Action:   poll.Action(req.Action),
	}
	if label, ok := parseLabel(req.Option); ok {
		in.Label = label
	} else if idx, ok := parseIndex(req.Option); ok {
		in.Index = &idx
	}

	options, err := h.pollSvc.Edit(r.Context(), id, in)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.EventEdited, id, req.Action)

	writeJSON(w, http.StatusOK, editPollResponse{
		Message: "Poll updated successfully",
		Options: options,
	})
}

// parseLabel accepts only a JSON string.
func parseLabel(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseIndex accepts only a JSON integer literal; strings, fractions,
// booleans and null are rejected.
func parseIndex(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
