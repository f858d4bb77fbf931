package api

import (
	"errors"
	"net/http"

	"quickpoll/internal/domain/poll"
	"quickpoll/internal/platform/apperr"
)

// validationCodes gives the well-known validation failures their own codes;
// any other ValidationError is reported as invalid_input.
var validationCodes = map[error]string{
	poll.ErrMissingFields:       "missing_fields",
	poll.ErrTooFewOptions:       "too_few_options",
	poll.ErrEmptyOption:         "empty_option",
	poll.ErrOptionIndexRequired: "invalid_option_index",
	poll.ErrInvalidOptionIndex:  "invalid_option_index",
	poll.ErrEditFieldsRequired:  "missing_fields",
	poll.ErrInvalidEdit:         "invalid_edit",
}

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		slogLogger.Error("request failed", "error", err)
	}
	writeJSON(w, appErr.StatusCode(), appErr)
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "Internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ve *poll.ValidationError
	switch {
	case errors.As(err, &ve):
		code, ok := validationCodes[ve]
		if !ok {
			code = "invalid_input"
		}
		return apperr.BadRequest(code, ve.Message, err)
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "Poll not found", err)
	case errors.Is(err, poll.ErrInvalidPassword):
		return apperr.Unauthorized("invalid_password", "Invalid password", err)
	default:
		return apperr.Internal("internal_error", "Internal server error", err)
	}
}
