package poll

import "errors"

// ValidationError reports input the caller can fix and resubmit.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrInvalidPassword = errors.New("invalid password")

	ErrMissingFields       = &ValidationError{Message: "Question, options, and password are required"}
	ErrTooFewOptions       = &ValidationError{Message: "A poll must have at least 2 options"}
	ErrEmptyOption         = &ValidationError{Message: "Options must not be empty"}
	ErrOptionIndexRequired = &ValidationError{Message: "Valid option index is required"}
	ErrInvalidOptionIndex  = &ValidationError{Message: "Invalid option index"}
	ErrEditFieldsRequired  = &ValidationError{Message: "Password and action are required"}
	ErrInvalidEdit         = &ValidationError{Message: "Invalid action or option"}
)

// IsValidation reports whether err is a caller input failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
