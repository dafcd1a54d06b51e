package internal

import "errors"

// Sentinel errors of the session lifecycle. Callers match them with
// errors.Is; the API layer maps them to HTTP statuses.
var (
	// ErrConflict: the operation would violate the single-active-session
	// invariant.
	ErrConflict = errors.New("an active fasting session already exists")
	// ErrNotFound: the referenced session or plan does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState: the operation is invalid for the session's current
	// lifecycle state.
	ErrInvalidState = errors.New("invalid session state")
)

// AppError is the wire shape of an error in API responses.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}
