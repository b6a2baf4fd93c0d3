package service

import "errors"

var (
	ErrInvalidEmail       = errors.New("email domain not allowed")
	ErrRateLimited        = errors.New("too many requests")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrNoPassword         = errors.New("no password set")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrRoomNotFound       = errors.New("room not found")
	ErrNotRoomMember      = errors.New("not a member of this room")
)

// ValidationError carries a client-facing message for malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(err error) error {
	return &ValidationError{Message: err.Error()}
}
