package apperr

import "errors"

// Domain error kinds surfaced by the services. The handler layer maps them to
// HTTP statuses; nothing below the handlers knows about transports.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyExists    = errors.New("already exists")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)
