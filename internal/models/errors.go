package models

import "errors"

// Validation failures surfaced verbatim to the caller. Everything else a
// store operation can return is a connectivity error from the backend.
var (
	ErrNoSuchAction = errors.New("no such action")
	ErrNoSuchJob    = errors.New("no such job id")
	ErrUnauthorized = errors.New("user not authorized for this action")
	ErrNoWorkers    = errors.New("no workers available")
	ErrInvalidState = errors.New("job is not in a valid state for this operation")
)
