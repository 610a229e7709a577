package services

import "errors"

// Error kinds surfaced to the HTTP layer. Handlers map these to statuses
// with errors.Is; anything unmatched is an internal error reported
// generically with details only in the server logs.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)
