package core

import "errors"

// Surface error taxonomy. Every operation failure wraps exactly one of these
// so callers (and the HTTP layer) classify with errors.Is.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInternal           = errors.New("internal error")
)
