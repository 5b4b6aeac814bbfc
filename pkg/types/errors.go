package types

import "errors"

// Request errors shared by the engine and the hook boundary.
var (
	ErrSessionRequired = errors.New("session id is required")
	ErrUnknownEvent    = errors.New("unknown hook event")
)
