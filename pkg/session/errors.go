package session

import "errors"

var (
	// ErrInvalidState indicates an operation was called without the
	// state it requires, e.g. creating a session with no start instant.
	ErrInvalidState = errors.New("invalid state")
	// ErrNoActiveSession indicates an update or save with no session in
	// progress.
	ErrNoActiveSession = errors.New("no active session")
	// ErrNotFound indicates the requested session id is absent from the
	// durable list (or its record is unreadable).
	ErrNotFound = errors.New("session not found")
)
