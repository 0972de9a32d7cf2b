package session

import "errors"

var (
	// ErrNotFound is returned for operations on a session that was never initialized.
	ErrNotFound = errors.New("not_found")
	// ErrRunStarted rejects settings changes once a start event exists.
	ErrRunStarted = errors.New("run_started")
	// ErrInvalidArgument marks input rejected at the boundary.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized is returned when the caller may not control the session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrClosed is returned after the App has been closed.
	ErrClosed = errors.New("session app closed")
)
