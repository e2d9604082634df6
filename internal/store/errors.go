package store

import "errors"

// Membership errors returned by AddParticipant. The service layer maps them
// to client-facing error codes.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotWaiting = errors.New("session is not in the waiting phase")
	ErrSessionFull       = errors.New("session is at capacity")
)
