// Package apperr defines the structured errors returned by all service-layer
// operations. Every expected failure carries a stable machine-readable code
// and the HTTP status the request boundary should map it to; real-time
// boundaries reuse the same codes in scoped error events.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies an error category to clients.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeRoomNotFound     Code = "ROOM_NOT_FOUND"
	CodeAlreadyStarted   Code = "ROOM_ALREADY_STARTED"
	CodeRoomNotReady     Code = "ROOM_NOT_READY"
	CodeRoomFull         Code = "ROOM_FULL"
	CodeUserNotFound     Code = "USER_NOT_FOUND"
	CodeUserNotHost      Code = "USER_NOT_HOST"
	CodeVotingNotStarted Code = "VOTING_NOT_STARTED"
	CodeAlreadyFinished  Code = "VOTING_ALREADY_FINISHED"
	CodeInvalidMovie     Code = "INVALID_MOVIE"
	CodeDuplicateVote    Code = "DUPLICATE_VOTE"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// Error is the (message, code, HTTP status) triple used for all expected
// failure conditions. Services return it; boundaries serialize it.
type Error struct {
	Code    Code
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error with an explicit status.
func New(code Code, status int, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Validation reports malformed client input.
func Validation(message string) *Error {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// SessionNotFound reports an unknown join code or session id.
func SessionNotFound() *Error {
	return New(CodeRoomNotFound, http.StatusNotFound, "session not found")
}

// AlreadyStarted reports a join or start attempt after the waiting phase.
func AlreadyStarted() *Error {
	return New(CodeAlreadyStarted, http.StatusConflict, "voting has already started")
}

// NotReady reports a start attempt with too few participants.
func NotReady() *Error {
	return New(CodeRoomNotReady, http.StatusConflict, "at least 2 participants are required to start")
}

// SessionFull reports a join attempt against a session at capacity.
func SessionFull() *Error {
	return New(CodeRoomFull, http.StatusConflict, "session is full")
}

// ParticipantNotFound reports an unknown participant, or one that does not
// belong to the addressed session.
func ParticipantNotFound() *Error {
	return New(CodeUserNotFound, http.StatusNotFound, "participant not found in session")
}

// NotHost reports a host-only action attempted by a non-host.
func NotHost() *Error {
	return New(CodeUserNotHost, http.StatusForbidden, "only the host can perform this action")
}

// VotingNotStarted reports a vote outside the voting phase.
func VotingNotStarted() *Error {
	return New(CodeVotingNotStarted, http.StatusConflict, "voting has not started")
}

// AlreadyFinishedVoting reports a late vote from a finished participant.
func AlreadyFinishedVoting() *Error {
	return New(CodeAlreadyFinished, http.StatusConflict, "participant has already finished voting")
}

// InvalidCandidate reports a vote for a movie outside the session's list.
func InvalidCandidate() *Error {
	return New(CodeInvalidMovie, http.StatusBadRequest, "movie is not a candidate in this session")
}

// DuplicateVote reports a second vote for the same (participant, movie) pair.
func DuplicateVote() *Error {
	return New(CodeDuplicateVote, http.StatusConflict, "vote already recorded for this movie")
}

// Internal wraps a truly unexpected failure. The original error is not
// exposed to clients.
func Internal() *Error {
	return New(CodeInternal, http.StatusInternalServerError, "an unexpected error occurred")
}

// From extracts the structured error from err, or degrades to Internal so
// boundaries never leak raw error text.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
