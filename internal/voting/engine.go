// Package voting validates and records individual votes, derives per
// participant progress, and evaluates the session completion predicate.
package voting

import (
	"math"
	"slices"

	"github.com/rs/zerolog"

	"cinematch/internal/store"
	"cinematch/pkg/apperr"
	"cinematch/pkg/types"
)

// Engine is the vote bookkeeping component.
type Engine struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewEngine creates a voting engine.
func NewEngine(entities *store.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  entities,
		logger: logger.With().Str("component", "voting").Logger(),
	}
}

// SubmitVote records one yes/no decision and returns the participant's
// updated progress. Progress is always derived from the recorded vote count,
// never set directly, so it cannot drift from the vote log.
func (e *Engine) SubmitVote(code, participantID string, movieID int, choice types.VoteChoice) (progress int, finished bool, err error) {
	session, ok := e.store.SessionByCode(code)
	if !ok {
		return 0, false, apperr.SessionNotFound()
	}
	if session.Status != types.StatusVoting {
		return 0, false, apperr.VotingNotStarted()
	}

	participant, ok := e.store.ParticipantByID(participantID)
	if !ok || participant.SessionID != session.ID {
		return 0, false, apperr.ParticipantNotFound()
	}
	if participant.Finished {
		// Late votes after completion are rejected, not absorbed.
		return 0, false, apperr.AlreadyFinishedVoting()
	}
	if !slices.Contains(session.MovieIDs, movieID) {
		return 0, false, apperr.InvalidCandidate()
	}
	if e.store.HasVoted(participantID, movieID) {
		return 0, false, apperr.DuplicateVote()
	}

	e.store.CreateVote(participantID, session.ID, movieID, choice)

	total := len(session.MovieIDs)
	voted := e.store.VoteCount(participantID)
	progress = Progress(voted, total)
	finished = voted >= total
	e.store.SetParticipantProgress(participantID, progress, finished)

	e.logger.Debug().
		Str("session", session.ID).
		Str("participant", participantID).
		Int("movie", movieID).
		Int("progress", progress).
		Bool("finished", finished).
		Msg("vote recorded")

	return progress, finished, nil
}

// CompletionPredicate reports whether the session has converged: at least
// one participant finished, and every participant is either finished or
// currently disconnected. The first clause prevents a session whose members
// all disconnected before voting from completing spuriously.
func (e *Engine) CompletionPredicate(sessionID string) bool {
	participants := e.store.ParticipantsBySession(sessionID)
	if len(participants) == 0 {
		return false
	}

	anyFinished := false
	for _, participant := range participants {
		if participant.Finished {
			anyFinished = true
			continue
		}
		if participant.ConnID != "" {
			return false
		}
	}
	return anyFinished
}

// Progress converts a vote count to a 0-100 percentage.
func Progress(voted, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(voted) / float64(total) * 100))
}
