// Package session enforces the session state machine and membership rules:
// creation with a unique join code, joining while waiting, the host-only
// start transition, and the idempotent finish transition.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog"

	"cinematch/internal/catalog"
	"cinematch/internal/store"
	"cinematch/pkg/apperr"
	"cinematch/pkg/types"
)

const (
	// Capacity is the maximum number of participants per session.
	Capacity = 10
	// MinToStart is the minimum participant count for the start transition.
	MinToStart = 2

	// Join code alphabet; excludes the visually confusable 0, O, 1 and I.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeGroupLen = 4
)

// Service implements the session lifecycle on top of the entity store and
// the movie catalog.
type Service struct {
	store   *store.Store
	catalog catalog.Provider
	logger  zerolog.Logger
}

// NewService creates a session service.
func NewService(entities *store.Store, movies catalog.Provider, logger zerolog.Logger) *Service {
	return &Service{
		store:   entities,
		catalog: movies,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// CreateSession creates a waiting session with its host participant and a
// candidate list drawn from the catalog. The host participant is created
// first so its id can be embedded as the session's host, then attached.
func (s *Service) CreateSession(ctx context.Context, hostName string, genreIDs []int) (types.Session, types.Participant, error) {
	hostName = types.NormalizeName(hostName)
	if !types.IsValidName(hostName) {
		return types.Session{}, types.Participant{}, apperr.Validation("a display name of at most 30 characters is required")
	}

	movies := s.catalog.Movies(ctx, genreIDs)
	movieIDs := make([]int, len(movies))
	for i, movie := range movies {
		movieIDs[i] = movie.ID
	}

	host := s.store.CreateParticipant(hostName, "", true)

	// Random codes collide rarely at this scale; retry until the store
	// accepts one. Check and insert are atomic inside CreateSession.
	var session types.Session
	for {
		created, ok := s.store.CreateSession(host.ID, generateCode(), movieIDs)
		if ok {
			session = created
			break
		}
	}

	s.store.AttachParticipant(host.ID, session.ID)
	host.SessionID = session.ID

	s.logger.Info().
		Str("session", session.ID).
		Str("code", session.Code).
		Str("host", hostName).
		Int("candidates", len(movieIDs)).
		Msg("session created")

	return session, host, nil
}

// JoinSession adds a participant to a waiting session.
func (s *Service) JoinSession(code, name string) (types.Session, types.Participant, error) {
	name = types.NormalizeName(name)
	if !types.IsValidName(name) {
		return types.Session{}, types.Participant{}, apperr.Validation("a display name of at most 30 characters is required")
	}
	if strings.TrimSpace(code) == "" {
		return types.Session{}, types.Participant{}, apperr.Validation("a join code is required")
	}

	session, ok := s.store.SessionByCode(code)
	if !ok {
		return types.Session{}, types.Participant{}, apperr.SessionNotFound()
	}

	// Phase and capacity are re-checked inside AddParticipant, atomically
	// with the insert; the snapshot above could be stale by the time the
	// insert runs.
	participant, err := s.store.AddParticipant(session.ID, name, Capacity)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return types.Session{}, types.Participant{}, apperr.SessionNotFound()
	case errors.Is(err, store.ErrSessionNotWaiting):
		return types.Session{}, types.Participant{}, apperr.AlreadyStarted()
	case errors.Is(err, store.ErrSessionFull):
		return types.Session{}, types.Participant{}, apperr.SessionFull()
	case err != nil:
		return types.Session{}, types.Participant{}, err
	}

	s.logger.Info().
		Str("session", session.ID).
		Str("participant", participant.ID).
		Str("name", name).
		Msg("participant joined")

	return session, participant, nil
}

// StartVoting performs the only legal waiting -> voting transition. It is
// host-only and requires at least MinToStart participants.
func (s *Service) StartVoting(code, requesterID string) error {
	session, ok := s.store.SessionByCode(code)
	if !ok {
		return apperr.SessionNotFound()
	}
	if session.HostID != requesterID {
		return apperr.NotHost()
	}
	if session.Status != types.StatusWaiting {
		return apperr.AlreadyStarted()
	}
	if len(s.store.ParticipantsBySession(session.ID)) < MinToStart {
		return apperr.NotReady()
	}

	s.store.SetSessionStatus(session.ID, types.StatusVoting)
	s.logger.Info().Str("session", session.ID).Str("code", session.Code).Msg("voting started")
	return nil
}

// Finish transitions the session to Finished. Repeated calls are no-ops.
func (s *Service) Finish(sessionID string) {
	session, ok := s.store.SessionByID(sessionID)
	if !ok || session.Status == types.StatusFinished {
		return
	}
	s.store.SetSessionStatus(sessionID, types.StatusFinished)
	s.logger.Info().Str("session", sessionID).Msg("session finished")
}

// SessionByCode resolves a join code.
func (s *Service) SessionByCode(code string) (types.Session, bool) {
	return s.store.SessionByCode(code)
}

// Participants lists a session's participants as public info, in join order.
func (s *Service) Participants(sessionID string) []types.ParticipantInfo {
	participants := s.store.ParticipantsBySession(sessionID)
	infos := make([]types.ParticipantInfo, len(participants))
	for i, participant := range participants {
		infos[i] = participant.Info()
	}
	return infos
}

// ParticipantsByCode lists participants for a join code. Unknown codes yield
// an empty list; the caller decides whether that is an error.
func (s *Service) ParticipantsByCode(code string) []types.ParticipantInfo {
	session, ok := s.store.SessionByCode(code)
	if !ok {
		return nil
	}
	return s.Participants(session.ID)
}

// generateCode produces a join code in XXXX-XXXX format.
func generateCode() string {
	var b strings.Builder
	b.Grow(2*codeGroupLen + 1)
	for i := 0; i < 2*codeGroupLen; i++ {
		if i == codeGroupLen {
			b.WriteByte('-')
		}
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}
