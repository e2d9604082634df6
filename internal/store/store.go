// Package store implements the process-wide in-memory entity repository.
// It is the single source of truth for sessions, participants and votes;
// every other component reads and writes through it.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cinematch/pkg/types"
)

// Store holds all entities plus the secondary indexes needed for O(1)
// lookup by join code, by session and by connection handle.
//
// A single coarse lock protects the whole store. The gateway serializes all
// real-time events through one goroutine, but HTTP handlers run concurrently
// with it, and finer-grained locking would break the atomicity the
// completion-predicate check relies on.
//
// Lookups return value snapshots, never pointers into the maps; all mutation
// goes through Store methods.
type Store struct {
	mu sync.RWMutex

	sessions     map[string]*types.Session
	participants map[string]*types.Participant
	votes        map[string]*types.Vote

	sessionIDByCode       map[string]string   // normalized code -> session id
	participantsBySession map[string][]string // session id -> participant ids, join order
	votesBySession        map[string][]string // session id -> vote ids
	votesByParticipant    map[string][]string // participant id -> vote ids
	participantIDByConn   map[string]string   // connection handle -> participant id
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions:              make(map[string]*types.Session),
		participants:          make(map[string]*types.Participant),
		votes:                 make(map[string]*types.Vote),
		sessionIDByCode:       make(map[string]string),
		participantsBySession: make(map[string][]string),
		votesBySession:        make(map[string][]string),
		votesByParticipant:    make(map[string][]string),
		participantIDByConn:   make(map[string]string),
	}
}

// CreateSession registers a new waiting session under the given join code.
// The uniqueness check and the insertion happen under one lock acquisition,
// so the caller can simply retry with a fresh code when ok is false.
func (s *Store) CreateSession(hostID, code string, movieIDs []int) (types.Session, bool) {
	code = types.NormalizeCode(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.sessionIDByCode[code]; taken {
		return types.Session{}, false
	}

	session := &types.Session{
		ID:        uuid.New().String(),
		Code:      code,
		Status:    types.StatusWaiting,
		HostID:    hostID,
		MovieIDs:  append([]int(nil), movieIDs...),
		CreatedAt: time.Now(),
	}

	s.sessions[session.ID] = session
	s.sessionIDByCode[code] = session.ID
	s.participantsBySession[session.ID] = nil
	s.votesBySession[session.ID] = nil

	return snapshotSession(session), true
}

// SessionByID returns a snapshot of the session, if present.
func (s *Store) SessionByID(sessionID string) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return types.Session{}, false
	}
	return snapshotSession(session), true
}

// SessionByCode resolves a join code (case-insensitively) to its session.
func (s *Store) SessionByCode(code string) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, ok := s.sessionIDByCode[types.NormalizeCode(code)]
	if !ok {
		return types.Session{}, false
	}
	return snapshotSession(s.sessions[sessionID]), true
}

// SetSessionStatus updates the lifecycle status. Returns false when the
// session does not exist.
func (s *Store) SetSessionStatus(sessionID string, status types.SessionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	session.Status = status
	return true
}

// DeleteSession removes the session together with all of its participants
// and votes, and releases the join code.
func (s *Store) DeleteSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	for _, participantID := range s.participantsBySession[sessionID] {
		s.deleteParticipantLocked(participantID, false)
	}
	for _, voteID := range s.votesBySession[sessionID] {
		delete(s.votes, voteID)
	}

	delete(s.sessionIDByCode, session.Code)
	delete(s.participantsBySession, sessionID)
	delete(s.votesBySession, sessionID)
	delete(s.sessions, sessionID)

	return true
}

// CreateParticipant adds a participant. sessionID may be empty when the host
// is created before its session; AttachParticipant completes the link.
func (s *Store) CreateParticipant(name, sessionID string, host bool) types.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant := &types.Participant{
		ID:        uuid.New().String(),
		Name:      name,
		SessionID: sessionID,
		Host:      host,
	}

	s.participants[participant.ID] = participant
	s.votesByParticipant[participant.ID] = nil
	if sessionID != "" {
		s.participantsBySession[sessionID] = append(s.participantsBySession[sessionID], participant.ID)
	}

	return *participant
}

// AddParticipant inserts a non-host member, checking the session's phase and
// capacity under the same lock acquisition as the insert. HTTP join requests
// run on concurrent goroutines, so a check done outside this method could
// admit members past capacity or after the voting transition.
func (s *Store) AddParticipant(sessionID, name string, capacity int) (types.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return types.Participant{}, ErrSessionNotFound
	}
	if session.Status != types.StatusWaiting {
		return types.Participant{}, ErrSessionNotWaiting
	}
	if len(s.participantsBySession[sessionID]) >= capacity {
		return types.Participant{}, ErrSessionFull
	}

	participant := &types.Participant{
		ID:        uuid.New().String(),
		Name:      name,
		SessionID: sessionID,
	}

	s.participants[participant.ID] = participant
	s.votesByParticipant[participant.ID] = nil
	s.participantsBySession[sessionID] = append(s.participantsBySession[sessionID], participant.ID)

	return *participant, nil
}

// AttachParticipant binds a previously created participant to its session.
func (s *Store) AttachParticipant(participantID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return false
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}

	participant.SessionID = sessionID
	s.participantsBySession[sessionID] = append(s.participantsBySession[sessionID], participantID)
	return true
}

// ParticipantByID returns a snapshot of the participant, if present.
func (s *Store) ParticipantByID(participantID string) (types.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return types.Participant{}, false
	}
	return *participant, true
}

// ParticipantByConn resolves a connection handle to its participant.
func (s *Store) ParticipantByConn(connID string) (types.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participantID, ok := s.participantIDByConn[connID]
	if !ok {
		return types.Participant{}, false
	}
	return *s.participants[participantID], true
}

// ParticipantsBySession lists a session's participants in join order.
func (s *Store) ParticipantsBySession(sessionID string) []types.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.participantsBySession[sessionID]
	participants := make([]types.Participant, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, *s.participants[id])
	}
	return participants
}

// SetParticipantConn replaces the participant's connection handle. An empty
// connID marks the participant as disconnected; the participant itself is
// kept so it can reconnect later.
func (s *Store) SetParticipantConn(participantID, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return false
	}

	if participant.ConnID != "" {
		delete(s.participantIDByConn, participant.ConnID)
	}
	participant.ConnID = connID
	if connID != "" {
		s.participantIDByConn[connID] = participantID
	}
	return true
}

// SetParticipantProgress records derived voting progress and the finished
// flag. The finished flag is never cleared once set.
func (s *Store) SetParticipantProgress(participantID string, progress int, finished bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return false
	}
	participant.Progress = progress
	participant.Finished = participant.Finished || finished
	return true
}

// DeleteParticipant removes the participant, its votes and its connection
// index entry. Used only for explicit leave, never for disconnects.
func (s *Store) DeleteParticipant(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteParticipantLocked(participantID, true)
}

func (s *Store) deleteParticipantLocked(participantID string, detachFromSession bool) bool {
	participant, ok := s.participants[participantID]
	if !ok {
		return false
	}

	if participant.ConnID != "" {
		delete(s.participantIDByConn, participant.ConnID)
	}

	for _, voteID := range s.votesByParticipant[participantID] {
		vote := s.votes[voteID]
		delete(s.votes, voteID)
		if vote != nil {
			s.votesBySession[vote.SessionID] = removeID(s.votesBySession[vote.SessionID], voteID)
		}
	}
	delete(s.votesByParticipant, participantID)

	if detachFromSession && participant.SessionID != "" {
		s.participantsBySession[participant.SessionID] = removeID(s.participantsBySession[participant.SessionID], participantID)
	}

	delete(s.participants, participantID)
	return true
}

// CreateVote records a vote. Duplicate detection is the voting engine's
// responsibility; the store only maintains integrity and indexes.
func (s *Store) CreateVote(participantID, sessionID string, movieID int, choice types.VoteChoice) types.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote := &types.Vote{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		SessionID:     sessionID,
		MovieID:       movieID,
		Choice:        choice,
		CreatedAt:     time.Now(),
	}

	s.votes[vote.ID] = vote
	s.votesBySession[sessionID] = append(s.votesBySession[sessionID], vote.ID)
	s.votesByParticipant[participantID] = append(s.votesByParticipant[participantID], vote.ID)

	return *vote
}

// HasVoted reports whether the participant already voted for the movie.
func (s *Store) HasVoted(participantID string, movieID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, voteID := range s.votesByParticipant[participantID] {
		if s.votes[voteID].MovieID == movieID {
			return true
		}
	}
	return false
}

// VotesBySession lists all votes recorded for a session.
func (s *Store) VotesBySession(sessionID string) []types.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.votesBySession[sessionID]
	votes := make([]types.Vote, 0, len(ids))
	for _, id := range ids {
		votes = append(votes, *s.votes[id])
	}
	return votes
}

// VotesByParticipant lists all votes recorded by a participant.
func (s *Store) VotesByParticipant(participantID string) []types.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.votesByParticipant[participantID]
	votes := make([]types.Vote, 0, len(ids))
	for _, id := range ids {
		votes = append(votes, *s.votes[id])
	}
	return votes
}

// VoteCount returns the number of votes a participant has recorded.
func (s *Store) VoteCount(participantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votesByParticipant[participantID])
}

// Stats returns entity counts for monitoring.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]int{
		"sessions":     len(s.sessions),
		"participants": len(s.participants),
		"votes":        len(s.votes),
	}
}

func snapshotSession(session *types.Session) types.Session {
	snapshot := *session
	snapshot.MovieIDs = append([]int(nil), session.MovieIDs...)
	return snapshot
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
