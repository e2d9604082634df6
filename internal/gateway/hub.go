// Package gateway bridges persistent client connections to the session,
// voting and match services. It owns the connection-to-participant
// association and the session broadcast groups.
package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"cinematch/internal/match"
	"cinematch/internal/session"
	"cinematch/internal/store"
	"cinematch/internal/voting"
	"cinematch/pkg/apperr"
	"cinematch/pkg/types"
)

// event is one unit of work for the hub loop: either a decoded client
// message or an implicit disconnect.
type event struct {
	conn       sender
	msg        Inbound
	disconnect bool
}

// Hub processes all real-time events on a single goroutine. Each event runs
// to completion before the next is taken, so a vote and a disconnect can
// never interleave their completion checks: the check-then-finish sequence
// is atomic without per-session locks, and broadcasts follow mutations in
// processing order.
type Hub struct {
	store    *store.Store
	sessions *session.Service
	votes    *voting.Engine
	matches  *match.Engine
	groups   *Groups
	logger   zerolog.Logger

	events   chan event
	shutdown chan struct{}

	mu      sync.Mutex
	running bool
}

// NewHub creates a hub.
func NewHub(entities *store.Store, sessions *session.Service, votes *voting.Engine, matches *match.Engine, groups *Groups, logger zerolog.Logger) *Hub {
	return &Hub{
		store:    entities,
		sessions: sessions,
		votes:    votes,
		matches:  matches,
		groups:   groups,
		logger:   logger.With().Str("component", "gateway").Logger(),
		events:   make(chan event, 256),
		shutdown: make(chan struct{}),
	}
}

// Start launches the event loop.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}
	h.running = true

	go h.run(ctx)
	return nil
}

// Stop shuts the event loop down. Queued events are dropped.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdown)
	return nil
}

// Dispatch decodes one client frame and queues it. Malformed frames earn the
// sender a scoped error event and never reach the loop.
func (h *Hub) Dispatch(conn sender, data []byte) {
	msg, err := decodeInbound(data)
	if err != nil {
		h.sendError(conn, apperr.Validation(err.Error()))
		return
	}

	select {
	case h.events <- event{conn: conn, msg: msg}:
	case <-h.shutdown:
	}
}

// Disconnected queues the implicit disconnect event for a closed connection.
func (h *Hub) Disconnected(conn sender) {
	select {
	case h.events <- event{conn: conn, disconnect: true}:
	case <-h.shutdown:
	}
}

func (h *Hub) run(ctx context.Context) {
	defer h.logger.Info().Msg("event loop stopped")

	for {
		select {
		case ev := <-h.events:
			h.process(ev)
		case <-h.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) process(ev event) {
	if ev.disconnect {
		h.handleDisconnect(ev.conn)
		return
	}

	switch ev.msg.Type {
	case EventJoinSession:
		h.handleJoin(ev.conn, ev.msg)
	case EventStartVoting:
		h.handleStart(ev.conn, ev.msg)
	case EventSubmitVote:
		h.handleVote(ev.conn, ev.msg)
	case EventLeaveSession:
		h.handleLeave(ev.conn, ev.msg)
	case EventForceFinish:
		h.handleForceFinish(ev.conn, ev.msg)
	}
}

// handleJoin binds the connection to a participant, adds it to the session's
// broadcast group and announces the updated roster. A client (re)connecting
// to a session already in the voting phase gets the current state replayed
// to it alone.
func (h *Hub) handleJoin(conn sender, msg Inbound) {
	sess, ok := h.store.SessionByCode(msg.RoomCode)
	if !ok {
		h.sendError(conn, apperr.SessionNotFound())
		return
	}

	participant, ok := h.store.ParticipantByID(msg.ParticipantID)
	if !ok || participant.SessionID != sess.ID {
		h.sendError(conn, apperr.ParticipantNotFound())
		return
	}

	// A rejoin replaces the conn-index entry, so the old socket's eventual
	// disconnect can no longer resolve to this participant. Evict it from
	// the broadcast group now or it would receive every later broadcast.
	if participant.ConnID != "" && participant.ConnID != conn.ID() {
		h.groups.Leave(sess.ID, participant.ConnID)
	}

	h.store.SetParticipantConn(participant.ID, conn.ID())
	h.groups.Join(sess.ID, conn)

	infos := h.sessions.Participants(sess.ID)
	h.broadcast(sess.ID, participantListMsg{Type: EventParticipantList, Users: infos})

	if sess.Status == types.StatusVoting {
		h.send(conn, votingStartedMsg{Type: EventVotingStarted})
		for _, info := range infos {
			h.send(conn, progressMsg{
				Type:          EventProgress,
				ParticipantID: info.ID,
				Progress:      info.Progress,
				Finished:      info.Finished,
			})
		}
	}

	h.logger.Info().
		Str("session", sess.ID).
		Str("participant", participant.ID).
		Str("conn", conn.ID()).
		Msg("connection joined session")
}

func (h *Hub) handleStart(conn sender, msg Inbound) {
	if err := h.sessions.StartVoting(msg.RoomCode, msg.ParticipantID); err != nil {
		h.sendError(conn, err)
		return
	}

	sess, _ := h.store.SessionByCode(msg.RoomCode)
	h.broadcast(sess.ID, votingStartedMsg{Type: EventVotingStarted})
}

func (h *Hub) handleVote(conn sender, msg Inbound) {
	progress, finished, err := h.votes.SubmitVote(msg.RoomCode, msg.ParticipantID, msg.MovieID, msg.Choice)
	if err != nil {
		h.sendError(conn, err)
		return
	}

	sess, _ := h.store.SessionByCode(msg.RoomCode)
	h.broadcast(sess.ID, progressMsg{
		Type:          EventProgress,
		ParticipantID: msg.ParticipantID,
		Progress:      progress,
		Finished:      finished,
	})

	if h.votes.CompletionPredicate(sess.ID) {
		h.finishSession(sess.ID)
	}
}

// handleLeave removes the participant and its votes permanently. This is the
// only path that deletes a participant; transient disconnects go through
// handleDisconnect instead.
func (h *Hub) handleLeave(conn sender, msg Inbound) {
	participant, ok := h.store.ParticipantByID(msg.ParticipantID)
	if !ok {
		return
	}

	sess, ok := h.store.SessionByID(participant.SessionID)
	if !ok {
		return
	}

	h.store.DeleteParticipant(participant.ID)
	h.groups.Leave(sess.ID, conn.ID())
	if participant.ConnID != "" && participant.ConnID != conn.ID() {
		h.groups.Leave(sess.ID, participant.ConnID)
	}

	remaining := h.sessions.Participants(sess.ID)
	h.broadcast(sess.ID, participantListMsg{Type: EventParticipantList, Users: remaining})

	h.logger.Info().
		Str("session", sess.ID).
		Str("participant", participant.ID).
		Msg("participant left session")

	if sess.Status == types.StatusVoting && len(remaining) > 0 && h.votes.CompletionPredicate(sess.ID) {
		h.finishSession(sess.ID)
	}
}

// handleForceFinish lets the host bypass the completion predicate when
// remaining participants are unresponsive.
func (h *Hub) handleForceFinish(conn sender, msg Inbound) {
	sess, ok := h.store.SessionByCode(msg.RoomCode)
	if !ok {
		h.sendError(conn, apperr.SessionNotFound())
		return
	}

	participant, ok := h.store.ParticipantByID(msg.ParticipantID)
	if !ok || !participant.Host || participant.SessionID != sess.ID {
		h.sendError(conn, apperr.NotHost())
		return
	}

	if sess.Status != types.StatusVoting {
		return
	}

	h.logger.Info().Str("session", sess.ID).Msg("host forced finish")
	h.finishSession(sess.ID)
}

// handleDisconnect severs the connection association only. The participant
// stays in the session so it can reconnect, but a session blocked solely on
// the departed connection finishes now.
func (h *Hub) handleDisconnect(conn sender) {
	participant, ok := h.store.ParticipantByConn(conn.ID())
	if !ok {
		return
	}

	h.store.SetParticipantConn(participant.ID, "")
	h.groups.Leave(participant.SessionID, conn.ID())

	h.logger.Info().
		Str("session", participant.SessionID).
		Str("participant", participant.ID).
		Msg("participant disconnected")

	sess, ok := h.store.SessionByID(participant.SessionID)
	if ok && sess.Status == types.StatusVoting && h.votes.CompletionPredicate(sess.ID) {
		h.finishSession(sess.ID)
	}
}

// finishSession runs the compute -> finish -> broadcast sequence exactly
// once. The predicate can fire from two triggers in quick succession (a vote
// then a disconnect); the status guard makes the second invocation a no-op.
func (h *Hub) finishSession(sessionID string) {
	sess, ok := h.store.SessionByID(sessionID)
	if !ok || sess.Status == types.StatusFinished {
		return
	}

	result, err := h.matches.ComputeResult(sessionID)
	if err != nil {
		h.logger.Error().Err(err).Str("session", sessionID).Msg("match computation failed")
		return
	}

	h.sessions.Finish(sessionID)
	h.broadcast(sessionID, matchResultMsg{Type: EventMatchResult, Result: result})

	h.logger.Info().
		Str("session", sessionID).
		Str("result", result.Type).
		Msg("match result broadcast")
}

func (h *Hub) broadcast(sessionID string, v any) {
	for _, conn := range h.groups.Connections(sessionID) {
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Warn().Err(err).Str("conn", conn.ID()).Msg("broadcast delivery failed")
		}
	}
}

func (h *Hub) send(conn sender, v any) {
	if err := conn.WriteJSON(v); err != nil {
		h.logger.Warn().Err(err).Str("conn", conn.ID()).Msg("send failed")
	}
}

// sendError emits a scoped error event to the originating connection only.
// Errors are never broadcast.
func (h *Hub) sendError(conn sender, err error) {
	appErr := apperr.From(err)
	h.send(conn, errorMsg{Type: EventError, Message: appErr.Message, Code: string(appErr.Code)})
}
