package gateway

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinematch/internal/match"
	"cinematch/internal/session"
	"cinematch/internal/store"
	"cinematch/internal/voting"
	"cinematch/pkg/types"
)

// fakeConn records everything written to it.
type fakeConn struct {
	id     string
	msgs   []any
	closed bool
}

func (c *fakeConn) ID() string            { return c.id }
func (c *fakeConn) WriteJSON(v any) error { c.msgs = append(c.msgs, v); return nil }
func (c *fakeConn) Close() error          { c.closed = true; return nil }

func (c *fakeConn) matchResults() []matchResultMsg {
	var out []matchResultMsg
	for _, msg := range c.msgs {
		if m, ok := msg.(matchResultMsg); ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) errors() []errorMsg {
	var out []errorMsg
	for _, msg := range c.msgs {
		if m, ok := msg.(errorMsg); ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) countType(eventType string) int {
	n := 0
	for _, msg := range c.msgs {
		switch m := msg.(type) {
		case participantListMsg:
			if m.Type == eventType {
				n++
			}
		case votingStartedMsg:
			if m.Type == eventType {
				n++
			}
		case progressMsg:
			if m.Type == eventType {
				n++
			}
		case matchResultMsg:
			if m.Type == eventType {
				n++
			}
		case errorMsg:
			if m.Type == eventType {
				n++
			}
		}
	}
	return n
}

type fakeCatalog struct {
	movies []types.Movie
}

func (f *fakeCatalog) Movies(_ context.Context, _ []int) []types.Movie {
	return f.movies
}

func (f *fakeCatalog) MovieByID(id int) (types.Movie, bool) {
	for _, movie := range f.movies {
		if movie.ID == id {
			return movie, true
		}
	}
	return types.Movie{}, false
}

type fixture struct {
	hub      *Hub
	store    *store.Store
	sessions *session.Service
}

// newFixture wires a hub over real services and a three-movie catalog.
// Tests drive hub.process directly, mirroring the one-at-a-time delivery of
// the event loop without goroutine scheduling in the way.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	entities := store.New()
	movies := &fakeCatalog{movies: []types.Movie{
		{ID: 1, Title: "First", Rating: 7.0},
		{ID: 2, Title: "Second", Rating: 8.5},
		{ID: 3, Title: "Third", Rating: 6.5},
	}}
	sessions := session.NewService(entities, movies, zerolog.Nop())
	votes := voting.NewEngine(entities, zerolog.Nop())
	matches := match.NewEngine(entities, movies)

	hub := NewHub(entities, sessions, votes, matches, NewGroups(), zerolog.Nop())
	return &fixture{hub: hub, store: entities, sessions: sessions}
}

func (f *fixture) dispatch(conn sender, msg Inbound) {
	f.hub.process(event{conn: conn, msg: msg})
}

func (f *fixture) disconnect(conn sender) {
	f.hub.process(event{conn: conn, disconnect: true})
}

// setupVoting creates a two-participant session, connects both and starts
// voting.
func setupVoting(t *testing.T, f *fixture) (types.Session, types.Participant, types.Participant, *fakeConn, *fakeConn) {
	t.Helper()

	sess, host, err := f.sessions.CreateSession(context.Background(), "ana", nil)
	require.NoError(t, err)
	_, guest, err := f.sessions.JoinSession(sess.Code, "ben")
	require.NoError(t, err)

	hostConn := &fakeConn{id: "conn-host"}
	guestConn := &fakeConn{id: "conn-guest"}
	f.dispatch(hostConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: host.ID})
	f.dispatch(guestConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: guest.ID})

	f.dispatch(hostConn, Inbound{Type: EventStartVoting, RoomCode: sess.Code, ParticipantID: host.ID})

	return sess, host, guest, hostConn, guestConn
}

func voteAll(f *fixture, conn *fakeConn, sess types.Session, p types.Participant, choices map[int]types.VoteChoice) {
	for _, movieID := range sess.MovieIDs {
		choice, ok := choices[movieID]
		if !ok {
			choice = types.VoteNo
		}
		f.dispatch(conn, Inbound{
			Type:          EventSubmitVote,
			RoomCode:      sess.Code,
			ParticipantID: p.ID,
			MovieID:       movieID,
			Choice:        choice,
		})
	}
}

func TestJoinSessionEvent(t *testing.T) {
	t.Run("binds connection and broadcasts the roster", func(t *testing.T) {
		f := newFixture(t)
		sess, host, err := f.sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)

		conn := &fakeConn{id: "conn-1"}
		f.dispatch(conn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: host.ID})

		bound, ok := f.store.ParticipantByConn("conn-1")
		require.True(t, ok)
		assert.Equal(t, host.ID, bound.ID)

		require.Len(t, conn.msgs, 1)
		list, ok := conn.msgs[0].(participantListMsg)
		require.True(t, ok)
		assert.Equal(t, EventParticipantList, list.Type)
		require.Len(t, list.Users, 1)
		assert.Equal(t, "ana", list.Users[0].Name)
	})

	t.Run("unknown code errors the sender only", func(t *testing.T) {
		f := newFixture(t)
		conn := &fakeConn{id: "conn-1"}

		f.dispatch(conn, Inbound{Type: EventJoinSession, RoomCode: "ZZZZ-ZZZZ", ParticipantID: "nobody"})

		require.Len(t, conn.errors(), 1)
		assert.Equal(t, "ROOM_NOT_FOUND", conn.errors()[0].Code)
	})

	t.Run("participant of another session is rejected", func(t *testing.T) {
		f := newFixture(t)
		sess, _, err := f.sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)
		_, otherHost, err := f.sessions.CreateSession(context.Background(), "sam", nil)
		require.NoError(t, err)

		conn := &fakeConn{id: "conn-1"}
		f.dispatch(conn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: otherHost.ID})

		require.Len(t, conn.errors(), 1)
		assert.Equal(t, "USER_NOT_FOUND", conn.errors()[0].Code)
	})

	t.Run("rejoin evicts the previous connection from the group", func(t *testing.T) {
		f := newFixture(t)
		sess, host, err := f.sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)

		oldConn := &fakeConn{id: "conn-old"}
		newConn := &fakeConn{id: "conn-new"}
		f.dispatch(oldConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: host.ID})
		f.dispatch(newConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: host.ID})

		conns := f.hub.groups.Connections(sess.ID)
		require.Len(t, conns, 1)
		assert.Equal(t, "conn-new", conns[0].ID())

		// The old socket's read pump reports its disconnect after the
		// replacement; it no longer resolves to the participant and must
		// not disturb the new association.
		f.disconnect(oldConn)

		bound, ok := f.store.ParticipantByConn("conn-new")
		require.True(t, ok)
		assert.Equal(t, host.ID, bound.ID)
		require.Len(t, f.hub.groups.Connections(sess.ID), 1)

		oldWrites := len(oldConn.msgs)
		f.dispatch(newConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: host.ID})
		assert.Len(t, oldConn.msgs, oldWrites, "stale connection receives no further broadcasts")
	})

	t.Run("reconnect during voting replays state to the joiner only", func(t *testing.T) {
		f := newFixture(t)
		sess, host, guest, hostConn, _ := setupVoting(t, f)

		voteAll(f, hostConn, sess, host, nil)

		rejoined := &fakeConn{id: "conn-guest-2"}
		f.dispatch(rejoined, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: guest.ID})

		assert.Equal(t, 1, rejoined.countType(EventVotingStarted))
		// One progress entry per participant in the replay.
		assert.Equal(t, 2, rejoined.countType(EventProgress))

		bound, ok := f.store.ParticipantByConn("conn-guest-2")
		require.True(t, ok)
		assert.Equal(t, guest.ID, bound.ID)
	})
}

func TestStartVotingEvent(t *testing.T) {
	t.Run("broadcasts voting-started to the whole session", func(t *testing.T) {
		f := newFixture(t)
		_, _, _, hostConn, guestConn := setupVoting(t, f)

		assert.Equal(t, 1, hostConn.countType(EventVotingStarted))
		assert.Equal(t, 1, guestConn.countType(EventVotingStarted))
	})

	t.Run("non-host start errors the requester only", func(t *testing.T) {
		f := newFixture(t)
		sess, _, err := f.sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)
		_, guest, err := f.sessions.JoinSession(sess.Code, "ben")
		require.NoError(t, err)

		guestConn := &fakeConn{id: "conn-guest"}
		f.dispatch(guestConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: guest.ID})
		f.dispatch(guestConn, Inbound{Type: EventStartVoting, RoomCode: sess.Code, ParticipantID: guest.ID})

		require.Len(t, guestConn.errors(), 1)
		assert.Equal(t, "USER_NOT_HOST", guestConn.errors()[0].Code)

		current, _ := f.sessions.SessionByCode(sess.Code)
		assert.Equal(t, types.StatusWaiting, current.Status)
	})
}

// Scenario: everyone votes yes on a common movie, so the session converges
// on a perfect match the moment the last vote lands.
func TestAllYesYieldsPerfectMatch(t *testing.T) {
	f := newFixture(t)
	sess, host, guest, hostConn, guestConn := setupVoting(t, f)

	voteAll(f, hostConn, sess, host, map[int]types.VoteChoice{2: types.VoteYes})
	voteAll(f, guestConn, sess, guest, map[int]types.VoteChoice{2: types.VoteYes})

	current, _ := f.sessions.SessionByCode(sess.Code)
	assert.Equal(t, types.StatusFinished, current.Status)

	for _, conn := range []*fakeConn{hostConn, guestConn} {
		results := conn.matchResults()
		require.Len(t, results, 1, "each member gets exactly one result")
		assert.Equal(t, types.ResultPerfectMatch, results[0].Result.Type)
		require.NotNil(t, results[0].Result.Match)
		assert.Equal(t, 2, results[0].Result.Match.ID)
	}

	// Progress broadcasts reached everyone: 3 votes each, seen by both.
	assert.Equal(t, 6, hostConn.countType(EventProgress))
	assert.Equal(t, 6, guestConn.countType(EventProgress))
}

// Scenario: no unanimous movie, so the result falls back to ranked top
// picks.
func TestSplitVotesYieldTopPicks(t *testing.T) {
	f := newFixture(t)
	sess, host, guest, hostConn, guestConn := setupVoting(t, f)

	voteAll(f, hostConn, sess, host, map[int]types.VoteChoice{1: types.VoteYes, 2: types.VoteYes})
	voteAll(f, guestConn, sess, guest, map[int]types.VoteChoice{2: types.VoteNo, 3: types.VoteYes})

	current, _ := f.sessions.SessionByCode(sess.Code)
	assert.Equal(t, types.StatusFinished, current.Status)

	results := hostConn.matchResults()
	require.Len(t, results, 1)
	assert.Equal(t, types.ResultTopPicks, results[0].Result.Type)
	assert.Nil(t, results[0].Result.Match)
	assert.Equal(t, 3, len(results[0].Result.TopPicks))
}

// Scenario: one participant finishes, the other drops its connection. The
// disconnect completes the session for whoever is left.
func TestDisconnectCompletesBlockedSession(t *testing.T) {
	f := newFixture(t)
	sess, host, _, hostConn, guestConn := setupVoting(t, f)

	voteAll(f, hostConn, sess, host, map[int]types.VoteChoice{1: types.VoteYes})
	require.Empty(t, hostConn.matchResults(), "session still waiting on the guest")

	f.disconnect(guestConn)

	current, _ := f.sessions.SessionByCode(sess.Code)
	assert.Equal(t, types.StatusFinished, current.Status)

	require.Len(t, hostConn.matchResults(), 1)

	// The guest was not deleted, only detached.
	_, ok := f.store.ParticipantByConn("conn-guest")
	assert.False(t, ok)
	members := f.sessions.Participants(sess.ID)
	assert.Len(t, members, 2)
}

func TestFinishRunsOnce(t *testing.T) {
	f := newFixture(t)
	sess, host, guest, hostConn, guestConn := setupVoting(t, f)

	voteAll(f, hostConn, sess, host, nil)
	voteAll(f, guestConn, sess, guest, nil)
	require.Len(t, hostConn.matchResults(), 1)

	// A trailing disconnect re-evaluates the predicate; the finished status
	// guard must swallow it.
	f.disconnect(guestConn)

	assert.Len(t, hostConn.matchResults(), 1)
}

func TestLeaveSessionEvent(t *testing.T) {
	t.Run("removes the participant and reruns the predicate", func(t *testing.T) {
		f := newFixture(t)
		sess, host, guest, hostConn, guestConn := setupVoting(t, f)

		voteAll(f, hostConn, sess, host, nil)
		require.Empty(t, hostConn.matchResults())

		f.dispatch(guestConn, Inbound{Type: EventLeaveSession, RoomCode: sess.Code, ParticipantID: guest.ID})

		members := f.sessions.Participants(sess.ID)
		require.Len(t, members, 1)
		assert.Equal(t, host.ID, members[0].ID)

		// With the guest gone the host alone satisfies the predicate.
		require.Len(t, hostConn.matchResults(), 1)
	})

	t.Run("leaving while waiting broadcasts the shrunken roster", func(t *testing.T) {
		f := newFixture(t)
		sess, host, err := f.sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)
		_, guest, err := f.sessions.JoinSession(sess.Code, "ben")
		require.NoError(t, err)

		hostConn := &fakeConn{id: "conn-host"}
		guestConn := &fakeConn{id: "conn-guest"}
		f.dispatch(hostConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: host.ID})
		f.dispatch(guestConn, Inbound{Type: EventJoinSession, RoomCode: sess.Code, ParticipantID: guest.ID})

		f.dispatch(guestConn, Inbound{Type: EventLeaveSession, RoomCode: sess.Code, ParticipantID: guest.ID})

		current, _ := f.sessions.SessionByCode(sess.Code)
		assert.Equal(t, types.StatusWaiting, current.Status)
		assert.Len(t, f.sessions.Participants(sess.ID), 1)
	})
}

func TestForceFinishEvent(t *testing.T) {
	t.Run("host forces a result before everyone finished", func(t *testing.T) {
		f := newFixture(t)
		sess, host, _, hostConn, guestConn := setupVoting(t, f)

		voteAll(f, hostConn, sess, host, map[int]types.VoteChoice{1: types.VoteYes})

		f.dispatch(hostConn, Inbound{Type: EventForceFinish, RoomCode: sess.Code, ParticipantID: host.ID})

		current, _ := f.sessions.SessionByCode(sess.Code)
		assert.Equal(t, types.StatusFinished, current.Status)
		require.Len(t, hostConn.matchResults(), 1)
		require.Len(t, guestConn.matchResults(), 1)
	})

	t.Run("non-host is rejected", func(t *testing.T) {
		f := newFixture(t)
		sess, _, guest, _, guestConn := setupVoting(t, f)

		f.dispatch(guestConn, Inbound{Type: EventForceFinish, RoomCode: sess.Code, ParticipantID: guest.ID})

		require.Len(t, guestConn.errors(), 1)
		assert.Equal(t, "USER_NOT_HOST", guestConn.errors()[0].Code)

		current, _ := f.sessions.SessionByCode(sess.Code)
		assert.Equal(t, types.StatusVoting, current.Status)
	})
}

func TestVoteErrorsAreScoped(t *testing.T) {
	f := newFixture(t)
	sess, host, _, hostConn, guestConn := setupVoting(t, f)

	f.dispatch(hostConn, Inbound{
		Type:          EventSubmitVote,
		RoomCode:      sess.Code,
		ParticipantID: host.ID,
		MovieID:       999,
		Choice:        types.VoteYes,
	})

	require.Len(t, hostConn.errors(), 1)
	assert.Equal(t, "INVALID_MOVIE", hostConn.errors()[0].Code)
	assert.Empty(t, guestConn.errors())
	assert.Equal(t, 0, guestConn.countType(EventProgress))
}

func TestDispatch(t *testing.T) {
	t.Run("malformed frame errors the sender", func(t *testing.T) {
		f := newFixture(t)
		conn := &fakeConn{id: "conn-1"}

		f.hub.Dispatch(conn, []byte(`{"type":`))

		require.Len(t, conn.errors(), 1)
		assert.Equal(t, "VALIDATION_ERROR", conn.errors()[0].Code)
	})

	t.Run("valid frame is queued", func(t *testing.T) {
		f := newFixture(t)
		conn := &fakeConn{id: "conn-1"}

		f.hub.Dispatch(conn, []byte(`{"type":"join-session","roomCode":"ABCD-EFGH","userId":"u1"}`))

		require.Len(t, f.hub.events, 1)
		queued := <-f.hub.events
		assert.Equal(t, EventJoinSession, queued.msg.Type)
	})
}

func TestHubStartStop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.hub.Start(context.Background()))
	assert.ErrorIs(t, f.hub.Start(context.Background()), ErrHubAlreadyRunning)

	require.NoError(t, f.hub.Stop())
	assert.ErrorIs(t, f.hub.Stop(), ErrHubNotRunning)
}
