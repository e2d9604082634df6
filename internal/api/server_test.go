package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinematch/internal/gateway"
	"cinematch/internal/session"
	"cinematch/internal/store"
	"cinematch/pkg/types"
)

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

func newTestServer(t *testing.T) (*httptest.Server, *session.Service) {
	t.Helper()

	entities := store.New()
	movies := &fakeCatalog{movies: []types.Movie{
		{ID: 1, Title: "First", Rating: 8.0},
		{ID: 2, Title: "Second", Rating: 7.0},
	}}
	sessions := session.NewService(entities, movies, zerolog.Nop())

	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	server := NewServer(sessions, entities, movies, gateway.NewGroups(), ws, "http://localhost:8080", zerolog.Nop())
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)

	return ts, sessions
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCreateRoom(t *testing.T) {
	t.Run("creates a room", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/rooms", map[string]any{"userName": "ana"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			RoomCode string        `json:"roomCode"`
			UserID   string        `json:"userId"`
			MovieIDs []int         `json:"movieIds"`
			Movies   []types.Movie `json:"movies"`
		}
		decodeBody(t, resp, &body)

		assert.True(t, types.IsValidCode(body.RoomCode))
		assert.NotEmpty(t, body.UserID)
		assert.Equal(t, []int{1, 2}, body.MovieIDs)
		require.Len(t, body.Movies, 2)
		assert.Equal(t, "First", body.Movies[0].Title)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/rooms", map[string]any{"userName": "  "})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp, err := http.Post(ts.URL+"/api/rooms", "application/json", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestJoinRoom(t *testing.T) {
	t.Run("joins an existing room", func(t *testing.T) {
		ts, sessions := newTestServer(t)
		sess, _, err := sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)

		resp := postJSON(t, ts.URL+"/api/rooms/join", map[string]any{"roomCode": sess.Code, "userName": "ben"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			RoomID   string                  `json:"roomId"`
			RoomCode string                  `json:"roomCode"`
			UserID   string                  `json:"userId"`
			Users    []types.ParticipantInfo `json:"users"`
		}
		decodeBody(t, resp, &body)

		assert.Equal(t, sess.ID, body.RoomID)
		assert.Equal(t, sess.Code, body.RoomCode)
		assert.NotEmpty(t, body.UserID)
		require.Len(t, body.Users, 2)
		assert.Equal(t, "ben", body.Users[1].Name)
	})

	t.Run("unknown code", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := postJSON(t, ts.URL+"/api/rooms/join", map[string]any{"roomCode": "ZZZZ-ZZZZ", "userName": "ben"})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "ROOM_NOT_FOUND", body["code"])
	})

	t.Run("started room refuses new members", func(t *testing.T) {
		ts, sessions := newTestServer(t)
		sess, host, err := sessions.CreateSession(context.Background(), "ana", nil)
		require.NoError(t, err)
		_, _, err = sessions.JoinSession(sess.Code, "ben")
		require.NoError(t, err)
		require.NoError(t, sessions.StartVoting(sess.Code, host.ID))

		resp := postJSON(t, ts.URL+"/api/rooms/join", map[string]any{"roomCode": sess.Code, "userName": "cleo"})
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "ROOM_ALREADY_STARTED", body["code"])
	})
}

func TestGetRoom(t *testing.T) {
	ts, sessions := newTestServer(t)
	sess, _, err := sessions.CreateSession(context.Background(), "ana", nil)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/api/rooms/%s", ts.URL, sess.Code))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Code     string                  `json:"code"`
		Status   types.SessionStatus     `json:"status"`
		Users    []types.ParticipantInfo `json:"users"`
		MovieIDs []int                   `json:"movieIds"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, sess.Code, body.Code)
	assert.Equal(t, types.StatusWaiting, body.Status)
	require.Len(t, body.Users, 1)
	assert.True(t, body.Users[0].Host)
	assert.Equal(t, []int{1, 2}, body.MovieIDs)

	t.Run("unknown room", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/rooms/ZZZZ-ZZZZ")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetUsers(t *testing.T) {
	ts, sessions := newTestServer(t)
	sess, _, err := sessions.CreateSession(context.Background(), "ana", nil)
	require.NoError(t, err)
	_, _, err = sessions.JoinSession(sess.Code, "ben")
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/api/rooms/%s/users", ts.URL, sess.Code))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Users []types.ParticipantInfo `json:"users"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Users, 2)
}

func TestRoomQR(t *testing.T) {
	ts, sessions := newTestServer(t)
	sess, _, err := sessions.CreateSession(context.Background(), "ana", nil)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("%s/api/rooms/%s/qr", ts.URL, sess.Code))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestMoviesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/movies")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Movies []types.Movie `json:"movies"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Movies, 2)
}

func TestHealth(t *testing.T) {
	ts, sessions := newTestServer(t)
	_, _, err := sessions.CreateSession(context.Background(), "ana", nil)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string         `json:"status"`
		Stats  map[string]int `json:"stats"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Stats["sessions"])
	assert.Equal(t, 1, body.Stats["participants"])
	assert.Equal(t, 0, body.Stats["connections"])
}
