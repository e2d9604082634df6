// Package api exposes the HTTP surface: session management endpoints, the
// movie catalog, health, and the websocket upgrade path. Handlers validate
// field presence and delegate everything else to the services.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"cinematch/internal/catalog"
	"cinematch/internal/gateway"
	"cinematch/internal/session"
	"cinematch/internal/store"
	"cinematch/pkg/apperr"
	"cinematch/pkg/types"
)

const requestTimeout = 15 * time.Second

// Server wires the request layer to the domain services.
type Server struct {
	sessions  *session.Service
	entities  *store.Store
	movies    catalog.Provider
	groups    *gateway.Groups
	ws        http.Handler
	publicURL string
	logger    zerolog.Logger
}

// NewServer creates the HTTP server. publicURL is the externally reachable
// base used when rendering join links.
func NewServer(sessions *session.Service, entities *store.Store, movies catalog.Provider, groups *gateway.Groups, ws http.Handler, publicURL string, logger zerolog.Logger) *Server {
	return &Server{
		sessions:  sessions,
		entities:  entities,
		movies:    movies,
		groups:    groups,
		ws:        ws,
		publicURL: publicURL,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/ws", s.ws)

	r.Route("/api", func(r chi.Router) {
		r.Post("/rooms", s.handleCreateRoom)
		r.Post("/rooms/join", s.handleJoinRoom)
		r.Get("/rooms/{code}", s.handleGetRoom)
		r.Get("/rooms/{code}/users", s.handleGetUsers)
		r.Get("/rooms/{code}/qr", s.handleRoomQR)
		r.Get("/movies", s.handleMovies)
	})

	return r
}

type createRoomRequest struct {
	UserName string `json:"userName"`
	GenreIDs []int  `json:"genreIds"`
}

type createRoomResponse struct {
	RoomCode string        `json:"roomCode"`
	UserID   string        `json:"userId"`
	MovieIDs []int         `json:"movieIds"`
	Movies   []types.Movie `json:"movies"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	sess, host, err := s.sessions.CreateSession(r.Context(), req.UserName, req.GenreIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomCode: sess.Code,
		UserID:   host.ID,
		MovieIDs: sess.MovieIDs,
		Movies:   s.resolveMovies(sess.MovieIDs),
	})
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	UserName string `json:"userName"`
}

type joinRoomResponse struct {
	RoomID   string                  `json:"roomId"`
	RoomCode string                  `json:"roomCode"`
	UserID   string                  `json:"userId"`
	MovieIDs []int                   `json:"movieIds"`
	Users    []types.ParticipantInfo `json:"users"`
	Movies   []types.Movie           `json:"movies"`
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	sess, participant, err := s.sessions.JoinSession(req.RoomCode, req.UserName)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, joinRoomResponse{
		RoomID:   sess.ID,
		RoomCode: sess.Code,
		UserID:   participant.ID,
		MovieIDs: sess.MovieIDs,
		Users:    s.sessions.Participants(sess.ID),
		Movies:   s.resolveMovies(sess.MovieIDs),
	})
}

type roomResponse struct {
	Code     string                  `json:"code"`
	Status   types.SessionStatus     `json:"status"`
	Users    []types.ParticipantInfo `json:"users"`
	MovieIDs []int                   `json:"movieIds"`
	Movies   []types.Movie           `json:"movies"`
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.SessionByCode(chi.URLParam(r, "code"))
	if !ok {
		s.writeError(w, apperr.SessionNotFound())
		return
	}

	s.writeJSON(w, http.StatusOK, roomResponse{
		Code:     sess.Code,
		Status:   sess.Status,
		Users:    s.sessions.Participants(sess.ID),
		MovieIDs: sess.MovieIDs,
		Movies:   s.resolveMovies(sess.MovieIDs),
	})
}

func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.SessionByCode(chi.URLParam(r, "code"))
	if !ok {
		s.writeError(w, apperr.SessionNotFound())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"users": s.sessions.Participants(sess.ID),
	})
}

// handleRoomQR renders the join link for a session as a PNG QR code, sized
// for scanning off a shared screen.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.SessionByCode(chi.URLParam(r, "code"))
	if !ok {
		s.writeError(w, apperr.SessionNotFound())
		return
	}

	joinURL := fmt.Sprintf("%s/join/%s", s.publicURL, sess.Code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		s.logger.Error().Err(err).Str("session", sess.ID).Msg("qr encoding failed")
		s.writeError(w, apperr.Internal())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"movies": s.movies.Movies(r.Context(), nil),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.entities.Stats()
	for k, v := range s.groups.Stats() {
		stats[k] = v
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  stats,
	})
}

func (s *Server) resolveMovies(ids []int) []types.Movie {
	movies := make([]types.Movie, 0, len(ids))
	for _, id := range ids {
		if movie, ok := s.movies.MovieByID(id); ok {
			movies = append(movies, movie)
		}
	}
	return movies
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("response encoding failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		s.logger.Error().Err(err).Msg("unexpected error")
	}

	s.writeJSON(w, appErr.Status, map[string]string{
		"error": appErr.Message,
		"code":  string(appErr.Code),
	})
}
