package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades HTTP requests to websocket connections and pumps their
// frames into the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a websocket handler feeding the given hub.
func NewHandler(hub *Hub, checkOrigin func(*http.Request) bool, logger zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP upgrades the request and runs the read pump until the client
// goes away. The hub learns about the connection lazily, on its first
// join-session event.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	conn := NewConnection(ws)
	h.logger.Debug().Str("conn", conn.ID()).Str("remote", r.RemoteAddr).Msg("connection opened")

	go h.pingLoop(conn, ws)
	h.readPump(conn, ws)
}

// readPump owns all reads on the socket. On exit the connection is closed
// and the hub is told so it can detach the participant.
func (h *Handler) readPump(conn *Connection, ws *websocket.Conn) {
	defer func() {
		h.hub.Disconnected(conn)
		conn.Close()
		h.logger.Debug().Str("conn", conn.ID()).Msg("connection closed")
	}()

	ws.SetReadDeadline(time.Now().Add(readDeadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("conn", conn.ID()).Msg("unexpected close")
			}
			return
		}
		h.hub.Dispatch(conn, data)
	}
}

// pingLoop keeps the connection alive; a client that stops answering pings
// trips the read deadline and tears the connection down.
func (h *Handler) pingLoop(conn *Connection, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlDeadline)); err != nil {
				return
			}
		case <-conn.ctx.Done():
			return
		}
	}
}
