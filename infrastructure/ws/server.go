// Package ws exposes the gateway over a persistent websocket transport.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/david-camba/kafky-event-driven-chat/gateway"
)

type Server struct {
	log      *slog.Logger
	gateway  *gateway.Gateway
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, gw *gateway.Gateway) *Server {
	return &Server{
		log:     log,
		gateway: gw,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and runs the connection's read loop.
// Inbound frames are processed strictly in arrival order; the loop ends
// on the first read error, which is how transport closes surface.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	transport := newTransport(wsConn)
	conn := s.gateway.NewConnection(transport)
	s.log.Debug("Websocket session opened", "conn", conn.ID)

	wsConn.SetReadLimit(1 << 20)
	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			break
		}
		s.gateway.HandleFrame(r.Context(), conn, data)
	}

	_ = transport.Close()
	s.gateway.Disconnect(r.Context(), conn)
	s.log.Debug("Websocket session closed", "conn", conn.ID)
}
