// Package ws exposes the realtime session protocol over websockets.
// One connection maps to one session.Client; the meeting is identified
// by the {meetingID} path segment.
package ws

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"minuted.app/session"
	"minuted.app/wire"
)

// Server upgrades connections and runs their read loops against the
// session handler.
type Server struct {
	registry   *session.Registry
	handler    *session.Handler
	logger     *log.Logger
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewServer(
	registry *session.Registry,
	handler *session.Handler,
	logger *log.Logger,
	sendBuffer int,
) *Server {
	return &Server{
		registry:   registry,
		handler:    handler,
		logger:     logger,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect straight from the meeting page;
			// auth of connecting clients is out of scope here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws/{meetingID}. A missing or blank meeting id
// is rejected before the upgrade, before any session state changes.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	meetingID := strings.TrimSpace(chi.URLParam(r, "meetingID"))
	if meetingID == "" {
		http.Error(w, "missing meeting id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(conn, s.sendBuffer)
	go client.writePump()

	s.registry.Connect(meetingID, client)
	s.readLoop(r, meetingID, client, conn)
}

// readLoop drives the protocol for one connection. Messages are
// handled synchronously, so a connection's own messages are applied in
// the order it sent them and chunk arrival is naturally paced by
// processing.
func (s *Server) readLoop(
	r *http.Request,
	meetingID string,
	client *Client,
	conn *websocket.Conn,
) {
	defer func() {
		s.handler.HandleDisconnect(meetingID, client)
		client.close()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				s.logger.Debug("connection dropped", "meeting", meetingID, "error", err)
			}
			return
		}

		msg, err := wire.DecodeInbound(data)
		if err != nil {
			// Malformed frame: ignore it, keep the connection open.
			s.logger.Debug("bad frame", "meeting", meetingID, "error", err)
			continue
		}

		s.handler.HandleMessage(r.Context(), meetingID, client, msg)
	}
}
