package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The dashboard is served from the same origin in production; the
	// default same-origin check stands.
}

// streamFrame is one inbound websocket message from the dashboard chat.
type streamFrame struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// handleStream serves the live chat socket. Each text frame runs one
// orchestrator call and the outcome is written back as one JSON frame, so a
// websocket client and a polling client see byte-identical answers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxBodyBytes)
	ip := clientIP(r)
	slog.Info("websocket session opened", "ip", ip)

	for {
		var frame streamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "err", err)
			}
			return
		}

		key := "web:" + defaultString(frame.UserID, ip)
		if !s.limiter.Allow("ip:"+ip) || !s.allowConversation(key) {
			s.writeStreamError(conn, "rate limit exceeded")
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		out, err := s.orch.Process(ctx, schema.Request{
			Message:         frame.Message,
			ConversationKey: key,
			Identity:        schema.Identity{UserID: frame.UserID, Channel: schema.ChannelWeb},
		})
		cancel()
		if err != nil {
			var vErr *schema.ValidationError
			if errors.As(err, &vErr) {
				s.writeStreamError(conn, vErr.Msg)
				continue
			}
			s.writeStreamError(conn, "internal error")
			continue
		}

		if err := conn.WriteJSON(out); err != nil {
			slog.Warn("websocket write failed", "err", err)
			return
		}
	}
}

func (s *Server) writeStreamError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(errorResponse{Error: msg}); err != nil {
		slog.Warn("websocket write failed", "err", err)
	}
}
