package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/marquee-ai/marquee/internal/agent"
)

// ChatRequest is one inbound WebSocket message: a user utterance bound
// to an optional session. Omitting the session id starts a fresh
// session; later messages on the same connection stick to it.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatEvent is one outbound WebSocket frame, mirroring the agent's
// loop events. SessionID is set on final and error frames so the
// client can resume the conversation elsewhere.
type ChatEvent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	OK        bool            `json:"ok"`
	Degraded  bool            `json:"degraded,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// handleChat upgrades to WebSocket and runs a chat loop: each inbound
// message triggers one agent run whose events stream back as frames.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("chat connection opened")

	var sessionID string
	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("chat connection read error")
			}
			return
		}
		if req.SessionID != "" {
			sessionID = req.SessionID
		}
		if strings.TrimSpace(req.Message) == "" {
			conn.WriteJSON(ChatEvent{Type: agent.EventError, Text: "message is required", SessionID: sessionID})
			continue
		}

		// Resolve the session up front so every frame of this run can
		// name it, including the ones emitted before the run finishes.
		sess, err := s.memory.GetOrCreate(r.Context(), sessionID)
		if err != nil {
			conn.WriteJSON(ChatEvent{Type: agent.EventError, Text: err.Error()})
			continue
		}
		sessionID = sess.ID

		if !s.streamRun(r.Context(), conn, sessionID, req.Message) {
			return
		}
	}
}

// streamRun executes one agent run, forwarding its events to the
// connection. Returns false when the client is gone and the loop
// should end.
func (s *Server) streamRun(ctx context.Context, conn *websocket.Conn, sessionID, message string) bool {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	var writeErr error
	_, err := s.agent.RunStream(runCtx, sessionID, message, func(ev agent.Event) {
		if writeErr != nil {
			return
		}
		out := ChatEvent{
			Type:     ev.Type,
			Text:     ev.Text,
			Tool:     ev.Tool,
			Args:     ev.Args,
			OK:       ev.OK,
			Degraded: ev.Degraded,
		}
		if ev.Type == agent.EventFinal {
			out.SessionID = sessionID
		}
		if err := conn.WriteJSON(out); err != nil {
			// Client gone; stop paying for the rest of the run.
			writeErr = err
			cancel()
		}
	})

	if writeErr != nil {
		s.log.Debug().Err(writeErr).Str("session", sessionID).Msg("chat client disconnected mid-run")
		return false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("chat run failed")
		conn.WriteJSON(ChatEvent{Type: agent.EventError, Text: err.Error(), SessionID: sessionID})
	}
	return true
}
