package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marquee-ai/marquee/internal/agent"
	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/memory"
	"github.com/marquee-ai/marquee/internal/version"
)

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Trace     bool   `json:"trace,omitempty"`
}

// AskResponse is the reply to POST /v1/ask. Steps is populated only
// when the request asked for a trace.
type AskResponse struct {
	SessionID string       `json:"session_id"`
	Answer    string       `json:"answer"`
	Degraded  bool         `json:"degraded"`
	Steps     []agent.Step `json:"steps,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthzResponse reports the state of each collaborator. Status is
// "ok" only when every check passes; any failure flips it to
// "degraded" and the HTTP status to 503.
type HealthzResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks"`
	Providers []string          `json:"providers"`
}

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
	mux.HandleFunc("GET /v1/sessions", s.handleSessionList)
	mux.HandleFunc("GET /v1/sessions/{id}/turns", s.handleSessionTurns)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/chat", s.handleChat)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// handleAsk runs one question through the agent and returns the answer.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	result, err := s.agent.Run(ctx, req.SessionID, req.Message)
	if err != nil {
		s.log.Error().Err(err).Str("session", req.SessionID).Msg("ask failed")
		writeError(w, http.StatusBadGateway, "agent_error", err.Error())
		return
	}

	resp := AskResponse{
		SessionID: result.SessionID,
		Answer:    result.Answer,
		Degraded:  result.Degraded,
	}
	if req.Trace {
		resp.Steps = result.Steps
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.memory.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if sessions == nil {
		sessions = []memory.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionTurns(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turns, err := s.memory.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "turns": turns})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.memory.Clear(r.Context(), id); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.log.Info().Str("session", id).Msg("session cleared")
	w.WriteHeader(http.StatusNoContent)
}

// handleHealthz probes each collaborator and reports per-check results.
// It is exempt from auth so load balancers and probes can reach it.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthzResponse{
		Status:    "ok",
		Version:   version.Version,
		Checks:    map[string]string{},
		Providers: s.providers,
	}
	if resp.Providers == nil {
		resp.Providers = []string{}
	}
	if !s.startedAt.IsZero() {
		resp.Uptime = time.Since(s.startedAt).Round(time.Second).String()
	}

	if s.movies != nil {
		if err := s.movies.Ping(ctx); err != nil {
			resp.Checks["store"] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Checks["store"] = "ok"
		}
	}
	if s.index != nil {
		if err := s.index.Healthy(ctx); err != nil {
			resp.Checks["index"] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Checks["index"] = "ok"
		}
	}
	if len(resp.Providers) == 0 {
		resp.Checks["reasoner"] = "no providers configured"
		resp.Status = "degraded"
	} else {
		resp.Checks["reasoner"] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "not_found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, ErrorResponse{Error: kind, Message: message})
}
