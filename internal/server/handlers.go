package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
	"github.com/jarvis-assistant/jarvis/internal/tools"
)

// processRequest is the web channel's JSON payload. ConversationKey is
// optional; it defaults to a per-user key so a dashboard session keeps one
// running context.
type processRequest struct {
	Message         string `json:"message"`
	UserID          string `json:"userId"`
	ConversationKey string `json:"conversationKey,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key := webConversationKey(req.ConversationKey, req.UserID, clientIP(r))
	if !s.allowConversation(key) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	out, err := s.orch.Process(r.Context(), schema.Request{
		Message:         req.Message,
		ConversationKey: key,
		Identity:        schema.Identity{UserID: req.UserID, Channel: schema.ChannelWeb},
	})
	if err != nil {
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			writeJSONError(w, http.StatusBadRequest, vErr.Msg)
			return
		}
		slog.Error("process failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.auth.Health(r.Context())

	code := http.StatusOK
	if report.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, struct {
		Service   string `json:"service"`
		Status    string `json:"status"`
		Providers any    `json:"providers"`
		Timestamp string `json:"timestamp"`
	}{
		Service:   "jarvis",
		Status:    report.Status,
		Providers: report.Providers,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success        bool              `json:"success"`
		Authentication schema.AuthStatus `json:"authentication"`
		Timestamp      string            `json:"timestamp"`
	}{
		Success:        true,
		Authentication: s.auth.Status(r.Context()),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// capability is one tool as shown to the dashboard so it can render what
// the assistant can do.
type capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider,omitempty"`
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	all := s.registry.All()
	names := all.Names()
	sort.Strings(names)

	caps := make([]capability, 0, len(names))
	for _, name := range names {
		t := all.Get(name)
		caps = append(caps, capability{
			Name:        t.Name(),
			Description: firstSentence(t.Description()),
			Provider:    tools.DomainOf(t.Name()),
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Tools []capability `json:"tools"`
	}{Tools: caps})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// webConversationKey derives the context key for a web request. Client keys
// are forced into the web: namespace so a web caller can never name another
// channel's context (e.g. a live phone call's phone:<CallSid> key).
func webConversationKey(clientKey, userID, ip string) string {
	if clientKey == "" {
		return "web:" + defaultString(userID, ip)
	}
	if !strings.HasPrefix(clientKey, "web:") {
		return "web:" + clientKey
	}
	return clientKey
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
