package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/reflex/go/internal/reaction/engine"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves the game WebSocket and the session HTTP routes
type WebSocketHandler struct {
	sessions *SessionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(sm *SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sm,
	}
}

// HandleGameConnection upgrades the request and starts a game session
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes its own HTTP error response on failure
	if _, err := h.sessions.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to start game session")
	}
}

// HandleSessionState returns the state snapshot of one session
func (h *WebSocketHandler) HandleSessionState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	snap, err := session.Engine.Snapshot(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrEngineStopped) {
			writeError(w, http.StatusGone, "session closed")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSessionStats returns statistics about active sessions
func (h *WebSocketHandler) HandleSessionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.GetSessionStats(r.Context()))
}

// HandleSettings returns the game settings new sessions use
func (h *WebSocketHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.settings)
}

// RegisterRoutes registers the gateway routes on a chi router
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/game", h.HandleGameConnection)
	r.Get("/ws/stats", h.HandleSessionStats)
	r.Get("/api/settings", h.HandleSettings)
	r.Get("/api/sessions/{sessionID}/state", h.HandleSessionState)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
