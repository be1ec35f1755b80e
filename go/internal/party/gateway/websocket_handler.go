package gateway

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// WebSocketHandler handles WebSocket upgrade requests for party feeds
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandlePartyConnection handles GET /ws/party?party_id=&player_token=
func (h *WebSocketHandler) HandlePartyConnection(w http.ResponseWriter, r *http.Request) {
	partyIDStr := r.URL.Query().Get("party_id")
	if partyIDStr == "" {
		http.Error(w, "party_id is required", http.StatusBadRequest)
		return
	}

	partyID, err := uuid.Parse(partyIDStr)
	if err != nil {
		http.Error(w, "invalid party_id format", http.StatusBadRequest)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("player_token"))

	// the upgrader has already answered the client when this fails
	if err := h.connectionManager.UpgradeConnection(w, r, partyID, token); err != nil {
		log.Error().
			Err(err).
			Str("party_id", partyID.String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	rpcutil.WriteJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/party", h.HandlePartyConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
