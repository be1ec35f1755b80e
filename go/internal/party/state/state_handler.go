package state

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// StateHandler serves party snapshots over plain HTTP
type StateHandler struct {
	projector Projector
}

// NewStateHandler creates a new state handler
func NewStateHandler(projector Projector) *StateHandler {
	return &StateHandler{
		projector: projector,
	}
}

// HandleGetPartyState handles GET /api/parties/{id}/state?playerToken=
func (h *StateHandler) HandleGetPartyState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	partyID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rpcutil.WriteError(w, apperr.Invalidf("invalid party id", err))
		return
	}

	snap, err := h.projector.Build(r.Context(), partyID, PlayerToken(r))
	if err != nil {
		log.Debug().Err(err).Str("party_id", partyID.String()).Msg("state request failed")
		rpcutil.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	rpcutil.WriteJSON(w, http.StatusOK, snap)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/parties/{id}/state", h.HandleGetPartyState)
}

// PlayerToken reads the bearer token from the query string, accepting both
// playerToken and player_token.
func PlayerToken(r *http.Request) string {
	q := r.URL.Query()
	token := q.Get("playerToken")
	if token == "" {
		token = q.Get("player_token")
	}
	return strings.TrimSpace(token)
}
