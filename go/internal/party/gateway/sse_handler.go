package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/party/state"
	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// SSEHandler serves the feed as text/event-stream
type SSEHandler struct {
	feed *Feed
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(feed *Feed) *SSEHandler {
	return &SSEHandler{feed: feed}
}

// HandleStream handles GET /api/parties/{id}/stream?playerToken=
func (h *SSEHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	partyID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rpcutil.WriteError(w, apperr.Invalidf("invalid party id", err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Debug().Str("party_id", partyID.String()).Msg("event stream opened")

	err = h.feed.Run(r.Context(), partyID, state.PlayerToken(r), func(f Frame) error {
		data, err := json.Marshal(f.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal frame: %w", err)
		}
		// snapshots go out as unnamed messages; only errors carry an event name
		if f.Event != EventState {
			if _, err := fmt.Fprintf(w, "event: %s\n", f.Event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("party_id", partyID.String()).Msg("event stream closed")
	}
}

// RegisterRoutes registers the SSE route
func (h *SSEHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/parties/{id}/stream", h.HandleStream)
}
