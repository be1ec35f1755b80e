package state

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// Projector defines what the transports need to render a party
type Projector interface {
	Build(ctx context.Context, sessionID uuid.UUID, token string) (*Snapshot, error)
}

type GetStateRequest struct {
	PartyID     string `json:"partyId"`
	PlayerToken string `json:"playerToken,omitempty"`
}

// Service serves the GetState procedure
type Service struct {
	projector Projector
}

// NewService creates a new state service
func NewService(projector Projector) *Service {
	return &Service{projector: projector}
}

// Register mounts the state procedure on mux
func (s *Service) Register(mux *http.ServeMux) {
	rpcutil.Handle(mux, "GetState", s.GetState)
}

// GetState returns the caller's view of a party
func (s *Service) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[Snapshot], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	snap, err := s.projector.Build(ctx, sessionID, req.Msg.PlayerToken)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(snap), nil
}
