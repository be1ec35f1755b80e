package membership

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// MembershipApp defines what the service layer needs from the membership application
type MembershipApp interface {
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)
	Leave(ctx context.Context, sessionID uuid.UUID, token string) error
}

// JoinPartyRequest is the wire payload of Join
type JoinPartyRequest struct {
	PartyID     string `json:"partyId,omitempty"`
	Code        string `json:"code,omitempty"`
	Name        string `json:"name"`
	AvatarID    string `json:"avatarId,omitempty"`
	PlayerToken string `json:"playerToken,omitempty"`
}

// PlayerSeat is the caller's own seat, token included
type PlayerSeat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	PlayerToken string `json:"playerToken"`
	AvatarID    string `json:"avatarId"`
}

// JoinPartyResponse is the wire payload returned by Join
type JoinPartyResponse struct {
	OK          bool       `json:"ok"`
	PartyID     string     `json:"partyId"`
	JoinCode    string     `json:"joinCode"`
	Reconnected bool       `json:"reconnected"`
	Player      PlayerSeat `json:"player"`
}

// LeavePartyRequest is the wire payload of Leave
type LeavePartyRequest struct {
	PartyID     string `json:"partyId"`
	PlayerToken string `json:"playerToken"`
}

// Service serves the membership procedures of the party service
type Service struct {
	app MembershipApp
}

// NewService creates a new membership service
func NewService(app MembershipApp) *Service {
	return &Service{app: app}
}

// Register mounts the membership procedures on mux
func (s *Service) Register(mux *http.ServeMux) {
	rpcutil.Handle(mux, "Join", s.Join)
	rpcutil.Handle(mux, "Leave", s.Leave)
}

// Join seats the caller in a party
func (s *Service) Join(ctx context.Context, req *connect.Request[JoinPartyRequest]) (*connect.Response[JoinPartyResponse], error) {
	code := req.Msg.Code
	if code == "" {
		code = req.Msg.PartyID
	}

	result, err := s.app.Join(ctx, JoinRequest{
		Code:      code,
		Name:      req.Msg.Name,
		AvatarID:  req.Msg.AvatarID,
		Token:     req.Msg.PlayerToken,
		AccountID: rpcutil.AccountID(req.Header()),
	})
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}

	m := result.Membership
	return connect.NewResponse(&JoinPartyResponse{
		OK:          true,
		PartyID:     result.Session.ID.String(),
		JoinCode:    result.Session.JoinCode,
		Reconnected: result.Reconnected,
		Player: PlayerSeat{
			ID:          m.ID.String(),
			Name:        m.Name,
			Score:       m.Score,
			PlayerToken: m.Token,
			AvatarID:    m.AvatarID,
		},
	}), nil
}

// Leave gives up the caller's seat
func (s *Service) Leave(ctx context.Context, req *connect.Request[LeavePartyRequest]) (*connect.Response[rpcutil.OKResponse], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	if err := s.app.Leave(ctx, sessionID, req.Msg.PlayerToken); err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&rpcutil.OKResponse{OK: true}), nil
}
