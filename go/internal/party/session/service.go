package session

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// SessionApp defines what the service layer needs from the session application
type SessionApp interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Start(ctx context.Context, sessionID uuid.UUID, token string) error
	Advance(ctx context.Context, sessionID uuid.UUID, token string) (bool, error)
	Pause(ctx context.Context, sessionID uuid.UUID, token string) error
	Resume(ctx context.Context, sessionID uuid.UUID, token string) error
	SetDuration(ctx context.Context, sessionID uuid.UUID, token string, seconds int) (int, error)
	SetJoinLock(ctx context.Context, sessionID uuid.UUID, token string, locked bool) error
	Kick(ctx context.Context, sessionID uuid.UUID, token string, targetID uuid.UUID) error
}

type CreatePartyRequest struct {
	DeckID   string `json:"deckId"`
	HostName string `json:"hostName,omitempty"`
	AvatarID string `json:"avatarId,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

type CreatePartyResponse struct {
	OK          bool   `json:"ok"`
	PartyID     string `json:"partyId"`
	JoinCode    string `json:"joinCode"`
	PlayerToken string `json:"playerToken"`
	PlayerID    string `json:"playerId"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// HostRequest carries the party and the acting host's token
type HostRequest struct {
	PartyID     string `json:"partyId"`
	PlayerToken string `json:"playerToken"`
}

type AdvanceResponse struct {
	OK        bool `json:"ok"`
	Completed bool `json:"completed"`
}

type SetDurationRequest struct {
	PartyID             string `json:"partyId"`
	PlayerToken         string `json:"playerToken"`
	QuestionDurationSec int    `json:"questionDurationSec"`
}

type SetDurationResponse struct {
	OK                  bool `json:"ok"`
	QuestionDurationSec int  `json:"questionDurationSec"`
}

type SetJoinLockRequest struct {
	PartyID     string `json:"partyId"`
	PlayerToken string `json:"playerToken"`
	Locked      bool   `json:"locked"`
}

type KickRequest struct {
	PartyID     string `json:"partyId"`
	PlayerToken string `json:"playerToken"`
	PlayerID    string `json:"playerId"`
}

// Service serves the host-side procedures of the party service
type Service struct {
	app SessionApp
}

// NewService creates a new session service
func NewService(app SessionApp) *Service {
	return &Service{app: app}
}

// Register mounts the session procedures on mux
func (s *Service) Register(mux *http.ServeMux) {
	rpcutil.Handle(mux, "CreateSession", s.CreateSession)
	rpcutil.Handle(mux, "Start", s.hostOnly(s.app.Start))
	rpcutil.Handle(mux, "Advance", s.Advance)
	rpcutil.Handle(mux, "Pause", s.hostOnly(s.app.Pause))
	rpcutil.Handle(mux, "Resume", s.hostOnly(s.app.Resume))
	rpcutil.Handle(mux, "SetDuration", s.SetDuration)
	rpcutil.Handle(mux, "SetJoinLock", s.SetJoinLock)
	rpcutil.Handle(mux, "Kick", s.Kick)
}

// CreateSession hosts a party for the calling account
func (s *Service) CreateSession(ctx context.Context, req *connect.Request[CreatePartyRequest]) (*connect.Response[CreatePartyResponse], error) {
	deckID, err := rpcutil.ParseID("deck id", req.Msg.DeckID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}

	result, err := s.app.Create(ctx, CreateRequest{
		AccountID: rpcutil.AccountID(req.Header()),
		DeckID:    deckID,
		HostName:  req.Msg.HostName,
		AvatarID:  req.Msg.AvatarID,
		Mode:      models.SessionMode(req.Msg.Mode),
	})
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}

	return connect.NewResponse(&CreatePartyResponse{
		OK:          true,
		PartyID:     result.Session.ID.String(),
		JoinCode:    result.Session.JoinCode,
		PlayerToken: result.Host.Token,
		PlayerID:    result.Host.ID.String(),
		MaxPlayers:  result.MaxPlayers,
	}), nil
}

// hostOnly adapts an app action taking only the party and token into a handler
func (s *Service) hostOnly(action func(context.Context, uuid.UUID, string) error) func(context.Context, *connect.Request[HostRequest]) (*connect.Response[rpcutil.OKResponse], error) {
	return func(ctx context.Context, req *connect.Request[HostRequest]) (*connect.Response[rpcutil.OKResponse], error) {
		sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
		if err != nil {
			return nil, rpcutil.Error(req.Spec().Procedure, err)
		}
		if err := action(ctx, sessionID, req.Msg.PlayerToken); err != nil {
			return nil, rpcutil.Error(req.Spec().Procedure, err)
		}
		return connect.NewResponse(&rpcutil.OKResponse{OK: true}), nil
	}
}

// Advance moves the party to its next item
func (s *Service) Advance(ctx context.Context, req *connect.Request[HostRequest]) (*connect.Response[AdvanceResponse], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	completed, err := s.app.Advance(ctx, sessionID, req.Msg.PlayerToken)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&AdvanceResponse{OK: true, Completed: completed}), nil
}

// SetDuration changes the per-question countdown
func (s *Service) SetDuration(ctx context.Context, req *connect.Request[SetDurationRequest]) (*connect.Response[SetDurationResponse], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	duration, err := s.app.SetDuration(ctx, sessionID, req.Msg.PlayerToken, req.Msg.QuestionDurationSec)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&SetDurationResponse{OK: true, QuestionDurationSec: duration}), nil
}

// SetJoinLock opens or closes the party to new players
func (s *Service) SetJoinLock(ctx context.Context, req *connect.Request[SetJoinLockRequest]) (*connect.Response[rpcutil.OKResponse], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	if err := s.app.SetJoinLock(ctx, sessionID, req.Msg.PlayerToken, req.Msg.Locked); err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&rpcutil.OKResponse{OK: true}), nil
}

// Kick removes a guest from the party
func (s *Service) Kick(ctx context.Context, req *connect.Request[KickRequest]) (*connect.Response[rpcutil.OKResponse], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	targetID, err := rpcutil.ParseID("player id", req.Msg.PlayerID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	if err := s.app.Kick(ctx, sessionID, req.Msg.PlayerToken, targetID); err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&rpcutil.OKResponse{OK: true}), nil
}
