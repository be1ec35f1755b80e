package submission

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mcdev12/quizparty/go/internal/rpcutil"
)

// SubmissionApp defines what the service layer needs from the submission application
type SubmissionApp interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

// SubmitAnswerRequest is the wire payload of SubmitAnswer. Quiz parties send
// questionId and answerIndex; flashcard parties send flashcardId and knewIt.
type SubmitAnswerRequest struct {
	PartyID     string `json:"partyId"`
	PlayerToken string `json:"playerToken"`
	QuestionID  string `json:"questionId,omitempty"`
	AnswerIndex *int   `json:"answerIndex,omitempty"`
	FlashcardID string `json:"flashcardId,omitempty"`
	KnewIt      *bool  `json:"knewIt,omitempty"`
}

// SubmitAnswerResponse always reports a locked answer on success. Duplicate
// marks a retry that found an earlier submission; Revealed is set when this
// answer was the last one the question was waiting for.
type SubmitAnswerResponse struct {
	OK        bool `json:"ok"`
	Locked    bool `json:"locked"`
	Duplicate bool `json:"duplicate"`
	Revealed  bool `json:"revealed"`
}

// Service serves the SubmitAnswer procedure
type Service struct {
	app SubmissionApp
}

// NewService creates a new submission service
func NewService(app SubmissionApp) *Service {
	return &Service{app: app}
}

// Register mounts the submission procedure on mux
func (s *Service) Register(mux *http.ServeMux) {
	rpcutil.Handle(mux, "SubmitAnswer", s.SubmitAnswer)
}

// SubmitAnswer records the caller's answer to the current item
func (s *Service) SubmitAnswer(ctx context.Context, req *connect.Request[SubmitAnswerRequest]) (*connect.Response[SubmitAnswerResponse], error) {
	sessionID, err := rpcutil.ParseID("party id", req.Msg.PartyID)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}

	field, raw := "question id", req.Msg.QuestionID
	if raw == "" && req.Msg.FlashcardID != "" {
		field, raw = "flashcard id", req.Msg.FlashcardID
	}
	itemID, err := rpcutil.ParseID(field, raw)
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}

	result, err := s.app.Submit(ctx, SubmitRequest{
		SessionID:   sessionID,
		Token:       req.Msg.PlayerToken,
		ItemID:      itemID,
		ChoiceIndex: req.Msg.AnswerIndex,
		KnewIt:      req.Msg.KnewIt,
	})
	if err != nil {
		return nil, rpcutil.Error(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&SubmitAnswerResponse{
		OK:        true,
		Locked:    true,
		Duplicate: !result.Inserted,
		Revealed:  result.Revealed,
	}), nil
}
