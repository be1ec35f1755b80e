// Package submission records answers and reveals a question once every
// active player has answered.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/membership"
	"github.com/mcdev12/quizparty/go/internal/party/store"
	"github.com/mcdev12/quizparty/go/internal/party/timer"
)

// SubmissionRepository defines what the app layer needs from the repository
type SubmissionRepository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error)
	GetSubmission(ctx context.Context, membershipID, itemID uuid.UUID) (*models.Submission, error)
	RecordSubmission(ctx context.Context, p store.RecordSubmissionParams) (*models.Submission, bool, error)
	RevealAnswer(ctx context.Context, p store.RevealParams) (bool, error)
}

// DeckCatalog defines how the app layer reads decks
type DeckCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Deck, error)
}

// SubmitRequest is one answer to the party's current item
type SubmitRequest struct {
	SessionID   uuid.UUID
	Token       string
	ItemID      uuid.UUID
	ChoiceIndex *int
	KnewIt      *bool
}

// SubmitResult reports the stored submission. Inserted is false when an
// earlier attempt already recorded it.
type SubmitResult struct {
	Submission *models.Submission
	Inserted   bool
	Revealed   bool
}

// App handles submission business logic
type App struct {
	repo  SubmissionRepository
	decks DeckCatalog
	bus   events.Bus
	clock clockwork.Clock
}

// NewApp creates a new submission App
func NewApp(repo SubmissionRepository, decks DeckCatalog, bus events.Bus, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		decks: decks,
		bus:   bus,
		clock: clock,
	}
}

// Submit records the caller's answer to the current item. Retrying an
// accepted submission returns the stored one instead of an error.
func (a *App) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	member, err := membership.Resolve(ctx, a.repo, req.SessionID, req.Token)
	if err != nil {
		return nil, err
	}

	session, err := a.repo.GetSession(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("party not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if session.Status != models.SessionStatusActive {
		return nil, apperr.Precondition("party not active")
	}

	deck, err := a.decks.Get(ctx, session.DeckID)
	if err != nil {
		return nil, err
	}
	currentID, ok := deck.ItemID(session.Mode, session.CurrentIndex)
	if !ok || currentID != req.ItemID {
		return nil, apperr.Precondition("not the active question")
	}

	existing, err := a.repo.GetSubmission(ctx, member.ID, req.ItemID)
	switch {
	case err == nil:
		return &SubmitResult{Submission: existing}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	now := a.clock.Now()
	if err := checkOpen(session, now); err != nil {
		return nil, err
	}

	params := store.RecordSubmissionParams{
		ID:                uuid.New(),
		SessionID:         session.ID,
		MembershipID:      member.ID,
		ItemID:            req.ItemID,
		ItemIndex:         session.CurrentIndex,
		At:                now,
		RequireUnrevealed: session.Mode == models.SessionModeQuiz,
	}
	if session.Mode == models.SessionModeQuiz {
		q := deck.Question(session.CurrentIndex)
		choice := clampChoice(req.ChoiceIndex, len(q.Choices))
		elapsed := timer.Compute(timer.FromSession(session), now).ElapsedMs
		params.ChoiceIndex = &choice
		params.Correct = choice == q.CorrectIndex
		params.TimeMs = &elapsed
	} else {
		knew := req.KnewIt != nil && *req.KnewIt
		sinceReveal := now.Sub(*session.AnswerRevealedAt).Milliseconds()
		if sinceReveal < 0 {
			sinceReveal = 0
		}
		params.KnewIt = &knew
		params.Correct = knew
		params.TimeMs = &sinceReveal
	}
	if params.Correct {
		params.ScoreDelta = 1
	}

	sub, inserted, err := a.repo.RecordSubmission(ctx, params)
	if errors.Is(err, store.ErrSubmissionRejected) {
		return nil, a.rejection(ctx, session.ID, now)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}
	if !inserted {
		return &SubmitResult{Submission: sub}, nil
	}

	result := &SubmitResult{Submission: sub, Inserted: true}
	if session.Mode == models.SessionModeQuiz {
		result.Revealed, err = a.repo.RevealAnswer(ctx, store.RevealParams{
			ID:                 session.ID,
			ItemIndex:          session.CurrentIndex,
			ItemID:             req.ItemID,
			At:                 now,
			RequireAllAnswered: true,
		})
		if err != nil {
			// the answer is stored; expiry reveals the question later
			log.Error().Err(err).Str("party_id", session.ID.String()).Msg("failed to reveal answer")
		}
	}

	log.Debug().
		Str("party_id", session.ID.String()).
		Str("player_id", member.ID.String()).
		Int("index", session.CurrentIndex).
		Bool("revealed", result.Revealed).
		Msg("answer submitted")
	events.Notify(ctx, a.bus, session.ID, "answer_submitted")

	return result, nil
}

// checkOpen reports why the current item no longer takes answers, if it doesn't
func checkOpen(session *models.Session, now time.Time) error {
	if session.Mode == models.SessionModeFlashcards {
		if session.AnswerRevealedAt == nil {
			return apperr.Precondition("answer not revealed yet")
		}
		return nil
	}

	state := timer.Compute(timer.FromSession(session), now)
	switch {
	case state.IsPaused:
		return apperr.Precondition("timer paused")
	case state.RemainingMs <= 0:
		return apperr.Precondition("time expired")
	case session.AnswerRevealedAt != nil:
		return apperr.Precondition("answer revealed")
	}
	return nil
}

// rejection explains a submission the store refused because the party moved on
func (a *App) rejection(ctx context.Context, sessionID uuid.UUID, now time.Time) error {
	session, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return apperr.Precondition("question closed")
	}
	if session.Status != models.SessionStatusActive {
		return apperr.Precondition("party not active")
	}
	if err := checkOpen(session, now); err != nil {
		return err
	}
	return apperr.Precondition("not the active question")
}

func clampChoice(choice *int, choices int) int {
	if choice == nil || *choice < 0 {
		return 0
	}
	if *choice > choices-1 {
		return max(choices-1, 0)
	}
	return *choice
}
