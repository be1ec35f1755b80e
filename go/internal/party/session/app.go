// Package session runs the party lifecycle: LOBBY, ACTIVE, COMPLETE.
//
// Every host action resolves the caller's token, checks the host pointer and
// then issues one conditional write. A write that loses a race is reported as
// success without a stamp bump, so double-clicks and retries are harmless.
package session

import (
	"context"
	"encoding/json"
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
	"github.com/mcdev12/quizparty/go/internal/party/results"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

// SessionRepository defines what the app layer needs from the repository
type SessionRepository interface {
	CreateSession(ctx context.Context, p store.CreateSessionParams) (*models.Session, *models.Membership, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	StartSession(ctx context.Context, p store.StartSessionParams) (bool, error)
	AdvanceSession(ctx context.Context, p store.AdvanceSessionParams) (bool, error)
	PauseSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ResumeSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetDuration(ctx context.Context, id uuid.UUID, durationSec int) (bool, error)
	SetJoinLocked(ctx context.Context, id uuid.UUID, locked bool) (bool, error)
	SetResults(ctx context.Context, id uuid.UUID, results json.RawMessage) error

	GetMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error)
	ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error)
	KickMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error)
}

// DeckCatalog defines how the app layer reads decks
type DeckCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Deck, error)
	Owned(ctx context.Context, id uuid.UUID, accountID string) (*models.Deck, error)
}

// App handles session business logic
type App struct {
	repo  SessionRepository
	decks DeckCatalog
	bus   events.Bus
	clock clockwork.Clock
	cfg   Config
}

// NewApp creates a new session App
func NewApp(repo SessionRepository, decks DeckCatalog, bus events.Bus, clock clockwork.Clock, cfg Config) *App {
	return &App{
		repo:  repo,
		decks: decks,
		bus:   bus,
		clock: clock,
		cfg:   cfg,
	}
}

// Create hosts a new LOBBY party on a deck the caller owns
func (a *App) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.AccountID == nil || *req.AccountID == "" {
		return nil, apperr.Unauthenticated("sign in to host a party")
	}

	mode := req.Mode
	if mode == "" {
		mode = models.SessionModeQuiz
	}
	if !mode.Valid() {
		return nil, apperr.Invalid("unknown party mode")
	}

	deck, err := a.decks.Owned(ctx, req.DeckID, *req.AccountID)
	if err != nil {
		return nil, err
	}
	if deck.ItemCount(mode) == 0 {
		if mode == models.SessionModeFlashcards {
			return nil, apperr.Precondition("deck has no flashcards")
		}
		return nil, apperr.Precondition("deck has no quiz questions")
	}

	hostName := membership.NormalizeName(req.HostName)
	if hostName == "" {
		hostName = "Host"
	}
	token, err := membership.NewToken()
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	params := store.CreateSessionParams{
		ID:            uuid.New(),
		DeckID:        deck.ID,
		Mode:          mode,
		DurationSec:   a.cfg.Timer.DefaultSeconds,
		HostAccountID: *req.AccountID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(a.cfg.Retention),
		Host: store.NewMembership{
			ID:        uuid.New(),
			Name:      hostName,
			Token:     token,
			AvatarID:  membership.ResolveAvatarID(req.AvatarID),
			AccountID: req.AccountID,
			JoinedAt:  now,
		},
	}

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := newJoinCode()
		if err != nil {
			return nil, err
		}
		params.JoinCode = code

		session, host, err := a.repo.CreateSession(ctx, params)
		if errors.Is(err, store.ErrJoinCodeTaken) {
			log.Debug().Str("join_code", code).Int("attempt", attempt+1).Msg("join code collision")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create party: %w", err)
		}

		log.Info().
			Str("party_id", session.ID.String()).
			Str("deck_id", deck.ID.String()).
			Str("mode", string(mode)).
			Msg("party created")
		events.Notify(ctx, a.bus, session.ID, "party_created")

		return &CreateResult{Session: session, Host: host, MaxPlayers: a.cfg.MaxPlayers}, nil
	}
	return nil, fmt.Errorf("failed to generate a unique join code after %d attempts", joinCodeAttempts)
}

// hostAction loads the party and checks that token holds its host pointer
func (a *App) hostAction(ctx context.Context, sessionID uuid.UUID, token string) (*models.Session, *models.Membership, error) {
	member, err := membership.Resolve(ctx, a.repo, sessionID, token)
	if err != nil {
		return nil, nil, err
	}
	session, err := a.repo.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.NotFound("party not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get party: %w", err)
	}
	if err := membership.RequireHost(session, member); err != nil {
		return nil, nil, err
	}
	return session, member, nil
}

// Start opens the first item. Starting an ACTIVE party is a no-op.
func (a *App) Start(ctx context.Context, sessionID uuid.UUID, token string) error {
	session, _, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return err
	}
	switch session.Status {
	case models.SessionStatusActive:
		return nil
	case models.SessionStatusComplete:
		return apperr.Precondition("party already completed")
	}

	deck, err := a.decks.Get(ctx, session.DeckID)
	if err != nil {
		return err
	}
	if deck.ItemCount(session.Mode) == 0 {
		return apperr.Precondition("party has no items to run")
	}

	ok, err := a.repo.StartSession(ctx, store.StartSessionParams{
		ID:           sessionID,
		At:           a.clock.Now(),
		RevealAtOnce: session.Mode == models.SessionModeFlashcards,
	})
	if err != nil {
		return fmt.Errorf("failed to start party: %w", err)
	}
	if ok {
		log.Info().Str("party_id", sessionID.String()).Msg("party started")
		events.Notify(ctx, a.bus, sessionID, "party_started")
	}
	return nil
}

// Advance closes the current item and opens the next one, or completes the
// party after the last item. Quiz parties award the fastest-correct bonus
// for the item being closed.
func (a *App) Advance(ctx context.Context, sessionID uuid.UUID, token string) (completed bool, err error) {
	session, _, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return false, err
	}
	if session.Status != models.SessionStatusActive {
		return false, apperr.Precondition("party not active")
	}

	deck, err := a.decks.Get(ctx, session.DeckID)
	if err != nil {
		return false, err
	}
	total := deck.ItemCount(session.Mode)
	if total == 0 {
		return false, apperr.Precondition("party has no items to run")
	}
	itemID, _ := deck.ItemID(session.Mode, session.CurrentIndex)
	complete := session.CurrentIndex+1 >= total

	ok, err := a.repo.AdvanceSession(ctx, store.AdvanceSessionParams{
		ID:           sessionID,
		FromIndex:    session.CurrentIndex,
		ItemID:       itemID,
		At:           a.clock.Now(),
		Complete:     complete,
		AwardBonus:   session.Mode == models.SessionModeQuiz,
		RevealAtOnce: session.Mode == models.SessionModeFlashcards,
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance party: %w", err)
	}
	if !ok {
		// another advance from the same cursor won
		return complete, nil
	}

	if complete {
		a.storeResults(ctx, session, deck)
		log.Info().Str("party_id", sessionID.String()).Msg("party completed")
		events.Notify(ctx, a.bus, sessionID, "party_completed")
		return true, nil
	}

	log.Debug().
		Str("party_id", sessionID.String()).
		Int("index", session.CurrentIndex+1).
		Msg("party advanced")
	events.Notify(ctx, a.bus, sessionID, "question_advanced")
	return false, nil
}

// storeResults freezes the leaderboard. A failure only costs a recompute
// on the next projection, so it is logged rather than returned.
func (a *App) storeResults(ctx context.Context, session *models.Session, deck *models.Deck) {
	summary, err := a.BuildResults(ctx, session, deck)
	if err == nil {
		var raw []byte
		raw, err = json.Marshal(summary)
		if err == nil {
			err = a.repo.SetResults(ctx, session.ID, raw)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("party_id", session.ID.String()).Msg("failed to store party results")
	}
}

// BuildResults summarizes a party from its roster and ledger
func (a *App) BuildResults(ctx context.Context, session *models.Session, deck *models.Deck) (*models.Results, error) {
	members, err := a.repo.ListMemberships(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	subs, err := a.repo.ListSubmissions(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return results.Build(deck, session.Mode, members, subs), nil
}

// Pause freezes the quiz countdown. Pausing a paused party is a no-op.
func (a *App) Pause(ctx context.Context, sessionID uuid.UUID, token string) error {
	session, _, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return err
	}
	if err := requirePausable(session); err != nil {
		return err
	}

	ok, err := a.repo.PauseSession(ctx, sessionID, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to pause party: %w", err)
	}
	if ok {
		events.Notify(ctx, a.bus, sessionID, "timer_paused")
	}
	return nil
}

// Resume restarts a paused countdown, banking the paused time.
func (a *App) Resume(ctx context.Context, sessionID uuid.UUID, token string) error {
	session, _, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return err
	}
	if err := requirePausable(session); err != nil {
		return err
	}

	ok, err := a.repo.ResumeSession(ctx, sessionID, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to resume party: %w", err)
	}
	if ok {
		events.Notify(ctx, a.bus, sessionID, "timer_resumed")
	}
	return nil
}

func requirePausable(session *models.Session) error {
	if session.Status != models.SessionStatusActive {
		return apperr.Precondition("party not active")
	}
	if session.Mode != models.SessionModeQuiz {
		return apperr.Precondition("pause is only for quiz parties")
	}
	return nil
}

// SetDuration clamps and stores the per-question duration, returning the stored value
func (a *App) SetDuration(ctx context.Context, sessionID uuid.UUID, token string, seconds int) (int, error) {
	session, _, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return 0, err
	}
	if session.Status == models.SessionStatusComplete {
		return 0, apperr.Precondition("party ended")
	}

	duration := a.cfg.Timer.Clamp(seconds)
	ok, err := a.repo.SetDuration(ctx, sessionID, duration)
	if err != nil {
		return 0, fmt.Errorf("failed to set question duration: %w", err)
	}
	if !ok {
		return 0, apperr.Precondition("party ended")
	}
	events.Notify(ctx, a.bus, sessionID, "duration_changed")
	return duration, nil
}

// SetJoinLock opens or closes the party to new players
func (a *App) SetJoinLock(ctx context.Context, sessionID uuid.UUID, token string, locked bool) error {
	session, _, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return err
	}
	if session.Status == models.SessionStatusComplete {
		return apperr.Precondition("party ended")
	}

	ok, err := a.repo.SetJoinLocked(ctx, sessionID, locked)
	if err != nil {
		return fmt.Errorf("failed to set join lock: %w", err)
	}
	if !ok {
		return apperr.Precondition("party ended")
	}
	events.Notify(ctx, a.bus, sessionID, "join_lock_changed")
	return nil
}

// Kick removes a guest for good. Kicking a kicked seat is a no-op.
func (a *App) Kick(ctx context.Context, sessionID uuid.UUID, token string, targetID uuid.UUID) error {
	session, host, err := a.hostAction(ctx, sessionID, token)
	if err != nil {
		return err
	}
	if session.Status == models.SessionStatusComplete {
		return apperr.Precondition("party ended")
	}
	if targetID == host.ID || session.IsHost(targetID) {
		return apperr.Precondition("cannot kick the host")
	}

	target, err := a.repo.GetMembership(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("player not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if target.SessionID != sessionID {
		return apperr.NotFound("player not found")
	}

	ok, err := a.repo.KickMembership(ctx, targetID, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to kick player: %w", err)
	}
	if ok {
		log.Info().
			Str("party_id", sessionID.String()).
			Str("player_id", targetID.String()).
			Msg("player kicked")
		events.Notify(ctx, a.bus, sessionID, "player_kicked")
	}
	return nil
}
