// Package membership tracks who sits in a party and under which bearer token.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

// MembershipRepository defines what the app layer needs from the repository
type MembershipRepository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error)
	InsertMembership(ctx context.Context, p store.InsertMembershipParams) (*models.Membership, error)
	GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error)
	RejoinMembership(ctx context.Context, p store.RejoinMembershipParams) (bool, error)
	LeaveMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// App handles membership business logic
type App struct {
	repo  MembershipRepository
	bus   events.Bus
	clock clockwork.Clock
	cfg   Config
}

// NewApp creates a new membership App
func NewApp(repo MembershipRepository, bus events.Bus, clock clockwork.Clock, cfg Config) *App {
	return &App{
		repo:  repo,
		bus:   bus,
		clock: clock,
		cfg:   cfg,
	}
}

// Join seats a player, or reconnects the seat that already holds req.Token.
// Retrying with the same token never creates a second seat. A seat that left
// comes back under the same lock and capacity rules as a new player.
func (a *App) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, apperr.Invalid("missing party code")
	}

	session, err := a.lookupSession(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusComplete {
		return nil, apperr.Precondition("party already completed")
	}

	if token := strings.TrimSpace(req.Token); token != "" {
		result, err := a.reconnect(ctx, session, token, req.AccountID)
		if err != nil || result != nil {
			return result, err
		}
	}

	if session.JoinLocked {
		return nil, apperr.Forbidden("party is locked")
	}

	name := NormalizeName(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	member, err := a.repo.InsertMembership(ctx, store.InsertMembershipParams{
		SessionID: session.ID,
		Member: store.NewMembership{
			ID:        uuid.New(),
			Name:      name,
			Token:     token,
			AvatarID:  ResolveAvatarID(req.AvatarID),
			AccountID: req.AccountID,
			JoinedAt:  a.clock.Now(),
		},
		MaxPlayers: a.cfg.MaxPlayers,
	})
	switch {
	case errors.Is(err, store.ErrSessionFull):
		return nil, apperr.Precondition("party is full")
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("party not found")
	case err != nil:
		return nil, fmt.Errorf("failed to insert membership: %w", err)
	}

	log.Info().
		Str("party_id", session.ID.String()).
		Str("player_id", member.ID.String()).
		Msg("player joined")
	events.Notify(ctx, a.bus, session.ID, "player_joined")

	return &JoinResult{Session: session, Membership: member}, nil
}

// reconnect returns a nil result when token does not belong to session,
// so the caller falls through to a fresh join.
func (a *App) reconnect(ctx context.Context, session *models.Session, token string, accountID *string) (*JoinResult, error) {
	member, err := a.repo.GetMembershipByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member.SessionID != session.ID {
		return nil, nil
	}
	if member.Kicked() {
		return nil, apperr.Removed()
	}

	now := a.clock.Now()
	ok, err := a.repo.RejoinMembership(ctx, store.RejoinMembershipParams{
		ID:         member.ID,
		At:         now,
		AccountID:  accountID,
		MaxPlayers: a.cfg.MaxPlayers,
	})
	switch {
	case errors.Is(err, store.ErrSessionLocked):
		return nil, apperr.Forbidden("party is locked")
	case errors.Is(err, store.ErrSessionFull):
		return nil, apperr.Precondition("party is full")
	case err != nil:
		return nil, fmt.Errorf("failed to rejoin membership: %w", err)
	case !ok:
		// kicked between the read and the update
		return nil, apperr.Removed()
	}

	member.LastSeenAt = now
	member.LeftAt = nil
	if member.AccountID == nil && accountID != nil {
		member.AccountID = accountID
	}

	log.Info().
		Str("party_id", session.ID.String()).
		Str("player_id", member.ID.String()).
		Msg("player reconnected")
	events.Notify(ctx, a.bus, session.ID, "player_rejoined")

	return &JoinResult{Session: session, Membership: member, Reconnected: true}, nil
}

func (a *App) lookupSession(ctx context.Context, code string) (*models.Session, error) {
	var (
		session *models.Session
		err     error
	)
	if id, parseErr := uuid.Parse(code); parseErr == nil {
		session, err = a.repo.GetSession(ctx, id)
	} else {
		session, err = a.repo.GetSessionByJoinCode(ctx, strings.ToUpper(code))
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("party not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return session, nil
}

// Leave soft-removes the caller's own seat. Leaving twice is a no-op.
func (a *App) Leave(ctx context.Context, sessionID uuid.UUID, token string) error {
	member, err := a.Resolve(ctx, sessionID, token)
	if err != nil {
		return err
	}

	ok, err := a.repo.LeaveMembership(ctx, member.ID, a.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to leave party: %w", err)
	}
	if ok {
		log.Info().
			Str("party_id", sessionID.String()).
			Str("player_id", member.ID.String()).
			Msg("player left")
		events.Notify(ctx, a.bus, sessionID, "player_left")
	}
	return nil
}

// Resolve maps a bearer token onto its seat in sessionID.
// Kicked seats resolve to a Removed error rather than not found.
func (a *App) Resolve(ctx context.Context, sessionID uuid.UUID, token string) (*models.Membership, error) {
	return Resolve(ctx, a.repo, sessionID, token)
}

// TokenResolver is the lookup Resolve needs
type TokenResolver interface {
	GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error)
}

// Resolve maps a bearer token onto its seat in sessionID using repo.
func Resolve(ctx context.Context, repo TokenResolver, sessionID uuid.UUID, token string) (*models.Membership, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.NotFound("player not found")
	}
	member, err := repo.GetMembershipByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("player not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member.SessionID != sessionID {
		return nil, apperr.NotFound("player not found")
	}
	if member.Kicked() {
		return nil, apperr.Removed()
	}
	return member, nil
}

// RequireHost fails unless member holds the session's host pointer
func RequireHost(session *models.Session, member *models.Membership) error {
	if !session.IsHost(member.ID) {
		return apperr.Forbidden("host only")
	}
	return nil
}

// NormalizeName trims a display name and caps it at MaxNameRunes
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxNameRunes {
		return name
	}
	return strings.TrimSpace(string([]rune(name)[:MaxNameRunes]))
}
