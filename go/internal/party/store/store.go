// Package store persists parties, memberships and submissions.
//
// Two implementations share one contract: Repository on Postgres and
// MemoryStore for single-node development and tests. Every state change is a
// conditional write; callers learn whether they won a race from the returned
// bool instead of reading first.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrJoinCodeTaken      = errors.New("join code already in use")
	ErrTokenTaken         = errors.New("player token already in use")
	ErrSessionFull        = errors.New("party is full")
	ErrSessionLocked      = errors.New("party is locked")
	ErrSubmissionRejected = errors.New("submission no longer accepted")
)

// Store is the full persistence surface of the party engine
type Store interface {
	CreateSession(ctx context.Context, p CreateSessionParams) (*models.Session, *models.Membership, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error)
	StartSession(ctx context.Context, p StartSessionParams) (bool, error)
	AdvanceSession(ctx context.Context, p AdvanceSessionParams) (bool, error)
	PauseSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ResumeSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetDuration(ctx context.Context, id uuid.UUID, durationSec int) (bool, error)
	SetJoinLocked(ctx context.Context, id uuid.UUID, locked bool) (bool, error)
	RevealAnswer(ctx context.Context, p RevealParams) (bool, error)
	ReassignHost(ctx context.Context, id uuid.UUID, from *uuid.UUID, to uuid.UUID) (bool, error)
	SetResults(ctx context.Context, id uuid.UUID, results json.RawMessage) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	InsertMembership(ctx context.Context, p InsertMembershipParams) (*models.Membership, error)
	GetMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error)
	ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error)
	RejoinMembership(ctx context.Context, p RejoinMembershipParams) (bool, error)
	TouchMembership(ctx context.Context, id uuid.UUID, at time.Time) error
	KickMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	LeaveMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	RecordSubmission(ctx context.Context, p RecordSubmissionParams) (*models.Submission, bool, error)
	GetSubmission(ctx context.Context, membershipID, itemID uuid.UUID) (*models.Submission, error)
	ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error)

	GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error)
}

// NewMembership describes a seat about to be created
type NewMembership struct {
	ID        uuid.UUID
	Name      string
	Token     string
	AvatarID  string
	AccountID *string
	JoinedAt  time.Time
}

// CreateSessionParams creates a LOBBY party together with its host seat
type CreateSessionParams struct {
	ID            uuid.UUID
	JoinCode      string
	DeckID        uuid.UUID
	Mode          models.SessionMode
	DurationSec   int
	HostAccountID string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	Host          NewMembership
}

// InsertMembershipParams adds a seat if fewer than MaxPlayers are active
type InsertMembershipParams struct {
	SessionID  uuid.UUID
	Member     NewMembership
	MaxPlayers int
}

// RejoinMembershipParams refreshes a seat for a returning token. A seat that
// left is only restored while the party is unlocked and below MaxPlayers;
// otherwise the write fails with ErrSessionLocked or ErrSessionFull.
// A kicked seat is never touched and reports false.
type RejoinMembershipParams struct {
	ID         uuid.UUID
	At         time.Time
	AccountID  *string
	MaxPlayers int
}

// StartSessionParams moves a LOBBY party onto its first item
type StartSessionParams struct {
	ID           uuid.UUID
	At           time.Time
	RevealAtOnce bool
}

// AdvanceSessionParams moves an ACTIVE party off FromIndex.
// Complete ends the party instead of opening the next item.
type AdvanceSessionParams struct {
	ID           uuid.UUID
	FromIndex    int
	ItemID       uuid.UUID
	At           time.Time
	Complete     bool
	AwardBonus   bool
	RevealAtOnce bool
}

// RevealParams reveals the answer of ItemIndex. With RequireAllAnswered the
// reveal only lands when every active seat has a submission for ItemID.
type RevealParams struct {
	ID                 uuid.UUID
	ItemIndex          int
	ItemID             uuid.UUID
	At                 time.Time
	RequireAllAnswered bool
}

// RecordSubmissionParams records one answer and applies ScoreDelta on first insert.
// RequireUnrevealed selects the quiz phase (before reveal, not paused);
// false selects the flashcard phase (after reveal).
type RecordSubmissionParams struct {
	ID                uuid.UUID
	SessionID         uuid.UUID
	MembershipID      uuid.UUID
	ItemID            uuid.UUID
	ItemIndex         int
	ChoiceIndex       *int
	KnewIt            *bool
	Correct           bool
	TimeMs            *int64
	At                time.Time
	RequireUnrevealed bool
	ScoreDelta        int
}
