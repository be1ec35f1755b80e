package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents where a party is in its lifecycle
type SessionStatus string

const (
	SessionStatusLobby    SessionStatus = "LOBBY"
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusComplete SessionStatus = "COMPLETE"
)

// SessionMode selects which deck items a party walks through
type SessionMode string

const (
	SessionModeQuiz       SessionMode = "QUIZ"
	SessionModeFlashcards SessionMode = "FLASHCARDS"
)

// Valid reports whether the mode is one the engine knows how to run
func (m SessionMode) Valid() bool {
	return m == SessionModeQuiz || m == SessionModeFlashcards
}

// Session is one hosted round with a shared roster and cursor
type Session struct {
	ID                  uuid.UUID       `json:"id"`
	JoinCode            string          `json:"join_code"`
	DeckID              uuid.UUID       `json:"deck_id"`
	Mode                SessionMode     `json:"mode"`
	Status              SessionStatus   `json:"status"`
	CurrentIndex        int             `json:"current_index"`
	QuestionDurationSec int             `json:"question_duration_sec"`
	QuestionStartedAt   *time.Time      `json:"question_started_at,omitempty"`
	AnswerRevealedAt    *time.Time      `json:"answer_revealed_at,omitempty"`
	PauseStartedAt      *time.Time      `json:"pause_started_at,omitempty"`
	PausedMs            int64           `json:"paused_ms"`
	JoinLocked          bool            `json:"join_locked"`
	HostMembershipID    *uuid.UUID      `json:"host_membership_id,omitempty"`
	HostAccountID       string          `json:"host_account_id"`
	Results             json.RawMessage `json:"results,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	EndedAt             *time.Time      `json:"ended_at,omitempty"`
	ExpiresAt           time.Time       `json:"expires_at"`
}

// IsHost reports whether the membership is the one the host pointer names
func (s *Session) IsHost(membershipID uuid.UUID) bool {
	return s.HostMembershipID != nil && *s.HostMembershipID == membershipID
}

// Membership is a participant's seat in a session
type Membership struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Name       string     `json:"name"`
	Token      string     `json:"-"`
	AvatarID   string     `json:"avatar_id"`
	AccountID  *string    `json:"account_id,omitempty"`
	Score      int        `json:"score"`
	BonusScore int        `json:"bonus_score"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
	KickedAt   *time.Time `json:"kicked_at,omitempty"`
}

// Active reports whether the seat still counts toward the roster
func (m *Membership) Active() bool {
	return m.LeftAt == nil && m.KickedAt == nil
}

// Kicked reports whether the host removed this seat
func (m *Membership) Kicked() bool {
	return m.KickedAt != nil
}

// TotalScore is the score shown on the leaderboard
func (m *Membership) TotalScore() int {
	return m.Score + m.BonusScore
}

// Submission is one player's recorded response to one item
type Submission struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	MembershipID uuid.UUID `json:"membership_id"`
	ItemID       uuid.UUID `json:"item_id"`
	ItemIndex    int       `json:"item_index"`
	ChoiceIndex  *int      `json:"choice_index,omitempty"`
	KnewIt       *bool     `json:"knew_it,omitempty"`
	Correct      bool      `json:"is_correct"`
	TimeMs       *int64    `json:"time_ms,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
