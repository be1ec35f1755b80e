package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Deck struct {
	ID             uuid.UUID `json:"id"`
	OwnerAccountID string    `json:"owner_account_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

type DeckQuestion struct {
	ID           uuid.UUID `json:"id"`
	DeckID       uuid.UUID `json:"deck_id"`
	Position     int32     `json:"position"`
	Prompt       string    `json:"prompt"`
	Choices      []string  `json:"choices"`
	CorrectIndex int32     `json:"correct_index"`
}

type DeckFlashcard struct {
	ID       uuid.UUID `json:"id"`
	DeckID   uuid.UUID `json:"deck_id"`
	Position int32     `json:"position"`
	Front    string    `json:"front"`
	Back     string    `json:"back"`
}

type PartySession struct {
	ID                  uuid.UUID             `json:"id"`
	JoinCode            string                `json:"join_code"`
	DeckID              uuid.UUID             `json:"deck_id"`
	Mode                string                `json:"mode"`
	Status              string                `json:"status"`
	CurrentIndex        int32                 `json:"current_index"`
	QuestionDurationSec int32                 `json:"question_duration_sec"`
	QuestionStartedAt   sql.NullTime          `json:"question_started_at"`
	AnswerRevealedAt    sql.NullTime          `json:"answer_revealed_at"`
	PauseStartedAt      sql.NullTime          `json:"pause_started_at"`
	PausedMs            int64                 `json:"paused_ms"`
	JoinLocked          bool                  `json:"join_locked"`
	HostMembershipID    uuid.NullUUID         `json:"host_membership_id"`
	HostAccountID       string                `json:"host_account_id"`
	Results             pqtype.NullRawMessage `json:"results"`
	CreatedAt           time.Time             `json:"created_at"`
	EndedAt             sql.NullTime          `json:"ended_at"`
	ExpiresAt           time.Time             `json:"expires_at"`
}

type PartyMember struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  uuid.UUID      `json:"session_id"`
	Name       string         `json:"name"`
	Token      string         `json:"token"`
	AvatarID   string         `json:"avatar_id"`
	AccountID  sql.NullString `json:"account_id"`
	Score      int32          `json:"score"`
	BonusScore int32          `json:"bonus_score"`
	JoinedAt   time.Time      `json:"joined_at"`
	LastSeenAt time.Time      `json:"last_seen_at"`
	LeftAt     sql.NullTime   `json:"left_at"`
	KickedAt   sql.NullTime   `json:"kicked_at"`
}

type PartySubmission struct {
	ID          uuid.UUID     `json:"id"`
	SessionID   uuid.UUID     `json:"session_id"`
	MemberID    uuid.UUID     `json:"member_id"`
	ItemID      uuid.UUID     `json:"item_id"`
	ItemIndex   int32         `json:"item_index"`
	ChoiceIndex sql.NullInt32 `json:"choice_index"`
	KnewIt      sql.NullBool  `json:"knew_it"`
	IsCorrect   bool          `json:"is_correct"`
	TimeMs      sql.NullInt64 `json:"time_ms"`
	CreatedAt   time.Time     `json:"created_at"`
}
