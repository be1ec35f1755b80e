package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
)

// Config tunes presence tracking
type Config struct {
	// HostInactive is how long a seat may go unseen before it counts as
	// inactive and loses the host pointer.
	HostInactive time.Duration `yaml:"host_inactive"`
	// TouchInterval throttles last-seen writes from polling viewers.
	TouchInterval time.Duration `yaml:"touch_interval"`
}

// DefaultConfig returns a 60s host timeout and 15s touch throttle
func DefaultConfig() Config {
	return Config{
		HostInactive:  60 * time.Second,
		TouchInterval: 15 * time.Second,
	}
}

// Snapshot is everything one viewer may see of a party at one instant
type Snapshot struct {
	OK                   bool            `json:"ok"`
	Party                PartyView       `json:"party"`
	Deck                 DeckView        `json:"deck"`
	Question             *QuestionView   `json:"question"`
	Flashcard            *FlashcardView  `json:"flashcard"`
	Player               *ViewerView     `json:"player"`
	Players              []PlayerView    `json:"players"`
	Distribution         []int           `json:"distribution"`
	FlashcardStats       *FlashcardStats `json:"flashcardStats"`
	CorrectIndex         *int            `json:"correctIndex"`
	RevealedCorrectIndex *int            `json:"revealedCorrectIndex"`
	Results              *models.Results `json:"results"`
}

type PartyView struct {
	ID                   uuid.UUID            `json:"id"`
	Status               models.SessionStatus `json:"status"`
	Mode                 models.SessionMode   `json:"mode"`
	JoinCode             string               `json:"joinCode"`
	HostPlayerID         *uuid.UUID           `json:"hostPlayerId"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	QuestionStartedAt    *time.Time           `json:"questionStartedAt"`
	AnswerRevealedAt     *time.Time           `json:"answerRevealedAt"`
	TimeRemainingMs      int64                `json:"timeRemainingMs"`
	QuestionDurationSec  int                  `json:"questionDurationSec"`
	JoinLocked           bool                 `json:"joinLocked"`
	IsPaused             bool                 `json:"isPaused"`
}

type DeckView struct {
	ID              uuid.UUID `json:"deckId"`
	Title           string    `json:"title"`
	TotalQuestions  int       `json:"totalQuestions"`
	TotalFlashcards int       `json:"totalFlashcards"`
}

// QuestionView never carries the correct index
type QuestionView struct {
	ID      uuid.UUID `json:"id"`
	Prompt  string    `json:"prompt"`
	Choices []string  `json:"choices"`
	Order   int       `json:"order"`
}

type FlashcardView struct {
	ID    uuid.UUID `json:"id"`
	Front string    `json:"front"`
	Back  string    `json:"back,omitempty"`
	Order int       `json:"order"`
}

// ViewerView is the caller's own seat
type ViewerView struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Score        int             `json:"score"`
	BonusScore   int             `json:"bonusScore"`
	TotalScore   int             `json:"totalScore"`
	AvatarID     string          `json:"avatarId"`
	IsHost       bool            `json:"isHost"`
	HasSubmitted bool            `json:"hasSubmitted"`
	Submission   *SubmissionView `json:"submission"`
}

type SubmissionView struct {
	IsCorrect   *bool  `json:"isCorrect,omitempty"`
	AnswerIndex *int   `json:"answerIndex,omitempty"`
	KnewIt      *bool  `json:"knewIt,omitempty"`
	TimeMs      *int64 `json:"timeMs"`
}

// PlayerView is one roster row
type PlayerView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	BonusScore int       `json:"bonusScore"`
	TotalScore int       `json:"totalScore"`
	AvatarID   string    `json:"avatarId"`
	IsHost     bool      `json:"isHost"`
	IsActive   bool      `json:"isActive"`
}

type FlashcardStats struct {
	KnewIt int `json:"knewIt"`
	Missed int `json:"missed"`
}
