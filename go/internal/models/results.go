package models

import "github.com/google/uuid"

// Results is the end-of-party summary frozen when a session completes
type Results struct {
	Mode            SessionMode       `json:"mode"`
	TotalItems      int               `json:"totalItems"`
	Players         []PlayerResult    `json:"players"`
	Questions       []QuestionResult  `json:"questions,omitempty"`
	Flashcards      []FlashcardResult `json:"flashcards,omitempty"`
	BonusPointValue int               `json:"bonusPointValue"`
}

// PlayerResult is one leaderboard row
type PlayerResult struct {
	PlayerID     uuid.UUID `json:"playerId"`
	Name         string    `json:"name"`
	AvatarID     string    `json:"avatarId"`
	Score        int       `json:"score"`
	BonusScore   int       `json:"bonusScore"`
	TotalScore   int       `json:"totalScore"`
	Answered     int       `json:"totalAnswered"`
	Correct      int       `json:"correctCount"`
	Accuracy     float64   `json:"accuracy"`
	AvgTimeMs    *int64    `json:"avgTimeMs,omitempty"`
	FastestCount int       `json:"fastestCount"`
	KnewItCount  int       `json:"knewItCount,omitempty"`
}

type QuestionResult struct {
	QuestionID      uuid.UUID  `json:"questionId"`
	Index           int        `json:"index"`
	Prompt          string     `json:"prompt"`
	Choices         []string   `json:"choices"`
	CorrectIndex    int        `json:"correctIndex"`
	Distribution    []int      `json:"distribution"`
	Answered        int        `json:"totalCount"`
	CorrectCount    int        `json:"correctCount"`
	FastestPlayerID *uuid.UUID `json:"fastestPlayerId,omitempty"`
	FastestTimeMs   *int64     `json:"fastestTimeMs,omitempty"`
}

type FlashcardResult struct {
	FlashcardID uuid.UUID `json:"flashcardId"`
	Index       int       `json:"index"`
	Front       string    `json:"front"`
	Back        string    `json:"back"`
	Knew        int       `json:"knewItCount"`
	Missed      int       `json:"missedCount"`
	Answered    int       `json:"totalCount"`
}
