package models

import "github.com/google/uuid"

// Deck is a question/flashcard set owned by an account
type Deck struct {
	ID             uuid.UUID   `json:"id" yaml:"id"`
	OwnerAccountID string      `json:"owner_account_id" yaml:"owner_account_id"`
	Title          string      `json:"title" yaml:"title"`
	Questions      []Question  `json:"questions" yaml:"questions"`
	Flashcards     []Flashcard `json:"flashcards" yaml:"flashcards"`
}

// Question is a multiple-choice item
type Question struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Position     int       `json:"position" yaml:"position"`
	Prompt       string    `json:"prompt" yaml:"prompt"`
	Choices      []string  `json:"choices" yaml:"choices"`
	CorrectIndex int       `json:"correct_index" yaml:"correct_index"`
}

// Flashcard is a front/back self-assessed item
type Flashcard struct {
	ID       uuid.UUID `json:"id" yaml:"id"`
	Position int       `json:"position" yaml:"position"`
	Front    string    `json:"front" yaml:"front"`
	Back     string    `json:"back" yaml:"back"`
}

// ItemCount returns how many items a party in the given mode walks through
func (d *Deck) ItemCount(mode SessionMode) int {
	if mode == SessionModeFlashcards {
		return len(d.Flashcards)
	}
	return len(d.Questions)
}

// ItemID returns the id of the item at index for mode
func (d *Deck) ItemID(mode SessionMode, index int) (uuid.UUID, bool) {
	if index < 0 || index >= d.ItemCount(mode) {
		return uuid.Nil, false
	}
	if mode == SessionModeFlashcards {
		return d.Flashcards[index].ID, true
	}
	return d.Questions[index].ID, true
}

// Question returns the question at index, or nil when out of range
func (d *Deck) Question(index int) *Question {
	if index < 0 || index >= len(d.Questions) {
		return nil
	}
	return &d.Questions[index]
}

// Flashcard returns the flashcard at index, or nil when out of range
func (d *Deck) Flashcard(index int) *Flashcard {
	if index < 0 || index >= len(d.Flashcards) {
		return nil
	}
	return &d.Flashcards[index]
}
