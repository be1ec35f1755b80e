package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/quizparty/go/internal/models"
)

// deckNamespace seeds stable ids for deck items that omit one, so loading
// the same file twice yields the same rows.
var deckNamespace = uuid.MustParse("6f1c7a52-8d0e-4b7e-9a35-2f0c1d9e4b11")

type deckFile struct {
	Decks []models.Deck `yaml:"decks"`
}

// ReadDeckFile loads decks from a YAML file of the form `decks: [...]`.
func ReadDeckFile(path string) ([]models.Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}
	return ParseDecks(data)
}

// ParseDecks parses and validates YAML deck content, filling missing ids and positions.
func ParseDecks(data []byte) ([]models.Deck, error) {
	var file deckFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse deck file: %w", err)
	}

	for i := range file.Decks {
		if err := normalizeDeck(&file.Decks[i]); err != nil {
			return nil, fmt.Errorf("deck %d: %w", i, err)
		}
	}
	return file.Decks, nil
}

func normalizeDeck(d *models.Deck) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(d.OwnerAccountID) == "" {
		return fmt.Errorf("owner_account_id is required")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.NewSHA1(deckNamespace, []byte(d.OwnerAccountID+"/"+d.Title))
	}

	for i := range d.Questions {
		q := &d.Questions[i]
		if q.Prompt == "" {
			return fmt.Errorf("question %d: prompt is required", i)
		}
		if len(q.Choices) < 2 {
			return fmt.Errorf("question %d: at least two choices are required", i)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			return fmt.Errorf("question %d: correct_index %d out of range", i, q.CorrectIndex)
		}
		q.Position = i
		if q.ID == uuid.Nil {
			q.ID = uuid.NewSHA1(d.ID, []byte("question/"+strconv.Itoa(i)))
		}
	}

	for i := range d.Flashcards {
		f := &d.Flashcards[i]
		if f.Front == "" || f.Back == "" {
			return fmt.Errorf("flashcard %d: front and back are required", i)
		}
		f.Position = i
		if f.ID == uuid.Nil {
			f.ID = uuid.NewSHA1(d.ID, []byte("flashcard/"+strconv.Itoa(i)))
		}
	}
	return nil
}
