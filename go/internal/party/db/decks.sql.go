package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const getDeck = `-- name: GetDeck :one
SELECT id, owner_account_id, title, created_at
FROM decks
WHERE id = $1
`

func (q *Queries) GetDeck(ctx context.Context, id uuid.UUID) (Deck, error) {
	row := q.db.QueryRowContext(ctx, getDeck, id)
	var i Deck
	err := row.Scan(
		&i.ID,
		&i.OwnerAccountID,
		&i.Title,
		&i.CreatedAt,
	)
	return i, err
}

const listDeckQuestions = `-- name: ListDeckQuestions :many
SELECT id, deck_id, position, prompt, choices, correct_index
FROM deck_questions
WHERE deck_id = $1
ORDER BY position, id
`

func (q *Queries) ListDeckQuestions(ctx context.Context, deckID uuid.UUID) ([]DeckQuestion, error) {
	rows, err := q.db.QueryContext(ctx, listDeckQuestions, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeckQuestion
	for rows.Next() {
		var i DeckQuestion
		if err := rows.Scan(
			&i.ID,
			&i.DeckID,
			&i.Position,
			&i.Prompt,
			pq.Array(&i.Choices),
			&i.CorrectIndex,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listDeckFlashcards = `-- name: ListDeckFlashcards :many
SELECT id, deck_id, position, front, back
FROM deck_flashcards
WHERE deck_id = $1
ORDER BY position, id
`

func (q *Queries) ListDeckFlashcards(ctx context.Context, deckID uuid.UUID) ([]DeckFlashcard, error) {
	rows, err := q.db.QueryContext(ctx, listDeckFlashcards, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeckFlashcard
	for rows.Next() {
		var i DeckFlashcard
		if err := rows.Scan(
			&i.ID,
			&i.DeckID,
			&i.Position,
			&i.Front,
			&i.Back,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
