// Package deck gives the party engine read-only access to decks.
package deck

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

// DeckRepository defines what the catalog needs from the repository
type DeckRepository interface {
	GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error)
}

// Catalog resolves decks and checks ownership
type Catalog struct {
	repo DeckRepository
}

// NewCatalog creates a new deck Catalog
func NewCatalog(repo DeckRepository) *Catalog {
	return &Catalog{repo: repo}
}

// Get loads a deck with its questions and flashcards
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	d, err := c.repo.GetDeck(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("deck not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return d, nil
}

// Owned loads a deck and requires accountID to own it
func (c *Catalog) Owned(ctx context.Context, id uuid.UUID, accountID string) (*models.Deck, error) {
	d, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerAccountID != accountID {
		return nil, apperr.Forbidden("deck belongs to another account")
	}
	return d, nil
}
