package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/mcdev12/quizparty/go/internal/dbconfig"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/db"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

type counts struct {
	total, inserted, skipped, errs int
}

func (c *counts) add(tag int64, err error) {
	c.total++
	switch {
	case err != nil:
		c.errs++
	case tag == 1:
		c.inserted++
	default:
		c.skipped++
	}
}

func main() {
	path := flag.String("file", "go/internal/assets/decks.yaml", "deck YAML file")
	applySchema := flag.Bool("schema", false, "create the party tables before seeding")
	flag.Parse()

	ctx := context.Background()

	// 1) Load decks
	decks, err := store.ReadDeckFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load decks: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := cfg.NewPool(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if *applySchema {
		if _, err := pool.Exec(ctx, db.Schema); err != nil {
			fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema applied")
	}

	// 3) Seed decks, one transaction each
	var deckCounts, questionCounts, flashcardCounts counts
	for _, d := range decks {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			return seedDeck(ctx, tx, d, &deckCounts, &questionCounts, &flashcardCounts)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "deck %q: %v\n", d.Title, err)
		}
	}

	for _, line := range []struct {
		name string
		c    counts
	}{
		{"Decks", deckCounts},
		{"Questions", questionCounts},
		{"Flashcards", flashcardCounts},
	} {
		fmt.Printf(
			"%s seed: total=%d inserted=%d skipped=%d errors=%d\n",
			line.name, line.c.total, line.c.inserted, line.c.skipped, line.c.errs,
		)
	}
}

func seedDeck(ctx context.Context, tx pgx.Tx, d models.Deck, decks, questions, flashcards *counts) error {
	tag, err := tx.Exec(ctx, `
        INSERT INTO decks (id, owner_account_id, title)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO NOTHING
    `, d.ID, d.OwnerAccountID, d.Title)
	decks.add(tag.RowsAffected(), err)
	if err != nil {
		return err
	}

	for _, q := range d.Questions {
		tag, err := tx.Exec(ctx, `
            INSERT INTO deck_questions (id, deck_id, position, prompt, choices, correct_index)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (id) DO NOTHING
        `, q.ID, d.ID, q.Position, q.Prompt, q.Choices, q.CorrectIndex)
		questions.add(tag.RowsAffected(), err)
		if err != nil {
			return err
		}
	}

	for _, f := range d.Flashcards {
		tag, err := tx.Exec(ctx, `
            INSERT INTO deck_flashcards (id, deck_id, position, front, back)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (id) DO NOTHING
        `, f.ID, d.ID, f.Position, f.Front, f.Back)
		flashcards.add(tag.RowsAffected(), err)
		if err != nil {
			return err
		}
	}
	return nil
}
