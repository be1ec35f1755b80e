package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/dbconfig"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

// setupStore opens the store selected by STORE_DRIVER. The returned close
// func releases it.
func setupStore(ctx context.Context) (store.Store, *sql.DB, func(), error) {
	switch driver := getEnv("STORE_DRIVER", "postgres"); driver {
	case "memory":
		mem := store.NewMemoryStore()
		if err := seedMemoryStore(mem, getEnv("SEED_DECKS", "")); err != nil {
			return nil, nil, nil, err
		}
		log.Warn().Msg("using in-memory store; parties are lost on restart")
		return mem, nil, func() {}, nil

	case "postgres":
		database, err := setupDatabase(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := store.NewRepository(database)
		if getEnvAsBool("APPLY_SCHEMA", false) {
			if err := repo.ApplySchema(ctx); err != nil {
				database.Close()
				return nil, nil, nil, err
			}
			log.Info().Msg("party schema applied")
		}
		if path := getEnv("SEED_DECKS", ""); path != "" {
			log.Warn().Str("path", path).Msg("SEED_DECKS only applies to the memory store; use seed_deck for postgres")
		}
		return repo, database, func() { database.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

func setupDatabase(ctx context.Context) (*sql.DB, error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	database, err := dbCfg.Open(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Int("max_open_conns", dbCfg.MaxOpenConns).
		Msg("connected to database")
	return database, nil
}

func seedMemoryStore(mem *store.MemoryStore, path string) error {
	if path == "" {
		return nil
	}
	decks, err := store.ReadDeckFile(path)
	if err != nil {
		return err
	}
	for _, d := range decks {
		mem.PutDeck(d)
		log.Info().
			Str("deck_id", d.ID.String()).
			Str("title", d.Title).
			Int("questions", len(d.Questions)).
			Int("flashcards", len(d.Flashcards)).
			Msg("deck loaded")
	}
	return nil
}
