package main

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/party/events"
)

// setupBus connects the stamp store to NATS when NATS_URL is set and
// falls back to process memory otherwise.
func setupBus(ctx context.Context, clock clockwork.Clock) (events.Bus, func(), error) {
	kvCfg := events.DefaultKVConfig()
	url := getEnv("NATS_URL", "")
	if url == "" {
		log.Warn().Msg("NATS_URL not set; party stamps kept in memory")
		return events.NewMemoryBus(clock, kvCfg.TTL), func() {}, nil
	}

	kvCfg.URL = url
	kvCfg.Bucket = getEnv("NATS_STAMP_BUCKET", kvCfg.Bucket)
	bus, err := events.NewKVBus(ctx, kvCfg)
	if err != nil {
		return nil, nil, err
	}
	return bus, func() {
		if err := bus.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close NATS connection")
		}
	}, nil
}
