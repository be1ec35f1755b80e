package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// KVConfig holds configuration for the JetStream key-value stamp store
type KVConfig struct {
	URL           string
	Bucket        string
	TTL           time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultKVConfig returns a default configuration
func DefaultKVConfig() KVConfig {
	return KVConfig{
		URL:           nats.DefaultURL,
		Bucket:        "PARTY_STAMPS",
		TTL:           24 * time.Hour,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// KVBus keeps party stamps in a JetStream key-value bucket. The stamp is the
// entry revision, which JetStream increases on every put.
type KVBus struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

var _ Bus = (*KVBus)(nil)

// NewKVBus connects to NATS and creates or updates the stamp bucket
func NewKVBus(ctx context.Context, cfg KVConfig) (*KVBus, error) {
	opts := []nats.Option{
		nats.Name("quizparty-stamps"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Per-party change stamps",
		History:     1,
		TTL:         cfg.TTL,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stamp bucket: %w", err)
	}

	log.Info().
		Str("bucket", cfg.Bucket).
		Dur("ttl", cfg.TTL).
		Msg("party stamp bucket ready")

	return &KVBus{nc: nc, kv: kv}, nil
}

// Bump writes the current time under the party key; the put revision is the new stamp
func (b *KVBus) Bump(ctx context.Context, sessionID uuid.UUID) (uint64, error) {
	value := strconv.FormatInt(time.Now().UnixMilli(), 10)
	rev, err := b.kv.Put(ctx, key(sessionID), []byte(value))
	if err != nil {
		return 0, fmt.Errorf("failed to put stamp: %w", err)
	}
	return rev, nil
}

// Stamp returns the revision of the party key, or 0 when it is missing or expired
func (b *KVBus) Stamp(ctx context.Context, sessionID uuid.UUID) (uint64, error) {
	entry, err := b.kv.Get(ctx, key(sessionID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get stamp: %w", err)
	}
	return entry.Revision(), nil
}

// Healthy reports whether the NATS connection is up
func (b *KVBus) Healthy() bool {
	return b.nc.IsConnected()
}

// Close drains the NATS connection
func (b *KVBus) Close() error {
	return b.nc.Drain()
}
