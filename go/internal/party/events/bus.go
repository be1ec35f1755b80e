// Package events holds the per-party change stamp.
//
// A stamp is a "maybe dirty" marker: observers compare it between polls and
// rebuild state from the store when it moves. It is never a source of truth,
// so losing it costs one extra rebuild and nothing else.
package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Bus stores one monotonically increasing stamp per party
type Bus interface {
	// Bump advances the party's stamp and returns the new value.
	Bump(ctx context.Context, sessionID uuid.UUID) (uint64, error)
	// Stamp returns the party's current stamp, or 0 when none is held.
	Stamp(ctx context.Context, sessionID uuid.UUID) (uint64, error)
}

// Notify bumps the stamp after a committed mutation. A failed bump is
// logged and dropped: observers still catch up on their next heartbeat.
func Notify(ctx context.Context, bus Bus, sessionID uuid.UUID, reason string) {
	stamp, err := bus.Bump(ctx, sessionID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("party_id", sessionID.String()).
			Str("event", reason).
			Msg("failed to bump party stamp")
		return
	}
	log.Debug().
		Str("party_id", sessionID.String()).
		Str("event", reason).
		Uint64("stamp", stamp).
		Msg("party stamp bumped")
}

func key(sessionID uuid.UUID) string {
	return "party." + sessionID.String()
}
