// Package gateway streams party snapshots to connected clients.
//
// One Feed loop runs per connection. It polls the party's change stamp and
// only rebuilds the snapshot when the stamp moved or the heartbeat window
// lapsed. SSE and WebSocket are thin transports over the same loop.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/state"
)

const (
	EventState = "state"
	EventError = "error"
)

// Config tunes the feed loop
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Heartbeat    time.Duration `yaml:"heartbeat"`
}

// DefaultConfig polls every 2s and pushes at least every 15s
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		Heartbeat:    15 * time.Second,
	}
}

// Frame is one message on the wire
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ErrorPayload is the data of an error frame
type ErrorPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Emitter delivers a frame to the client. A returned error ends the feed.
type Emitter func(Frame) error

// Feed drives the poll loop for one connection at a time
type Feed struct {
	projector state.Projector
	bus       events.Bus
	clock     clockwork.Clock
	cfg       Config
}

// NewFeed creates a new Feed
func NewFeed(projector state.Projector, bus events.Bus, clock clockwork.Clock, cfg Config) *Feed {
	return &Feed{
		projector: projector,
		bus:       bus,
		clock:     clock,
		cfg:       cfg,
	}
}

// Run streams snapshots of sessionID to emit until ctx is done, the party
// becomes unreachable for the viewer, or emit fails. Only an emit failure
// is returned.
func (f *Feed) Run(ctx context.Context, sessionID uuid.UUID, token string, emit Emitter) error {
	var (
		lastPush time.Time
		pending  bool
	)
	deliver := func() (bool, error) {
		out, err := f.push(ctx, sessionID, token, emit)
		if err != nil || out == outcomeStop {
			return true, err
		}
		pending = out == outcomeRetry
		if !pending {
			lastPush = f.clock.Now()
		}
		return false, nil
	}

	last, _ := f.stamp(ctx, sessionID)
	if stop, err := deliver(); stop {
		return err
	}

	ticker := f.clock.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}

		stamp, ok := f.stamp(ctx, sessionID)
		changed := ok && stamp != last
		if !changed && !pending && f.clock.Since(lastPush) < f.cfg.Heartbeat {
			continue
		}
		if ok {
			last = stamp
		}
		if stop, err := deliver(); stop {
			return err
		}
	}
}

// stamp reads the party stamp. A failed read counts as unchanged.
func (f *Feed) stamp(ctx context.Context, sessionID uuid.UUID) (uint64, bool) {
	stamp, err := f.bus.Stamp(ctx, sessionID)
	if err != nil {
		log.Debug().Err(err).Str("party_id", sessionID.String()).Msg("failed to read party stamp")
		return 0, false
	}
	return stamp, true
}

type outcome int

const (
	outcomePushed outcome = iota
	outcomeRetry
	outcomeStop
)

// push builds and emits one snapshot. Projection failures become error
// frames; the ones that mean the viewer lost the party stop the stream.
func (f *Feed) push(ctx context.Context, sessionID uuid.UUID, token string, emit Emitter) (outcome, error) {
	snap, err := f.projector.Build(ctx, sessionID, token)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeStop, nil
		}
		frame := Frame{Event: EventError, Data: ErrorPayload{Error: apperr.ReasonOf(err)}}
		if emitErr := emit(frame); emitErr != nil {
			return outcomeStop, fmt.Errorf("failed to emit error frame: %w", emitErr)
		}
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindRemoved, apperr.KindForbidden:
			return outcomeStop, nil
		}
		log.Error().Err(err).Str("party_id", sessionID.String()).Msg("failed to build party snapshot")
		return outcomeRetry, nil
	}

	if err := emit(Frame{Event: EventState, Data: snap}); err != nil {
		return outcomeStop, fmt.Errorf("failed to emit snapshot: %w", err)
	}
	return outcomePushed, nil
}
