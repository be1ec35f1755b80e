package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	stamp     uint64
	expiresAt time.Time
}

// MemoryBus is an in-process Bus with per-key expiry. It serves single-node
// deployments without NATS, and tests.
type MemoryBus struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	seq     uint64
	entries map[uuid.UUID]memoryEntry
}

var _ Bus = (*MemoryBus)(nil)

// NewMemoryBus creates a MemoryBus whose stamps expire after ttl
func NewMemoryBus(clock clockwork.Clock, ttl time.Duration) *MemoryBus {
	return &MemoryBus{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[uuid.UUID]memoryEntry),
	}
}

func (b *MemoryBus) Bump(ctx context.Context, sessionID uuid.UUID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.entries[sessionID] = memoryEntry{
		stamp:     b.seq,
		expiresAt: b.clock.Now().Add(b.ttl),
	}
	b.sweepLocked()
	return b.seq, nil
}

func (b *MemoryBus) Stamp(ctx context.Context, sessionID uuid.UUID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[sessionID]
	if !ok {
		return 0, nil
	}
	if !b.clock.Now().Before(entry.expiresAt) {
		delete(b.entries, sessionID)
		return 0, nil
	}
	return entry.stamp, nil
}

// sweepLocked drops expired entries once the map grows past a small bound.
func (b *MemoryBus) sweepLocked() {
	if len(b.entries) < 1024 {
		return
	}
	now := b.clock.Now()
	for id, entry := range b.entries {
		if !now.Before(entry.expiresAt) {
			delete(b.entries, id)
		}
	}
}
