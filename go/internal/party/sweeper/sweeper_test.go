package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

func createParty(t *testing.T, s *store.MemoryStore, code string, createdAt time.Time) uuid.UUID {
	t.Helper()
	session, _, err := s.CreateSession(context.Background(), store.CreateSessionParams{
		ID: uuid.New(), JoinCode: code, DeckID: uuid.New(), Mode: models.SessionModeQuiz, DurationSec: 20,
		HostAccountID: "owner", CreatedAt: createdAt, ExpiresAt: createdAt.Add(48 * time.Hour),
		Host: store.NewMembership{ID: uuid.New(), Name: "Host", Token: "tok-" + code, JoinedAt: createdAt},
	})
	if err != nil {
		t.Fatal(err)
	}
	return session.ID
}

func TestSweepDeletesOnlyExpired(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(t0)
	s := store.NewMemoryStore()

	old := createParty(t, s, "OLD111", t0)
	clock.Advance(24 * time.Hour)
	fresh := createParty(t, s, "NEW222", clock.Now())
	clock.Advance(24 * time.Hour)

	w := NewWorker(s, clock, DefaultConfig())
	if n := w.Sweep(context.Background()); n != 1 {
		t.Fatalf("deleted = %d", n)
	}
	if _, err := s.GetSession(context.Background(), old); err != store.ErrNotFound {
		t.Fatalf("expired party still there: %v", err)
	}
	if _, err := s.GetSession(context.Background(), fresh); err != nil {
		t.Fatalf("live party deleted: %v", err)
	}

	stats := w.Stats()
	if stats.Sweeps != 1 || stats.Deleted != 1 || !stats.LastSweep.Equal(clock.Now()) {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestWorkerSweepsOnInterval(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(t0)
	s := store.NewMemoryStore()
	createParty(t, s, "OLD111", t0.Add(-72*time.Hour))

	w := NewWorker(s, clock, DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	createParty(t, s, "OLD222", t0.Add(-49*time.Hour))
	clock.Advance(10 * time.Minute)

	deadline := time.Now().Add(time.Second)
	for w.Stats().Sweeps < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	stats := w.Stats()
	if stats.Sweeps != 2 || stats.Deleted != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}
