package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/deck"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	app   *App
	store *store.MemoryStore
	bus   *events.MemoryBus
	clock *clockwork.FakeClock
	deck  models.Deck
	party uuid.UUID
	host  *models.Membership
}

func newHarness(t *testing.T, mode models.SessionMode) *harness {
	t.Helper()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	s := store.NewMemoryStore()
	d := models.Deck{
		ID:             uuid.New(),
		OwnerAccountID: "owner",
		Title:          "Capitals",
		Questions: []models.Question{
			{ID: uuid.New(), Position: 0, Prompt: "France?", Choices: []string{"Berlin", "Paris", "Rome"}, CorrectIndex: 1},
			{ID: uuid.New(), Position: 1, Prompt: "Japan?", Choices: []string{"Tokyo", "Osaka"}, CorrectIndex: 0},
		},
		Flashcards: []models.Flashcard{{ID: uuid.New(), Front: "Spain", Back: "Madrid"}},
	}
	s.PutDeck(d)

	session, host, err := s.CreateSession(ctx, store.CreateSessionParams{
		ID: uuid.New(), JoinCode: "STATE2", DeckID: d.ID, Mode: mode, DurationSec: 20,
		HostAccountID: "owner", CreatedAt: clock.Now(), ExpiresAt: clock.Now().Add(48 * time.Hour),
		Host: store.NewMembership{ID: uuid.New(), Name: "Host", Token: "host-token", AvatarID: "wizard", JoinedAt: clock.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}

	bus := events.NewMemoryBus(clock, 24*time.Hour)
	return &harness{
		app:   NewApp(s, deck.NewCatalog(s), bus, clock, DefaultConfig()),
		store: s,
		bus:   bus,
		clock: clock,
		deck:  d,
		party: session.ID,
		host:  host,
	}
}

func (h *harness) join(t *testing.T, name string) *models.Membership {
	t.Helper()
	m, err := h.store.InsertMembership(context.Background(), store.InsertMembershipParams{
		SessionID:  h.party,
		Member:     store.NewMembership{ID: uuid.New(), Name: name, Token: "tok-" + name, AvatarID: "knight", JoinedAt: h.clock.Now()},
		MaxPlayers: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if _, err := h.store.StartSession(context.Background(), store.StartSessionParams{ID: h.party, At: h.clock.Now()}); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) answer(t *testing.T, m *models.Membership, choice int) {
	t.Helper()
	q := h.deck.Questions[0]
	ms := h.clock.Since(t0).Milliseconds()
	delta := 0
	if choice == q.CorrectIndex {
		delta = 1
	}
	if _, _, err := h.store.RecordSubmission(context.Background(), store.RecordSubmissionParams{
		ID: uuid.New(), SessionID: h.party, MembershipID: m.ID, ItemID: q.ID, ChoiceIndex: &choice,
		Correct: choice == q.CorrectIndex, TimeMs: &ms, At: h.clock.Now(), RequireUnrevealed: true, ScoreDelta: delta,
	}); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) build(t *testing.T, token string) *Snapshot {
	t.Helper()
	snap, err := h.app.Build(context.Background(), h.party, token)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return snap
}

func (h *harness) stamp() uint64 {
	v, _ := h.bus.Stamp(context.Background(), h.party)
	return v
}

func TestAnonymousViewHidesHostData(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	ada := h.join(t, "ada")
	h.start(t)
	h.answer(t, ada, 1)

	snap := h.build(t, "")
	if snap.Player != nil {
		t.Fatal("anonymous viewer got a seat")
	}
	if snap.Question == nil || snap.Question.Prompt != "France?" {
		t.Fatalf("question = %+v", snap.Question)
	}
	if snap.Distribution != nil || snap.CorrectIndex != nil || snap.RevealedCorrectIndex != nil {
		t.Fatal("host-only data leaked to an anonymous viewer")
	}

	foreign := h.build(t, "token-from-another-party")
	if foreign.Player != nil {
		t.Fatal("foreign token should be anonymous")
	}
}

func TestViewerSeesOwnSubmission(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	ada := h.join(t, "ada")
	h.join(t, "bob")
	h.start(t)
	h.clock.Advance(2 * time.Second)
	h.answer(t, ada, 0)

	snap := h.build(t, ada.Token)
	if snap.Player == nil || !snap.Player.HasSubmitted {
		t.Fatalf("player = %+v", snap.Player)
	}
	sub := snap.Player.Submission
	if sub.IsCorrect == nil || *sub.IsCorrect || *sub.AnswerIndex != 0 || *sub.TimeMs != 2000 {
		t.Fatalf("submission = %+v", sub)
	}
	if snap.Party.TimeRemainingMs != 18000 {
		t.Fatalf("remaining = %d", snap.Party.TimeRemainingMs)
	}
}

func TestHostViewAfterReveal(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	ada := h.join(t, "ada")
	h.start(t)
	h.answer(t, ada, 1)

	before := h.build(t, h.host.Token)
	if diff := cmp.Diff([]int{0, 1, 0}, before.Distribution); diff != "" {
		t.Fatalf("distribution (-want +got):\n%s", diff)
	}
	if before.CorrectIndex != nil {
		t.Fatal("correct index shown before reveal")
	}

	h.answer(t, h.host, 2)
	after := h.build(t, h.host.Token)
	if after.Party.AnswerRevealedAt == nil {
		t.Fatal("all-answered question not revealed")
	}
	if after.CorrectIndex == nil || *after.CorrectIndex != 1 || *after.RevealedCorrectIndex != 1 {
		t.Fatalf("correct = %v revealed = %v", after.CorrectIndex, after.RevealedCorrectIndex)
	}

	guest := h.build(t, ada.Token)
	if guest.CorrectIndex != nil || guest.RevealedCorrectIndex == nil {
		t.Fatal("guest should only see the revealed index")
	}
}

func TestExpiryRevealsAtExpiryInstant(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	h.join(t, "ada")
	h.start(t)

	h.clock.Advance(25 * time.Second)
	before := h.stamp()
	snap := h.build(t, "")

	want := t0.Add(20 * time.Second)
	if snap.Party.AnswerRevealedAt == nil || !snap.Party.AnswerRevealedAt.Equal(want) {
		t.Fatalf("revealed at = %v, want %v", snap.Party.AnswerRevealedAt, want)
	}
	if snap.Party.TimeRemainingMs != 0 {
		t.Fatalf("remaining = %d", snap.Party.TimeRemainingMs)
	}
	bumped := h.stamp()
	if bumped == before {
		t.Fatal("reveal did not bump the stamp")
	}

	h.clock.Advance(time.Second)
	again := h.build(t, "")
	if !again.Party.AnswerRevealedAt.Equal(want) || h.stamp() != bumped {
		t.Fatal("second observer must not reveal again")
	}
}

func TestPausedQuestionDoesNotExpire(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	h.join(t, "ada")
	h.start(t)

	h.clock.Advance(5 * time.Second)
	if _, err := h.store.PauseSession(context.Background(), h.party, h.clock.Now()); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Minute)

	snap := h.build(t, "")
	if snap.Party.AnswerRevealedAt != nil || !snap.Party.IsPaused || snap.Party.TimeRemainingMs != 15000 {
		t.Fatalf("party = %+v", snap.Party)
	}
}

func TestHostFailover(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	h.clock.Advance(time.Second)
	ada := h.join(t, "ada")
	h.clock.Advance(time.Second)
	bob := h.join(t, "bob")

	// ada and bob keep polling; the host goes quiet
	for i := 0; i < 4; i++ {
		h.clock.Advance(20 * time.Second)
		h.build(t, bob.Token)
		h.build(t, ada.Token)
	}

	snap := h.build(t, bob.Token)
	if snap.Party.HostPlayerID == nil || *snap.Party.HostPlayerID != ada.ID {
		t.Fatalf("host = %v, want ada", snap.Party.HostPlayerID)
	}
	for _, p := range snap.Players {
		if p.IsHost != (p.ID == ada.ID) {
			t.Fatalf("roster host flags wrong: %+v", snap.Players)
		}
		if p.ID == h.host.ID && p.IsActive {
			t.Fatal("silent host still marked active")
		}
	}

	if h.build(t, ada.Token).Player.IsHost != true {
		t.Fatal("ada should see herself as host")
	}
}

func TestTouchIsThrottled(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	ada := h.join(t, "ada")
	ctx := context.Background()

	h.clock.Advance(10 * time.Second)
	h.build(t, ada.Token)
	seat, _ := h.store.GetMembership(ctx, ada.ID)
	if !seat.LastSeenAt.Equal(t0) {
		t.Fatalf("touched inside the throttle window: %v", seat.LastSeenAt)
	}

	h.clock.Advance(10 * time.Second)
	h.build(t, ada.Token)
	seat, _ = h.store.GetMembership(ctx, ada.ID)
	if !seat.LastSeenAt.Equal(h.clock.Now()) {
		t.Fatalf("last seen = %v", seat.LastSeenAt)
	}
}

func TestKickedViewerIsRemoved(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	ada := h.join(t, "ada")
	if _, err := h.store.KickMembership(context.Background(), ada.ID, h.clock.Now()); err != nil {
		t.Fatal(err)
	}

	_, err := h.app.Build(context.Background(), h.party, ada.Token)
	if !apperr.Is(err, apperr.KindRemoved) {
		t.Fatalf("err = %v", err)
	}
	if _, err := h.app.Build(context.Background(), uuid.New(), ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing party err = %v", err)
	}

	for _, p := range h.build(t, "").Players {
		if p.ID == ada.ID {
			t.Fatal("kicked player still on the roster")
		}
	}
}

func TestRosterOrder(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	zed := h.join(t, "zed")
	amy := h.join(t, "amy")
	h.start(t)
	h.answer(t, zed, 0)
	h.answer(t, amy, 1)

	snap := h.build(t, "")
	var names []string
	for _, p := range snap.Players {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"amy", "Host", "zed"}, names); diff != "" {
		t.Fatalf("roster order (-want +got):\n%s", diff)
	}
	if snap.Players[0].TotalScore != 1 {
		t.Fatalf("amy total = %d", snap.Players[0].TotalScore)
	}
}

func TestFlashcardView(t *testing.T) {
	h := newHarness(t, models.SessionModeFlashcards)
	ada := h.join(t, "ada")
	ctx := context.Background()
	if _, err := h.store.StartSession(ctx, store.StartSessionParams{ID: h.party, At: h.clock.Now(), RevealAtOnce: true}); err != nil {
		t.Fatal(err)
	}
	knew := true
	if _, _, err := h.store.RecordSubmission(ctx, store.RecordSubmissionParams{
		ID: uuid.New(), SessionID: h.party, MembershipID: ada.ID, ItemID: h.deck.Flashcards[0].ID,
		KnewIt: &knew, Correct: true, At: h.clock.Now(), ScoreDelta: 1,
	}); err != nil {
		t.Fatal(err)
	}

	snap := h.build(t, h.host.Token)
	if snap.Flashcard == nil || snap.Flashcard.Back != "Madrid" || snap.Question != nil {
		t.Fatalf("flashcard = %+v", snap.Flashcard)
	}
	if snap.FlashcardStats == nil || snap.FlashcardStats.KnewIt != 1 || snap.FlashcardStats.Missed != 0 {
		t.Fatalf("stats = %+v", snap.FlashcardStats)
	}
}

func TestCompletedPartyCarriesResults(t *testing.T) {
	h := newHarness(t, models.SessionModeQuiz)
	ada := h.join(t, "ada")
	h.start(t)
	h.answer(t, ada, 1)
	if _, err := h.store.AdvanceSession(context.Background(), store.AdvanceSessionParams{
		ID: h.party, FromIndex: 0, At: h.clock.Now(), Complete: true,
	}); err != nil {
		t.Fatal(err)
	}

	snap := h.build(t, ada.Token)
	if snap.Results == nil || len(snap.Results.Players) != 2 {
		t.Fatalf("results = %+v", snap.Results)
	}
	if snap.Question != nil || snap.Player.HasSubmitted {
		t.Fatal("a completed party has no current item")
	}
}
