package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/deck"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/store"
)

const owner = "acct-owner"

type harness struct {
	app   *App
	store *store.MemoryStore
	bus   *events.MemoryBus
	clock *clockwork.FakeClock
	deck  models.Deck
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	s := store.NewMemoryStore()
	d := models.Deck{
		ID:             uuid.New(),
		OwnerAccountID: owner,
		Title:          "Capitals",
		Questions: []models.Question{
			{ID: uuid.New(), Prompt: "France?", Choices: []string{"Berlin", "Paris"}, CorrectIndex: 1},
			{ID: uuid.New(), Prompt: "Japan?", Choices: []string{"Tokyo", "Osaka"}, CorrectIndex: 0},
		},
		Flashcards: []models.Flashcard{
			{ID: uuid.New(), Front: "Spain", Back: "Madrid"},
		},
	}
	s.PutDeck(d)
	bus := events.NewMemoryBus(clock, time.Hour)

	return &harness{
		app:   NewApp(s, deck.NewCatalog(s), bus, clock, DefaultConfig()),
		store: s,
		bus:   bus,
		clock: clock,
		deck:  d,
	}
}

func (h *harness) create(t *testing.T, mode models.SessionMode) *CreateResult {
	t.Helper()
	account := owner
	res, err := h.app.Create(context.Background(), CreateRequest{AccountID: &account, DeckID: h.deck.ID, HostName: "Quizmaster", Mode: mode})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res
}

func (h *harness) guest(t *testing.T, sessionID uuid.UUID, name string) *models.Membership {
	t.Helper()
	m, err := h.store.InsertMembership(context.Background(), store.InsertMembershipParams{
		SessionID:  sessionID,
		Member:     store.NewMembership{ID: uuid.New(), Name: name, Token: "tok-" + name, AvatarID: "wizard", JoinedAt: h.clock.Now()},
		MaxPlayers: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func (h *harness) session(t *testing.T, id uuid.UUID) *models.Session {
	t.Helper()
	s, err := h.store.GetSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (h *harness) stamp(t *testing.T, id uuid.UUID) uint64 {
	t.Helper()
	v, _ := h.bus.Stamp(context.Background(), id)
	return v
}

func TestCreate(t *testing.T) {
	h := newHarness(t)
	res := h.create(t, "")

	s := res.Session
	if s.Status != models.SessionStatusLobby || s.Mode != models.SessionModeQuiz || s.QuestionDurationSec != 20 {
		t.Fatalf("session = %+v", s)
	}
	if len(s.JoinCode) != joinCodeLength || strings.Trim(s.JoinCode, joinCodeAlphabet) != "" {
		t.Fatalf("join code %q", s.JoinCode)
	}
	if !s.IsHost(res.Host.ID) || res.Host.Name != "Quizmaster" || res.MaxPlayers != 50 {
		t.Fatalf("host = %+v", res.Host)
	}
	if !s.ExpiresAt.Equal(h.clock.Now().Add(48 * time.Hour)) {
		t.Fatalf("expires at %v", s.ExpiresAt)
	}
	if h.stamp(t, s.ID) == 0 {
		t.Fatal("create did not bump the stamp")
	}
}

func TestCreateRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stranger := "acct-stranger"
	account := owner

	if _, err := h.app.Create(ctx, CreateRequest{DeckID: h.deck.ID}); !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Fatalf("anonymous err = %v", err)
	}
	if _, err := h.app.Create(ctx, CreateRequest{AccountID: &stranger, DeckID: h.deck.ID}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("foreign deck err = %v", err)
	}
	if _, err := h.app.Create(ctx, CreateRequest{AccountID: &account, DeckID: h.deck.ID, Mode: "TRIVIA"}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("bad mode err = %v", err)
	}

	empty := models.Deck{ID: uuid.New(), OwnerAccountID: owner, Title: "Empty"}
	h.store.PutDeck(empty)
	if _, err := h.app.Create(ctx, CreateRequest{AccountID: &account, DeckID: empty.ID}); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("empty deck err = %v", err)
	}
}

func TestHostOnlyActions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.create(t, models.SessionModeQuiz)
	guest := h.guest(t, res.Session.ID, "ada")

	if err := h.app.Start(ctx, res.Session.ID, guest.Token); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("guest start err = %v", err)
	}
	if err := h.app.Start(ctx, res.Session.ID, "no-such-token"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown token err = %v", err)
	}
}

func TestQuizLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.create(t, models.SessionModeQuiz)
	id, token := res.Session.ID, res.Host.Token
	fast := h.guest(t, id, "fast")
	slow := h.guest(t, id, "slow")

	if err := h.app.Start(ctx, id, token); err != nil {
		t.Fatalf("Start: %v", err)
	}
	started := h.session(t, id)
	if started.Status != models.SessionStatusActive || started.AnswerRevealedAt != nil {
		t.Fatalf("after start: %+v", started)
	}
	before := h.stamp(t, id)
	if err := h.app.Start(ctx, id, token); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if h.stamp(t, id) != before {
		t.Fatal("no-op start must not bump the stamp")
	}

	for _, sub := range []struct {
		member *models.Membership
		ms     int64
	}{{slow, 4000}, {fast, 1500}} {
		ms := sub.ms
		if _, _, err := h.store.RecordSubmission(ctx, store.RecordSubmissionParams{
			ID: uuid.New(), SessionID: id, MembershipID: sub.member.ID, ItemID: h.deck.Questions[0].ID,
			Correct: true, TimeMs: &ms, At: h.clock.Now(), RequireUnrevealed: true, ScoreDelta: 1,
		}); err != nil {
			t.Fatal(err)
		}
	}

	h.clock.Advance(10 * time.Second)
	completed, err := h.app.Advance(ctx, id, token)
	if err != nil || completed {
		t.Fatalf("Advance = %v, %v", completed, err)
	}
	got := h.session(t, id)
	if got.CurrentIndex != 1 || !got.QuestionStartedAt.Equal(h.clock.Now()) {
		t.Fatalf("after advance: %+v", got)
	}
	fastSeat, _ := h.store.GetMembership(ctx, fast.ID)
	slowSeat, _ := h.store.GetMembership(ctx, slow.ID)
	if fastSeat.BonusScore != 1 || slowSeat.BonusScore != 0 {
		t.Fatalf("bonus fast=%d slow=%d", fastSeat.BonusScore, slowSeat.BonusScore)
	}

	completed, err = h.app.Advance(ctx, id, token)
	if err != nil || !completed {
		t.Fatalf("final Advance = %v, %v", completed, err)
	}
	done := h.session(t, id)
	if done.Status != models.SessionStatusComplete || done.EndedAt == nil {
		t.Fatalf("after complete: %+v", done)
	}

	var summary models.Results
	if err := json.Unmarshal(done.Results, &summary); err != nil {
		t.Fatalf("stored results: %v", err)
	}
	if len(summary.Players) != 3 || summary.Players[0].Name != "fast" || summary.Players[0].TotalScore != 2 {
		t.Fatalf("results = %+v", summary.Players)
	}

	if _, err := h.app.Advance(ctx, id, token); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("advance after complete err = %v", err)
	}
	if err := h.app.Start(ctx, id, token); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("start after complete err = %v", err)
	}
}

func TestFlashcardsRevealOnStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.create(t, models.SessionModeFlashcards)

	if err := h.app.Start(ctx, res.Session.ID, res.Host.Token); err != nil {
		t.Fatal(err)
	}
	got := h.session(t, res.Session.ID)
	if got.AnswerRevealedAt == nil || !got.AnswerRevealedAt.Equal(*got.QuestionStartedAt) {
		t.Fatalf("flashcard not revealed at start: %+v", got)
	}
	if err := h.app.Pause(ctx, res.Session.ID, res.Host.Token); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("pause flashcards err = %v", err)
	}

	completed, err := h.app.Advance(ctx, res.Session.ID, res.Host.Token)
	if err != nil || !completed {
		t.Fatalf("single-card advance = %v, %v", completed, err)
	}
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.create(t, models.SessionModeQuiz)
	id, token := res.Session.ID, res.Host.Token

	if err := h.app.Pause(ctx, id, token); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("pause in lobby err = %v", err)
	}
	if err := h.app.Start(ctx, id, token); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(5 * time.Second)
	if err := h.app.Pause(ctx, id, token); err != nil {
		t.Fatal(err)
	}
	if err := h.app.Pause(ctx, id, token); err != nil {
		t.Fatalf("second pause: %v", err)
	}
	h.clock.Advance(7 * time.Second)
	if err := h.app.Resume(ctx, id, token); err != nil {
		t.Fatal(err)
	}
	if err := h.app.Resume(ctx, id, token); err != nil {
		t.Fatalf("second resume: %v", err)
	}

	got := h.session(t, id)
	if got.PausedMs != 7000 || got.PauseStartedAt != nil {
		t.Fatalf("paused ms = %d", got.PausedMs)
	}
}

func TestSetDurationClampsAndJoinLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.create(t, models.SessionModeQuiz)
	id, token := res.Session.ID, res.Host.Token

	for in, want := range map[int]int{1: 5, 500: 120, 0: 20, 45: 45} {
		got, err := h.app.SetDuration(ctx, id, token, in)
		if err != nil || got != want {
			t.Fatalf("SetDuration(%d) = %d, %v; want %d", in, got, err, want)
		}
	}

	if err := h.app.SetJoinLock(ctx, id, token, true); err != nil {
		t.Fatal(err)
	}
	if !h.session(t, id).JoinLocked {
		t.Fatal("join lock not stored")
	}
}

func TestKick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.create(t, models.SessionModeQuiz)
	id, token := res.Session.ID, res.Host.Token
	guest := h.guest(t, id, "ada")

	if err := h.app.Kick(ctx, id, token, res.Host.ID); !apperr.Is(err, apperr.KindPrecondition) {
		t.Fatalf("kick host err = %v", err)
	}
	if err := h.app.Kick(ctx, id, token, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kick stranger err = %v", err)
	}
	if err := h.app.Kick(ctx, id, guest.Token, res.Host.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("guest kick err = %v", err)
	}

	if err := h.app.Kick(ctx, id, token, guest.ID); err != nil {
		t.Fatalf("Kick: %v", err)
	}
	stamp := h.stamp(t, id)
	if err := h.app.Kick(ctx, id, token, guest.ID); err != nil {
		t.Fatalf("second Kick: %v", err)
	}
	if h.stamp(t, id) != stamp {
		t.Fatal("repeat kick must not bump the stamp")
	}

	if err := h.app.Start(ctx, id, guest.Token); !apperr.Is(err, apperr.KindRemoved) {
		t.Fatalf("kicked caller err = %v", err)
	}
}
