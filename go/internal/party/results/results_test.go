package results

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestBuildQuiz(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	deck := &models.Deck{
		Questions: []models.Question{
			{ID: uuid.New(), Prompt: "q1", Choices: []string{"a", "b", "c"}, CorrectIndex: 1},
			{ID: uuid.New(), Prompt: "q2", Choices: []string{"a", "b"}, CorrectIndex: 0},
		},
	}
	ada := models.Membership{ID: uuid.New(), Name: "Ada", Score: 2, BonusScore: 1}
	bob := models.Membership{ID: uuid.New(), Name: "Bob", Score: 1}
	eve := models.Membership{ID: uuid.New(), Name: "Eve", Score: 3, KickedAt: &at}

	q1, q2 := deck.Questions[0].ID, deck.Questions[1].ID
	subs := []models.Submission{
		{ID: uuid.New(), MembershipID: ada.ID, ItemID: q1, ChoiceIndex: ptr(1), Correct: true, TimeMs: ptr[int64](1000), CreatedAt: at},
		{ID: uuid.New(), MembershipID: bob.ID, ItemID: q1, ChoiceIndex: ptr(1), Correct: true, TimeMs: ptr[int64](2000), CreatedAt: at},
		{ID: uuid.New(), MembershipID: eve.ID, ItemID: q1, ChoiceIndex: ptr(1), Correct: true, TimeMs: ptr[int64](10), CreatedAt: at},
		{ID: uuid.New(), MembershipID: ada.ID, ItemID: q2, ChoiceIndex: ptr(0), Correct: true, TimeMs: ptr[int64](3000), CreatedAt: at},
		{ID: uuid.New(), MembershipID: bob.ID, ItemID: q2, ChoiceIndex: ptr(1), Correct: false, TimeMs: ptr[int64](500), CreatedAt: at},
	}

	got := Build(deck, models.SessionModeQuiz, []models.Membership{bob, eve, ada}, subs)

	if got.TotalItems != 2 || got.BonusPointValue != 1 {
		t.Fatalf("header = %+v", got)
	}
	wantPlayers := []models.PlayerResult{
		{PlayerID: ada.ID, Name: "Ada", Score: 2, BonusScore: 1, TotalScore: 3, Answered: 2, Correct: 2, Accuracy: 1, AvgTimeMs: ptr[int64](2000), FastestCount: 2},
		{PlayerID: bob.ID, Name: "Bob", Score: 1, TotalScore: 1, Answered: 2, Correct: 1, Accuracy: 0.5, AvgTimeMs: ptr[int64](1250)},
	}
	if diff := cmp.Diff(wantPlayers, got.Players); diff != "" {
		t.Fatalf("players mismatch (-want +got):\n%s", diff)
	}

	// eve's answer still counts toward the question stats
	first := got.Questions[0]
	if diff := cmp.Diff([]int{0, 3, 0}, first.Distribution); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
	if first.Answered != 3 || first.CorrectCount != 3 {
		t.Fatalf("q1 counts = %d/%d", first.CorrectCount, first.Answered)
	}
	// eve answered first but was kicked, so ada holds the fastest slot
	if first.FastestPlayerID == nil || *first.FastestPlayerID != ada.ID || *first.FastestTimeMs != 1000 {
		t.Fatalf("q1 fastest = %v", first.FastestPlayerID)
	}
	second := got.Questions[1]
	if second.FastestPlayerID == nil || *second.FastestPlayerID != ada.ID {
		t.Fatalf("q2 fastest = %v", second.FastestPlayerID)
	}
}

func TestBuildFlashcards(t *testing.T) {
	deck := &models.Deck{
		Flashcards: []models.Flashcard{{ID: uuid.New(), Front: "f", Back: "b"}},
	}
	ada := models.Membership{ID: uuid.New(), Name: "Ada", Score: 1}
	bob := models.Membership{ID: uuid.New(), Name: "Bob"}
	card := deck.Flashcards[0].ID
	subs := []models.Submission{
		{ID: uuid.New(), MembershipID: ada.ID, ItemID: card, KnewIt: ptr(true), Correct: true},
		{ID: uuid.New(), MembershipID: bob.ID, ItemID: card, KnewIt: ptr(false)},
	}

	got := Build(deck, models.SessionModeFlashcards, []models.Membership{ada, bob}, subs)

	want := []models.FlashcardResult{{FlashcardID: card, Front: "f", Back: "b", Knew: 1, Missed: 1, Answered: 2}}
	if diff := cmp.Diff(want, got.Flashcards); diff != "" {
		t.Fatalf("flashcards mismatch (-want +got):\n%s", diff)
	}
	if got.Players[0].KnewItCount != 1 || got.Players[1].KnewItCount != 0 {
		t.Fatalf("players = %+v", got.Players)
	}
	if got.Questions != nil {
		t.Fatal("flashcard results must not carry questions")
	}
}

func TestFasterTieBreaks(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	a := &models.Submission{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), TimeMs: ptr[int64](5), CreatedAt: at}
	b := &models.Submission{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), TimeMs: ptr[int64](5), CreatedAt: at}
	if !Faster(a, b) || Faster(b, a) {
		t.Fatal("id tie-break broken")
	}
	b.CreatedAt = at.Add(-time.Millisecond)
	if !Faster(b, a) {
		t.Fatal("created-at tie-break broken")
	}
}
