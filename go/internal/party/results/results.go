// Package results builds the end-of-party summary from the ledger.
package results

import (
	"sort"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
)

// BonusPointValue is what one fastest-correct bonus is worth
const BonusPointValue = 1

type playerTally struct {
	result  models.PlayerResult
	totalMs int64
	timed   int
}

// Build summarizes a party. Kicked seats are left off the leaderboard.
func Build(deck *models.Deck, mode models.SessionMode, members []models.Membership, subs []models.Submission) *models.Results {
	out := &models.Results{
		Mode:            mode,
		TotalItems:      deck.ItemCount(mode),
		BonusPointValue: BonusPointValue,
	}

	tallies := make(map[uuid.UUID]*playerTally, len(members))
	order := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if m.Kicked() {
			continue
		}
		tallies[m.ID] = &playerTally{result: models.PlayerResult{
			PlayerID:   m.ID,
			Name:       m.Name,
			AvatarID:   m.AvatarID,
			Score:      m.Score,
			BonusScore: m.BonusScore,
			TotalScore: m.TotalScore(),
		}}
		order = append(order, m.ID)
	}

	switch mode {
	case models.SessionModeFlashcards:
		out.Flashcards = flashcardResults(deck, subs, tallies)
	default:
		out.Questions = questionResults(deck, subs, tallies)
	}

	out.Players = make([]models.PlayerResult, 0, len(order))
	for _, id := range order {
		t := tallies[id]
		r := t.result
		if r.Answered > 0 {
			r.Accuracy = float64(r.Correct) / float64(r.Answered)
		}
		if t.timed > 0 {
			avg := (t.totalMs + int64(t.timed)/2) / int64(t.timed)
			r.AvgTimeMs = &avg
		}
		out.Players = append(out.Players, r)
	}
	sort.SliceStable(out.Players, func(i, j int) bool {
		a, b := out.Players[i], out.Players[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.Name < b.Name
	})
	return out
}

func questionResults(deck *models.Deck, subs []models.Submission, tallies map[uuid.UUID]*playerTally) []models.QuestionResult {
	questions := make([]models.QuestionResult, len(deck.Questions))
	byID := make(map[uuid.UUID]int, len(deck.Questions))
	fastest := make([]*models.Submission, len(deck.Questions))
	for i, q := range deck.Questions {
		questions[i] = models.QuestionResult{
			QuestionID:   q.ID,
			Index:        i,
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: q.CorrectIndex,
			Distribution: make([]int, len(q.Choices)),
		}
		byID[q.ID] = i
	}

	for i := range subs {
		sub := &subs[i]
		if qi, ok := byID[sub.ItemID]; ok {
			q := &questions[qi]
			q.Answered++
			if c := sub.ChoiceIndex; c != nil && *c >= 0 && *c < len(q.Distribution) {
				q.Distribution[*c]++
			}
			if sub.Correct {
				q.CorrectCount++
				// kicked seats have no tally and never take the fastest slot
				_, seated := tallies[sub.MembershipID]
				if seated && sub.TimeMs != nil && (fastest[qi] == nil || Faster(sub, fastest[qi])) {
					fastest[qi] = sub
				}
			}
		}
		tally(tallies, sub, sub.Correct)
	}

	for i, sub := range fastest {
		if sub == nil {
			continue
		}
		id, ms := sub.MembershipID, *sub.TimeMs
		questions[i].FastestPlayerID = &id
		questions[i].FastestTimeMs = &ms
		if t, ok := tallies[id]; ok {
			t.result.FastestCount++
		}
	}
	return questions
}

func flashcardResults(deck *models.Deck, subs []models.Submission, tallies map[uuid.UUID]*playerTally) []models.FlashcardResult {
	cards := make([]models.FlashcardResult, len(deck.Flashcards))
	byID := make(map[uuid.UUID]int, len(deck.Flashcards))
	for i, f := range deck.Flashcards {
		cards[i] = models.FlashcardResult{FlashcardID: f.ID, Index: i, Front: f.Front, Back: f.Back}
		byID[f.ID] = i
	}

	for i := range subs {
		sub := &subs[i]
		knew := sub.KnewIt != nil && *sub.KnewIt
		if ci, ok := byID[sub.ItemID]; ok {
			cards[ci].Answered++
			if knew {
				cards[ci].Knew++
			} else {
				cards[ci].Missed++
			}
		}
		if t := tally(tallies, sub, knew); t != nil && knew {
			t.result.KnewItCount++
		}
	}
	return cards
}

func tally(tallies map[uuid.UUID]*playerTally, sub *models.Submission, correct bool) *playerTally {
	t, ok := tallies[sub.MembershipID]
	if !ok {
		return nil
	}
	t.result.Answered++
	if correct {
		t.result.Correct++
	}
	if sub.TimeMs != nil {
		t.totalMs += *sub.TimeMs
		t.timed++
	}
	return t
}

// Faster orders correct submissions for the fastest-correct bonus:
// lower latency wins, then the earlier insert, then the lower id.
func Faster(a, b *models.Submission) bool {
	if *a.TimeMs != *b.TimeMs {
		return *a.TimeMs < *b.TimeMs
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
