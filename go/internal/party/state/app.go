// Package state projects a party into the snapshot one viewer is allowed to see.
//
// Projection is also where time-driven transitions land: an expired quiz
// question is revealed and a vanished host is replaced by whoever observes
// it first. Both are conditional writes, so concurrent observers agree on
// a single outcome.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/events"
	"github.com/mcdev12/quizparty/go/internal/party/results"
	"github.com/mcdev12/quizparty/go/internal/party/store"
	"github.com/mcdev12/quizparty/go/internal/party/timer"
)

// StateRepository defines what the projector needs from the repository
type StateRepository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error)
	ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error)
	ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error)
	TouchMembership(ctx context.Context, id uuid.UUID, at time.Time) error
	ReassignHost(ctx context.Context, id uuid.UUID, from *uuid.UUID, to uuid.UUID) (bool, error)
	RevealAnswer(ctx context.Context, p store.RevealParams) (bool, error)
}

// DeckCatalog defines how the projector reads decks
type DeckCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Deck, error)
}

// App builds party snapshots
type App struct {
	repo  StateRepository
	decks DeckCatalog
	bus   events.Bus
	clock clockwork.Clock
	cfg   Config
}

// NewApp creates a new state App
func NewApp(repo StateRepository, decks DeckCatalog, bus events.Bus, clock clockwork.Clock, cfg Config) *App {
	return &App{
		repo:  repo,
		decks: decks,
		bus:   bus,
		clock: clock,
		cfg:   cfg,
	}
}

// projection carries the rows one Build call works from
type projection struct {
	now     time.Time
	session *models.Session
	deck    *models.Deck
	viewer  *models.Membership
	members []models.Membership
	visible []models.Membership
	subs    []models.Submission
}

// Build returns the snapshot of sessionID as seen by token. An empty or
// foreign token yields the anonymous view.
func (a *App) Build(ctx context.Context, sessionID uuid.UUID, token string) (*Snapshot, error) {
	p := &projection{now: a.clock.Now()}

	session, err := a.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p.session = session

	if err := a.resolveViewer(ctx, p, token); err != nil {
		return nil, err
	}

	p.members, err = a.repo.ListMemberships(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	for _, m := range p.members {
		if !m.Active() {
			continue
		}
		if p.viewer != nil && m.ID == p.viewer.ID {
			m.LastSeenAt = p.viewer.LastSeenAt
		}
		p.visible = append(p.visible, m)
	}

	if session.Status != models.SessionStatusComplete {
		if err := a.failover(ctx, p); err != nil {
			return nil, err
		}
	}

	p.deck, err = a.decks.Get(ctx, session.DeckID)
	if err != nil {
		return nil, err
	}
	p.subs, err = a.repo.ListSubmissions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	if err := a.revealIfDue(ctx, p); err != nil {
		return nil, err
	}

	return a.snapshot(p), nil
}

func (a *App) getSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := a.repo.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("party not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return session, nil
}

func (a *App) resolveViewer(ctx context.Context, p *projection, token string) error {
	if token == "" {
		return nil
	}
	member, err := a.repo.GetMembershipByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if member.SessionID != p.session.ID {
		return nil
	}
	if member.Kicked() {
		return apperr.Removed()
	}

	if p.now.Sub(member.LastSeenAt) > a.cfg.TouchInterval {
		if err := a.repo.TouchMembership(ctx, member.ID, p.now); err != nil {
			log.Warn().Err(err).Str("player_id", member.ID.String()).Msg("failed to touch membership")
		}
	}
	member.LastSeenAt = p.now
	p.viewer = member
	return nil
}

func (a *App) isActive(m *models.Membership, now time.Time) bool {
	return now.Sub(m.LastSeenAt) < a.cfg.HostInactive
}

// failover hands the host pointer to the longest-seated active player when
// the current host left or went quiet.
func (a *App) failover(ctx context.Context, p *projection) error {
	var current *models.Membership
	for i := range p.visible {
		if p.session.IsHost(p.visible[i].ID) {
			current = &p.visible[i]
		}
	}
	if current != nil && p.now.Sub(current.LastSeenAt) <= a.cfg.HostInactive {
		return nil
	}

	var next *models.Membership
	for i := range p.visible {
		m := &p.visible[i]
		if !a.isActive(m, p.now) {
			continue
		}
		if next == nil || m.JoinedAt.Before(next.JoinedAt) {
			next = m
		}
	}
	if next == nil || p.session.IsHost(next.ID) {
		return nil
	}

	ok, err := a.repo.ReassignHost(ctx, p.session.ID, p.session.HostMembershipID, next.ID)
	if err != nil {
		return fmt.Errorf("failed to reassign host: %w", err)
	}
	if !ok {
		// another observer moved the pointer first
		session, err := a.getSession(ctx, p.session.ID)
		if err != nil {
			return err
		}
		p.session = session
		return nil
	}

	log.Info().
		Str("party_id", p.session.ID.String()).
		Str("player_id", next.ID.String()).
		Msg("host reassigned")
	id := next.ID
	p.session.HostMembershipID = &id
	events.Notify(ctx, a.bus, p.session.ID, "host_changed")
	return nil
}

// revealIfDue reveals the current quiz question once its countdown ran out
// or every active player answered. An expired question is revealed at the
// instant it expired, whoever notices first.
func (a *App) revealIfDue(ctx context.Context, p *projection) error {
	s := p.session
	if s.Status != models.SessionStatusActive || s.Mode != models.SessionModeQuiz || s.AnswerRevealedAt != nil {
		return nil
	}
	q := p.deck.Question(s.CurrentIndex)
	if q == nil {
		return nil
	}

	in := timer.FromSession(s)
	expired := timer.Compute(in, p.now).Expired()
	at := p.now
	if expired {
		if due, ok := timer.ExpiresAt(in); ok && due.Before(p.now) {
			at = due
		}
	}

	ok, err := a.repo.RevealAnswer(ctx, store.RevealParams{
		ID:                 s.ID,
		ItemIndex:          s.CurrentIndex,
		ItemID:             q.ID,
		At:                 at,
		RequireAllAnswered: !expired,
	})
	if err != nil {
		return fmt.Errorf("failed to reveal answer: %w", err)
	}
	if ok {
		s.AnswerRevealedAt = &at
		events.Notify(ctx, a.bus, s.ID, "answer_revealed")
		return nil
	}
	if expired {
		// someone else revealed it; pick up their instant
		fresh, err := a.getSession(ctx, s.ID)
		if err != nil {
			return err
		}
		p.session = fresh
	}
	return nil
}

func (a *App) snapshot(p *projection) *Snapshot {
	s := p.session
	ts := timer.Compute(timer.FromSession(s), p.now)
	revealed := s.AnswerRevealedAt != nil
	viewerIsHost := p.viewer != nil && s.IsHost(p.viewer.ID)

	snap := &Snapshot{
		OK: true,
		Party: PartyView{
			ID:                   s.ID,
			Status:               s.Status,
			Mode:                 s.Mode,
			JoinCode:             s.JoinCode,
			HostPlayerID:         s.HostMembershipID,
			CurrentQuestionIndex: s.CurrentIndex,
			QuestionStartedAt:    s.QuestionStartedAt,
			AnswerRevealedAt:     s.AnswerRevealedAt,
			TimeRemainingMs:      ts.RemainingMs,
			QuestionDurationSec:  s.QuestionDurationSec,
			JoinLocked:           s.JoinLocked,
			IsPaused:             ts.IsPaused,
		},
		Deck: DeckView{
			ID:              p.deck.ID,
			Title:           p.deck.Title,
			TotalQuestions:  len(p.deck.Questions),
			TotalFlashcards: len(p.deck.Flashcards),
		},
		Players: a.roster(p),
	}

	var (
		itemID  uuid.UUID
		hasItem bool
	)
	if s.Status == models.SessionStatusActive {
		itemID, hasItem = p.deck.ItemID(s.Mode, s.CurrentIndex)
	}

	var current []models.Submission
	if hasItem {
		for _, sub := range p.subs {
			if sub.ItemID == itemID {
				current = append(current, sub)
			}
		}
	}

	if hasItem && s.Mode == models.SessionModeQuiz {
		q := p.deck.Question(s.CurrentIndex)
		snap.Question = &QuestionView{ID: q.ID, Prompt: q.Prompt, Choices: q.Choices, Order: q.Position}
		if revealed {
			idx := q.CorrectIndex
			snap.RevealedCorrectIndex = &idx
			if viewerIsHost {
				snap.CorrectIndex = &idx
			}
		}
		if viewerIsHost {
			snap.Distribution = make([]int, len(q.Choices))
			for _, sub := range current {
				if c := sub.ChoiceIndex; c != nil && *c >= 0 && *c < len(q.Choices) {
					snap.Distribution[*c]++
				}
			}
		}
	}

	if hasItem && s.Mode == models.SessionModeFlashcards {
		f := p.deck.Flashcard(s.CurrentIndex)
		snap.Flashcard = &FlashcardView{ID: f.ID, Front: f.Front, Order: f.Position}
		if revealed {
			snap.Flashcard.Back = f.Back
		}
		if viewerIsHost {
			stats := &FlashcardStats{}
			for _, sub := range current {
				if sub.KnewIt != nil && *sub.KnewIt {
					stats.KnewIt++
				} else {
					stats.Missed++
				}
			}
			snap.FlashcardStats = stats
		}
	}

	if p.viewer != nil {
		v := p.viewer
		snap.Player = &ViewerView{
			ID:         v.ID,
			Name:       v.Name,
			Score:      v.Score,
			BonusScore: v.BonusScore,
			TotalScore: v.TotalScore(),
			AvatarID:   v.AvatarID,
			IsHost:     viewerIsHost,
		}
		for _, sub := range current {
			if sub.MembershipID != v.ID {
				continue
			}
			view := &SubmissionView{AnswerIndex: sub.ChoiceIndex, KnewIt: sub.KnewIt, TimeMs: sub.TimeMs}
			if s.Mode == models.SessionModeQuiz {
				correct := sub.Correct
				view.IsCorrect = &correct
			}
			snap.Player.HasSubmitted = true
			snap.Player.Submission = view
		}
	}

	if s.Status == models.SessionStatusComplete {
		snap.Results = a.summary(p)
	}
	return snap
}

func (a *App) roster(p *projection) []PlayerView {
	players := make([]PlayerView, 0, len(p.visible))
	for i := range p.visible {
		m := &p.visible[i]
		players = append(players, PlayerView{
			ID:         m.ID,
			Name:       m.Name,
			Score:      m.Score,
			BonusScore: m.BonusScore,
			TotalScore: m.TotalScore(),
			AvatarID:   m.AvatarID,
			IsHost:     p.session.IsHost(m.ID),
			IsActive:   a.isActive(m, p.now),
		})
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].TotalScore != players[j].TotalScore {
			return players[i].TotalScore > players[j].TotalScore
		}
		return players[i].Name < players[j].Name
	})
	return players
}

// summary prefers the results frozen at completion
func (a *App) summary(p *projection) *models.Results {
	if len(p.session.Results) > 0 {
		var stored models.Results
		err := json.Unmarshal(p.session.Results, &stored)
		if err == nil {
			return &stored
		}
		log.Warn().Err(err).Str("party_id", p.session.ID.String()).Msg("stored results unreadable, recomputing")
	}
	return results.Build(p.deck, p.session.Mode, p.members, p.subs)
}
