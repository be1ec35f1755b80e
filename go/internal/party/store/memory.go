package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
)

type submissionKey struct {
	membershipID uuid.UUID
	itemID       uuid.UUID
}

// MemoryStore is an in-process Store. A single mutex stands in for the
// row-level atomicity Postgres gives each conditional statement.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*models.Session
	joinCodes   map[string]uuid.UUID
	members     map[uuid.UUID]*models.Membership
	tokens      map[string]uuid.UUID
	roster      map[uuid.UUID][]uuid.UUID
	submissions map[submissionKey]*models.Submission
	decks       map[uuid.UUID]*models.Deck
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[uuid.UUID]*models.Session),
		joinCodes:   make(map[string]uuid.UUID),
		members:     make(map[uuid.UUID]*models.Membership),
		tokens:      make(map[string]uuid.UUID),
		roster:      make(map[uuid.UUID][]uuid.UUID),
		submissions: make(map[submissionKey]*models.Submission),
		decks:       make(map[uuid.UUID]*models.Deck),
	}
}

// PutDeck stores or replaces a deck
func (m *MemoryStore) PutDeck(deck models.Deck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := copyDeck(&deck)
	m.decks[deck.ID] = d
}

func (m *MemoryStore) CreateSession(ctx context.Context, p CreateSessionParams) (*models.Session, *models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.joinCodes[p.JoinCode]; taken {
		return nil, nil, ErrJoinCodeTaken
	}

	hostID := p.Host.ID
	s := &models.Session{
		ID:                  p.ID,
		JoinCode:            p.JoinCode,
		DeckID:              p.DeckID,
		Mode:                p.Mode,
		Status:              models.SessionStatusLobby,
		QuestionDurationSec: p.DurationSec,
		HostMembershipID:    &hostID,
		HostAccountID:       p.HostAccountID,
		CreatedAt:           p.CreatedAt,
		ExpiresAt:           p.ExpiresAt,
	}
	host := m.newMemberLocked(p.ID, p.Host)
	if host == nil {
		return nil, nil, ErrTokenTaken
	}

	m.sessions[s.ID] = s
	m.joinCodes[s.JoinCode] = s.ID
	m.addMemberLocked(host)

	return copySession(s), copyMember(host), nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.joinCodes[code]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(m.sessions[id]), nil
}

func (m *MemoryStore) StartSession(ctx context.Context, p StartSessionParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[p.ID]
	if !ok || s.Status != models.SessionStatusLobby {
		return false, nil
	}
	at := p.At
	s.Status = models.SessionStatusActive
	s.CurrentIndex = 0
	s.QuestionStartedAt = &at
	s.AnswerRevealedAt = nil
	if p.RevealAtOnce {
		s.AnswerRevealedAt = &at
	}
	s.PauseStartedAt = nil
	s.PausedMs = 0
	return true, nil
}

func (m *MemoryStore) AdvanceSession(ctx context.Context, p AdvanceSessionParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[p.ID]
	if !ok || s.Status != models.SessionStatusActive || s.CurrentIndex != p.FromIndex {
		return false, nil
	}

	at := p.At
	if p.Complete {
		s.Status = models.SessionStatusComplete
		s.EndedAt = &at
		s.QuestionStartedAt = nil
		s.AnswerRevealedAt = nil
	} else {
		s.CurrentIndex++
		s.QuestionStartedAt = &at
		s.AnswerRevealedAt = nil
		if p.RevealAtOnce {
			s.AnswerRevealedAt = &at
		}
	}
	s.PauseStartedAt = nil
	s.PausedMs = 0

	if p.AwardBonus {
		if winner := m.fastestCorrectLocked(p.ID, p.ItemID); winner != nil {
			m.members[winner.MembershipID].BonusScore++
		}
	}
	return true, nil
}

func (m *MemoryStore) fastestCorrectLocked(sessionID, itemID uuid.UUID) *models.Submission {
	var best *models.Submission
	for _, sub := range m.submissions {
		if sub.SessionID != sessionID || sub.ItemID != itemID || !sub.Correct || sub.TimeMs == nil {
			continue
		}
		if m.members[sub.MembershipID].Kicked() {
			continue
		}
		if best == nil || fasterThan(sub, best) {
			best = sub
		}
	}
	return best
}

func fasterThan(a, b *models.Submission) bool {
	if *a.TimeMs != *b.TimeMs {
		return *a.TimeMs < *b.TimeMs
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (m *MemoryStore) PauseSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusActive || s.PauseStartedAt != nil {
		return false, nil
	}
	s.PauseStartedAt = &at
	return true, nil
}

func (m *MemoryStore) ResumeSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusActive || s.PauseStartedAt == nil {
		return false, nil
	}
	if d := at.Sub(*s.PauseStartedAt).Milliseconds(); d > 0 {
		s.PausedMs += d
	}
	s.PauseStartedAt = nil
	return true, nil
}

func (m *MemoryStore) SetDuration(ctx context.Context, id uuid.UUID, durationSec int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status == models.SessionStatusComplete {
		return false, nil
	}
	s.QuestionDurationSec = durationSec
	return true, nil
}

func (m *MemoryStore) SetJoinLocked(ctx context.Context, id uuid.UUID, locked bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status == models.SessionStatusComplete {
		return false, nil
	}
	s.JoinLocked = locked
	return true, nil
}

func (m *MemoryStore) RevealAnswer(ctx context.Context, p RevealParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[p.ID]
	if !ok || s.Status != models.SessionStatusActive || s.CurrentIndex != p.ItemIndex || s.AnswerRevealedAt != nil {
		return false, nil
	}

	if p.RequireAllAnswered {
		active, answered := 0, 0
		for _, id := range m.roster[p.ID] {
			member := m.members[id]
			if !member.Active() {
				continue
			}
			active++
			if _, ok := m.submissions[submissionKey{membershipID: id, itemID: p.ItemID}]; ok {
				answered++
			}
		}
		if active == 0 || answered < active {
			return false, nil
		}
	}

	at := p.At
	s.AnswerRevealedAt = &at
	return true, nil
}

func (m *MemoryStore) ReassignHost(ctx context.Context, id uuid.UUID, from *uuid.UUID, to uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.Status == models.SessionStatusComplete {
		return false, nil
	}
	if !sameUUID(s.HostMembershipID, from) {
		return false, nil
	}
	s.HostMembershipID = &to
	return true, nil
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *MemoryStore) SetResults(ctx context.Context, id uuid.UUID, results json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.Results = append(json.RawMessage(nil), results...)
	}
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, s := range m.sessions {
		if s.ExpiresAt.After(now) {
			continue
		}
		for _, memberID := range m.roster[id] {
			delete(m.tokens, m.members[memberID].Token)
			delete(m.members, memberID)
		}
		for key, sub := range m.submissions {
			if sub.SessionID == id {
				delete(m.submissions, key)
			}
		}
		delete(m.roster, id)
		delete(m.joinCodes, s.JoinCode)
		delete(m.sessions, id)
		deleted++
	}
	return deleted, nil
}

func (m *MemoryStore) InsertMembership(ctx context.Context, p InsertMembershipParams) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[p.SessionID]; !ok {
		return nil, ErrNotFound
	}
	if m.activeCountLocked(p.SessionID) >= p.MaxPlayers {
		return nil, ErrSessionFull
	}

	member := m.newMemberLocked(p.SessionID, p.Member)
	if member == nil {
		return nil, ErrTokenTaken
	}
	m.addMemberLocked(member)
	return copyMember(member), nil
}

func (m *MemoryStore) activeCountLocked(sessionID uuid.UUID) int {
	active := 0
	for _, id := range m.roster[sessionID] {
		if m.members[id].Active() {
			active++
		}
	}
	return active
}

// newMemberLocked builds a seat, or returns nil when the token is already taken.
func (m *MemoryStore) newMemberLocked(sessionID uuid.UUID, nm NewMembership) *models.Membership {
	if _, taken := m.tokens[nm.Token]; taken {
		return nil
	}
	var account *string
	if nm.AccountID != nil {
		a := *nm.AccountID
		account = &a
	}
	return &models.Membership{
		ID:         nm.ID,
		SessionID:  sessionID,
		Name:       nm.Name,
		Token:      nm.Token,
		AvatarID:   nm.AvatarID,
		AccountID:  account,
		JoinedAt:   nm.JoinedAt,
		LastSeenAt: nm.JoinedAt,
	}
}

func (m *MemoryStore) addMemberLocked(member *models.Membership) {
	m.members[member.ID] = member
	m.tokens[member.Token] = member.ID
	m.roster[member.SessionID] = append(m.roster[member.SessionID], member.ID)
}

func (m *MemoryStore) GetMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMember(member), nil
}

func (m *MemoryStore) GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMember(m.members[id]), nil
}

func (m *MemoryStore) ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.roster[sessionID]
	members := make([]models.Membership, 0, len(ids))
	for _, id := range ids {
		members = append(members, *copyMember(m.members[id]))
	}
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].ID.String() < members[j].ID.String()
	})
	return members, nil
}

func (m *MemoryStore) RejoinMembership(ctx context.Context, p RejoinMembershipParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[p.ID]
	if !ok || member.KickedAt != nil {
		return false, nil
	}
	if member.LeftAt != nil {
		s, ok := m.sessions[member.SessionID]
		if !ok {
			return false, nil
		}
		if s.JoinLocked {
			return false, ErrSessionLocked
		}
		if m.activeCountLocked(member.SessionID) >= p.MaxPlayers {
			return false, ErrSessionFull
		}
	}
	member.LastSeenAt = p.At
	member.LeftAt = nil
	if member.AccountID == nil && p.AccountID != nil {
		a := *p.AccountID
		member.AccountID = &a
	}
	return true, nil
}

func (m *MemoryStore) TouchMembership(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if member, ok := m.members[id]; ok {
		member.LastSeenAt = at
	}
	return nil
}

func (m *MemoryStore) KickMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[id]
	if !ok || member.KickedAt != nil {
		return false, nil
	}
	member.KickedAt = &at
	if member.LeftAt == nil {
		member.LeftAt = &at
	}
	return true, nil
}

func (m *MemoryStore) LeaveMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[id]
	if !ok || member.LeftAt != nil {
		return false, nil
	}
	member.LeftAt = &at
	return true, nil
}

func (m *MemoryStore) RecordSubmission(ctx context.Context, p RecordSubmissionParams) (*models.Submission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := submissionKey{membershipID: p.MembershipID, itemID: p.ItemID}
	if existing, ok := m.submissions[key]; ok {
		return copySubmission(existing), false, nil
	}

	s, ok := m.sessions[p.SessionID]
	if !ok || s.Status != models.SessionStatusActive || s.CurrentIndex != p.ItemIndex {
		return nil, false, ErrSubmissionRejected
	}
	if (s.AnswerRevealedAt == nil) != p.RequireUnrevealed {
		return nil, false, ErrSubmissionRejected
	}
	if p.RequireUnrevealed && s.PauseStartedAt != nil {
		return nil, false, ErrSubmissionRejected
	}

	sub := &models.Submission{
		ID:           p.ID,
		SessionID:    p.SessionID,
		MembershipID: p.MembershipID,
		ItemID:       p.ItemID,
		ItemIndex:    p.ItemIndex,
		ChoiceIndex:  copyInt(p.ChoiceIndex),
		KnewIt:       copyBool(p.KnewIt),
		Correct:      p.Correct,
		TimeMs:       copyInt64(p.TimeMs),
		CreatedAt:    p.At,
	}
	m.submissions[key] = sub
	if member, ok := m.members[p.MembershipID]; ok {
		member.Score += p.ScoreDelta
	}
	return copySubmission(sub), true, nil
}

func (m *MemoryStore) GetSubmission(ctx context.Context, membershipID, itemID uuid.UUID) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.submissions[submissionKey{membershipID: membershipID, itemID: itemID}]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubmission(sub), nil
}

func (m *MemoryStore) ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var subs []models.Submission
	for _, sub := range m.submissions {
		if sub.SessionID == sessionID {
			subs = append(subs, *copySubmission(sub))
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].ItemIndex != subs[j].ItemIndex {
			return subs[i].ItemIndex < subs[j].ItemIndex
		}
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ID.String() < subs[j].ID.String()
	})
	return subs, nil
}

func (m *MemoryStore) GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.decks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDeck(d), nil
}

func copySession(s *models.Session) *models.Session {
	c := *s
	if s.Results != nil {
		c.Results = append(json.RawMessage(nil), s.Results...)
	}
	return &c
}

func copyMember(m *models.Membership) *models.Membership {
	c := *m
	return &c
}

func copySubmission(s *models.Submission) *models.Submission {
	c := *s
	return &c
}

func copyDeck(d *models.Deck) *models.Deck {
	c := *d
	c.Questions = make([]models.Question, len(d.Questions))
	for i, q := range d.Questions {
		q.Choices = append([]string(nil), q.Choices...)
		c.Questions[i] = q
	}
	c.Flashcards = append([]models.Flashcard(nil), d.Flashcards...)
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
