package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/quizparty/go/internal/models"
	"github.com/mcdev12/quizparty/go/internal/party/db"
	"github.com/mcdev12/quizparty/go/internal/sqlutil"
)

const (
	joinCodeConstraint = "party_sessions_join_code_key"
	tokenConstraint    = "party_members_token_key"
)

// Repository is the Postgres-backed Store
type Repository struct {
	conn    *sql.DB
	queries *db.Queries
}

var _ Store = (*Repository)(nil)

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		conn:    conn,
		queries: db.New(conn),
	}
}

// ApplySchema creates the party tables if they do not exist
func (r *Repository) ApplySchema(ctx context.Context) error {
	if _, err := r.conn.ExecContext(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *Repository) CreateSession(ctx context.Context, p CreateSessionParams) (*models.Session, *models.Membership, error) {
	var (
		session db.PartySession
		host    db.PartyMember
	)
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		s, err := q.InsertPartySession(ctx, db.InsertPartySessionParams{
			ID:                  p.ID,
			JoinCode:            p.JoinCode,
			DeckID:              p.DeckID,
			Mode:                string(p.Mode),
			QuestionDurationSec: int32(p.DurationSec),
			HostAccountID:       p.HostAccountID,
			CreatedAt:           p.CreatedAt,
			ExpiresAt:           p.ExpiresAt,
		})
		if err != nil {
			return err
		}

		h, err := q.InsertPartyMember(ctx, db.InsertPartyMemberParams{
			ID:        p.Host.ID,
			SessionID: s.ID,
			Name:      p.Host.Name,
			Token:     p.Host.Token,
			AvatarID:  p.Host.AvatarID,
			AccountID: sqlutil.ToSqlString(p.Host.AccountID),
			JoinedAt:  p.Host.JoinedAt,
		})
		if err != nil {
			return err
		}

		hostID := uuid.NullUUID{UUID: h.ID, Valid: true}
		if err := q.SetPartyHost(ctx, db.SetPartyHostParams{ID: s.ID, HostMembershipID: hostID}); err != nil {
			return err
		}
		s.HostMembershipID = hostID

		session, host = s, h
		return nil
	})
	if err != nil {
		if sqlutil.IsUniqueViolation(err, joinCodeConstraint) {
			return nil, nil, ErrJoinCodeTaken
		}
		if sqlutil.IsUniqueViolation(err, tokenConstraint) {
			return nil, nil, ErrTokenTaken
		}
		return nil, nil, fmt.Errorf("failed to create party session: %w", err)
	}

	return dbSessionToModel(session), dbMemberToModel(host), nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := r.queries.GetPartySession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get party session: %w", err)
	}
	return dbSessionToModel(s), nil
}

func (r *Repository) GetSessionByJoinCode(ctx context.Context, code string) (*models.Session, error) {
	s, err := r.queries.GetPartySessionByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get party session by join code: %w", err)
	}
	return dbSessionToModel(s), nil
}

func (r *Repository) StartSession(ctx context.Context, p StartSessionParams) (bool, error) {
	n, err := r.queries.StartPartySession(ctx, db.StartPartySessionParams{
		ID:           p.ID,
		StartedAt:    p.At,
		RevealAtOnce: p.RevealAtOnce,
	})
	if err != nil {
		return false, fmt.Errorf("failed to start party session: %w", err)
	}
	return n > 0, nil
}

// AdvanceSession moves the cursor and awards the bonus in one transaction.
// The bonus is only awarded by the caller whose conditional update won.
func (r *Repository) AdvanceSession(ctx context.Context, p AdvanceSessionParams) (bool, error) {
	advanced := false
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		var (
			n   int64
			err error
		)
		if p.Complete {
			n, err = q.CompletePartySession(ctx, db.CompletePartySessionParams{
				ID:        p.ID,
				FromIndex: int32(p.FromIndex),
				EndedAt:   p.At,
			})
		} else {
			n, err = q.AdvancePartySession(ctx, db.AdvancePartySessionParams{
				ID:           p.ID,
				FromIndex:    int32(p.FromIndex),
				StartedAt:    p.At,
				RevealAtOnce: p.RevealAtOnce,
			})
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		advanced = true

		if p.AwardBonus {
			if _, err := q.AwardFastestCorrectBonus(ctx, p.ID, p.ItemID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance party session: %w", err)
	}
	return advanced, nil
}

func (r *Repository) PauseSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	n, err := r.queries.PausePartySession(ctx, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to pause party session: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) ResumeSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	n, err := r.queries.ResumePartySession(ctx, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to resume party session: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) SetDuration(ctx context.Context, id uuid.UUID, durationSec int) (bool, error) {
	n, err := r.queries.SetPartyDuration(ctx, id, int32(durationSec))
	if err != nil {
		return false, fmt.Errorf("failed to set party duration: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) SetJoinLocked(ctx context.Context, id uuid.UUID, locked bool) (bool, error) {
	n, err := r.queries.SetPartyJoinLocked(ctx, id, locked)
	if err != nil {
		return false, fmt.Errorf("failed to set party join lock: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) RevealAnswer(ctx context.Context, p RevealParams) (bool, error) {
	var (
		n   int64
		err error
	)
	if p.RequireAllAnswered {
		n, err = r.queries.RevealPartyAnswerIfAllAnswered(ctx, db.RevealPartyAnswerIfAllAnsweredParams{
			ID:         p.ID,
			ItemIndex:  int32(p.ItemIndex),
			ItemID:     p.ItemID,
			RevealedAt: p.At,
		})
	} else {
		n, err = r.queries.RevealPartyAnswer(ctx, db.RevealPartyAnswerParams{
			ID:         p.ID,
			ItemIndex:  int32(p.ItemIndex),
			RevealedAt: p.At,
		})
	}
	if err != nil {
		return false, fmt.Errorf("failed to reveal answer: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) ReassignHost(ctx context.Context, id uuid.UUID, from *uuid.UUID, to uuid.UUID) (bool, error) {
	n, err := r.queries.ReassignPartyHost(ctx, db.ReassignPartyHostParams{
		ID:      id,
		OldHost: sqlutil.ToNullUUID(from),
		NewHost: to,
	})
	if err != nil {
		return false, fmt.Errorf("failed to reassign party host: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) SetResults(ctx context.Context, id uuid.UUID, results json.RawMessage) error {
	if err := r.queries.SetPartyResults(ctx, id, sqlutil.ToNullRawMessage(results)); err != nil {
		return fmt.Errorf("failed to store party results: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredPartySessions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired party sessions: %w", err)
	}
	return n, nil
}

func (r *Repository) InsertMembership(ctx context.Context, p InsertMembershipParams) (*models.Membership, error) {
	m, err := r.queries.InsertPartyMemberIfRoom(ctx, db.InsertPartyMemberIfRoomParams{
		ID:         p.Member.ID,
		SessionID:  p.SessionID,
		Name:       p.Member.Name,
		Token:      p.Member.Token,
		AvatarID:   p.Member.AvatarID,
		AccountID:  sqlutil.ToSqlString(p.Member.AccountID),
		JoinedAt:   p.Member.JoinedAt,
		MaxPlayers: int64(p.MaxPlayers),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionFull
		}
		if sqlutil.IsUniqueViolation(err, tokenConstraint) {
			return nil, ErrTokenTaken
		}
		return nil, fmt.Errorf("failed to insert party member: %w", err)
	}
	return dbMemberToModel(m), nil
}

func (r *Repository) GetMembership(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	m, err := r.queries.GetPartyMember(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get party member: %w", err)
	}
	return dbMemberToModel(m), nil
}

func (r *Repository) GetMembershipByToken(ctx context.Context, token string) (*models.Membership, error) {
	m, err := r.queries.GetPartyMemberByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get party member by token: %w", err)
	}
	return dbMemberToModel(m), nil
}

func (r *Repository) ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error) {
	rows, err := r.queries.ListPartyMembers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list party members: %w", err)
	}
	members := make([]models.Membership, 0, len(rows))
	for _, row := range rows {
		members = append(members, *dbMemberToModel(row))
	}
	return members, nil
}

func (r *Repository) RejoinMembership(ctx context.Context, p RejoinMembershipParams) (bool, error) {
	n, err := r.queries.RejoinPartyMember(ctx, db.RejoinPartyMemberParams{
		ID:         p.ID,
		SeenAt:     p.At,
		AccountID:  sqlutil.ToSqlString(p.AccountID),
		MaxPlayers: int64(p.MaxPlayers),
	})
	if err != nil {
		return false, fmt.Errorf("failed to rejoin party member: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// the update did not land; work out which guard stopped it
	member, err := r.GetMembership(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if member.Kicked() || member.LeftAt == nil {
		return false, nil
	}
	session, err := r.GetSession(ctx, member.SessionID)
	if err != nil {
		return false, err
	}
	if session.JoinLocked {
		return false, ErrSessionLocked
	}
	return false, ErrSessionFull
}

func (r *Repository) TouchMembership(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := r.queries.TouchPartyMember(ctx, id, at); err != nil {
		return fmt.Errorf("failed to touch party member: %w", err)
	}
	return nil
}

func (r *Repository) KickMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	n, err := r.queries.KickPartyMember(ctx, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to kick party member: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) LeaveMembership(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	n, err := r.queries.LeavePartyMember(ctx, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to leave party: %w", err)
	}
	return n > 0, nil
}

// RecordSubmission inserts the submission and its score in one transaction.
// A lost race on the (member, item) constraint returns the stored row with
// inserted=false; a phase or cursor mismatch returns ErrSubmissionRejected.
func (r *Repository) RecordSubmission(ctx context.Context, p RecordSubmissionParams) (*models.Submission, bool, error) {
	var (
		sub      db.PartySubmission
		inserted bool
	)
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		s, err := q.InsertPartySubmission(ctx, db.InsertPartySubmissionParams{
			ID:                p.ID,
			SessionID:         p.SessionID,
			MemberID:          p.MembershipID,
			ItemID:            p.ItemID,
			ItemIndex:         int32(p.ItemIndex),
			ChoiceIndex:       sqlutil.ToSqlInt32(p.ChoiceIndex),
			KnewIt:            sqlutil.ToSqlBool(p.KnewIt),
			IsCorrect:         p.Correct,
			TimeMs:            sqlutil.ToSqlInt64(p.TimeMs),
			CreatedAt:         p.At,
			RequireUnrevealed: p.RequireUnrevealed,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		sub, inserted = s, true

		if p.ScoreDelta != 0 {
			return q.IncrementPartyMemberScore(ctx, p.MembershipID, int32(p.ScoreDelta))
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to record submission: %w", err)
	}
	if inserted {
		return dbSubmissionToModel(sub), true, nil
	}

	existing, err := r.GetSubmission(ctx, p.MembershipID, p.ItemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, ErrSubmissionRejected
		}
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Repository) GetSubmission(ctx context.Context, membershipID, itemID uuid.UUID) (*models.Submission, error) {
	s, err := r.queries.GetPartySubmission(ctx, membershipID, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return dbSubmissionToModel(s), nil
}

func (r *Repository) ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]models.Submission, error) {
	rows, err := r.queries.ListPartySubmissions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	subs := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, *dbSubmissionToModel(row))
	}
	return subs, nil
}

func (r *Repository) GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	d, err := r.queries.GetDeck(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}

	questions, err := r.queries.ListDeckQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list deck questions: %w", err)
	}
	flashcards, err := r.queries.ListDeckFlashcards(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list deck flashcards: %w", err)
	}

	deck := &models.Deck{
		ID:             d.ID,
		OwnerAccountID: d.OwnerAccountID,
		Title:          d.Title,
		Questions:      make([]models.Question, 0, len(questions)),
		Flashcards:     make([]models.Flashcard, 0, len(flashcards)),
	}
	for _, q := range questions {
		deck.Questions = append(deck.Questions, models.Question{
			ID:           q.ID,
			Position:     int(q.Position),
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: int(q.CorrectIndex),
		})
	}
	for _, f := range flashcards {
		deck.Flashcards = append(deck.Flashcards, models.Flashcard{
			ID:       f.ID,
			Position: int(f.Position),
			Front:    f.Front,
			Back:     f.Back,
		})
	}
	return deck, nil
}

func dbSessionToModel(s db.PartySession) *models.Session {
	return &models.Session{
		ID:                  s.ID,
		JoinCode:            s.JoinCode,
		DeckID:              s.DeckID,
		Mode:                models.SessionMode(s.Mode),
		Status:              models.SessionStatus(s.Status),
		CurrentIndex:        int(s.CurrentIndex),
		QuestionDurationSec: int(s.QuestionDurationSec),
		QuestionStartedAt:   sqlutil.FromSqlTime(s.QuestionStartedAt),
		AnswerRevealedAt:    sqlutil.FromSqlTime(s.AnswerRevealedAt),
		PauseStartedAt:      sqlutil.FromSqlTime(s.PauseStartedAt),
		PausedMs:            s.PausedMs,
		JoinLocked:          s.JoinLocked,
		HostMembershipID:    sqlutil.FromNullUUID(s.HostMembershipID),
		HostAccountID:       s.HostAccountID,
		Results:             sqlutil.FromNullRawMessage(s.Results),
		CreatedAt:           s.CreatedAt,
		EndedAt:             sqlutil.FromSqlTime(s.EndedAt),
		ExpiresAt:           s.ExpiresAt,
	}
}

func dbMemberToModel(m db.PartyMember) *models.Membership {
	return &models.Membership{
		ID:         m.ID,
		SessionID:  m.SessionID,
		Name:       m.Name,
		Token:      m.Token,
		AvatarID:   m.AvatarID,
		AccountID:  sqlutil.FromSqlStringPtr(m.AccountID),
		Score:      int(m.Score),
		BonusScore: int(m.BonusScore),
		JoinedAt:   m.JoinedAt,
		LastSeenAt: m.LastSeenAt,
		LeftAt:     sqlutil.FromSqlTime(m.LeftAt),
		KickedAt:   sqlutil.FromSqlTime(m.KickedAt),
	}
}

func dbSubmissionToModel(s db.PartySubmission) *models.Submission {
	return &models.Submission{
		ID:           s.ID,
		SessionID:    s.SessionID,
		MembershipID: s.MemberID,
		ItemID:       s.ItemID,
		ItemIndex:    int(s.ItemIndex),
		ChoiceIndex:  sqlutil.FromSqlInt32(s.ChoiceIndex),
		KnewIt:       sqlutil.FromSqlBool(s.KnewIt),
		Correct:      s.IsCorrect,
		TimeMs:       sqlutil.FromSqlInt64(s.TimeMs),
		CreatedAt:    s.CreatedAt,
	}
}
