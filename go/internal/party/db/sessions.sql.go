package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPartySession(row rowScanner) (PartySession, error) {
	var i PartySession
	err := row.Scan(
		&i.ID,
		&i.JoinCode,
		&i.DeckID,
		&i.Mode,
		&i.Status,
		&i.CurrentIndex,
		&i.QuestionDurationSec,
		&i.QuestionStartedAt,
		&i.AnswerRevealedAt,
		&i.PauseStartedAt,
		&i.PausedMs,
		&i.JoinLocked,
		&i.HostMembershipID,
		&i.HostAccountID,
		&i.Results,
		&i.CreatedAt,
		&i.EndedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const insertPartySession = `-- name: InsertPartySession :one
INSERT INTO party_sessions (
    id, join_code, deck_id, mode, status, current_index, question_duration_sec,
    host_account_id, created_at, expires_at
) VALUES (
    $1, $2, $3, $4, 'LOBBY', 0, $5, $6, $7, $8
)
RETURNING id, join_code, deck_id, mode, status, current_index, question_duration_sec, question_started_at, answer_revealed_at, pause_started_at, paused_ms, join_locked, host_membership_id, host_account_id, results, created_at, ended_at, expires_at
`

type InsertPartySessionParams struct {
	ID                  uuid.UUID `json:"id"`
	JoinCode            string    `json:"join_code"`
	DeckID              uuid.UUID `json:"deck_id"`
	Mode                string    `json:"mode"`
	QuestionDurationSec int32     `json:"question_duration_sec"`
	HostAccountID       string    `json:"host_account_id"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

func (q *Queries) InsertPartySession(ctx context.Context, arg InsertPartySessionParams) (PartySession, error) {
	row := q.db.QueryRowContext(ctx, insertPartySession,
		arg.ID,
		arg.JoinCode,
		arg.DeckID,
		arg.Mode,
		arg.QuestionDurationSec,
		arg.HostAccountID,
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return scanPartySession(row)
}

const getPartySession = `-- name: GetPartySession :one
SELECT id, join_code, deck_id, mode, status, current_index, question_duration_sec, question_started_at, answer_revealed_at, pause_started_at, paused_ms, join_locked, host_membership_id, host_account_id, results, created_at, ended_at, expires_at
FROM party_sessions
WHERE id = $1
`

func (q *Queries) GetPartySession(ctx context.Context, id uuid.UUID) (PartySession, error) {
	row := q.db.QueryRowContext(ctx, getPartySession, id)
	return scanPartySession(row)
}

const getPartySessionByJoinCode = `-- name: GetPartySessionByJoinCode :one
SELECT id, join_code, deck_id, mode, status, current_index, question_duration_sec, question_started_at, answer_revealed_at, pause_started_at, paused_ms, join_locked, host_membership_id, host_account_id, results, created_at, ended_at, expires_at
FROM party_sessions
WHERE join_code = $1
`

func (q *Queries) GetPartySessionByJoinCode(ctx context.Context, joinCode string) (PartySession, error) {
	row := q.db.QueryRowContext(ctx, getPartySessionByJoinCode, joinCode)
	return scanPartySession(row)
}

const setPartyHost = `-- name: SetPartyHost :exec
UPDATE party_sessions
SET host_membership_id = $2
WHERE id = $1
`

type SetPartyHostParams struct {
	ID               uuid.UUID     `json:"id"`
	HostMembershipID uuid.NullUUID `json:"host_membership_id"`
}

func (q *Queries) SetPartyHost(ctx context.Context, arg SetPartyHostParams) error {
	_, err := q.db.ExecContext(ctx, setPartyHost, arg.ID, arg.HostMembershipID)
	return err
}

const reassignPartyHost = `-- name: ReassignPartyHost :execrows
UPDATE party_sessions
SET host_membership_id = $3
WHERE id = $1
  AND status <> 'COMPLETE'
  AND host_membership_id IS NOT DISTINCT FROM $2::uuid
`

type ReassignPartyHostParams struct {
	ID      uuid.UUID     `json:"id"`
	OldHost uuid.NullUUID `json:"old_host"`
	NewHost uuid.UUID     `json:"new_host"`
}

func (q *Queries) ReassignPartyHost(ctx context.Context, arg ReassignPartyHostParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, reassignPartyHost, arg.ID, arg.OldHost, arg.NewHost)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const startPartySession = `-- name: StartPartySession :execrows
UPDATE party_sessions
SET status = 'ACTIVE',
    current_index = 0,
    question_started_at = $2::timestamptz,
    answer_revealed_at = CASE WHEN $3::boolean THEN $2::timestamptz ELSE NULL END,
    pause_started_at = NULL,
    paused_ms = 0
WHERE id = $1
  AND status = 'LOBBY'
`

type StartPartySessionParams struct {
	ID           uuid.UUID `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	RevealAtOnce bool      `json:"reveal_at_once"`
}

func (q *Queries) StartPartySession(ctx context.Context, arg StartPartySessionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, startPartySession, arg.ID, arg.StartedAt, arg.RevealAtOnce)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const advancePartySession = `-- name: AdvancePartySession :execrows
UPDATE party_sessions
SET current_index = current_index + 1,
    question_started_at = $3::timestamptz,
    answer_revealed_at = CASE WHEN $4::boolean THEN $3::timestamptz ELSE NULL END,
    pause_started_at = NULL,
    paused_ms = 0
WHERE id = $1
  AND status = 'ACTIVE'
  AND current_index = $2
`

type AdvancePartySessionParams struct {
	ID           uuid.UUID `json:"id"`
	FromIndex    int32     `json:"from_index"`
	StartedAt    time.Time `json:"started_at"`
	RevealAtOnce bool      `json:"reveal_at_once"`
}

func (q *Queries) AdvancePartySession(ctx context.Context, arg AdvancePartySessionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, advancePartySession, arg.ID, arg.FromIndex, arg.StartedAt, arg.RevealAtOnce)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const completePartySession = `-- name: CompletePartySession :execrows
UPDATE party_sessions
SET status = 'COMPLETE',
    ended_at = $3,
    question_started_at = NULL,
    answer_revealed_at = NULL,
    pause_started_at = NULL,
    paused_ms = 0
WHERE id = $1
  AND status = 'ACTIVE'
  AND current_index = $2
`

type CompletePartySessionParams struct {
	ID        uuid.UUID `json:"id"`
	FromIndex int32     `json:"from_index"`
	EndedAt   time.Time `json:"ended_at"`
}

func (q *Queries) CompletePartySession(ctx context.Context, arg CompletePartySessionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, completePartySession, arg.ID, arg.FromIndex, arg.EndedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const pausePartySession = `-- name: PausePartySession :execrows
UPDATE party_sessions
SET pause_started_at = $2
WHERE id = $1
  AND status = 'ACTIVE'
  AND pause_started_at IS NULL
`

func (q *Queries) PausePartySession(ctx context.Context, id uuid.UUID, pausedAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, pausePartySession, id, pausedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const resumePartySession = `-- name: ResumePartySession :execrows
UPDATE party_sessions
SET paused_ms = paused_ms + GREATEST(0, floor(EXTRACT(EPOCH FROM ($2::timestamptz - pause_started_at)) * 1000))::bigint,
    pause_started_at = NULL
WHERE id = $1
  AND status = 'ACTIVE'
  AND pause_started_at IS NOT NULL
`

func (q *Queries) ResumePartySession(ctx context.Context, id uuid.UUID, resumedAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, resumePartySession, id, resumedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setPartyDuration = `-- name: SetPartyDuration :execrows
UPDATE party_sessions
SET question_duration_sec = $2
WHERE id = $1
  AND status <> 'COMPLETE'
`

func (q *Queries) SetPartyDuration(ctx context.Context, id uuid.UUID, durationSec int32) (int64, error) {
	result, err := q.db.ExecContext(ctx, setPartyDuration, id, durationSec)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setPartyJoinLocked = `-- name: SetPartyJoinLocked :execrows
UPDATE party_sessions
SET join_locked = $2
WHERE id = $1
  AND status <> 'COMPLETE'
`

func (q *Queries) SetPartyJoinLocked(ctx context.Context, id uuid.UUID, locked bool) (int64, error) {
	result, err := q.db.ExecContext(ctx, setPartyJoinLocked, id, locked)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const revealPartyAnswer = `-- name: RevealPartyAnswer :execrows
UPDATE party_sessions
SET answer_revealed_at = $3
WHERE id = $1
  AND status = 'ACTIVE'
  AND current_index = $2
  AND answer_revealed_at IS NULL
`

type RevealPartyAnswerParams struct {
	ID         uuid.UUID `json:"id"`
	ItemIndex  int32     `json:"item_index"`
	RevealedAt time.Time `json:"revealed_at"`
}

func (q *Queries) RevealPartyAnswer(ctx context.Context, arg RevealPartyAnswerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, revealPartyAnswer, arg.ID, arg.ItemIndex, arg.RevealedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// The roster and submission counts are read in the same statement as the
// conditional write, so they are one consistent snapshot.
const revealPartyAnswerIfAllAnswered = `-- name: RevealPartyAnswerIfAllAnswered :execrows
UPDATE party_sessions s
SET answer_revealed_at = $4
WHERE s.id = $1
  AND s.status = 'ACTIVE'
  AND s.current_index = $2
  AND s.answer_revealed_at IS NULL
  AND (
    SELECT count(*)
    FROM party_submissions sub
    JOIN party_members m ON m.id = sub.member_id
    WHERE sub.session_id = s.id
      AND sub.item_id = $3
      AND m.left_at IS NULL
      AND m.kicked_at IS NULL
  ) >= (
    SELECT count(*)
    FROM party_members m
    WHERE m.session_id = s.id
      AND m.left_at IS NULL
      AND m.kicked_at IS NULL
  )
  AND EXISTS (
    SELECT 1
    FROM party_members m
    WHERE m.session_id = s.id
      AND m.left_at IS NULL
      AND m.kicked_at IS NULL
  )
`

type RevealPartyAnswerIfAllAnsweredParams struct {
	ID         uuid.UUID `json:"id"`
	ItemIndex  int32     `json:"item_index"`
	ItemID     uuid.UUID `json:"item_id"`
	RevealedAt time.Time `json:"revealed_at"`
}

func (q *Queries) RevealPartyAnswerIfAllAnswered(ctx context.Context, arg RevealPartyAnswerIfAllAnsweredParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, revealPartyAnswerIfAllAnswered,
		arg.ID,
		arg.ItemIndex,
		arg.ItemID,
		arg.RevealedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setPartyResults = `-- name: SetPartyResults :exec
UPDATE party_sessions
SET results = $2
WHERE id = $1
`

func (q *Queries) SetPartyResults(ctx context.Context, id uuid.UUID, results pqtype.NullRawMessage) error {
	_, err := q.db.ExecContext(ctx, setPartyResults, id, results)
	return err
}

const deleteExpiredPartySessions = `-- name: DeleteExpiredPartySessions :execrows
DELETE FROM party_sessions
WHERE expires_at <= $1
`

func (q *Queries) DeleteExpiredPartySessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredPartySessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
