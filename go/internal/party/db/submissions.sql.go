package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func scanPartySubmission(row rowScanner) (PartySubmission, error) {
	var i PartySubmission
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.MemberID,
		&i.ItemID,
		&i.ItemIndex,
		&i.ChoiceIndex,
		&i.KnewIt,
		&i.IsCorrect,
		&i.TimeMs,
		&i.CreatedAt,
	)
	return i, err
}

// The insert only happens while the session still sits on the submitted
// item in the expected reveal phase; a duplicate (member, item) pair is
// absorbed by the unique constraint. Either way no row comes back.
const insertPartySubmission = `-- name: InsertPartySubmission :one
INSERT INTO party_submissions (
    id, session_id, member_id, item_id, item_index, choice_index, knew_it, is_correct, time_ms, created_at
)
SELECT $1::uuid, s.id, $3::uuid, $4::uuid, $5::integer, $6::integer, $7::boolean, $8::boolean, $9::bigint, $10::timestamptz
FROM party_sessions s
WHERE s.id = $2::uuid
  AND s.status = 'ACTIVE'
  AND s.current_index = $5::integer
  AND (s.answer_revealed_at IS NULL) = $11::boolean
  AND (NOT $11::boolean OR s.pause_started_at IS NULL)
ON CONFLICT (member_id, item_id) DO NOTHING
RETURNING id, session_id, member_id, item_id, item_index, choice_index, knew_it, is_correct, time_ms, created_at
`

type InsertPartySubmissionParams struct {
	ID                uuid.UUID     `json:"id"`
	SessionID         uuid.UUID     `json:"session_id"`
	MemberID          uuid.UUID     `json:"member_id"`
	ItemID            uuid.UUID     `json:"item_id"`
	ItemIndex         int32         `json:"item_index"`
	ChoiceIndex       sql.NullInt32 `json:"choice_index"`
	KnewIt            sql.NullBool  `json:"knew_it"`
	IsCorrect         bool          `json:"is_correct"`
	TimeMs            sql.NullInt64 `json:"time_ms"`
	CreatedAt         time.Time     `json:"created_at"`
	RequireUnrevealed bool          `json:"require_unrevealed"`
}

func (q *Queries) InsertPartySubmission(ctx context.Context, arg InsertPartySubmissionParams) (PartySubmission, error) {
	row := q.db.QueryRowContext(ctx, insertPartySubmission,
		arg.ID,
		arg.SessionID,
		arg.MemberID,
		arg.ItemID,
		arg.ItemIndex,
		arg.ChoiceIndex,
		arg.KnewIt,
		arg.IsCorrect,
		arg.TimeMs,
		arg.CreatedAt,
		arg.RequireUnrevealed,
	)
	return scanPartySubmission(row)
}

const getPartySubmission = `-- name: GetPartySubmission :one
SELECT id, session_id, member_id, item_id, item_index, choice_index, knew_it, is_correct, time_ms, created_at
FROM party_submissions
WHERE member_id = $1
  AND item_id = $2
`

func (q *Queries) GetPartySubmission(ctx context.Context, memberID uuid.UUID, itemID uuid.UUID) (PartySubmission, error) {
	row := q.db.QueryRowContext(ctx, getPartySubmission, memberID, itemID)
	return scanPartySubmission(row)
}

const listPartySubmissions = `-- name: ListPartySubmissions :many
SELECT id, session_id, member_id, item_id, item_index, choice_index, knew_it, is_correct, time_ms, created_at
FROM party_submissions
WHERE session_id = $1
ORDER BY item_index, created_at, id
`

func (q *Queries) ListPartySubmissions(ctx context.Context, sessionID uuid.UUID) ([]PartySubmission, error) {
	rows, err := q.db.QueryContext(ctx, listPartySubmissions, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PartySubmission
	for rows.Next() {
		i, err := scanPartySubmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
