package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func scanPartyMember(row rowScanner) (PartyMember, error) {
	var i PartyMember
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.Name,
		&i.Token,
		&i.AvatarID,
		&i.AccountID,
		&i.Score,
		&i.BonusScore,
		&i.JoinedAt,
		&i.LastSeenAt,
		&i.LeftAt,
		&i.KickedAt,
	)
	return i, err
}

const insertPartyMember = `-- name: InsertPartyMember :one
INSERT INTO party_members (
    id, session_id, name, token, avatar_id, account_id, joined_at, last_seen_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $7
)
RETURNING id, session_id, name, token, avatar_id, account_id, score, bonus_score, joined_at, last_seen_at, left_at, kicked_at
`

type InsertPartyMemberParams struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	Name      string         `json:"name"`
	Token     string         `json:"token"`
	AvatarID  string         `json:"avatar_id"`
	AccountID sql.NullString `json:"account_id"`
	JoinedAt  time.Time      `json:"joined_at"`
}

func (q *Queries) InsertPartyMember(ctx context.Context, arg InsertPartyMemberParams) (PartyMember, error) {
	row := q.db.QueryRowContext(ctx, insertPartyMember,
		arg.ID,
		arg.SessionID,
		arg.Name,
		arg.Token,
		arg.AvatarID,
		arg.AccountID,
		arg.JoinedAt,
	)
	return scanPartyMember(row)
}

const insertPartyMemberIfRoom = `-- name: InsertPartyMemberIfRoom :one
INSERT INTO party_members (
    id, session_id, name, token, avatar_id, account_id, joined_at, last_seen_at
)
SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::timestamptz, $7::timestamptz
WHERE (
    SELECT count(*)
    FROM party_members
    WHERE session_id = $2::uuid
      AND left_at IS NULL
      AND kicked_at IS NULL
) < $8::bigint
RETURNING id, session_id, name, token, avatar_id, account_id, score, bonus_score, joined_at, last_seen_at, left_at, kicked_at
`

type InsertPartyMemberIfRoomParams struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  uuid.UUID      `json:"session_id"`
	Name       string         `json:"name"`
	Token      string         `json:"token"`
	AvatarID   string         `json:"avatar_id"`
	AccountID  sql.NullString `json:"account_id"`
	JoinedAt   time.Time      `json:"joined_at"`
	MaxPlayers int64          `json:"max_players"`
}

func (q *Queries) InsertPartyMemberIfRoom(ctx context.Context, arg InsertPartyMemberIfRoomParams) (PartyMember, error) {
	row := q.db.QueryRowContext(ctx, insertPartyMemberIfRoom,
		arg.ID,
		arg.SessionID,
		arg.Name,
		arg.Token,
		arg.AvatarID,
		arg.AccountID,
		arg.JoinedAt,
		arg.MaxPlayers,
	)
	return scanPartyMember(row)
}

const getPartyMember = `-- name: GetPartyMember :one
SELECT id, session_id, name, token, avatar_id, account_id, score, bonus_score, joined_at, last_seen_at, left_at, kicked_at
FROM party_members
WHERE id = $1
`

func (q *Queries) GetPartyMember(ctx context.Context, id uuid.UUID) (PartyMember, error) {
	row := q.db.QueryRowContext(ctx, getPartyMember, id)
	return scanPartyMember(row)
}

const getPartyMemberByToken = `-- name: GetPartyMemberByToken :one
SELECT id, session_id, name, token, avatar_id, account_id, score, bonus_score, joined_at, last_seen_at, left_at, kicked_at
FROM party_members
WHERE token = $1
`

func (q *Queries) GetPartyMemberByToken(ctx context.Context, token string) (PartyMember, error) {
	row := q.db.QueryRowContext(ctx, getPartyMemberByToken, token)
	return scanPartyMember(row)
}

const listPartyMembers = `-- name: ListPartyMembers :many
SELECT id, session_id, name, token, avatar_id, account_id, score, bonus_score, joined_at, last_seen_at, left_at, kicked_at
FROM party_members
WHERE session_id = $1
ORDER BY joined_at, id
`

func (q *Queries) ListPartyMembers(ctx context.Context, sessionID uuid.UUID) ([]PartyMember, error) {
	rows, err := q.db.QueryContext(ctx, listPartyMembers, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PartyMember
	for rows.Next() {
		i, err := scanPartyMember(rows)
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

const rejoinPartyMember = `-- name: RejoinPartyMember :execrows
UPDATE party_members m
SET last_seen_at = $2,
    left_at = NULL,
    account_id = COALESCE(m.account_id, $3)
WHERE m.id = $1
  AND m.kicked_at IS NULL
  AND (
    m.left_at IS NULL
    OR (
      NOT (SELECT s.join_locked FROM party_sessions s WHERE s.id = m.session_id)
      AND (
        SELECT count(*)
        FROM party_members o
        WHERE o.session_id = m.session_id
          AND o.left_at IS NULL
          AND o.kicked_at IS NULL
      ) < $4::bigint
    )
  )
`

type RejoinPartyMemberParams struct {
	ID         uuid.UUID      `json:"id"`
	SeenAt     time.Time      `json:"seen_at"`
	AccountID  sql.NullString `json:"account_id"`
	MaxPlayers int64          `json:"max_players"`
}

func (q *Queries) RejoinPartyMember(ctx context.Context, arg RejoinPartyMemberParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, rejoinPartyMember,
		arg.ID,
		arg.SeenAt,
		arg.AccountID,
		arg.MaxPlayers,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const touchPartyMember = `-- name: TouchPartyMember :exec
UPDATE party_members
SET last_seen_at = $2
WHERE id = $1
`

func (q *Queries) TouchPartyMember(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := q.db.ExecContext(ctx, touchPartyMember, id, seenAt)
	return err
}

const kickPartyMember = `-- name: KickPartyMember :execrows
UPDATE party_members
SET kicked_at = $2,
    left_at = COALESCE(left_at, $2)
WHERE id = $1
  AND kicked_at IS NULL
`

func (q *Queries) KickPartyMember(ctx context.Context, id uuid.UUID, kickedAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, kickPartyMember, id, kickedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const leavePartyMember = `-- name: LeavePartyMember :execrows
UPDATE party_members
SET left_at = $2
WHERE id = $1
  AND left_at IS NULL
`

func (q *Queries) LeavePartyMember(ctx context.Context, id uuid.UUID, leftAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, leavePartyMember, id, leftAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const incrementPartyMemberScore = `-- name: IncrementPartyMemberScore :exec
UPDATE party_members
SET score = score + $2
WHERE id = $1
`

func (q *Queries) IncrementPartyMemberScore(ctx context.Context, id uuid.UUID, delta int32) error {
	_, err := q.db.ExecContext(ctx, incrementPartyMemberScore, id, delta)
	return err
}

const awardFastestCorrectBonus = `-- name: AwardFastestCorrectBonus :execrows
WITH fastest AS (
    SELECT s.member_id
    FROM party_submissions s
    JOIN party_members pm ON pm.id = s.member_id
    WHERE s.session_id = $1
      AND s.item_id = $2
      AND s.is_correct
      AND s.time_ms IS NOT NULL
      AND pm.kicked_at IS NULL
    ORDER BY s.time_ms ASC, s.created_at ASC, s.id ASC
    LIMIT 1
)
UPDATE party_members m
SET bonus_score = m.bonus_score + 1
FROM fastest
WHERE m.id = fastest.member_id
`

func (q *Queries) AwardFastestCorrectBonus(ctx context.Context, sessionID uuid.UUID, itemID uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, awardFastestCorrectBonus, sessionID, itemID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
