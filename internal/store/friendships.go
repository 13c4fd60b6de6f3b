package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
	FriendRejected = "rejected"
)

type Friendship struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	FriendID    uuid.UUID `json:"friend_id"`
	Status      string    `json:"status"`
	RequestedBy uuid.UUID `json:"requested_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FriendLink is a friendship row seen from one side, with the other user.
type FriendLink struct {
	Friendship Friendship     `json:"friendship"`
	User       ProfileSummary `json:"user"`
}

type Suggestion struct {
	ProfileSummary
	MutualCount int `json:"mutual_count"`
}

// CanonicalPair orders two ids so each friendship has exactly one row.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) < 0 {
		return a, b
	}
	return b, a
}

const friendshipColumns = `id, user_id, friend_id, status, requested_by, created_at, updated_at`

func scanFriendship(row pgx.Row) (*Friendship, error) {
	var f Friendship
	if err := row.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.RequestedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// SendFriendRequest creates a pending request from -> to. A previously
// rejected pair may be requested again; pending and accepted pairs conflict.
func (s *Store) SendFriendRequest(ctx context.Context, from, to uuid.UUID) (*Friendship, error) {
	if from == to {
		return nil, fmt.Errorf("friend request to self: %w", ErrInvalid)
	}
	u, f := CanonicalPair(from, to)

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := scanFriendship(tx.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE user_id=$1 AND friend_id=$2 FOR UPDATE`, u, f))
	var out *Friendship
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		out, err = scanFriendship(tx.QueryRow(ctx, `
INSERT INTO friendships(user_id, friend_id, status, requested_by)
VALUES ($1,$2,'pending',$3)
RETURNING `+friendshipColumns, u, f, from))
		if err != nil {
			return nil, wrap("insert friendship", err)
		}
	case err != nil:
		return nil, wrap("get friendship", err)
	case existing.Status == FriendPending:
		return nil, fmt.Errorf("friend request already pending: %w", ErrConflict)
	case existing.Status == FriendAccepted:
		return nil, fmt.Errorf("already friends: %w", ErrConflict)
	default:
		out, err = scanFriendship(tx.QueryRow(ctx, `
UPDATE friendships SET status='pending', requested_by=$3, updated_at=now()
WHERE user_id=$1 AND friend_id=$2
RETURNING `+friendshipColumns, u, f, from))
		if err != nil {
			return nil, wrap("renew friendship", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// RespondFriendRequest accepts or rejects the pending request between me and
// other. Only the user who did not send the request may respond.
func (s *Store) RespondFriendRequest(ctx context.Context, me, other uuid.UUID, accept bool) (*Friendship, error) {
	if me == other {
		return nil, fmt.Errorf("respond to self: %w", ErrInvalid)
	}
	u, f := CanonicalPair(me, other)

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := scanFriendship(tx.QueryRow(ctx, `SELECT `+friendshipColumns+` FROM friendships WHERE user_id=$1 AND friend_id=$2 FOR UPDATE`, u, f))
	if err != nil {
		return nil, wrap("get friend request", err)
	}
	if existing.Status != FriendPending {
		return nil, fmt.Errorf("request is not pending (status=%s): %w", existing.Status, ErrConflict)
	}
	if existing.RequestedBy == me {
		return nil, fmt.Errorf("cannot respond to own request: %w", ErrForbidden)
	}

	status := FriendRejected
	if accept {
		status = FriendAccepted
	}
	out, err := scanFriendship(tx.QueryRow(ctx, `
UPDATE friendships SET status=$3, updated_at=now()
WHERE user_id=$1 AND friend_id=$2
RETURNING `+friendshipColumns, u, f, status))
	if err != nil {
		return nil, wrap("update friendship", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// Unfriend deletes the pair's row whatever its status; it also cancels
// pending requests.
func (s *Store) Unfriend(ctx context.Context, me, other uuid.UUID) error {
	u, f := CanonicalPair(me, other)
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM friendships WHERE user_id=$1 AND friend_id=$2`, u, f)
	return wrap("unfriend", err)
}

func (s *Store) listLinks(ctx context.Context, op, where, order string, me uuid.UUID) ([]FriendLink, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT fr.id, fr.user_id, fr.friend_id, fr.status, fr.requested_by, fr.created_at, fr.updated_at,
       p.id, p.username, p.full_name, p.avatar_url
FROM friendships fr
JOIN profiles p ON p.id = CASE WHEN fr.user_id = $1 THEN fr.friend_id ELSE fr.user_id END
WHERE ($1 = fr.user_id OR $1 = fr.friend_id) AND `+where+`
ORDER BY `+order, me)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := []FriendLink{}
	for rows.Next() {
		var l FriendLink
		fr := &l.Friendship
		if err := rows.Scan(&fr.ID, &fr.UserID, &fr.FriendID, &fr.Status, &fr.RequestedBy, &fr.CreatedAt, &fr.UpdatedAt,
			&l.User.ID, &l.User.Username, &l.User.FullName, &l.User.AvatarURL); err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, l)
	}
	return out, wrap(op, rows.Err())
}

func (s *Store) ListFriends(ctx context.Context, me uuid.UUID) ([]FriendLink, error) {
	return s.listLinks(ctx, "list friends", `fr.status = 'accepted'`, `fr.updated_at DESC`, me)
}

func (s *Store) ListIncomingRequests(ctx context.Context, me uuid.UUID) ([]FriendLink, error) {
	return s.listLinks(ctx, "list incoming requests", `fr.status = 'pending' AND fr.requested_by <> $1`, `fr.created_at DESC`, me)
}

func (s *Store) ListOutgoingRequests(ctx context.Context, me uuid.UUID) ([]FriendLink, error) {
	return s.listLinks(ctx, "list outgoing requests", `fr.status = 'pending' AND fr.requested_by = $1`, `fr.created_at DESC`, me)
}

// SuggestFriends ranks friends-of-friends by mutual friend count, skipping
// anyone who already has a friendship row with me in any status.
func (s *Store) SuggestFriends(ctx context.Context, me uuid.UUID, limit, offset int) ([]Suggestion, error) {
	rows, err := s.db.Pool.Query(ctx, `
WITH my_friends AS (
  SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END AS friend_id
  FROM friendships
  WHERE status = 'accepted' AND ($1 = user_id OR $1 = friend_id)
),
fof AS (
  SELECT CASE WHEN f.user_id = mf.friend_id THEN f.friend_id ELSE f.user_id END AS candidate_id
  FROM friendships f
  JOIN my_friends mf ON (f.user_id = mf.friend_id OR f.friend_id = mf.friend_id)
  WHERE f.status = 'accepted'
),
excluded AS (
  SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END AS other_id
  FROM friendships
  WHERE ($1 = user_id OR $1 = friend_id)
)
SELECT p.id, p.username, p.full_name, p.avatar_url, count(*)::int AS mutual_count
FROM fof
JOIN profiles p ON p.id = fof.candidate_id
WHERE fof.candidate_id <> $1
  AND fof.candidate_id NOT IN (SELECT other_id FROM excluded)
GROUP BY p.id, p.username, p.full_name, p.avatar_url
ORDER BY mutual_count DESC, p.id ASC
LIMIT $2 OFFSET $3
`, me, limit, offset)
	if err != nil {
		return nil, wrap("suggest friends", err)
	}
	defer rows.Close()

	out := []Suggestion{}
	for rows.Next() {
		var sg Suggestion
		if err := rows.Scan(&sg.ID, &sg.Username, &sg.FullName, &sg.AvatarURL, &sg.MutualCount); err != nil {
			return nil, wrap("suggest friends", err)
		}
		out = append(out, sg)
	}
	return out, wrap("suggest friends", rows.Err())
}
