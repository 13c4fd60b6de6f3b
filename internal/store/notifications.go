package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	NotifyMessage       = "message"
	NotifyLike          = "like"
	NotifyShare         = "share"
	NotifyComment       = "comment"
	NotifyReply         = "reply"
	NotifyFriendRequest = "friend_request"
	NotifyFriendAccept  = "friend_accept"
)

type Notification struct {
	ID                  int64           `json:"id"`
	UserID              uuid.UUID       `json:"user_id"`
	ActorID             *uuid.UUID      `json:"actor_id"`
	Type                string          `json:"notification_type"`
	RelatedPostID       *int64          `json:"related_post_id"`
	RelatedCommentID    *int64          `json:"related_comment_id"`
	RelatedFriendshipID *int64          `json:"related_friendship_id"`
	RelatedMessageID    *int64          `json:"related_message_id"`
	IsRead              bool            `json:"is_read"`
	CreatedAt           time.Time       `json:"created_at"`
	Actor               *ProfileSummary `json:"actor,omitempty"`
}

type NewNotification struct {
	UserID       uuid.UUID
	ActorID      uuid.UUID
	Type         string
	PostID       *int64
	CommentID    *int64
	FriendshipID *int64
	MessageID    *int64
}

const notificationColumns = `id, user_id, actor_id, notification_type, related_post_id, related_comment_id,
  related_friendship_id, related_message_id, is_read, created_at`

func (n *Notification) scanTargets() []any {
	return []any{&n.ID, &n.UserID, &n.ActorID, &n.Type, &n.RelatedPostID, &n.RelatedCommentID,
		&n.RelatedFriendshipID, &n.RelatedMessageID, &n.IsRead, &n.CreatedAt}
}

func (s *Store) InsertNotification(ctx context.Context, nn NewNotification) (*Notification, error) {
	var n Notification
	err := s.db.Pool.QueryRow(ctx, `
INSERT INTO notifications(user_id, actor_id, notification_type, related_post_id, related_comment_id, related_friendship_id, related_message_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+notificationColumns,
		nn.UserID, nn.ActorID, nn.Type, nn.PostID, nn.CommentID, nn.FriendshipID, nn.MessageID).Scan(n.scanTargets()...)
	if err != nil {
		return nil, wrap("insert notification", err)
	}
	return &n, nil
}

// ListNotifications returns the newest notifications for me with the actor's
// public profile attached.
func (s *Store) ListNotifications(ctx context.Context, me uuid.UUID, limit int) ([]Notification, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT n.id, n.user_id, n.actor_id, n.notification_type, n.related_post_id, n.related_comment_id,
       n.related_friendship_id, n.related_message_id, n.is_read, n.created_at,
       p.id, p.username, p.full_name, p.avatar_url
FROM notifications n
LEFT JOIN profiles p ON p.id = n.actor_id
WHERE n.user_id = $1
ORDER BY n.created_at DESC, n.id DESC
LIMIT $2
`, me, limit)
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		var actorID *uuid.UUID
		var actor ProfileSummary
		var username *string
		dest := append(n.scanTargets(), &actorID, &username, &actor.FullName, &actor.AvatarURL)
		if err := rows.Scan(dest...); err != nil {
			return nil, wrap("list notifications", err)
		}
		if actorID != nil && username != nil {
			actor.ID, actor.Username = *actorID, *username
			n.Actor = &actor
		}
		out = append(out, n)
	}
	return out, wrap("list notifications", rows.Err())
}

func (s *Store) UnreadNotificationCount(ctx context.Context, me uuid.UUID) (int64, error) {
	var n int64
	err := s.db.Pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id=$1 AND NOT is_read`, me).Scan(&n)
	if err != nil {
		return 0, wrap("count unread notifications", err)
	}
	return n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, me uuid.UUID, id int64) (*Notification, error) {
	var n Notification
	err := s.db.Pool.QueryRow(ctx, `
UPDATE notifications SET is_read = true
WHERE id=$1 AND user_id=$2
RETURNING `+notificationColumns, id, me).Scan(n.scanTargets()...)
	if err != nil {
		return nil, wrap("mark notification read", err)
	}
	return &n, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, me uuid.UUID) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE user_id=$1 AND NOT is_read`, me)
	if err != nil {
		return 0, wrap("mark all notifications read", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteNotification(ctx context.Context, me uuid.UUID, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, me)
	if err != nil {
		return wrap("delete notification", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete notification", ErrNotFound)
	}
	return nil
}

// PruneReadNotifications deletes read notifications created before cutoff.
func (s *Store) PruneReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM notifications WHERE is_read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, wrap("prune notifications", err)
	}
	return tag.RowsAffected(), nil
}
