package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Message struct {
	ID         int64      `json:"id"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Content    string     `json:"content"`
	ReadAt     *time.Time `json:"read_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Conversation struct {
	OtherID         uuid.UUID `json:"other_id"`
	Username        string    `json:"username"`
	FullName        *string   `json:"full_name"`
	AvatarURL       *string   `json:"avatar_url"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

const messageColumns = `id, sender_id, receiver_id, content, read_at, created_at`

func collectMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()
	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) InsertMessage(ctx context.Context, from, to uuid.UUID, content string) (*Message, error) {
	if from == to {
		return nil, fmt.Errorf("message to self: %w", ErrInvalid)
	}
	var m Message
	err := s.db.Pool.QueryRow(ctx, `
INSERT INTO messages(sender_id, receiver_id, content)
VALUES ($1,$2,$3)
RETURNING `+messageColumns, from, to, content).Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return nil, wrap("insert message", err)
	}
	return &m, nil
}

// ListConversations returns one row per peer with the latest message,
// most recent first.
func (s *Store) ListConversations(ctx context.Context, me uuid.UUID) ([]Conversation, error) {
	rows, err := s.db.Pool.Query(ctx, `
WITH last AS (
  SELECT DISTINCT ON (other_id) other_id, content, created_at
  FROM (
    SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id, id, content, created_at
    FROM messages
    WHERE sender_id = $1 OR receiver_id = $1
  ) mine
  ORDER BY other_id, created_at DESC, id DESC
)
SELECT l.other_id, p.username, p.full_name, p.avatar_url, l.content, l.created_at,
       (SELECT count(*)::int FROM messages u
        WHERE u.receiver_id = $1 AND u.sender_id = l.other_id AND u.read_at IS NULL)
FROM last l
JOIN profiles p ON p.id = l.other_id
ORDER BY l.created_at DESC
`, me)
	if err != nil {
		return nil, wrap("list conversations", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.OtherID, &c.Username, &c.FullName, &c.AvatarURL, &c.LastMessage, &c.LastMessageTime, &c.UnreadCount); err != nil {
			return nil, wrap("list conversations", err)
		}
		out = append(out, c)
	}
	return out, wrap("list conversations", rows.Err())
}

// ChatHistory returns messages between me and other, newest first.
func (s *Store) ChatHistory(ctx context.Context, me, other uuid.UUID, limit, offset int) ([]Message, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, me, other, limit, offset)
	if err != nil {
		return nil, wrap("chat history", err)
	}
	msgs, err := collectMessages(rows)
	return msgs, wrap("chat history", err)
}

// ListUserMessages returns every message me sent or received, oldest first.
func (s *Store) ListUserMessages(ctx context.Context, me uuid.UUID, limit int) ([]Message, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE sender_id = $1 OR receiver_id = $1
ORDER BY created_at ASC, id ASC
LIMIT $2
`, me, limit)
	if err != nil {
		return nil, wrap("list user messages", err)
	}
	msgs, err := collectMessages(rows)
	return msgs, wrap("list user messages", err)
}

// MarkChatRead marks everything other sent to me as read.
func (s *Store) MarkChatRead(ctx context.Context, me, other uuid.UUID) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
UPDATE messages SET read_at = now()
WHERE receiver_id = $1 AND sender_id = $2 AND read_at IS NULL
`, me, other)
	if err != nil {
		return 0, wrap("mark chat read", err)
	}
	return tag.RowsAffected(), nil
}
