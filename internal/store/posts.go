package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Post struct {
	ID            int64     `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Content       string    `json:"content"`
	ImageURL      *string   `json:"image_url"`
	ViewCount     int       `json:"view_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Username      string    `json:"username"`
	FullName      *string   `json:"full_name"`
	AvatarURL     *string   `json:"avatar_url"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	SharesCount   int64     `json:"shares_count"`
	UserLiked     bool      `json:"user_liked"`
}

// $1 is always the viewer.
const postSelect = `
SELECT p.id, p.user_id, p.content, p.image_url, p.view_count, p.created_at, p.updated_at,
       pr.username, pr.full_name, pr.avatar_url,
       (SELECT count(*) FROM likes l WHERE l.post_id = p.id),
       (SELECT count(*) FROM comments c WHERE c.post_id = p.id AND NOT c.is_deleted),
       (SELECT count(*) FROM shares s WHERE s.post_id = p.id),
       EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1)
FROM posts p
JOIN profiles pr ON pr.id = p.user_id
`

func collectPosts(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()
	out := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt,
			&p.Username, &p.FullName, &p.AvatarURL, &p.LikesCount, &p.CommentsCount, &p.SharesCount, &p.UserLiked); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, userID uuid.UUID, content string, imageURL *string) (*Post, error) {
	var p Post
	err := s.db.Pool.QueryRow(ctx, `
INSERT INTO posts(user_id, content, image_url)
VALUES ($1,$2,$3)
RETURNING id, user_id, content, image_url, view_count, created_at, updated_at;
`, userID, content, imageURL).Scan(&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.ViewCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrap("create post", err)
	}
	return &p, nil
}

func (s *Store) ListPosts(ctx context.Context, viewer uuid.UUID, limit, offset int) ([]Post, error) {
	rows, err := s.db.Pool.Query(ctx, postSelect+`ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`, viewer, limit, offset)
	if err != nil {
		return nil, wrap("list posts", err)
	}
	posts, err := collectPosts(rows)
	return posts, wrap("list posts", err)
}

func (s *Store) ListUserPosts(ctx context.Context, viewer, owner uuid.UUID, limit, offset int) ([]Post, error) {
	rows, err := s.db.Pool.Query(ctx, postSelect+`WHERE p.user_id = $2 ORDER BY p.created_at DESC, p.id DESC LIMIT $3 OFFSET $4`, viewer, owner, limit, offset)
	if err != nil {
		return nil, wrap("list user posts", err)
	}
	posts, err := collectPosts(rows)
	return posts, wrap("list user posts", err)
}

func (s *Store) SearchPosts(ctx context.Context, viewer uuid.UUID, q string, limit int) ([]Post, error) {
	rows, err := s.db.Pool.Query(ctx, postSelect+`WHERE p.content ILIKE '%' || $2 || '%' ORDER BY p.created_at DESC LIMIT $3`, viewer, q, limit)
	if err != nil {
		return nil, wrap("search posts", err)
	}
	posts, err := collectPosts(rows)
	return posts, wrap("search posts", err)
}

func (s *Store) GetPostOwner(ctx context.Context, postID int64) (uuid.UUID, error) {
	var owner uuid.UUID
	if err := s.db.Pool.QueryRow(ctx, `SELECT user_id FROM posts WHERE id=$1`, postID).Scan(&owner); err != nil {
		return uuid.Nil, wrap("get post owner", err)
	}
	return owner, nil
}

func (s *Store) AddView(ctx context.Context, postID int64) (int, error) {
	var n int
	err := s.db.Pool.QueryRow(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id=$1 RETURNING view_count`, postID).Scan(&n)
	if err != nil {
		return 0, wrap("add view", err)
	}
	return n, nil
}

// LikePost reports whether a new like row was created.
func (s *Store) LikePost(ctx context.Context, userID uuid.UUID, postID int64) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `INSERT INTO likes(user_id, post_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, postID)
	if err != nil {
		return false, wrap("like post", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UnlikePost(ctx context.Context, userID uuid.UUID, postID int64) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM likes WHERE user_id=$1 AND post_id=$2`, userID, postID)
	return wrap("unlike post", err)
}

// SharePost reports whether a new share row was created.
func (s *Store) SharePost(ctx context.Context, userID uuid.UUID, postID int64) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `INSERT INTO shares(user_id, post_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, postID)
	if err != nil {
		return false, wrap("share post", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UnsharePost(ctx context.Context, userID uuid.UUID, postID int64) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM shares WHERE user_id=$1 AND post_id=$2`, userID, postID)
	return wrap("unshare post", err)
}
