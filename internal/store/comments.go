package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CommentAuthor struct {
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

type Comment struct {
	ID              int64         `json:"id"`
	PostID          int64         `json:"post_id"`
	UserID          uuid.UUID     `json:"user_id"`
	ParentCommentID *int64        `json:"parent_comment_id"`
	Content         *string       `json:"content"`
	IsDeleted       bool          `json:"is_deleted"`
	CreatedAt       time.Time     `json:"created_at"`
	User            CommentAuthor `json:"user"`
	Replies         []*Comment    `json:"replies"`
}

// NewComment is a stored comment plus the owners a notification may go to.
type NewComment struct {
	Comment       *Comment
	PostOwnerID   uuid.UUID
	ParentOwnerID *uuid.UUID
}

const (
	DeleteSoft = "soft"
	DeleteHard = "hard"
)

func (s *Store) CreateComment(ctx context.Context, userID uuid.UUID, postID int64, content string, parentID *int64) (*NewComment, error) {
	postOwner, err := s.GetPostOwner(ctx, postID)
	if err != nil {
		return nil, err
	}
	out := &NewComment{PostOwnerID: postOwner}

	if parentID != nil {
		var parentPost int64
		var parentOwner uuid.UUID
		err := s.db.Pool.QueryRow(ctx, `SELECT post_id, user_id FROM comments WHERE id=$1`, *parentID).Scan(&parentPost, &parentOwner)
		if err != nil {
			return nil, wrap("get parent comment", err)
		}
		if parentPost != postID {
			return nil, fmt.Errorf("parent comment does not belong to this post: %w", ErrInvalid)
		}
		out.ParentOwnerID = &parentOwner
	}

	var c Comment
	err = s.db.Pool.QueryRow(ctx, `
WITH ins AS (
  INSERT INTO comments(user_id, post_id, content, parent_comment_id)
  VALUES ($1,$2,$3,$4)
  RETURNING id, post_id, user_id, parent_comment_id, content, is_deleted, created_at
)
SELECT ins.id, ins.post_id, ins.user_id, ins.parent_comment_id, ins.content, ins.is_deleted, ins.created_at,
       pr.username, pr.full_name, pr.avatar_url
FROM ins LEFT JOIN profiles pr ON pr.id = ins.user_id;
`, userID, postID, content, parentID).Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentCommentID, &c.Content, &c.IsDeleted, &c.CreatedAt,
		&c.User.Username, &c.User.FullName, &c.User.AvatarURL)
	if err != nil {
		return nil, wrap("create comment", err)
	}
	c.Replies = []*Comment{}
	out.Comment = &c
	return out, nil
}

// ListComments returns the post's comments as a reply tree, oldest first.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]*Comment, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT c.id, c.post_id, c.user_id, c.parent_comment_id, c.content, c.is_deleted, c.created_at,
       pr.username, pr.full_name, pr.avatar_url
FROM comments c
LEFT JOIN profiles pr ON pr.id = c.user_id
WHERE c.post_id=$1
ORDER BY c.created_at ASC, c.id ASC
`, postID)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	defer rows.Close()

	var flat []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.ParentCommentID, &c.Content, &c.IsDeleted, &c.CreatedAt,
			&c.User.Username, &c.User.FullName, &c.User.AvatarURL); err != nil {
			return nil, wrap("list comments", err)
		}
		flat = append(flat, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list comments", err)
	}
	return BuildCommentTree(flat), nil
}

// BuildCommentTree nests replies under their parents, keeping input order.
// Deleted comments keep their place but lose their content; replies whose
// parent is missing become roots.
func BuildCommentTree(flat []*Comment) []*Comment {
	byID := make(map[int64]*Comment, len(flat))
	for _, c := range flat {
		c.Replies = []*Comment{}
		if c.IsDeleted {
			c.Content = nil
		}
		byID[c.ID] = c
	}
	roots := []*Comment{}
	for _, c := range flat {
		if c.ParentCommentID != nil {
			if parent, ok := byID[*c.ParentCommentID]; ok && parent != c {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

// DeleteComment removes a comment on behalf of actor, who must own the
// comment or the post. Comments with replies are soft-deleted.
func (s *Store) DeleteComment(ctx context.Context, actor uuid.UUID, commentID int64) (string, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var commentOwner, postOwner uuid.UUID
	err = tx.QueryRow(ctx, `
SELECT c.user_id, p.user_id
FROM comments c JOIN posts p ON p.id = c.post_id
WHERE c.id=$1
FOR UPDATE OF c
`, commentID).Scan(&commentOwner, &postOwner)
	if err != nil {
		return "", wrap("get comment", err)
	}
	if actor != commentOwner && actor != postOwner {
		return "", fmt.Errorf("delete comment: %w", ErrForbidden)
	}

	var replies int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM comments WHERE parent_comment_id=$1`, commentID).Scan(&replies); err != nil {
		return "", wrap("count replies", err)
	}

	mode := DeleteHard
	if replies > 0 {
		mode = DeleteSoft
		_, err = tx.Exec(ctx, `UPDATE comments SET is_deleted=true, content='[deleted]' WHERE id=$1`, commentID)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	}
	if err != nil {
		return "", wrap("delete comment", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return mode, nil
}
