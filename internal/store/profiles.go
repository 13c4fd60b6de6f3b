package store

import (
	"context"

	"github.com/google/uuid"
)

// ProfileUpdate holds the editable profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	FullName      *string
	Bio           *string
	Location      *string
	Country       *string
	AvatarURL     *string
	CoverImageURL *string
}

type ProfileStats struct {
	Posts   int `json:"posts"`
	Friends int `json:"friends"`
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, u ProfileUpdate) (*Profile, error) {
	p, err := scanProfile(s.db.Pool.QueryRow(ctx, `
UPDATE profiles SET
  full_name       = COALESCE($2, full_name),
  bio             = COALESCE($3, bio),
  location        = COALESCE($4, location),
  country         = COALESCE($5, country),
  avatar_url      = COALESCE($6, avatar_url),
  cover_image_url = COALESCE($7, cover_image_url),
  updated_at      = now()
WHERE id = $1
RETURNING `+profileColumns, id, u.FullName, u.Bio, u.Location, u.Country, u.AvatarURL, u.CoverImageURL))
	if err != nil {
		return nil, wrap("update profile", err)
	}
	return p, nil
}

// ListProfiles returns public profiles, newest first.
func (s *Store) ListProfiles(ctx context.Context, limit, offset int) ([]ProfileSummary, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT id, username, full_name, avatar_url
FROM profiles
ORDER BY created_at DESC, id
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, wrap("list profiles", err)
	}
	defer rows.Close()

	out := []ProfileSummary{}
	for rows.Next() {
		var p ProfileSummary
		if err := rows.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL); err != nil {
			return nil, wrap("list profiles", err)
		}
		out = append(out, p)
	}
	return out, wrap("list profiles", rows.Err())
}

// GetProfileStats counts the user's posts and accepted friendships.
func (s *Store) GetProfileStats(ctx context.Context, id uuid.UUID) (ProfileStats, error) {
	var st ProfileStats
	err := s.db.Pool.QueryRow(ctx, `
SELECT (SELECT count(*)::int FROM posts WHERE user_id = $1),
       (SELECT count(*)::int FROM friendships WHERE status = 'accepted' AND ($1 = user_id OR $1 = friend_id))
`, id).Scan(&st.Posts, &st.Friends)
	if err != nil {
		return ProfileStats{}, wrap("profile stats", err)
	}
	return st, nil
}
