package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jsherman999/skillswap/internal/db"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid")
)

type Store struct{ db *db.DB }

func New(d *db.DB) *Store { return &Store{db: d} }

func (s *Store) Ping(ctx context.Context) error { return s.db.Pool.Ping(ctx) }

// wrap annotates err with op and maps driver errors onto the package
// sentinels.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type Profile struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	FullName      *string   `json:"full_name"`
	AvatarURL     *string   `json:"avatar_url"`
	Bio           *string   `json:"bio"`
	Location      *string   `json:"location"`
	Country       *string   `json:"country"`
	CoverImageURL *string   `json:"cover_image_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PasswordHash  *string   `json:"-"`
}

// ProfileSummary is the public slice of a profile embedded in other records.
type ProfileSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
}

const profileColumns = `id, email, username, full_name, avatar_url, bio, location, country, cover_image_url,
  created_at, updated_at, password_hash`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.Username, &p.FullName, &p.AvatarURL, &p.Bio, &p.Location, &p.Country, &p.CoverImageURL,
		&p.CreatedAt, &p.UpdatedAt, &p.PasswordHash); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, email, username string, fullName *string, passwordHash string) (*Profile, error) {
	p, err := scanProfile(s.db.Pool.QueryRow(ctx, `
INSERT INTO profiles(email, username, full_name, password_hash)
VALUES ($1,$2,$3,$4)
RETURNING `+profileColumns, email, username, fullName, passwordHash))
	if err != nil {
		return nil, wrap("create profile", err)
	}
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := scanProfile(s.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id))
	if err != nil {
		return nil, wrap("get profile", err)
	}
	return p, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	p, err := scanProfile(s.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email)=lower($1)`, email))
	if err != nil {
		return nil, wrap("get profile by email", err)
	}
	return p, nil
}
