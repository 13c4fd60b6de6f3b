package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Skill struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	SkillName string    `json:"skill_name"`
	SkillType string    `json:"skill_type"`
	CreatedAt time.Time `json:"created_at"`
}

const skillColumns = `id, user_id, skill_name, skill_type, created_at`

func (k *Skill) scanTargets() []any {
	return []any{&k.ID, &k.UserID, &k.SkillName, &k.SkillType, &k.CreatedAt}
}

func (s *Store) ListSkills(ctx context.Context, userID uuid.UUID) ([]Skill, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT `+skillColumns+` FROM skills WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, wrap("list skills", err)
	}
	defer rows.Close()

	out := []Skill{}
	for rows.Next() {
		var k Skill
		if err := rows.Scan(k.scanTargets()...); err != nil {
			return nil, wrap("list skills", err)
		}
		out = append(out, k)
	}
	return out, wrap("list skills", rows.Err())
}

// CreateSkill adds a skill; the same name and type twice for one user is a
// conflict.
func (s *Store) CreateSkill(ctx context.Context, userID uuid.UUID, name, skillType string) (*Skill, error) {
	var k Skill
	err := s.db.Pool.QueryRow(ctx, `
INSERT INTO skills(user_id, skill_name, skill_type)
VALUES ($1,$2,$3)
RETURNING `+skillColumns, userID, name, skillType).Scan(k.scanTargets()...)
	if err != nil {
		return nil, wrap("create skill", err)
	}
	return &k, nil
}

// UpdateSkill changes the given fields of one of owner's skills. A skill that
// does not exist or belongs to someone else is ErrNotFound.
func (s *Store) UpdateSkill(ctx context.Context, owner uuid.UUID, id int64, name, skillType *string) (*Skill, error) {
	var k Skill
	err := s.db.Pool.QueryRow(ctx, `
UPDATE skills SET skill_name = COALESCE($3, skill_name), skill_type = COALESCE($4, skill_type)
WHERE id=$1 AND user_id=$2
RETURNING `+skillColumns, id, owner, name, skillType).Scan(k.scanTargets()...)
	if err != nil {
		return nil, wrap("update skill", err)
	}
	return &k, nil
}

func (s *Store) DeleteSkill(ctx context.Context, owner uuid.UUID, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM skills WHERE id=$1 AND user_id=$2`, id, owner)
	if err != nil {
		return wrap("delete skill", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete skill", ErrNotFound)
	}
	return nil
}
