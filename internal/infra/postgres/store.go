// Package postgres is the durable persistence layer, backed by pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classboard/internal/domain"
)

// Store implements app.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// uniqueViolation reports whether err is a violation of the named unique
// constraint, or of any unique constraint when name is empty.
func uniqueViolation(err error, name string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return name == "" || pgErr.ConstraintName == name
}

func (s *Store) CreateProfile(ctx context.Context, profile domain.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, name, email, role, avatar_url, total_points, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		profile.ID, profile.Name, profile.Email, string(profile.Role),
		profile.AvatarURL, profile.TotalPoints, profile.PasswordHash, profile.CreatedAt)
	if uniqueViolation(err, "profiles_email_key") {
		return domain.ErrEmailTaken
	}
	return err
}

func (s *Store) ProfileByID(ctx context.Context, id string) (domain.Profile, error) {
	return s.scanProfile(s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, avatar_url, total_points, password_hash, created_at
		FROM profiles WHERE id = $1`, id))
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (domain.Profile, error) {
	return s.scanProfile(s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, avatar_url, total_points, password_hash, created_at
		FROM profiles WHERE email = $1`, email))
}

func (s *Store) ProfilesByIDs(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, role, avatar_url, total_points, password_hash, created_at
		FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		profile, err := s.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[profile.ID] = profile
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanProfile(row rowScanner) (domain.Profile, error) {
	var profile domain.Profile
	var role string
	err := row.Scan(&profile.ID, &profile.Name, &profile.Email, &role,
		&profile.AvatarURL, &profile.TotalPoints, &profile.PasswordHash, &profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	profile.Role = domain.Role(role)
	return profile, nil
}
