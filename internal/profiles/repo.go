package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/linkinbio/internal/db"
	"github.com/sundayezeilo/linkinbio/internal/errx"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrProfileExists   = errors.New("profile already exists")
)

// Repository persists profiles.
type Repository interface {
	Create(ctx context.Context, p Profile) (Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (Profile, error)
	GetByUsername(ctx context.Context, username string) (Profile, error)
	Update(ctx context.Context, p Profile) (Profile, error)
}

const profileColumns = `id, username, display_name, bio, avatar_url, created_at, updated_at`

const (
	createProfileSQL = `
INSERT INTO profiles (id, username, display_name, bio, avatar_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + profileColumns

	getProfileByIDSQL = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	getProfileByUsernameSQL = `SELECT ` + profileColumns + ` FROM profiles WHERE username = $1`

	updateProfileSQL = `
UPDATE profiles
SET username = $2, display_name = $3, bio = $4, avatar_url = $5
WHERE id = $1
RETURNING ` + profileColumns
)

type repo struct {
	conn db.DBTX
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(conn db.DBTX) Repository {
	return &repo{conn: conn}
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p                    Profile
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarURL, &createdAt, &updatedAt); err != nil {
		return Profile{}, err
	}
	if !createdAt.Valid || !updatedAt.Valid {
		return Profile{}, fmt.Errorf("profile %s has NULL timestamps", p.ID)
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

func mapRepoError(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, ErrProfileNotFound)

	case errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "profiles_username_unique":
		return errx.E(op, errx.Conflict, ErrUsernameTaken)

	case errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "profiles_pkey":
		return errx.E(op, errx.Conflict, ErrProfileExists)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (r *repo) Create(ctx context.Context, p Profile) (Profile, error) {
	const op = "profiles.repo.Create"

	created, err := scanProfile(r.conn.QueryRow(ctx, createProfileSQL,
		p.ID, p.Username, p.DisplayName, p.Bio, p.AvatarURL))
	if err != nil {
		return Profile{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	const op = "profiles.repo.GetByID"

	p, err := scanProfile(r.conn.QueryRow(ctx, getProfileByIDSQL, id))
	if err != nil {
		return Profile{}, mapRepoError(op, err)
	}
	return p, nil
}

func (r *repo) GetByUsername(ctx context.Context, username string) (Profile, error) {
	const op = "profiles.repo.GetByUsername"

	p, err := scanProfile(r.conn.QueryRow(ctx, getProfileByUsernameSQL, username))
	if err != nil {
		return Profile{}, mapRepoError(op, err)
	}
	return p, nil
}

func (r *repo) Update(ctx context.Context, p Profile) (Profile, error) {
	const op = "profiles.repo.Update"

	updated, err := scanProfile(r.conn.QueryRow(ctx, updateProfileSQL,
		p.ID, p.Username, p.DisplayName, p.Bio, p.AvatarURL))
	if err != nil {
		return Profile{}, mapRepoError(op, err)
	}
	return updated, nil
}

