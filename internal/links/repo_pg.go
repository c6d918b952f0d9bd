package links

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sundayezeilo/linkinbio/internal/db"
	"github.com/sundayezeilo/linkinbio/internal/errx"
	"github.com/sundayezeilo/linkinbio/internal/idgen"
)

const linkColumns = `id, profile_id, title, url, slug, is_active, position, clicks,
	scheduled_at, expires_at, password_hash, created_at, updated_at`

const (
	createLinkSQL = `
INSERT INTO links (id, profile_id, title, url, slug, is_active, position, scheduled_at, expires_at, password_hash)
VALUES ($1, $2, $3, $4, $5, $6,
	(SELECT COALESCE(MAX(position) + 1, 0) FROM links WHERE profile_id = $2),
	$7, $8, $9)
RETURNING ` + linkColumns

	getLinkByIDSQL = `SELECT ` + linkColumns + ` FROM links WHERE profile_id = $1 AND id = $2`

	getLinkBySlugSQL = `SELECT ` + linkColumns + ` FROM links WHERE slug = $1`

	listLinksByProfileSQL = `SELECT ` + linkColumns + ` FROM links WHERE profile_id = $1 ORDER BY position, created_at`

	listScheduledLinksSQL = `
SELECT l.id, l.profile_id, l.title, l.url, l.slug, l.is_active, l.position, l.clicks,
	l.scheduled_at, l.expires_at, l.password_hash, l.created_at, l.updated_at, p.username
FROM links l
JOIN profiles p ON p.id = l.profile_id
WHERE l.scheduled_at IS NOT NULL OR l.expires_at IS NOT NULL
ORDER BY COALESCE(l.scheduled_at, l.expires_at), l.id`

	updateLinkSQL = `
UPDATE links
SET title = $3, url = $4, is_active = $5, scheduled_at = $6, expires_at = $7, password_hash = $8
WHERE profile_id = $1 AND id = $2
RETURNING ` + linkColumns

	deleteLinkSQL = `DELETE FROM links WHERE profile_id = $1 AND id = $2`

	countLinksSQL = `SELECT count(*) FROM links WHERE profile_id = $1`

	setPositionSQL = `UPDATE links SET position = $3 WHERE profile_id = $1 AND id = $2`

	incrementClicksSQL = `UPDATE links SET clicks = clicks + 1 WHERE id = $1`

	setActiveSQL = `UPDATE links SET is_active = $2 WHERE id = $1 RETURNING ` + linkColumns
)

// Pool is the connection surface the repository needs. *pgxpool.Pool
// satisfies it.
type Pool interface {
	db.DBTX
	db.Beginner
}

type repo struct {
	pool Pool
	ids  idgen.Generator
}

// RepositoryConfig holds configuration for the repository.
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool Pool, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	// UUID v7 keeps inserts roughly ordered in the primary key index.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &repo{
		pool: pool,
		ids:  config.IDGenerator,
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// scanLink reads one row laid out as linkColumns, followed by extra
// destinations if any.
func scanLink(row pgx.Row, extra ...any) (Link, error) {
	var (
		l                    Link
		scheduledAt          pgtype.Timestamptz
		expiresAt            pgtype.Timestamptz
		createdAt, updatedAt pgtype.Timestamptz
	)

	dest := []any{
		&l.ID, &l.ProfileID, &l.Title, &l.URL, &l.Slug, &l.IsActive, &l.Position, &l.Clicks,
		&scheduledAt, &expiresAt, &l.PasswordHash, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Link{}, err
	}

	var err error
	if l.CreatedAt, err = mustTime(createdAt, "created_at"); err != nil {
		return Link{}, err
	}
	if l.UpdatedAt, err = mustTime(updatedAt, "updated_at"); err != nil {
		return Link{}, err
	}
	l.ScheduledAt = timePtr(scheduledAt)
	l.ExpiresAt = timePtr(expiresAt)

	return l, nil
}

func (r *repo) Create(ctx context.Context, link Link) (Link, error) {
	const op = "links.repo.Create"

	if link.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	created, err := scanLink(r.pool.QueryRow(ctx, createLinkSQL,
		link.ID,
		link.ProfileID,
		link.Title,
		link.URL,
		link.Slug,
		link.IsActive,
		timestamptz(link.ScheduledAt),
		timestamptz(link.ExpiresAt),
		link.PasswordHash,
	))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return created, nil
}

func (r *repo) GetByID(ctx context.Context, profileID, id uuid.UUID) (Link, error) {
	const op = "links.repo.GetByID"

	link, err := scanLink(r.pool.QueryRow(ctx, getLinkByIDSQL, profileID, id))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) GetBySlug(ctx context.Context, slug string) (Link, error) {
	const op = "links.repo.GetBySlug"

	link, err := scanLink(r.pool.QueryRow(ctx, getLinkBySlugSQL, slug))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return link, nil
}

func (r *repo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]Link, error) {
	const op = "links.repo.ListByProfile"

	rows, err := r.pool.Query(ctx, listLinksByProfileSQL, profileID)
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	out := make([]Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, mapRepoError(op, err)
		}
		out = append(out, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return out, nil
}

func (r *repo) ListScheduled(ctx context.Context) ([]ScheduledLink, error) {
	const op = "links.repo.ListScheduled"

	rows, err := r.pool.Query(ctx, listScheduledLinksSQL)
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	defer rows.Close()

	out := make([]ScheduledLink, 0)
	for rows.Next() {
		var username string
		link, err := scanLink(rows, &username)
		if err != nil {
			return nil, mapRepoError(op, err)
		}
		out = append(out, ScheduledLink{Link: link, Username: username})
	}
	if err := rows.Err(); err != nil {
		return nil, mapRepoError(op, err)
	}
	return out, nil
}

func (r *repo) Update(ctx context.Context, link Link) (Link, error) {
	const op = "links.repo.Update"

	updated, err := scanLink(r.pool.QueryRow(ctx, updateLinkSQL,
		link.ProfileID,
		link.ID,
		link.Title,
		link.URL,
		link.IsActive,
		timestamptz(link.ScheduledAt),
		timestamptz(link.ExpiresAt),
		link.PasswordHash,
	))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return updated, nil
}

func (r *repo) Delete(ctx context.Context, profileID, id uuid.UUID) error {
	const op = "links.repo.Delete"

	tag, err := r.pool.Exec(ctx, deleteLinkSQL, profileID, id)
	if err != nil {
		return mapRepoError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return nil
}

func (r *repo) Reorder(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) (err error) {
	const op = "links.repo.Reorder"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapRepoError(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var total int
	if err = tx.QueryRow(ctx, countLinksSQL, profileID).Scan(&total); err != nil {
		return mapRepoError(op, err)
	}
	if total != len(ids) {
		return errx.Errorf(op, errx.Invalid, "order must list all %d links, got %d", total, len(ids))
	}

	for pos, id := range ids {
		tag, err := tx.Exec(ctx, setPositionSQL, profileID, id, int32(pos))
		if err != nil {
			return mapRepoError(op, err)
		}
		if tag.RowsAffected() == 0 {
			return errx.E(op, errx.NotFound, ErrLinkNotFound)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return mapRepoError(op, err)
	}
	return nil
}

func (r *repo) IncrementClicks(ctx context.Context, id uuid.UUID) error {
	const op = "links.repo.IncrementClicks"

	tag, err := r.pool.Exec(ctx, incrementClicksSQL, id)
	if err != nil {
		return mapRepoError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return nil
}

func (r *repo) SetActive(ctx context.Context, id uuid.UUID, active bool) (Link, error) {
	const op = "links.repo.SetActive"

	link, err := scanLink(r.pool.QueryRow(ctx, setActiveSQL, id, active))
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return link, nil
}
