package links

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sundayezeilo/linkinbio/internal/errx"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	slugUniqueConstraint = "links_slug_unique"
)

var (
	ErrLinkNotFound    = errors.New("link not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSlugTaken       = errors.New("slug already taken")
)

func isSlugUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation &&
		pgErr.ConstraintName == slugUniqueConstraint
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, ErrLinkNotFound)

	case isSlugUniqueViolation(err):
		return errx.E(op, errx.Conflict, ErrSlugTaken)

	case isForeignKeyViolation(err):
		return errx.E(op, errx.NotFound, ErrProfileNotFound)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}
