package repository

import (
	"errors"

	"renolead_backend/platform/apperr"
	"renolead_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

var (
	ErrNotFound           = errors.New("lead not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

type Repository struct {
	pool db.Pool
}

func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// storeErr maps no-rows to the given sentinel and everything else to a store error.
func storeErr(op string, err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return apperr.Store(op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
