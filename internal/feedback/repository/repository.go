// Package repository persists homeowner satisfaction feedback.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"renolead_backend/platform/apperr"
	"renolead_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

type Repository struct {
	pool db.Pool
}

func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

type Feedback struct {
	ID        uuid.UUID
	LeadID    *uuid.UUID
	Rating    int
	Comment   *string
	Source    string
	CreatedAt time.Time
}

type ListParams struct {
	LeadID    *uuid.UUID
	MaxRating int
	Offset    int
	Limit     int
}

// Summary aggregates every row matching a ListParams filter.
type Summary struct {
	Total         int
	AverageRating float64
}

func (r *Repository) Create(ctx context.Context, f Feedback) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO feedback (id, lead_id, rating, comment, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.LeadID, f.Rating, f.Comment, f.Source, f.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return apperr.NotFound("lead not found")
		}
		return apperr.Store("feedback.Create", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Feedback, Summary, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	if params.LeadID != nil {
		args = append(args, *params.LeadID)
		where = append(where, fmt.Sprintf("lead_id = $%d", len(args)))
	}
	if params.MaxRating > 0 {
		args = append(args, params.MaxRating)
		where = append(where, fmt.Sprintf("rating <= $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var summary Summary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8 FROM feedback WHERE `+clause, args...).
		Scan(&summary.Total, &summary.AverageRating)
	if err != nil {
		return nil, Summary{}, apperr.Store("feedback.List", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`SELECT id, lead_id, rating, comment, source, created_at FROM feedback
		WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, Summary{}, apperr.Store("feedback.List", err)
	}
	defer rows.Close()

	items := make([]Feedback, 0)
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.LeadID, &f.Rating, &f.Comment, &f.Source, &f.CreatedAt); err != nil {
			return nil, Summary{}, apperr.Store("feedback.List", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, Summary{}, apperr.Store("feedback.List", err)
	}
	return items, summary, nil
}
