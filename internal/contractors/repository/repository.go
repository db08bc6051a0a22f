// Package repository persists contractors and their zip code coverage.
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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	contractorNotFoundMsg = "contractor not found"
	duplicateEmailMsg     = "a contractor with this email already exists"

	uniqueViolation = "23505"
)

const contractorColumns = `c.id, c.name, c.email, c.phone, c.subscription_tier, c.is_active_subscriber,
	c.serves_all_zipcodes, c.leads_received, c.leads_converted, c.conversion_rate,
	COALESCE((SELECT array_agg(z.zip_code ORDER BY z.zip_code) FROM contractor_zip_codes z WHERE z.contractor_id = c.id), '{}') AS zip_codes,
	c.created_at, c.updated_at`

// Repository provides database operations for contractors.
type Repository struct {
	pool db.Pool
}

func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

type Contractor struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Phone              *string
	SubscriptionTier   string
	IsActiveSubscriber bool
	ServesAllZipCodes  bool
	LeadsReceived      int
	LeadsConverted     int
	ConversionRate     float64
	ZipCodes           []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ContractorUpdate holds a partial update. Nil fields are left untouched.
type ContractorUpdate struct {
	ID                 uuid.UUID
	Name               *string
	Email              *string
	Phone              *string
	SubscriptionTier   *string
	IsActiveSubscriber *bool
	ServesAllZipCodes  *bool
	UpdatedAt          time.Time
}

type ListParams struct {
	Search     string
	ActiveOnly bool
	Offset     int
	Limit      int
}

func scanContractor(row pgx.Row) (Contractor, error) {
	var c Contractor
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.SubscriptionTier, &c.IsActiveSubscriber,
		&c.ServesAllZipCodes, &c.LeadsReceived, &c.LeadsConverted, &c.ConversionRate,
		&c.ZipCodes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return apperr.Store(op, err)
}

func writeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict(duplicateEmailMsg)
	}
	return notFoundOr(op, err)
}

// Create inserts the contractor and its coverage in one transaction.
func (r *Repository) Create(ctx context.Context, c Contractor) (Contractor, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Contractor{}, apperr.Store("contractors.Create", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO contractors (
			id, name, email, phone, subscription_tier, is_active_subscriber, serves_all_zipcodes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		c.ID, c.Name, c.Email, c.Phone, c.SubscriptionTier, c.IsActiveSubscriber, c.ServesAllZipCodes, c.CreatedAt,
	)
	if err != nil {
		return Contractor{}, writeErr("contractors.Create", err)
	}
	if err := insertZipCodes(ctx, tx, c.ID, c.ZipCodes); err != nil {
		return Contractor{}, apperr.Store("contractors.Create", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Contractor{}, apperr.Store("contractors.Create", err)
	}

	c.UpdatedAt = c.CreatedAt
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Contractor, error) {
	c, err := scanContractor(r.pool.QueryRow(ctx, `SELECT `+contractorColumns+` FROM contractors c WHERE c.id = $1`, id))
	if err != nil {
		return Contractor{}, notFoundOr("contractors.GetByID", err)
	}
	return c, nil
}

// GetByEmail matches case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (Contractor, error) {
	c, err := scanContractor(r.pool.QueryRow(ctx, `SELECT `+contractorColumns+` FROM contractors c WHERE lower(c.email) = lower($1)`, email))
	if err != nil {
		return Contractor{}, notFoundOr("contractors.GetByEmail", err)
	}
	return c, nil
}

// GetByIDs returns the contractors that exist. Unknown ids are skipped.
func (r *Repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Contractor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, "contractors.GetByIDs", `SELECT `+contractorColumns+` FROM contractors c WHERE c.id = ANY($1)`, ids)
}

// FindEligible returns active subscribers covering zip, best conversion rate first.
func (r *Repository) FindEligible(ctx context.Context, zip string, limit int) ([]Contractor, error) {
	return r.query(ctx, "contractors.FindEligible", `
		SELECT `+contractorColumns+`
		FROM contractors c
		WHERE c.is_active_subscriber
			AND (c.serves_all_zipcodes OR EXISTS (
				SELECT 1 FROM contractor_zip_codes z WHERE z.contractor_id = c.id AND z.zip_code = $1
			))
		ORDER BY c.conversion_rate DESC, c.leads_received ASC, c.created_at ASC
		LIMIT $2`,
		zip, limit,
	)
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Contractor, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	if s := strings.TrimSpace(params.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(c.name ILIKE $%d OR c.email ILIKE $%d)", len(args), len(args)))
	}
	if params.ActiveOnly {
		where = append(where, "c.is_active_subscriber")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contractors c WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Store("contractors.List", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM contractors c WHERE %s ORDER BY c.name ASC LIMIT $%d OFFSET $%d`,
		contractorColumns, clause, len(args)-1, len(args))

	items, err := r.query(ctx, "contractors.List", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) Update(ctx context.Context, u ContractorUpdate) (Contractor, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE contractors SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			subscription_tier = COALESCE($5, subscription_tier),
			is_active_subscriber = COALESCE($6, is_active_subscriber),
			serves_all_zipcodes = COALESCE($7, serves_all_zipcodes),
			updated_at = $8
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Phone, u.SubscriptionTier, u.IsActiveSubscriber, u.ServesAllZipCodes, u.UpdatedAt,
	)
	if err != nil {
		return Contractor{}, writeErr("contractors.Update", err)
	}
	return r.GetByID(ctx, u.ID)
}

// ReplaceZipCodes swaps the whole coverage list atomically.
func (r *Repository) ReplaceZipCodes(ctx context.Context, id uuid.UUID, zips []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Store("contractors.ReplaceZipCodes", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM contractor_zip_codes WHERE contractor_id = $1`, id); err != nil {
		return apperr.Store("contractors.ReplaceZipCodes", err)
	}
	if err := insertZipCodes(ctx, tx, id, zips); err != nil {
		return apperr.Store("contractors.ReplaceZipCodes", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Store("contractors.ReplaceZipCodes", err)
	}
	return nil
}

// IncrementLeadsReceived bumps leads_received once per id and refreshes conversion_rate.
func (r *Repository) IncrementLeadsReceived(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE contractors SET
			leads_received = leads_received + 1,
			conversion_rate = leads_converted::float8 / (leads_received + 1) * 100,
			updated_at = now()
		WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return apperr.Store("contractors.IncrementLeadsReceived", err)
	}
	return nil
}

// RecordConversion bumps leads_converted. The rate is 0 while nothing was received.
func (r *Repository) RecordConversion(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contractors SET
			leads_converted = leads_converted + 1,
			conversion_rate = CASE WHEN leads_received > 0
				THEN (leads_converted + 1)::float8 / leads_received * 100
				ELSE 0 END,
			updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return apperr.Store("contractors.RecordConversion", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractorNotFoundMsg)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, op, sql string, args ...interface{}) ([]Contractor, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	items := make([]Contractor, 0)
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, apperr.Store(op, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(op, err)
	}
	return items, nil
}

func insertZipCodes(ctx context.Context, tx pgx.Tx, id uuid.UUID, zips []string) error {
	for _, zip := range zips {
		if _, err := tx.Exec(ctx,
			`INSERT INTO contractor_zip_codes (contractor_id, zip_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, zip,
		); err != nil {
			return err
		}
	}
	return nil
}
