package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"renolead_backend/internal/leads/domain"
	"renolead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, user_id, name, email, phone, zip_code, room_type, style, render_count,
	wants_quote, social_engaged, is_repeat_visitor, status,
	engagement_score, intent_score, quality_score, probability_score, overall_score,
	assigned_contractor_id, sent_at, last_contacted_at, conversion_value, contractor_notes,
	created_at, updated_at`

const defaultListLimit = 50

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead     domain.Lead
		roomType string
		status   string
	)
	err := row.Scan(
		&lead.ID, &lead.UserID, &lead.Name, &lead.Email, &lead.Phone, &lead.ZipCode, &roomType, &lead.Style, &lead.RenderCount,
		&lead.WantsQuote, &lead.SocialEngaged, &lead.IsRepeatVisitor, &status,
		&lead.Scores.Engagement, &lead.Scores.Intent, &lead.Scores.Quality, &lead.Scores.ProbabilityToClose, &lead.Scores.Overall,
		&lead.AssignedContractorID, &lead.SentAt, &lead.LastContactedAt, &lead.ConversionValue, &lead.ContractorNotes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.RoomType = domain.RoomType(roomType)
	lead.Status = domain.Status(status)
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, user_id, name, email, phone, zip_code, room_type, style, render_count,
			wants_quote, social_engaged, is_repeat_visitor, status,
			engagement_score, intent_score, quality_score, probability_score, overall_score,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		RETURNING `+leadColumns,
		lead.ID, lead.UserID, lead.Name, lead.Email, lead.Phone, lead.ZipCode, string(lead.RoomType), lead.Style, lead.RenderCount,
		lead.WantsQuote, lead.SocialEngaged, lead.IsRepeatVisitor, string(lead.Status),
		lead.Scores.Engagement, lead.Scores.Intent, lead.Scores.Quality, lead.Scores.ProbabilityToClose, lead.Scores.Overall,
		lead.CreatedAt,
	)
	created, err := scanLead(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Lead{}, apperr.Validation("unknown user profile")
		}
		return domain.Lead{}, apperr.Store("leads.Create", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		return domain.Lead{}, storeErr("leads.GetByID", err, ErrNotFound)
	}
	return lead, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	where, args := buildLeadListWhere(params)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Store("leads.List.count", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, max(params.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY overall_score DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)-1, len(args))

	leads, err := r.queryLeads(ctx, "leads.List", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}) {
	clauses := []string{"TRUE"}
	args := make([]interface{}, 0, 4)

	add := func(format string, values ...interface{}) {
		placeholders := make([]interface{}, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = len(args)
		}
		clauses = append(clauses, fmt.Sprintf(format, placeholders...))
	}

	if params.Status != nil {
		add("status = $%d", string(*params.Status))
	}
	if params.Priority != nil {
		lo, hi := params.Priority.ScoreRange()
		add("overall_score BETWEEN $%d AND $%d", lo, hi)
	}
	if params.ContractorID != nil {
		add("assigned_contractor_id = $%d", *params.ContractorID)
	}
	return strings.Join(clauses, " AND "), args
}

// ListOpenIDs returns every lead whose probability can still decay.
func (r *Repository) ListOpenIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM leads
		WHERE status NOT IN ('converted', 'dead', 'unqualified')
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, apperr.Store("leads.ListOpenIDs", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Store("leads.ListOpenIDs", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("leads.ListOpenIDs", err)
	}
	return ids, nil
}

func (r *Repository) ListTopByScore(ctx context.Context, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.queryLeads(ctx, "leads.ListTopByScore",
		`SELECT `+leadColumns+` FROM leads ORDER BY overall_score DESC, created_at DESC LIMIT $1`, limit)
}

func (r *Repository) queryLeads(ctx context.Context, op, query string, args ...interface{}) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperr.Store(op, err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store(op, err)
	}
	return leads, nil
}

func (r *Repository) IncrementRenderCount(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET render_count = render_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id))
	if err != nil {
		return domain.Lead{}, storeErr("leads.IncrementRenderCount", err, ErrNotFound)
	}
	return lead, nil
}

func (r *Repository) UpdateScores(ctx context.Context, id uuid.UUID, scores domain.Scores) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			engagement_score = $2, intent_score = $3, quality_score = $4,
			probability_score = $5, overall_score = $6
		WHERE id = $1`,
		id, scores.Engagement, scores.Intent, scores.Quality, scores.ProbabilityToClose, scores.Overall)
	if err != nil {
		return apperr.Store("leads.UpdateScores", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAssigned is the single lead write after an assignment fan-out.
func (r *Repository) MarkAssigned(ctx context.Context, id uuid.UUID, contractorID uuid.UUID, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, assigned_contractor_id = $3, sent_at = $4, updated_at = $4
		WHERE id = $1`,
		id, string(domain.StatusAssigned), contractorID, sentAt)
	if err != nil {
		return apperr.Store("leads.MarkAssigned", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus writes a status change. There is no version check; concurrent updates are last-write-wins.
func (r *Repository) UpdateStatus(ctx context.Context, params StatusUpdateParams) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			status = $2,
			last_contacted_at = COALESCE($3, last_contacted_at),
			conversion_value = CASE WHEN $2 = 'converted' THEN COALESCE($4, conversion_value) ELSE NULL END,
			contractor_notes = COALESCE($5, contractor_notes),
			updated_at = $6
		WHERE id = $1
		RETURNING `+leadColumns,
		params.LeadID, string(params.Status), params.LastContactedAt, params.ConversionValue, params.ContractorNotes, params.UpdatedAt))
	if err != nil {
		return domain.Lead{}, storeErr("leads.UpdateStatus", err, ErrNotFound)
	}
	return lead, nil
}
