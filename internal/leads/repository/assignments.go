package repository

import (
	"context"

	"renolead_backend/internal/leads/domain"
	"renolead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const assignmentColumns = `id, lead_id, contractor_id, assignment_method, email_sent, email_opened, email_clicked,
	contractor_responded, response_time_hours, assigned_at`

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		method string
	)
	err := row.Scan(&a.ID, &a.LeadID, &a.ContractorID, &method, &a.EmailSent, &a.EmailOpened, &a.EmailClicked,
		&a.ContractorResponded, &a.ResponseTimeHours, &a.AssignedAt)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.Method = domain.AssignmentMethod(method)
	return a, nil
}

func (r *Repository) CreateAssignment(ctx context.Context, params CreateAssignmentParams) (domain.Assignment, error) {
	a, err := scanAssignment(r.pool.QueryRow(ctx, `
		INSERT INTO lead_assignments (id, lead_id, contractor_id, assignment_method, email_sent, assigned_at)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING `+assignmentColumns,
		uuid.New(), params.LeadID, params.ContractorID, string(params.Method), params.AssignedAt))
	if err != nil {
		return domain.Assignment{}, apperr.Store("assignments.Create", err)
	}
	return a, nil
}

func (r *Repository) MarkAssignmentEmailSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE lead_assignments SET email_sent = true WHERE id = $1`, id)
	if err != nil {
		return apperr.Store("assignments.MarkEmailSent", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// RecordContractorResponse flags the most recent assignment for the pair as answered.
// A nil responseTimeHours keeps any previously recorded value.
func (r *Repository) RecordContractorResponse(ctx context.Context, leadID, contractorID uuid.UUID, responseTimeHours *int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_assignments SET
			contractor_responded = true,
			response_time_hours = COALESCE($3, response_time_hours)
		WHERE id = (
			SELECT id FROM lead_assignments
			WHERE lead_id = $1 AND contractor_id = $2
			ORDER BY assigned_at DESC
			LIMIT 1
		)`, leadID, contractorID, responseTimeHours)
	if err != nil {
		return apperr.Store("assignments.RecordContractorResponse", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *Repository) ListAssignmentsForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM lead_assignments WHERE lead_id = $1 ORDER BY assigned_at ASC`, leadID)
	if err != nil {
		return nil, apperr.Store("assignments.ListForLead", err)
	}
	defer rows.Close()

	items := make([]domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, apperr.Store("assignments.ListForLead", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("assignments.ListForLead", err)
	}
	return items, nil
}
