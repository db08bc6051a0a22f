package repository

import (
	"context"
	"strings"

	"renolead_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, email, role, login_count, total_time_on_site_ms, ai_renderings_count, last_login_at`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var (
		p    domain.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.Email, &role, &p.LoginCount, &p.TotalTimeOnSiteMs, &p.AIRenderingsCount, &p.LastLoginAt); err != nil {
		return domain.Profile{}, err
	}
	p.Role = domain.Role(role)
	return p, nil
}

func (r *Repository) GetProfileByID(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return domain.Profile{}, storeErr("profiles.GetByID", err, ErrProfileNotFound)
	}
	return p, nil
}

func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (domain.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return domain.Profile{}, storeErr("profiles.GetByEmail", err, ErrProfileNotFound)
	}
	return p, nil
}
