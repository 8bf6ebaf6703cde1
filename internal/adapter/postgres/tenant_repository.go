package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

type tenantRepository struct {
	db DB
}

func NewTenantRepository(db DB) interfaces.TenantRepository {
	return &tenantRepository{db: db}
}

const tenantColumns = `id, slug, name, is_active, timezone, tax_rate, created_at, updated_at`

func (r *tenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return r.findBy(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

func (r *tenantRepository) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return r.findBy(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
}

func (r *tenantRepository) findBy(ctx context.Context, query string, arg any) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.Slug, &t.Name, &t.IsActive, &t.Timezone, &t.TaxRate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return &t, nil
}

// CurrentSubscription resolves the single subscription that limit checks
// run against: active or trial, not past its end date, latest end date
// wins. No row is a distinct state, never folded into "unlimited".
func (r *tenantRepository) CurrentSubscription(ctx context.Context, tenantID uuid.UUID) (*domain.Subscription, error) {
	var s domain.Subscription
	err := r.db.QueryRow(ctx, `
		SELECT s.id, s.tenant_id, s.status, s.start_date, s.end_date,
		       p.id, p.name, p.max_menus, p.max_users, p.price, p.features, p.report_tabs
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.tenant_id = $1
		  AND s.status IN ('active', 'trial')
		  AND s.end_date >= CURRENT_DATE
		ORDER BY s.end_date DESC
		LIMIT 1
	`, tenantID).Scan(
		&s.ID, &s.TenantID, &s.Status, &s.StartDate, &s.EndDate,
		&s.Plan.ID, &s.Plan.Name, &s.Plan.MaxMenus, &s.Plan.MaxUsers,
		&s.Plan.Price, &s.Plan.Features, &s.Plan.ReportTabs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &s, nil
}

func (r *tenantRepository) CountResource(ctx context.Context, tenantID uuid.UUID, kind domain.ResourceKind) (int, error) {
	var table string
	switch kind {
	case domain.ResourceMenu:
		table = "menus"
	case domain.ResourceUser:
		table = "users"
	default:
		return 0, fmt.Errorf("unknown resource kind %q", kind)
	}

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1`, table)
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	return count, nil
}
