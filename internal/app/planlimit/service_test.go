package planlimit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTenantRepo struct {
	subscription *domain.Subscription
	counts       map[domain.ResourceKind]int
}

func (r *memTenantRepo) FindByID(context.Context, uuid.UUID) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (r *memTenantRepo) FindBySlug(context.Context, string) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (r *memTenantRepo) CurrentSubscription(context.Context, uuid.UUID) (*domain.Subscription, error) {
	if r.subscription == nil {
		return nil, domain.ErrNoActiveSubscription
	}
	return r.subscription, nil
}

func (r *memTenantRepo) CountResource(_ context.Context, _ uuid.UUID, kind domain.ResourceKind) (int, error) {
	return r.counts[kind], nil
}

func intPtr(n int) *int { return &n }

func TestCheckLimit(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	tests := []struct {
		name        string
		sub         *domain.Subscription
		counts      map[domain.ResourceKind]int
		kind        domain.ResourceKind
		wantAllowed bool
		wantCode    string
	}{
		{
			name:     "no active subscription",
			sub:      nil,
			kind:     domain.ResourceMenu,
			wantCode: "no_active_subscription",
		},
		{
			name: "at the cap",
			sub: &domain.Subscription{
				Plan: domain.Plan{Name: "Warung", MaxMenus: intPtr(10)},
			},
			counts:   map[domain.ResourceKind]int{domain.ResourceMenu: 10},
			kind:     domain.ResourceMenu,
			wantCode: "limit_reached",
		},
		{
			name: "over the cap after a downgrade",
			sub: &domain.Subscription{
				Plan: domain.Plan{Name: "Warung", MaxMenus: intPtr(10)},
			},
			counts:   map[domain.ResourceKind]int{domain.ResourceMenu: 14},
			kind:     domain.ResourceMenu,
			wantCode: "limit_reached",
		},
		{
			name: "under the cap",
			sub: &domain.Subscription{
				Plan: domain.Plan{Name: "Warung", MaxMenus: intPtr(10)},
			},
			counts:      map[domain.ResourceKind]int{domain.ResourceMenu: 9},
			kind:        domain.ResourceMenu,
			wantAllowed: true,
		},
		{
			name: "nil max is unlimited",
			sub: &domain.Subscription{
				Plan: domain.Plan{Name: "Resto Pro"},
			},
			counts:      map[domain.ResourceKind]int{domain.ResourceUser: 500},
			kind:        domain.ResourceUser,
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&memTenantRepo{subscription: tt.sub, counts: tt.counts}, logger.Nop{})

			decision, err := svc.CheckLimit(ctx, tenantID, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantCode, decision.Code)
			if tt.sub != nil {
				assert.Equal(t, tt.sub.Plan.Name, decision.PlanName)
			}
		})
	}
}

func TestCheckLimitUnknownKind(t *testing.T) {
	svc := NewService(&memTenantRepo{}, logger.Nop{})

	_, err := svc.CheckLimit(context.Background(), uuid.New(), domain.ResourceKind("table"))
	assert.Error(t, err)
}

func TestCheckLimitReportsUsage(t *testing.T) {
	repo := &memTenantRepo{
		subscription: &domain.Subscription{Plan: domain.Plan{Name: "Warung", MaxUsers: intPtr(3)}},
		counts:       map[domain.ResourceKind]int{domain.ResourceUser: 3},
	}
	svc := NewService(repo, logger.Nop{})

	decision, err := svc.CheckLimit(context.Background(), uuid.New(), domain.ResourceUser)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 3, decision.Current)
	require.NotNil(t, decision.Max)
	assert.Equal(t, 3, *decision.Max)
}
