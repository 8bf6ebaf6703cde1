package tenantdir

import (
	"context"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// Service resolves opaque tenant identifiers for every other component.
// It is read-only; callers fail closed on inactive tenants.
type Service struct {
	tenants interfaces.TenantRepository
}

func NewService(tenants interfaces.TenantRepository) *Service {
	return &Service{tenants: tenants}
}

func (s *Service) ResolveSlug(ctx context.Context, slug string) (interfaces.TenantRef, error) {
	tenant, err := s.tenants.FindBySlug(ctx, slug)
	if err != nil {
		return interfaces.TenantRef{}, err
	}
	return interfaces.TenantRef{ID: tenant.ID, IsActive: tenant.IsActive}, nil
}

func (s *Service) ResolveID(ctx context.Context, id uuid.UUID) (interfaces.TenantRef, error) {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return interfaces.TenantRef{}, err
	}
	return interfaces.TenantRef{ID: tenant.ID, IsActive: tenant.IsActive}, nil
}
