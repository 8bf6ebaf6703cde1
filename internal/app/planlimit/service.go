package planlimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// Service is the plan limit gate: a synchronous read-then-decide check
// invoked right before a creation flow. It never mutates state and is safe
// to call repeatedly.
type Service struct {
	tenants interfaces.TenantRepository
	logger  logger.Logger
}

func NewService(tenants interfaces.TenantRepository, logger logger.Logger) *Service {
	return &Service{tenants: tenants, logger: logger}
}

func (s *Service) CheckLimit(ctx context.Context, tenantID uuid.UUID, kind domain.ResourceKind) (interfaces.Decision, error) {
	if !kind.Valid() {
		return interfaces.Decision{}, fmt.Errorf("unknown resource kind %q", kind)
	}

	sub, err := s.tenants.CurrentSubscription(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSubscription) {
			// Distinct from "limit reached": there is nothing to count
			// against.
			return interfaces.Decision{
				Allowed: false,
				Code:    "no_active_subscription",
			}, nil
		}
		return interfaces.Decision{}, err
	}

	max := sub.Plan.Max(kind)
	if max == nil {
		// Unset max means unlimited.
		return interfaces.Decision{
			Allowed:  true,
			PlanName: sub.Plan.Name,
		}, nil
	}

	current, err := s.tenants.CountResource(ctx, tenantID, kind)
	if err != nil {
		return interfaces.Decision{}, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	if current >= *max {
		s.logger.Debug("limit_reached", "Plan limit reached", "", map[string]interface{}{
			"tenant_id": tenantID.String(),
			"kind":      string(kind),
			"current":   current,
			"max":       *max,
		})
		return interfaces.Decision{
			Allowed:  false,
			Code:     "limit_reached",
			Current:  current,
			Max:      max,
			PlanName: sub.Plan.Name,
		}, nil
	}

	return interfaces.Decision{
		Allowed:  true,
		Current:  current,
		Max:      max,
		PlanName: sub.Plan.Name,
	}, nil
}
