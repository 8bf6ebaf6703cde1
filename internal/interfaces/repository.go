package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/domain"
)

// OrderUpdateFunc validates and applies a transition to a locked order
// aggregate. It may append payments (ID zero) to the aggregate and may
// return an audit log row to persist with the change. Returning an error
// rolls the whole transaction back.
type OrderUpdateFunc func(order *domain.Order) (*domain.StatusLog, error)

// OrderFilter narrows tenant-scoped listings. A zero Limit means all rows;
// Offset skips rows independently of Limit.
type OrderFilter struct {
	Statuses []domain.OrderStatus
	Date     *time.Time
	Limit    int
	Offset   int
}

// OrderRepository owns Order, OrderItem, Payment and StatusLog rows. All
// mutations run inside a transaction scoped to a single order; Update
// acquires the per-order row lock with a bounded wait and fails with
// domain.ErrConcurrentModification when the row is already locked.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, tenantID uuid.UUID, orderID int64) (*domain.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]*domain.Order, error)
	Update(ctx context.Context, tenantID uuid.UUID, orderID int64, fn OrderUpdateFunc) (*domain.Order, error)
	StatusHistory(ctx context.Context, tenantID uuid.UUID, orderID int64) ([]*domain.StatusLog, error)
	NextOrderCode(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// TenantRepository resolves tenants, their current subscription and live
// resource counts. Read-only with respect to the order core.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	CurrentSubscription(ctx context.Context, tenantID uuid.UUID) (*domain.Subscription, error)
	CountResource(ctx context.Context, tenantID uuid.UUID, kind domain.ResourceKind) (int, error)
}
