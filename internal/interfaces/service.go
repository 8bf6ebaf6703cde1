package interfaces

import (
	"context"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/shopspring/decimal"
)

// Actor is the resolved staff principal behind a mutation.
type Actor struct {
	UserID uuid.UUID
	Name   string
	Role   string
}

// CanForce reports whether the actor may bypass the adjacency check on an
// order-status transition.
func (a Actor) CanForce() bool {
	return a.Role == "owner" || a.Role == "admin"
}

type CreateOrderCommand struct {
	TableNumber int
	Items       []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	MenuName  string
	MenuPrice decimal.Decimal
	Quantity  int
	Note      *string
	Options   []CreateOrderOptionCommand
}

type CreateOrderOptionCommand struct {
	Name  string
	Price decimal.Decimal
}

// OrderService is the lifecycle coordinator: the only path that mutates
// the order aggregate.
type OrderService interface {
	CreateOrder(ctx context.Context, tenantID uuid.UUID, cmd CreateOrderCommand) (*domain.Order, error)
	TransitionStatus(ctx context.Context, tenantID uuid.UUID, orderID int64, target domain.OrderStatus, actor Actor, note *string, force bool) (*domain.Order, error)
	UpdateKitchenStatus(ctx context.Context, tenantID uuid.UUID, orderID int64, itemID *int64, status domain.KitchenStatus, actor Actor) (*domain.Order, error)
	MarkAsPaid(ctx context.Context, tenantID uuid.UUID, orderID int64, actor Actor, method domain.PaymentMethod) (*domain.Order, error)
	TransitionPayment(ctx context.Context, tenantID uuid.UUID, orderID int64, target domain.PaymentStatus, actor Actor) (*domain.Order, error)
	MarkInvoicePrinted(ctx context.Context, tenantID uuid.UUID, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, tenantID uuid.UUID, filter OrderFilter) ([]*domain.Order, error)
	GetOrder(ctx context.Context, tenantID uuid.UUID, orderID int64) (*domain.Order, error)
	GetStatusHistory(ctx context.Context, tenantID uuid.UUID, orderID int64) ([]*domain.StatusLog, error)
}

// Decision is the plan limit gate's answer, with enough detail for client
// messaging.
type Decision struct {
	Allowed  bool
	Code     string
	Current  int
	Max      *int
	PlanName string
}

type LimitService interface {
	CheckLimit(ctx context.Context, tenantID uuid.UUID, kind domain.ResourceKind) (Decision, error)
}

// TenantRef is the directory's answer: just enough to scope a request.
type TenantRef struct {
	ID       uuid.UUID
	IsActive bool
}

type TenantDirectory interface {
	ResolveSlug(ctx context.Context, slug string) (TenantRef, error)
	ResolveID(ctx context.Context, id uuid.UUID) (TenantRef, error)
}
