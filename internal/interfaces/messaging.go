package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/shopspring/decimal"
)

// Event kinds published by the lifecycle coordinator after commit.
type EventKind string

const (
	EventOrderCreated              EventKind = "order_created"
	EventOrderStatusUpdated        EventKind = "order_status_updated"
	EventOrderKitchenStatusUpdated EventKind = "order_kitchen_status_updated"
)

// Event carries a full order snapshot, never a delta, so every consumer
// can replace its local copy wholesale.
type Event struct {
	Kind     EventKind     `json:"kind"`
	TenantID uuid.UUID     `json:"tenant_id"`
	Order    OrderSnapshot `json:"order"`
	At       time.Time     `json:"at"`
}

// OrderSnapshot is the self-contained wire view of an order. Subscribers
// never need a follow-up fetch.
type OrderSnapshot struct {
	ID               int64              `json:"id"`
	Code             string             `json:"code"`
	TableNumber      int                `json:"table_number"`
	Status           domain.OrderStatus `json:"order_status"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status"`
	PaymentMethod    domain.PaymentMethod `json:"payment_method,omitempty"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Tax              decimal.Decimal    `json:"tax"`
	Total            decimal.Decimal    `json:"total"`
	InvoicePrintedAt *time.Time         `json:"invoice_printed_at,omitempty"`
	Items            []ItemSnapshot     `json:"items"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type ItemSnapshot struct {
	ID            int64                `json:"id"`
	MenuName      string               `json:"menu_name"`
	MenuPrice     decimal.Decimal      `json:"menu_price"`
	Quantity      int                  `json:"quantity"`
	KitchenStatus domain.KitchenStatus `json:"kitchen_status"`
	Note          *string              `json:"note,omitempty"`
	Options       []OptionSnapshot     `json:"options,omitempty"`
}

type OptionSnapshot struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Snapshot converts the aggregate into its wire view.
func Snapshot(o *domain.Order) OrderSnapshot {
	s := OrderSnapshot{
		ID:               o.ID,
		Code:             o.Code,
		TableNumber:      o.TableNumber,
		Status:           o.Status,
		PaymentStatus:    o.PaymentStatus,
		PaymentMethod:    o.PaymentMethod,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		Total:            o.Total,
		InvoicePrintedAt: o.InvoicePrintedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	for _, item := range o.Items {
		is := ItemSnapshot{
			ID:            item.ID,
			MenuName:      item.MenuName,
			MenuPrice:     item.MenuPrice,
			Quantity:      item.Quantity,
			KitchenStatus: item.KitchenStatus,
			Note:          item.Note,
		}
		for _, opt := range item.Options {
			is.Options = append(is.Options, OptionSnapshot{Name: opt.Name, Price: opt.Price})
		}
		s.Items = append(s.Items, is)
	}
	return s
}

// EventPublisher fans an event out to the owning tenant's channel only.
// Delivery is at-most-once and best-effort; offline consumers converge via
// their polling fallback.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventConsumer delivers a tenant's events to a handler. Implementations
// must verify the subscriber's tenant at subscribe time; the channel name
// alone is never trusted.
type EventConsumer interface {
	Consume(ctx context.Context, tenantID uuid.UUID, handler EventHandler) error
}

type EventHandler func(ctx context.Context, event Event)
