package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the shared aggregate behind the kitchen display, cashier
// console and dashboard. It is mutated only through the lifecycle
// coordinator, inside per-order transactions.
type Order struct {
	ID               int64
	TenantID         uuid.UUID
	Code             string
	TableNumber      int
	Status           OrderStatus
	PaymentStatus    PaymentStatus
	PaymentMethod    PaymentMethod
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	Items            []OrderItem
	Payments         []Payment
	InvoicePrintedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderItem snapshots the menu name and price at order time; later catalog
// edits never alter history. Its kitchen status is versioned independently
// of the order's status.
type OrderItem struct {
	ID            int64
	OrderID       int64
	TenantID      uuid.UUID
	MenuName      string
	MenuPrice     decimal.Decimal
	Quantity      int
	KitchenStatus KitchenStatus
	Note          *string
	Options       []OrderItemOption
}

// OrderItemOption is a selected option snapshot (e.g. "extra cheese").
type OrderItemOption struct {
	ID     int64
	ItemID int64
	Name   string
	Price  decimal.Decimal
}

// Payment is one payment attempt against an order. The current payment is
// the most recent one.
type Payment struct {
	ID         int64
	OrderID    int64
	TenantID   uuid.UUID
	Method     PaymentMethod
	Amount     decimal.Decimal
	VerifiedBy *uuid.UUID
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// StatusLog is one row of the append-only audit trail: who moved the order
// from where to where, and when.
type StatusLog struct {
	ID         int64
	OrderID    int64
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ChangedBy  string
	Note       *string
	ChangedAt  time.Time
}

// NewOrder builds a pending, unpaid order from a customer cart and prices
// it with the tenant's tax rate.
func NewOrder(tenant *Tenant, tableNumber int, items []OrderItem) *Order {
	now := time.Now()
	o := &Order{
		TenantID:      tenant.ID,
		TableNumber:   tableNumber,
		Status:        OrderPending,
		PaymentStatus: PaymentUnpaid,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i := range o.Items {
		o.Items[i].TenantID = tenant.ID
		if o.Items[i].KitchenStatus == "" {
			o.Items[i].KitchenStatus = KitchenPending
		}
	}
	o.Reprice(tenant.TaxRate)
	return o
}

// Reprice recomputes subtotal, tax and total from the item snapshots.
func (o *Order) Reprice(taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		line := item.MenuPrice
		for _, opt := range item.Options {
			line = line.Add(opt.Price)
		}
		subtotal = subtotal.Add(line.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(taxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Tax)
}

// TransitionTo applies an order-status change in memory. Force bypasses the
// adjacency table but still refuses to leave a terminal state.
func (o *Order) TransitionTo(target OrderStatus, force bool) error {
	if !target.Valid() {
		return ErrInvalidTransition
	}
	if o.Status.Terminal() && o.Status != target {
		return ErrInvalidTransition
	}
	if !force && !o.Status.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Item returns the item with the given id, or nil.
func (o *Order) Item(itemID int64) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// CurrentPayment is the most recent payment attempt, or nil when the order
// has none.
func (o *Order) CurrentPayment() *Payment {
	var latest *Payment
	for i := range o.Payments {
		if latest == nil || o.Payments[i].CreatedAt.After(latest.CreatedAt) {
			latest = &o.Payments[i]
		}
	}
	return latest
}

// AllItemsAre reports whether every item sits at the given kitchen status.
// Dashboards use it to derive "auto-advance" rules; the coordinator never
// does.
func (o *Order) AllItemsAre(status KitchenStatus) bool {
	for _, item := range o.Items {
		if item.KitchenStatus != status {
			return false
		}
	}
	return len(o.Items) > 0
}
