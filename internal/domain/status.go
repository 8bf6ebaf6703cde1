package domain

// OrderStatus is the front-of-house lifecycle of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCanceled  OrderStatus = "canceled"
)

// orderTransitions is the only legal adjacency; force bypasses it but can
// never leave a terminal state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderAccepted, OrderCanceled},
	// Accepted goes straight to ready when the kitchen tracked preparation
	// per item instead of on the order.
	OrderAccepted:  {OrderPreparing, OrderReady, OrderCanceled},
	OrderPreparing: {OrderReady, OrderCanceled},
	OrderReady:     {OrderCompleted},
	OrderCompleted: {},
	OrderCanceled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCanceled
}

// Active reports whether an order in this status still belongs on the
// kitchen display.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderPending, OrderAccepted, OrderPreparing, OrderReady:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// KitchenStatus is the per-item preparation state, independent of the
// order's own status.
type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "pending"
	KitchenPreparing KitchenStatus = "preparing"
	KitchenReady     KitchenStatus = "ready"
	KitchenServed    KitchenStatus = "served"
)

// Valid is the whole validation for kitchen updates: kitchens correct
// mistakes, so any known value is reachable from any other.
func (s KitchenStatus) Valid() bool {
	switch s {
	case KitchenPending, KitchenPreparing, KitchenReady, KitchenServed:
		return true
	}
	return false
}

// PaymentStatus tracks payment verification for an order.
type PaymentStatus string

const (
	PaymentUnpaid              PaymentStatus = "unpaid"
	PaymentWaitingVerification PaymentStatus = "waiting_verification"
	PaymentPaid                PaymentStatus = "paid"
	PaymentFailed              PaymentStatus = "failed"
	PaymentRefunded            PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	// Cash skips straight to paid; a synchronous Payment row is created in
	// the same transaction when none exists.
	PaymentUnpaid:              {PaymentWaitingVerification, PaymentPaid},
	PaymentWaitingVerification: {PaymentPaid, PaymentFailed},
	PaymentPaid:                {PaymentRefunded},
	PaymentFailed:              {},
	PaymentRefunded:            {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, t := range paymentTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// PaymentMethod is how the customer settles the bill.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodQRIS     PaymentMethod = "qris"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodQRIS:
		return true
	}
	return false
}
