package domain

import "errors"

// Error taxonomy for the lifecycle core. Every failure is scoped to one
// request; nothing here is fatal to the process.
var (
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("order is being modified concurrently")
	ErrInvalidStatusValue     = errors.New("unknown kitchen status value")
	ErrPaymentRecordMissing   = errors.New("no payment record for order")
	ErrNoActiveSubscription   = errors.New("tenant has no active subscription")
	ErrLimitReached           = errors.New("plan limit reached")
	ErrTenantMismatch         = errors.New("resource belongs to another tenant")
	ErrTenantInactive         = errors.New("tenant is inactive")
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrDuplicateOrderCode     = errors.New("order code already taken")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderItemNotFound      = errors.New("order item not found")
)

// Retryable reports whether the caller may safely retry the same intent.
// Transitions already applied report as no-ops, so a retry after lock
// contention is idempotent.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
