package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is one restaurant on the platform. Deactivation flips IsActive;
// tenants are never hard-deleted while orders exist.
type Tenant struct {
	ID        uuid.UUID
	Slug      string
	Name      string
	IsActive  bool
	Timezone  string
	TaxRate   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan holds the named limits of a subscription tier. A nil max means
// unlimited.
type Plan struct {
	ID         int64
	Name       string
	MaxMenus   *int
	MaxUsers   *int
	Price      decimal.Decimal
	Features   []string
	ReportTabs []string
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription binds a tenant to a plan for a date window.
type Subscription struct {
	ID        int64
	TenantID  uuid.UUID
	Plan      Plan
	Status    SubscriptionStatus
	StartDate time.Time
	EndDate   time.Time
}

// CurrentAt reports whether this subscription is the tenant's live one at
// the given instant: active or trial, and not past its end date.
func (s Subscription) CurrentAt(now time.Time) bool {
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrial {
		return false
	}
	return !s.EndDate.Before(truncateToDay(now))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ResourceKind is a countable resource gated by plan limits.
type ResourceKind string

const (
	ResourceMenu ResourceKind = "menu"
	ResourceUser ResourceKind = "user"
)

func (k ResourceKind) Valid() bool {
	return k == ResourceMenu || k == ResourceUser
}

// Max returns the plan's limit for the resource, nil meaning unlimited.
func (p Plan) Max(kind ResourceKind) *int {
	switch kind {
	case ResourceMenu:
		return p.MaxMenus
	case ResourceUser:
		return p.MaxUsers
	}
	return nil
}
