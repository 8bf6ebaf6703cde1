package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to accepted", OrderPending, OrderAccepted, true},
		{"pending to canceled", OrderPending, OrderCanceled, true},
		{"pending to preparing skips accepted", OrderPending, OrderPreparing, false},
		{"pending to completed skips everything", OrderPending, OrderCompleted, false},
		{"accepted to preparing", OrderAccepted, OrderPreparing, true},
		{"accepted to canceled", OrderAccepted, OrderCanceled, true},
		{"accepted to ready when items tracked prep", OrderAccepted, OrderReady, true},
		{"preparing to ready", OrderPreparing, OrderReady, true},
		{"preparing to canceled", OrderPreparing, OrderCanceled, true},
		{"ready to completed", OrderReady, OrderCompleted, true},
		{"ready to canceled not allowed", OrderReady, OrderCanceled, false},
		{"completed is terminal", OrderCompleted, OrderCanceled, false},
		{"canceled is terminal", OrderCanceled, OrderPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderTransitionTo(t *testing.T) {
	t.Run("legal transition", func(t *testing.T) {
		o := &Order{Status: OrderPending}
		require.NoError(t, o.TransitionTo(OrderAccepted, false))
		assert.Equal(t, OrderAccepted, o.Status)
	})

	t.Run("illegal transition", func(t *testing.T) {
		o := &Order{Status: OrderPending}
		err := o.TransitionTo(OrderReady, false)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, OrderPending, o.Status)
	})

	t.Run("force bypasses adjacency", func(t *testing.T) {
		o := &Order{Status: OrderReady}
		require.NoError(t, o.TransitionTo(OrderCanceled, true))
		assert.Equal(t, OrderCanceled, o.Status)
	})

	t.Run("force cannot leave a terminal state", func(t *testing.T) {
		o := &Order{Status: OrderCompleted}
		err := o.TransitionTo(OrderPreparing, true)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown target", func(t *testing.T) {
		o := &Order{Status: OrderPending}
		err := o.TransitionTo(OrderStatus("shipped"), false)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestKitchenStatusValid(t *testing.T) {
	for _, s := range []KitchenStatus{KitchenPending, KitchenPreparing, KitchenReady, KitchenServed} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, KitchenStatus("burned").Valid())
	assert.False(t, KitchenStatus("").Valid())
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentUnpaid, PaymentWaitingVerification, true},
		{PaymentUnpaid, PaymentPaid, true},
		{PaymentWaitingVerification, PaymentPaid, true},
		{PaymentWaitingVerification, PaymentFailed, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentUnpaid, PaymentRefunded, false},
		{PaymentPaid, PaymentUnpaid, false},
		{PaymentFailed, PaymentPaid, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestNewOrderPricing(t *testing.T) {
	tenant := &Tenant{
		ID:      uuid.New(),
		TaxRate: decimal.NewFromFloat(0.10),
	}
	items := []OrderItem{
		{MenuName: "Nasi Goreng", MenuPrice: decimal.NewFromInt(25000), Quantity: 2},
		{
			MenuName:  "Es Teh",
			MenuPrice: decimal.NewFromInt(5000),
			Quantity:  1,
			Options:   []OrderItemOption{{Name: "Less sugar", Price: decimal.Zero}, {Name: "Jumbo", Price: decimal.NewFromInt(2000)}},
		},
	}

	o := NewOrder(tenant, 7, items)

	assert.Equal(t, OrderPending, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, 7, o.TableNumber)
	for _, item := range o.Items {
		assert.Equal(t, KitchenPending, item.KitchenStatus)
		assert.Equal(t, tenant.ID, item.TenantID)
	}

	// 2*25000 + (5000+2000) = 57000, tax 5700
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(57000)), o.Subtotal.String())
	assert.True(t, o.Tax.Equal(decimal.NewFromInt(5700)), o.Tax.String())
	assert.True(t, o.Total.Equal(decimal.NewFromInt(62700)), o.Total.String())
}

func TestCurrentPayment(t *testing.T) {
	o := &Order{}
	assert.Nil(t, o.CurrentPayment())

	now := time.Now()
	o.Payments = []Payment{
		{ID: 1, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, CreatedAt: now},
		{ID: 3, CreatedAt: now.Add(-time.Minute)},
	}
	assert.Equal(t, int64(2), o.CurrentPayment().ID)
}

func TestAllItemsAre(t *testing.T) {
	o := &Order{}
	assert.False(t, o.AllItemsAre(KitchenReady), "no items is never all-ready")

	o.Items = []OrderItem{
		{KitchenStatus: KitchenReady},
		{KitchenStatus: KitchenReady},
	}
	assert.True(t, o.AllItemsAre(KitchenReady))

	o.Items[1].KitchenStatus = KitchenPreparing
	assert.False(t, o.AllItemsAre(KitchenReady))
}

func TestSubscriptionCurrentAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  SubscriptionStatus
		endDate time.Time
		current bool
	}{
		{"active and in window", SubscriptionActive, now.AddDate(0, 1, 0), true},
		{"trial counts", SubscriptionTrial, now.AddDate(0, 0, 7), true},
		{"ends today still counts", SubscriptionActive, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), true},
		{"expired status", SubscriptionExpired, now.AddDate(0, 1, 0), false},
		{"canceled status", SubscriptionCanceled, now.AddDate(0, 1, 0), false},
		{"past end date", SubscriptionActive, now.AddDate(0, -1, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Subscription{Status: tt.status, EndDate: tt.endDate}
			assert.Equal(t, tt.current, s.CurrentAt(now))
		})
	}
}
