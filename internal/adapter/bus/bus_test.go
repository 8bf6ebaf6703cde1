package bus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(tenantID uuid.UUID, orderID int64) interfaces.Event {
	return interfaces.Event{
		Kind:     interfaces.EventOrderStatusUpdated,
		TenantID: tenantID,
		Order:    interfaces.OrderSnapshot{ID: orderID, Status: domain.OrderAccepted},
	}
}

func TestSubscribeRequiresMatchingTenant(t *testing.T) {
	b := New(4)

	_, err := b.Subscribe(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
}

func TestTenantIsolation(t *testing.T) {
	b := New(4)
	ctx := context.Background()
	tenantA := uuid.New()
	tenantB := uuid.New()

	subA, err := b.Subscribe(tenantA, tenantA)
	require.NoError(t, err)
	defer subA.Close()
	subB, err := b.Subscribe(tenantB, tenantB)
	require.NoError(t, err)
	defer subB.Close()

	require.NoError(t, b.Publish(ctx, event(tenantA, 1)))
	require.NoError(t, b.Publish(ctx, event(tenantB, 2)))

	got := <-subA.C
	assert.Equal(t, int64(1), got.Order.ID)
	got = <-subB.C
	assert.Equal(t, int64(2), got.Order.ID)

	select {
	case leaked := <-subA.C:
		t.Fatalf("tenant A saw foreign event for order %d", leaked.Order.ID)
	default:
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	b := New(2)
	ctx := context.Background()
	tenant := uuid.New()

	sub, err := b.Subscribe(tenant, tenant)
	require.NoError(t, err)
	defer sub.Close()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, b.Publish(ctx, event(tenant, i)))
	}

	// Buffer holds the first two; the rest were dropped, not queued.
	assert.Equal(t, int64(1), (<-sub.C).Order.ID)
	assert.Equal(t, int64(2), (<-sub.C).Order.ID)
	select {
	case e := <-sub.C:
		t.Fatalf("expected drop, got order %d", e.Order.ID)
	default:
	}
}

func TestCloseDetaches(t *testing.T) {
	b := New(4)
	ctx := context.Background()
	tenant := uuid.New()

	sub, err := b.Subscribe(tenant, tenant)
	require.NoError(t, err)

	sub.Close()
	sub.Close() // idempotent

	require.NoError(t, b.Publish(ctx, event(tenant, 1)))
	_, ok := <-sub.C
	assert.False(t, ok, "channel is closed after detach")
}

func TestConsumerEnforcesPrincipal(t *testing.T) {
	b := New(4)
	principal := uuid.New()
	other := uuid.New()

	c := NewConsumer(b, principal)
	err := c.Consume(context.Background(), other, func(context.Context, interfaces.Event) {})
	assert.ErrorIs(t, err, domain.ErrTenantMismatch)
}

func TestConsumerDeliversUntilCanceled(t *testing.T) {
	b := New(4)
	tenant := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan interfaces.Event, 64)
	done := make(chan error, 1)
	c := NewConsumer(b, tenant)
	go func() {
		done <- c.Consume(ctx, tenant, func(_ context.Context, e interfaces.Event) {
			received <- e
		})
	}()

	// The subscriber attaches asynchronously; publish until it sees one.
	var got interfaces.Event
	for delivered := false; !delivered; {
		require.NoError(t, b.Publish(ctx, event(tenant, 7)))
		select {
		case got = <-received:
			delivered = true
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Equal(t, int64(7), got.Order.ID)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(context.Context, interfaces.Event) error { return p.err }

type countingPublisher struct{ n int }

func (p *countingPublisher) Publish(context.Context, interfaces.Event) error {
	p.n++
	return nil
}

func TestFanoutAttemptsAll(t *testing.T) {
	sentinel := domain.ErrTenantMismatch
	counter := &countingPublisher{}
	f := Fanout{failingPublisher{err: sentinel}, counter}

	err := f.Publish(context.Background(), event(uuid.New(), 1))
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, counter.n, "later publishers still run after a failure")
}
