package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// Bus is the in-process tenant fan-out: a keyed set of independent
// channels, one per tenant, rather than one global stream with runtime
// filtering. Subscribing to a tenant's channel requires proving the
// subscriber's tenant up front, so isolation is structural.
//
// Delivery is at-most-once and best-effort: a subscriber that cannot keep
// up loses events and converges through its polling fallback.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
}

// Subscription is one subscriber's private channel.
type Subscription struct {
	C      chan interfaces.Event
	tenant uuid.UUID
	bus    *Bus
	once   sync.Once
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe attaches a subscriber to a tenant's channel. The principal's
// tenant must match the channel tenant; the channel name alone is never
// trusted.
func (b *Bus) Subscribe(principalTenant, channelTenant uuid.UUID) (*Subscription, error) {
	if principalTenant != channelTenant {
		return nil, domain.ErrTenantMismatch
	}

	sub := &Subscription{
		C:      make(chan interfaces.Event, b.buffer),
		tenant: channelTenant,
		bus:    b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[channelTenant] == nil {
		b.subs[channelTenant] = make(map[*Subscription]struct{})
	}
	b.subs[channelTenant][sub] = struct{}{}
	return sub, nil
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs[s.tenant], s)
		if len(s.bus.subs[s.tenant]) == 0 {
			delete(s.bus.subs, s.tenant)
		}
		close(s.C)
	})
}

// Publish fans the event out to the owning tenant's subscribers only.
// Sends never block: a full subscriber buffer drops the event.
func (b *Bus) Publish(_ context.Context, event interfaces.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[event.TenantID] {
		select {
		case sub.C <- event:
		default:
		}
	}
	return nil
}

// Consumer adapts the bus to interfaces.EventConsumer for a fixed
// principal.
type Consumer struct {
	bus       *Bus
	principal uuid.UUID
}

func NewConsumer(b *Bus, principalTenant uuid.UUID) *Consumer {
	return &Consumer{bus: b, principal: principalTenant}
}

func (c *Consumer) Consume(ctx context.Context, tenantID uuid.UUID, handler interfaces.EventHandler) error {
	sub, err := c.bus.Subscribe(c.principal, tenantID)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.C:
			if !ok {
				return nil
			}
			handler(ctx, event)
		}
	}
}

// Fanout publishes to several transports, e.g. the in-process bus for
// websocket clients plus RabbitMQ for other processes. The first error
// wins but every publisher is attempted.
type Fanout []interfaces.EventPublisher

func (f Fanout) Publish(ctx context.Context, event interfaces.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
