package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// consumer binds an exclusive queue to one tenant's routing keys. The
// subscriber's own tenant is fixed at construction and checked against the
// requested channel on every Consume call.
type consumer struct {
	conn      Connection
	principal uuid.UUID
	logger    logger.Logger
}

func NewConsumer(conn Connection, principalTenant uuid.UUID, logger logger.Logger) interfaces.EventConsumer {
	return &consumer{conn: conn, principal: principalTenant, logger: logger}
}

func (c *consumer) Consume(ctx context.Context, tenantID uuid.UUID, handler interfaces.EventHandler) error {
	if c.principal != tenantID {
		return domain.ErrTenantMismatch
	}

	for {
		err := c.consumeOnce(ctx, tenantID, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected", "Event consumer disconnected, reconnecting", "", map[string]interface{}{
			"tenant_id": tenantID.String(),
		}, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *consumer) consumeOnce(ctx context.Context, tenantID uuid.UUID, handler interfaces.EventHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Exclusive auto-delete queue: at-most-once, no replay for offline
	// consumers. They converge through polling.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	bindKey := fmt.Sprintf("tenant.%s.#", tenantID)
	if err := ch.QueueBind(q.Name, bindKey, eventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			var event interfaces.Event
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				c.logger.Error("event_decode_failed", "Dropping undecodable event", "", nil, err)
				continue
			}
			// Defense in depth: the binding already scopes the queue, but
			// a mislabeled message must not cross tenants.
			if event.TenantID != tenantID {
				continue
			}
			handler(ctx, event)
		}
	}
}
