package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mejaqr/mejaqr/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

const eventsExchange = "orders.events"

// routingKey names the tenant's logical channel deterministically from its
// id. Authorization happens at subscribe time, never from the key alone.
func routingKey(event interfaces.Event) string {
	return fmt.Sprintf("tenant.%s.%s", event.TenantID, event.Kind)
}

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.EventPublisher {
	return &publisher{conn: conn}
}

func (p *publisher) Publish(ctx context.Context, event interfaces.Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.Publish(eventsExchange, routingKey(event), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
