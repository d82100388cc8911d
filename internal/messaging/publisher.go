package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Publisher sends order events to the kitchen exchange.
type Publisher struct {
	conn *Connection
}

// NewPublisher creates a new Publisher over an established connection.
func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

// PublishOrderEvent publishes an order event. event becomes the routing key
// ("order.created", "order.status_changed"), payload is marshalled to JSON.
func (p *Publisher) PublishOrderEvent(ctx context.Context, event string, payload any) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.channel.PublishWithContext(
		ctx,
		ordersExchange,
		event, // routing key
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
