package messaging

import (
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ordersExchange = "orders_topic"
	kitchenQueue   = "kitchen_queue"

	connectAttempts = 3
)

// Connection wraps the RabbitMQ connection and channel used for kitchen
// events. It declares its topology on connect so the kitchen display can
// consume without its own setup step.
type Connection struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	url     string
}

// Connect dials RabbitMQ with linear backoff (1s, 2s, 3s between attempts)
// and declares the kitchen topology.
func Connect(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	var err error
	for i := 0; i < connectAttempts; i++ {
		if i > 0 {
			wait := time.Duration(i) * time.Second
			log.Printf("rabbitmq connect failed, retrying in %v: %v", wait, err)
			time.Sleep(wait)
		}

		c.conn, err = amqp091.Dial(c.url)
		if err != nil {
			continue
		}

		c.channel, err = c.conn.Channel()
		if err != nil {
			c.conn.Close()
			continue
		}

		if err = c.setupTopology(); err != nil {
			c.close()
			continue
		}
		return nil
	}
	return fmt.Errorf("connect to rabbitmq after %d attempts: %w", connectAttempts, err)
}

func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		ordersExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare %s exchange: %w", ordersExchange, err)
	}

	_, err = c.channel.QueueDeclare(
		kitchenQueue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", kitchenQueue, err)
	}

	// Kitchen sees every order event
	err = c.channel.QueueBind(kitchenQueue, "order.*", ordersExchange, false, nil)
	if err != nil {
		return fmt.Errorf("bind %s: %w", kitchenQueue, err)
	}
	return nil
}

// IsClosed checks if the connection is closed.
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect attempts to re-establish the connection.
func (c *Connection) Reconnect() error {
	c.close()
	return c.connect()
}

// Close closes the channel and connection.
func (c *Connection) Close() error {
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
