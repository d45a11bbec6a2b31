// Package queue_publisher publishes rental events to RabbitMQ.  Errors are
// returned, never logged here; the caller decides whether a lost event
// matters.
package queue_publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/movie-rentals/internal/queue"
)

// defaultDialTimeout bounds the broker connection when ctx has no deadline.
const defaultDialTimeout = 5 * time.Second

// Publisher sends events to the rental.events queue, dialing the broker
// for each message.
type Publisher struct {
	URL string
}

// New returns a Publisher for the broker at url.
func New(url string) *Publisher {
	return &Publisher{URL: url}
}

// dialTimeout is what is left of ctx's deadline, or the default.
func dialTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, context.DeadlineExceeded
	}
	return left, nil
}

// Publish sends event as a persistent JSON message.  ctx bounds the
// whole exchange, connection included.
func (p *Publisher) Publish(ctx context.Context, event q.RentalEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	timeout, err := dialTimeout(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.RentalEventsQueue, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		q.RentalEventsQueue, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
