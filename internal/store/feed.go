package store

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"alumni-chat/internal/observability"
)

// ChangeFeed carries change notifications between store writers and
// subscribers over a RabbitMQ topic exchange. The payload is empty: a
// delivery only means "re-read the channel", the database stays the single
// source of truth.
type ChangeFeed struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewChangeFeed connects to RabbitMQ and declares the change exchange.
func NewChangeFeed(amqpURL, exchange string) (*ChangeFeed, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Printf("change feed connected exchange=%s", exchange)
	return &ChangeFeed{conn: conn, ch: ch, exchange: exchange}, nil
}

// NotifyChanged publishes a change marker for the channel.
func (f *ChangeFeed) NotifyChanged(ctx context.Context, channelID string) error {
	err := f.ch.PublishWithContext(ctx, f.exchange, routingKey(channelID), false, false, amqp.Publishing{
		ContentType: "text/plain",
	})
	if err != nil {
		observability.IncAMQPPublishError()
	}
	return err
}

// Listen binds a fresh exclusive queue to the channel's routing key and
// starts consuming. Every subscriber gets its own queue, so each one sees
// every change. The returned stop function tears the queue down.
func (f *ChangeFeed) Listen(ctx context.Context, channelID string) (<-chan amqp.Delivery, func(), error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	queue, err := ch.QueueDeclare(
		"", // broker-named
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, routingKey(channelID), f.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume: %w", err)
	}

	stop := func() {
		if err := ch.Close(); err != nil {
			log.Printf("change feed channel close: %v", err)
		}
	}
	return deliveries, stop, nil
}

// Close shuts the feed down.
func (f *ChangeFeed) Close() error {
	if f.ch != nil {
		_ = f.ch.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func routingKey(channelID string) string {
	return "chat.changed." + channelID
}
