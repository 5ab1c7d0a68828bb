package amqp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"spendsense/internal/log"
)

// ErrInvalidEvent marks an event that can never be processed. Handlers
// wrap it to have the delivery dropped instead of requeued.
var ErrInvalidEvent = errors.New("invalid ledger event")

// Handler processes one decoded ledger event.
type Handler func(ctx context.Context, ev *LedgerEvent) error

// Consumer reads ledger events from a durable queue bound to the exchange.
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
	logger  *log.Logger
}

// DialConsumer connects, declares the exchange and queue, and binds the
// queue to every event under cfg.RoutingKey.
func DialConsumer(ctx context.Context, cfg Config, queue string, logger *log.Logger) (*Consumer, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	if queue == "" {
		return nil, errors.New("queue name is required")
	}

	conn, err := dialWithRetry(ctx, &cfg, logger)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupQueue(ch, cfg, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "Connected to AMQP broker", "exchange", cfg.Exchange, "queue", queue)
	return &Consumer{conn: conn, channel: ch, queue: queue, logger: logger}, nil
}

func setupQueue(ch *amqp091.Channel, cfg Config, queue string) error {
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		return err
	}

	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		queue,                      // queue name
		bindingKey(cfg.RoutingKey), // routing key
		cfg.Exchange,               // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// Events must be applied in order, one at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

func bindingKey(prefix string) string {
	if prefix == "" {
		return "#"
	}
	return prefix + ".#"
}

// Consume delivers events to handler until ctx is cancelled or the broker
// closes the channel.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack (we want manual ack)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queue)
	return consumeLoop(ctx, msgs, handler, c.logger)
}

// consumeLoop acks handled events, drops undecodable and invalid ones, and
// requeues the rest.
func consumeLoop(ctx context.Context, msgs <-chan amqp091.Delivery, handler Handler, logger *log.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			ev, err := LedgerEventFromJSON(delivery.Body)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
				_ = delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, ev); err != nil {
				requeue := !errors.Is(err, ErrInvalidEvent)
				logger.ErrorContext(ctx, "Failed to handle ledger event",
					log.FieldError, err,
					"event_id", ev.ID,
					"type", ev.Type,
					"requeue", requeue)
				_ = delivery.Nack(false, requeue)
				continue
			}

			_ = delivery.Ack(false)
			logger.DebugContext(ctx, "Processed ledger event", "event_id", ev.ID, "type", ev.Type)
		}
	}
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
