// Package amqp publishes ledger events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/rabbitmq/amqp091-go"

	"spendsense/internal/core"
	"spendsense/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config describes the broker connection.
type Config struct {
	URL          string
	Exchange     string
	RoutingKey   string
	DialAttempts uint
	DialDelay    time.Duration
}

// channel is the part of *amqp091.Channel the client uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Client publishes ledger events. Repeated publish failures open a circuit
// so a dead broker does not slow every request down.
type Client struct {
	url          string
	exchangeName string
	routingKey   string
	conn         *amqp091.Connection
	channel      channel
	logger       *log.Logger

	state        int32
	failureCount int64
	mu           sync.Mutex
	lastFailure  time.Time
}

// Dial connects to the broker, retrying connection errors with backoff, and
// declares the exchange.
func Dial(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAMQP)

	conn, err := dialWithRetry(ctx, &cfg, logger)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(ch, cfg.Exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "Connected to AMQP broker", "exchange", cfg.Exchange)
	return newClient(conn, ch, cfg, logger), nil
}

// dialWithRetry fills dial defaults into cfg and connects.
func dialWithRetry(ctx context.Context, cfg *Config, logger *log.Logger) (*amqp091.Connection, error) {
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = 5
	}
	if cfg.DialDelay <= 0 {
		cfg.DialDelay = time.Second
	}

	var conn *amqp091.Connection
	err := retry.Do(
		func() error {
			c, err := amqp091.Dial(cfg.URL)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.RetryIf(isConnectionError),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "AMQP dial failed, retrying", "attempt", n+1, log.FieldError, err)
		}),
		retry.Attempts(cfg.DialAttempts),
		retry.Delay(cfg.DialDelay),
		retry.MaxDelay(openTimeout),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	return conn, nil
}

func declareExchange(ch *amqp091.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

func newClient(conn *amqp091.Connection, ch channel, cfg Config, logger *log.Logger) *Client {
	return &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		routingKey:   cfg.RoutingKey,
		conn:         conn,
		channel:      ch,
		logger:       logger,
	}
}

// PublishExpenseRecorded announces a record appended at position.
func (c *Client) PublishExpenseRecorded(ctx context.Context, position int, e core.Expense) error {
	return c.publish(ctx, NewExpenseRecorded(position, e))
}

// PublishLedgerCleared announces a clear that dropped n records.
func (c *Client) PublishLedgerCleared(ctx context.Context, dropped int) error {
	return c.publish(ctx, NewLedgerCleared(dropped))
}

func (c *Client) publish(ctx context.Context, ev *LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", ev.Type, ErrCircuitOpen)
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := c.routingKeyFor(ev.Type)
	err = c.channel.PublishWithContext(
		pctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    ev.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published ledger event",
		log.FieldOperation, log.OpPublish,
		"event_id", ev.ID,
		"routing_key", key)
	return nil
}

func (c *Client) routingKeyFor(eventType string) string {
	if c.routingKey == "" {
		return eventType
	}
	return c.routingKey + "." + eventType
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastFailure) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.logger.Warn("AMQP circuit opened", "failures", n)
		}
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// isConnectionError reports errors worth redialing for.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
