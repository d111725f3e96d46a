package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"masraf/internal/core"
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
	maxAttempts    = 3
	maxBackoff     = 30 * time.Second

	// eventBuffer bounds the row events waiting for the background publisher.
	eventBuffer = 256
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes and consumes row-appended messages on a durable direct
// exchange. Publishing goes through a circuit breaker and reconnects when the
// broker drops the connection.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time

	events    chan rowEvent
	runCtx    context.Context
	cancelRun context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
	drained   sync.WaitGroup
}

type rowEvent struct {
	ctx     context.Context
	backend string
	row     core.LedgerRow
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{url: url, exchangeName: exchangeName, queueName: queueName}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, channel

	if err := c.setup(); err != nil {
		channel.Close()
		conn.Close()
		c.conn, c.channel = nil, nil
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishRowAppended publishes a persistent message for an appended row.
func (c *Client) PublishRowAppended(ctx context.Context, backend string, row core.LedgerRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish row %d: %w", row.Index, ErrCircuitOpen)
	}

	body, err := NewRowAppendedMessage(backend, row).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
			if isConnectionError(lastErr) {
				if err := c.connect(); err != nil {
					lastErr = err
					continue
				}
			}
		}
		if lastErr = c.publish(ctx, body); lastErr == nil {
			c.recordSuccess()
			slog.InfoContext(ctx, "Published row appended message",
				"row", row.Index,
				"backend", backend,
				"exchange", c.exchangeName,
				"queue", c.queueName)
			return nil
		}
		slog.WarnContext(ctx, "Publish attempt failed", "attempt", attempt+1, "error", lastErr)
	}
	c.recordFailure()
	return fmt.Errorf("publish row %d: %w", row.Index, lastErr)
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Notifier adapts PublishRowAppended to a ledger append listener. The row is
// queued for a background publisher and the listener returns at once; when
// the queue is full or the client is closed the event is dropped with a
// warning. Publish failures are logged and never reach the caller.
func (c *Client) Notifier(backend string) func(ctx context.Context, row core.LedgerRow) {
	return func(ctx context.Context, row core.LedgerRow) {
		c.startPublisher()
		select {
		case c.events <- rowEvent{ctx: ctx, backend: backend, row: row}:
		default:
			slog.WarnContext(ctx, "Row appended message dropped, publish queue full or closed", "row", row.Index)
		}
	}
}

func (c *Client) startPublisher() {
	c.startOnce.Do(func() {
		c.runCtx, c.cancelRun = context.WithCancel(context.Background())
		c.events = make(chan rowEvent, eventBuffer)
		c.drained.Add(1)
		go c.drain()
	})
}

func (c *Client) drain() {
	defer c.drained.Done()
	for {
		select {
		case <-c.runCtx.Done():
			if n := len(c.events); n > 0 {
				slog.Warn("Dropping unpublished row appended messages", "count", n)
			}
			return
		case ev := <-c.events:
			c.publishQueued(ev)
		}
	}
}

// publishQueued keeps the request's values (logger, request id) but not its
// cancellation; Close cancels it instead.
func (c *Client) publishQueued(ev rowEvent) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ev.ctx))
	defer cancel()
	stop := context.AfterFunc(c.runCtx, cancel)
	defer stop()

	if err := c.PublishRowAppended(ctx, ev.backend, ev.row); err != nil {
		slog.WarnContext(ctx, "Row appended message not published", "row", ev.row.Index, "error", err)
	}
}

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg *RowAppendedMessage) error

// Consume delivers queue messages to handler until ctx is done. Acking is
// manual: success acks, a handler error requeues, undecodable bodies are
// rejected without requeue.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return amqp091.ErrClosed
	}
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming row appended messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler Handler) {
	msg, err := RowAppendedMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode message", "error", err)
		if err := delivery.Reject(false); err != nil {
			slog.ErrorContext(ctx, "Reject failed", "error", err)
		}
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message", "row", msg.Row, "error", err)
		if err := delivery.Nack(false, true); err != nil {
			slog.ErrorContext(ctx, "Nack failed", "error", err)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		slog.ErrorContext(ctx, "Ack failed", "row", msg.Row, "error", err)
		return
	}
	slog.InfoContext(ctx, "Processed row appended message", "row", msg.Row, "backend", msg.Backend)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Close stops the background publisher, dropping queued events, and closes
// the connection.
func (c *Client) Close() error {
	// No publisher may start after Close.
	c.startOnce.Do(func() {})
	c.closeOnce.Do(func() {
		if c.cancelRun != nil {
			c.cancelRun()
			c.drained.Wait()
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
