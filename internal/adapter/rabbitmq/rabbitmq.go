// Package rabbitmq publishes health-stats change events to RabbitMQ.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"vitalstats/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the queue events are published to.
const DefaultQueue = "healthstats.events"

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

var errBackoff = errors.New("rabbitmq: reconnect backing off")

// Publisher publishes events on a durable queue through the default exchange.
// A channel or connection closed by the broker is reopened on the next
// publish; failed reconnects back off from one second up to thirty.
type Publisher struct {
	url   string
	queue string
	dial  func(url string) (*amqp.Connection, error)
	now   func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	backoff time.Duration
	retryAt time.Time
}

// Dial connects to the broker at url and declares the queue.
func Dial(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &Publisher{url: url, queue: queue, dial: amqp.Dial, now: time.Now}
	if err := p.connect(); err != nil {
		if p.conn != nil {
			_ = p.conn.Close()
		}
		return nil, err
	}
	return p, nil
}

// connect opens whatever of the connection and channel is missing or closed
// and declares the queue. Callers hold mu, except Dial.
func (p *Publisher) connect() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial(p.url)
		if err != nil {
			return fmt.Errorf("rabbitmq: dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("rabbitmq: declare %s: %w", p.queue, err)
	}
	p.ch = ch
	return nil
}

// reconnect calls connect unless a previous attempt failed less than the
// current backoff ago.
func (p *Publisher) reconnect() error {
	now := p.now()
	if now.Before(p.retryAt) {
		return errBackoff
	}
	if err := p.connect(); err != nil {
		if p.backoff < minBackoff {
			p.backoff = minBackoff
		} else if p.backoff < maxBackoff {
			p.backoff *= 2
			if p.backoff > maxBackoff {
				p.backoff = maxBackoff
			}
		}
		p.retryAt = now.Add(p.backoff)
		log.Printf("rabbitmq: reconnect failed: %v; retrying in %s", err, p.backoff)
		return err
	}
	p.backoff = 0
	p.retryAt = time.Time{}
	log.Printf("rabbitmq: reconnected to %s", p.queue)
	return nil
}

// Publish sends ev as a persistent JSON message. The event type is carried
// in the message Type so consumers can route without decoding the body.
func (p *Publisher) Publish(ctx context.Context, ev domain.StatsEvent) error {
	msg, err := message(ev)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.reconnect(); err != nil {
			return fmt.Errorf("rabbitmq: publish %s: %w", ev.Type, err)
		}
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if rerr := p.reconnect(); rerr == nil {
			err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
		}
	}
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func message(ev domain.StatsEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal %s: %w", ev.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		MessageId:    ev.Record.ID,
		Timestamp:    ev.OccurredAt.UTC(),
		Body:         body,
	}, nil
}
