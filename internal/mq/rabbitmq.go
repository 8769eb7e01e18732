// Package mq publishes trip events to RabbitMQ.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxConnectAttempts = 10
	publishTimeout     = 5 * time.Second
)

var (
	// ErrClosed is returned when publishing on a closed publisher.
	ErrClosed = errors.New("rabbitmq connection closed")
	// ErrNotConnected is returned while the publisher reconnects after the
	// broker dropped the connection.
	ErrNotConnected = errors.New("rabbitmq not connected")
)

// Publisher sends JSON messages to a topic exchange.
type Publisher struct {
	url      string
	exchange string

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewPublisher connects to the broker, retrying with backoff, and declares
// the exchange.
func NewPublisher(ctx context.Context, url, exchange string) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange}

	delay := time.Second
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		err := p.connect()
		if err == nil {
			log.Printf("Connected to RabbitMQ (exchange=%s, attempt=%d)", exchange, attempt)
			return p, nil
		}
		log.Printf("rabbitmq connection attempt %d/%d failed: %v", attempt, maxConnectAttempts, err)

		if attempt == maxConnectAttempts {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxConnectAttempts, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = min(time.Duration(float64(delay)*1.5), 30*time.Second)
		}
	}
	return nil, errors.New("rabbitmq: retry loop exited without result")
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	p.conn = conn
	p.ch = ch
	p.mu.Unlock()

	go p.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// watch waits for the connection to drop and reconnects with backoff until
// it succeeds or the publisher is closed.
func (p *Publisher) watch(closes <-chan *amqp.Error) {
	reason := <-closes
	if p.isClosed() {
		return
	}
	log.Printf("rabbitmq connection lost: %v", reason)

	p.mu.Lock()
	p.conn = nil
	p.ch = nil
	p.mu.Unlock()

	delay := time.Second
	for attempt := 1; ; attempt++ {
		time.Sleep(delay)
		if p.isClosed() {
			return
		}
		err := p.connect()
		if err == nil {
			log.Printf("Reconnected to RabbitMQ (exchange=%s, attempt=%d)", p.exchange, attempt)
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		log.Printf("rabbitmq reconnect attempt %d failed: %v", attempt, err)
		delay = min(time.Duration(float64(delay)*1.5), 30*time.Second)
	}
}

func (p *Publisher) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Publish marshals payload as JSON and sends it with routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	p.mu.RLock()
	ch, closed := p.ch, p.closed
	p.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if ch == nil {
		return ErrNotConnected
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// Close closes the channel and the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	log.Println("RabbitMQ connection closed")
}
