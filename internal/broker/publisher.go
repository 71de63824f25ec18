// Package broker mirrors domain events to a message broker for downstream workers.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/farmlink/marketplace/pkg/logger"
)

const (
	defaultExchange   = "farmlink.events"
	defaultRetries    = 3
	defaultRetryDelay = 2 * time.Second
)

// Publisher sends JSON events under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// NopPublisher discards every event. It is used when the broker is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// AMQPConfig describes the broker connection.
type AMQPConfig struct {
	URL        string
	Exchange   string
	Retries    int
	RetryDelay time.Duration
}

// channel is the subset of *amqp.Channel used by the publisher.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

// NewAMQPPublisher dials the broker, retrying a few times, and declares the exchange.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("broker: amqp url is required")
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 0; attempt < retries; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		logger.WithModule("broker").Warn("amqp dial failed", zap.Int("attempt", attempt+1), zap.Error(err))
		if attempt < retries-1 {
			time.Sleep(delay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}

	pub, err := newAMQPPublisher(ch, cfg.Exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	pub.conn = conn
	return pub, nil
}

func newAMQPPublisher(ch channel, exchange string) (*AMQPPublisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = defaultExchange
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("broker: declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
	}, nil
}

// Publish marshals payload as JSON and publishes it under routingKey.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("broker: publish %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.ch != nil {
		err = multierr.Append(err, p.ch.Close())
	}
	if p.conn != nil {
		err = multierr.Append(err, p.conn.Close())
	}
	return err
}
