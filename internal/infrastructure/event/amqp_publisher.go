package event

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// amqpChannel is the part of *amqp.Channel the publisher uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes invoice events to a durable topic exchange.
// The routing key is "<prefix>.<EventType>", e.g. invoice.InvoiceStatusChanged.
type AMQPPublisher struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    amqpChannel
	reopen     func() (amqpChannel, error)
	exchange   string
	prefix     string
	serializer *EventSerializer
	logger     *zap.Logger
}

// AMQPConfig configures the publisher
type AMQPConfig struct {
	URL         string
	Exchange    string
	RoutingKey  string
	DialTimeout time.Duration
}

// SanitizeAMQPURL trims quotes and stray characters and checks the scheme
func SanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// DialAMQPPublisher connects to the broker and declares the exchange
func DialAMQPPublisher(cfg AMQPConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	cleanURL, err := SanitizeAMQPURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	reopen := func() (amqpChannel, error) { return conn.Channel() }
	ch, err := reopen()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p := newAMQPPublisher(ch, reopen, cfg.Exchange, cfg.RoutingKey, logger)
	p.conn = conn
	if err := p.declare(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, reopen func() (amqpChannel, error), exchange, prefix string, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{
		channel:    ch,
		reopen:     reopen,
		exchange:   exchange,
		prefix:     prefix,
		serializer: NewInvoiceEventSerializer(),
		logger:     logger,
	}
}

func (p *AMQPPublisher) declare() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	return nil
}

// RoutingKey returns the routing key for an event type
func (p *AMQPPublisher) RoutingKey(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish sends each event as a persistent JSON message. A failed publish
// reopens the channel once and retries.
func (p *AMQPPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, event := range events {
		body, err := p.serializer.Encode(event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msg := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID().String(),
			Type:         event.EventType(),
			Timestamp:    event.OccurredAt(),
			Body:         body,
		}
		key := p.RoutingKey(event.EventType())
		err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
		if err != nil && p.reopen != nil {
			p.logger.Warn("Publish failed, reopening channel",
				zap.String("exchange", p.exchange),
				zap.String("routing_key", key),
				zap.Error(err),
			)
			err = p.retry(ctx, key, msg)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", event.EventType(), err))
			continue
		}
		p.logger.Debug("Event published",
			zap.String("routing_key", key),
			zap.String("event_id", event.EventID().String()),
		)
	}
	return errors.Join(errs...)
}

func (p *AMQPPublisher) retry(ctx context.Context, key string, msg amqp.Publishing) error {
	ch, err := p.reopen()
	if err != nil {
		return err
	}
	_ = p.channel.Close()
	p.channel = ch
	if err := p.declare(); err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

var _ shared.EventPublisher = (*AMQPPublisher)(nil)
