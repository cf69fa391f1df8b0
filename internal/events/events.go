// Package events publishes import notifications to RabbitMQ so that other
// services (search indexing, cache warmers) can react to new listings.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyImportCompleted is the routing key of ImportCompleted messages.
const RoutingKeyImportCompleted = "listings.import.completed"

// ImportCompleted is published after an import has been persisted.
type ImportCompleted struct {
	ImportID        uuid.UUID `json:"importId"`
	FileName        string    `json:"fileName"`
	BuildingIDs     []string  `json:"buildingIds"`
	ValidUnits      int       `json:"validUnits"`
	InvalidEntities int       `json:"invalidEntities"`
	RowErrors       int       `json:"rowErrors"`
	SavedBuildings  int       `json:"savedBuildings"`
	FailedBuildings int       `json:"failedBuildings"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Publisher sends domain events.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, evt ImportCompleted) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishImportCompleted(context.Context, ImportCompleted) error { return nil }
func (Nop) Close() error                                                 { return nil }

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Config configures an AMQPPublisher.
type Config struct {
	URL          string
	Exchange     string
	ExchangeType string
}

// AMQPPublisher publishes JSON events to a durable exchange.
type AMQPPublisher struct {
	exchange string
	conn     *amqp.Connection

	mu sync.Mutex
	ch Channel
}

// Dial connects to the broker and declares the exchange.
func Dial(cfg Config) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}

	p, err := NewAMQPPublisher(ch, cfg.Exchange, cfg.ExchangeType)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn

	slog.Info("event publisher connected", "exchange", cfg.Exchange)
	return p, nil
}

// NewAMQPPublisher declares exchange on ch and returns a publisher using it.
func NewAMQPPublisher(ch Channel, exchange, kind string) (*AMQPPublisher, error) {
	if exchange == "" {
		return nil, fmt.Errorf("events: exchange name is required")
	}
	if kind == "" {
		kind = amqp.ExchangeTopic
	}
	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("events: declare exchange %q: %w", exchange, err)
	}
	return &AMQPPublisher{exchange: exchange, ch: ch}, nil
}

// PublishImportCompleted publishes evt as a persistent JSON message.
func (p *AMQPPublisher) PublishImportCompleted(ctx context.Context, evt ImportCompleted) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ImportID.String(),
		Timestamp:    evt.CompletedAt,
		Type:         RoutingKeyImportCompleted,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("events: publisher is closed")
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyImportCompleted, false, false, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.ImportID, err)
	}
	return nil
}

// Close closes the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		firstErr = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
