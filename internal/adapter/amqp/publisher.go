// Package amqp publishes record-change events to RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fuellog/internal/app"
	"fuellog/internal/domain"
	applog "fuellog/internal/log"

	"github.com/rabbitmq/amqp091-go"
)

// RoutingKey is used for every record-change event.
const RoutingKey = "fuel.records.changed"

// RecordsChanged is the event body: the user's full record set after a change.
type RecordsChanged struct {
	UserID     int64               `json:"userId"`
	Version    uint64              `json:"version"`
	Records    []domain.FuelRecord `json:"records"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// NewRecordsChanged builds the event for a snapshot.
func NewRecordsChanged(snap app.Snapshot, at time.Time) RecordsChanged {
	records := snap.Records
	if records == nil {
		records = []domain.FuelRecord{}
	}
	return RecordsChanged{UserID: snap.UserID, Version: snap.Version, Records: records, OccurredAt: at.UTC()}
}

// ToJSON converts the event to JSON bytes
func (m RecordsChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher forwards feed snapshots to a topic exchange. Snapshots are queued
// by Handle and sent by Run so the feed never waits on the broker.
type Publisher struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	queue    chan app.Snapshot
	log      *slog.Logger
	now      func() time.Time
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := newPublisher(ch, exchange, logger, 64)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger *slog.Logger, buffer int) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		queue:    make(chan app.Snapshot, buffer),
		log:      applog.WithComponent(logger, applog.ComponentAMQP),
		now:      time.Now,
	}
}

// Handle queues a snapshot for publishing. Failed snapshots are skipped and
// a full queue drops the snapshot.
func (p *Publisher) Handle(snap app.Snapshot) {
	if snap.Err != nil {
		return
	}
	select {
	case p.queue <- snap:
	default:
		p.log.Warn("publish queue full, dropping event", "user_id", snap.UserID, "version", snap.Version)
	}
}

// Run publishes queued snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-p.queue:
			if err := p.publish(ctx, snap); err != nil {
				p.log.ErrorContext(ctx, "publish failed", "user_id", snap.UserID, "version", snap.Version, "error", err)
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, snap app.Snapshot) error {
	at := p.now()
	body, err := NewRecordsChanged(snap, at).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange, // exchange
		RoutingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    at,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.DebugContext(ctx, "records changed event published", "user_id", snap.UserID, "version", snap.Version, "records", len(snap.Records))
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
