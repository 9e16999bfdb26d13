package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/publisher"
)

var _ publisher.EventPublisher = (*FlushPublisher)(nil)

const (
	ExchangeName = "collector.events"
	QueueName    = "collector_flushes"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// FlushPublisher forwards minute flushes to downstream consumers. Live fix
// and failure events are only meaningful to the hosted web content and are
// not published here.
type FlushPublisher struct {
	ch channel
}

func NewFlushPublisher(conn *amqp.Connection) (*FlushPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &FlushPublisher{ch: ch}, nil
}

func (p *FlushPublisher) Publish(ctx context.Context, evt domain.Event) error {
	if evt.Kind != domain.EventFlush {
		return nil
	}

	body, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal flush: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(evt.Kind),
		Timestamp:    time.Now(),
		Headers:      amqp.Table{"user_id": evt.UserID},
		Body:         body,
	})
}
