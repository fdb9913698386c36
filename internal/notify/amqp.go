package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pkordes/ritlog/internal/domain"
)

// ExchangeName is the fanout exchange every event is published to.
// Consumers bind their own queues to it.
const ExchangeName = "ritlog.events"

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages. The routing
// key and the AMQP type property carry the event type.
type AMQPPublisher struct {
	ch  amqpChannel
	now func() time.Time
}

// NewAMQPPublisher opens a channel on conn and declares the durable fanout exchange.
func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("notify.NewAMQPPublisher: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("notify.NewAMQPPublisher: declare exchange: %w", err)
	}
	return newAMQPPublisher(ch), nil
}

func newAMQPPublisher(ch amqpChannel) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, now: time.Now}
}

// Enqueue publishes payload immediately. It satisfies service.Notifier.
func (p *AMQPPublisher) Enqueue(ctx context.Context, eventType domain.EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify.AMQPPublisher.Enqueue: marshal: %w", err)
	}
	if err := p.publish(ctx, eventType, body); err != nil {
		return fmt.Errorf("notify.AMQPPublisher.Enqueue: %w", err)
	}
	return nil
}

// Forward publishes a queued job. It satisfies Forwarder.
func (p *AMQPPublisher) Forward(ctx context.Context, job domain.Job) error {
	if err := p.publish(ctx, job.Type, job.Payload); err != nil {
		return fmt.Errorf("notify.AMQPPublisher.Forward: %w", err)
	}
	return nil
}

// Close closes the channel. The connection is owned by the caller.
func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

func (p *AMQPPublisher) publish(ctx context.Context, eventType domain.EventType, body []byte) error {
	return p.ch.PublishWithContext(ctx, ExchangeName, string(eventType), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(eventType),
		Timestamp:    p.now(),
		Body:         body,
	})
}
