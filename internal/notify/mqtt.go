package notify

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pkordes/ritlog/internal/domain"
)

// TopicPrefix roots every MQTT topic the publisher writes to. Events for a
// vehicle go to TopicPrefix/vehicles/{id}/events, events without one to
// TopicPrefix/events.
const TopicPrefix = "ritlog"

// mqttClient is the subset of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes events to per-vehicle topics with QoS 1.
type MQTTPublisher struct {
	client mqttClient
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// envelope is the MQTT message body. MQTT has no message properties, so the
// event type travels in the body.
type envelope struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// Enqueue publishes payload immediately. It satisfies service.Notifier.
func (p *MQTTPublisher) Enqueue(ctx context.Context, eventType domain.EventType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify.MQTTPublisher.Enqueue: marshal: %w", err)
	}
	if err := p.publish(ctx, eventType, body); err != nil {
		return fmt.Errorf("notify.MQTTPublisher.Enqueue: %w", err)
	}
	return nil
}

// Forward publishes a queued job. It satisfies Forwarder.
func (p *MQTTPublisher) Forward(ctx context.Context, job domain.Job) error {
	if err := p.publish(ctx, job.Type, job.Payload); err != nil {
		return fmt.Errorf("notify.MQTTPublisher.Forward: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) publish(ctx context.Context, eventType domain.EventType, body []byte) error {
	msg, err := json.Marshal(envelope{Type: eventType, Payload: body})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	token := p.client.Publish(Topic(body), 1, false, msg)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Topic derives the topic for an event body from its vehicle_id field.
func Topic(body []byte) string {
	var ref struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := json.Unmarshal(body, &ref); err != nil || ref.VehicleID == "" {
		return TopicPrefix + "/events"
	}
	return TopicPrefix + "/vehicles/" + ref.VehicleID + "/events"
}
