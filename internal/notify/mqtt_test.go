package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/ritlog/internal/domain"
)

// fakeToken is a completed (or never completing) mqtt.Token.
type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	d := make(chan struct{})
	close(d)
	return &fakeToken{done: d, err: err}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

var _ mqtt.Token = (*fakeToken)(nil)

type fakeMQTT struct {
	topics   []string
	payloads [][]byte
	token    *fakeToken
}

func (c *fakeMQTT) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	if c.token != nil {
		return c.token
	}
	return completedToken(nil)
}

func TestMQTTPublisher_Enqueue(t *testing.T) {
	client := &fakeMQTT{}
	p := &MQTTPublisher{client: client}
	vehicleID := uuid.New()

	err := p.Enqueue(context.Background(), domain.EventGapDiagnostic, domain.GapDiagnosticEvent{VehicleID: vehicleID, GapKm: 60})

	require.NoError(t, err)
	require.Len(t, client.topics, 1)
	assert.Equal(t, "ritlog/vehicles/"+vehicleID.String()+"/events", client.topics[0])

	var env struct {
		Type    string                    `json:"type"`
		Payload domain.GapDiagnosticEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(client.payloads[0], &env))
	assert.Equal(t, "trip.gap_detected", env.Type)
	assert.Equal(t, 60.0, env.Payload.GapKm)
}

func TestMQTTPublisher_BrokerError(t *testing.T) {
	brokerErr := errors.New("not connected")
	p := &MQTTPublisher{client: &fakeMQTT{token: completedToken(brokerErr)}}

	err := p.Forward(context.Background(), domain.Job{Type: domain.EventMilestone, Payload: []byte(`{}`)})

	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTPublisher_ContextCancelled(t *testing.T) {
	p := &MQTTPublisher{client: &fakeMQTT{token: &fakeToken{done: make(chan struct{})}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Enqueue(ctx, domain.EventMilestone, struct{}{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ritlog/events", Topic([]byte(`{}`)))
	assert.Equal(t, "ritlog/events", Topic([]byte(`not json`)))
	assert.Equal(t, "ritlog/vehicles/abc/events", Topic([]byte(`{"vehicle_id":"abc"}`)))
}
