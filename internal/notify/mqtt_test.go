package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type fakeToken struct {
	completed bool
	err       error
}

func (t *fakeToken) Wait() bool                     { return t.completed }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.completed }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeMQTTClient struct {
	token        *fakeToken
	published    []published
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeMQTTClient) Disconnect(uint) {
	c.disconnected = true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodePayload(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestMQTT_Publish(t *testing.T) {
	score := 0.91234
	best := 0.4321
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)

	tests := []struct {
		name  string
		event Event
		want  map[string]any
	}{
		{
			name: "matched",
			event: Event{
				Type:      EventVerification,
				Status:    domain.StatusMatched,
				Identity:  &domain.IdentitySummary{AccountID: "A1", Name: "Ana"},
				Score:     &score,
				Timestamp: at,
			},
			want: map[string]any{
				"status":    "success",
				"result":    "matched",
				"name":      "Ana",
				"acc":       "A1",
				"score":     0.912,
				"liveness":  "live",
				"timestamp": "2026-03-04 05:06:07",
			},
		},
		{
			name: "not recognized with candidate",
			event: Event{
				Type:      EventVerification,
				Status:    domain.StatusNotRecognized,
				BestScore: &best,
				Timestamp: at,
			},
			want: map[string]any{
				"status":     "failed",
				"result":     "not_recognized",
				"message":    "not recognized",
				"best_score": 0.432,
				"timestamp":  "2026-03-04 05:06:07",
			},
		},
		{
			name: "not recognized on empty gallery",
			event: Event{
				Type:      EventVerification,
				Status:    domain.StatusNotRecognized,
				Timestamp: at,
			},
			want: map[string]any{
				"status":     "failed",
				"result":     "not_recognized",
				"message":    "not recognized",
				"best_score": nil,
				"timestamp":  "2026-03-04 05:06:07",
			},
		},
		{
			name: "no face",
			event: Event{
				Type:      EventVerification,
				Status:    domain.StatusNoFaceDetected,
				Timestamp: at,
			},
			want: map[string]any{
				"status":    "failed",
				"result":    "no_face_detected",
				"message":   "no face detected",
				"timestamp": "2026-03-04 05:06:07",
			},
		},
		{
			name: "spoof",
			event: Event{
				Type:      EventMultiVerification,
				Status:    domain.StatusSpoofSuspected,
				Timestamp: at,
			},
			want: map[string]any{
				"status":    "failed",
				"result":    "spoof_suspected",
				"message":   "spoof suspected",
				"timestamp": "2026-03-04 05:06:07",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeMQTTClient{token: &fakeToken{completed: true}}
			m := newMQTT(client, MQTTConfig{QoS: 1}, testLogger())

			require.NoError(t, m.Publish(context.Background(), tt.event))
			require.Len(t, client.published, 1)

			assert.Equal(t, DefaultMQTTTopic, client.published[0].topic)
			assert.Equal(t, byte(1), client.published[0].qos)
			assert.Equal(t, tt.want, decodePayload(t, client.published[0].payload))
		})
	}
}

func TestMQTT_Publish_SkipsEnrollment(t *testing.T) {
	client := &fakeMQTTClient{token: &fakeToken{completed: true}}
	m := newMQTT(client, MQTTConfig{Topic: "door/1"}, testLogger())

	require.NoError(t, m.Publish(context.Background(), EnrollmentEvent(domain.IdentitySummary{AccountID: "A1"}, time.Now())))
	assert.Empty(t, client.published)
}

func TestMQTT_Publish_Failures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		client := &fakeMQTTClient{token: &fakeToken{completed: false}}
		m := newMQTT(client, MQTTConfig{}, testLogger())

		err := m.Publish(context.Background(), Event{Type: EventVerification, Status: domain.StatusNoFaceDetected})
		assert.ErrorIs(t, err, ErrMQTTTimeout)
	})

	t.Run("broker error", func(t *testing.T) {
		errBroker := errors.New("not connected")
		client := &fakeMQTTClient{token: &fakeToken{completed: true, err: errBroker}}
		m := newMQTT(client, MQTTConfig{Topic: "door/1"}, testLogger())

		err := m.Publish(context.Background(), Event{Type: EventVerification, Status: domain.StatusNoFaceDetected})
		require.Error(t, err)
		assert.ErrorIs(t, err, errBroker)
		assert.Contains(t, err.Error(), "publish door/1")
	})
}

func TestMQTT_Close(t *testing.T) {
	client := &fakeMQTTClient{token: &fakeToken{completed: true}}
	newMQTT(client, MQTTConfig{}, testLogger()).Close()
	assert.True(t, client.disconnected)
}
