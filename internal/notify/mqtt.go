package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const (
	DefaultMQTTTopic = "iot/door/verify/result"
	DefaultMQTTQoS   = 1

	mqttTimestampLayout = "2006-01-02 15:04:05"
	mqttConnectTimeout  = 10 * time.Second
)

var ErrMQTTTimeout = errors.New("mqtt publish timed out")

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTT publishes verification outcomes for door controllers. Enrollment
// events are not published.
type MQTT struct {
	client mqttClient
	topic  string
	qos    byte
	logger *slog.Logger
}

// NewMQTT connects to the broker. The client reconnects on its own after
// the first successful connection.
func NewMQTT(cfg MQTTConfig, logger *slog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", slog.Any("error", err))
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", slog.String("broker", cfg.Broker))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connect mqtt broker %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, err)
	}

	return newMQTT(client, cfg, logger), nil
}

func newMQTT(client mqttClient, cfg MQTTConfig, logger *slog.Logger) *MQTT {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	return &MQTT{
		client: client,
		topic:  topic,
		qos:    cfg.QoS,
		logger: logger,
	}
}

func (m *MQTT) Publish(ctx context.Context, event Event) error {
	if event.Type == EventEnrollment {
		return nil
	}

	payload, err := json.Marshal(mqttPayload(event))
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, false, payload)

	timeout := mqttConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return ErrMQTTTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}

	m.logger.Debug("mqtt published", slog.String("topic", m.topic), slog.String("status", string(event.Status)))
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// mqttPayload renders the message format door controllers already parse:
// "success" with name/acc/score, or "failed" with a message.
func mqttPayload(e Event) map[string]any {
	ts := e.Timestamp.Local().Format(mqttTimestampLayout)

	if e.Status == domain.StatusMatched && e.Identity != nil {
		p := map[string]any{
			"status":    "success",
			"result":    e.Status,
			"name":      e.Identity.Name,
			"acc":       e.Identity.AccountID,
			"liveness":  "live",
			"timestamp": ts,
		}
		if e.Score != nil {
			p["score"] = round3(*e.Score)
		}
		return p
	}

	p := map[string]any{
		"status":    "failed",
		"result":    e.Status,
		"message":   failureMessage(e.Status),
		"timestamp": ts,
	}
	if e.Status == domain.StatusNotRecognized {
		if e.BestScore != nil {
			p["best_score"] = round3(*e.BestScore)
		} else {
			p["best_score"] = nil
		}
	}
	return p
}

func failureMessage(status domain.VerifyStatus) string {
	switch status {
	case domain.StatusNoFaceDetected:
		return "no face detected"
	case domain.StatusSpoofSuspected:
		return "spoof suspected"
	default:
		return "not recognized"
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
