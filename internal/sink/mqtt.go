// mqtt.go

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/reddashi/SbD/internal/coordinator"
)

// MQTT publishes the aggregate snapshot for dashboards subscribed to the
// greenhouse topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger
}

func NewMQTT(brokerAddr, topic, clientID string, log *slog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", brokerAddr, token.Error())
	}
	return &MQTT{
		client: c,
		topic:  topic,
		log:    log.With(slog.String("component", "mqtt-sink"), slog.String("topic", topic)),
	}, nil
}

func (s *MQTT) Name() string { return "mqtt" }

func (s *MQTT) Write(_ context.Context, snap coordinator.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	token := s.client.Publish(s.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish timed out")
	}
	return token.Error()
}

func (s *MQTT) Close() error {
	s.client.Disconnect(250)
	return nil
}
