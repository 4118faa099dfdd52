// kafka.go

package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/reddashi/SbD/internal/plant"
)

// envelope is the wire shape on the readings topic, keyed by device so all of
// one device's readings land on the same partition.
type envelope struct {
	DeviceID  string    `json:"deviceId"`
	Key       plant.Key `json:"key"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Reading   any       `json:"reading"`
}

// Readings publishes every per-tick reading to the Kafka readings topic.
type Readings struct {
	writer   *kafka.Writer
	location string
	log      *slog.Logger
}

func NewReadings(brokers []string, topic, location string, log *slog.Logger) *Readings {
	return &Readings{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		location: location,
		log:      log.With(slog.String("component", "kafka-readings"), slog.String("topic", topic)),
	}
}

// Publish sends one reading. Errors are logged and swallowed; the control
// loop has already moved on.
func (p *Readings) Publish(ctx context.Context, r plant.Reading) {
	b, err := json.Marshal(envelope{
		DeviceID:  r.DeviceID,
		Key:       r.Key,
		Location:  p.location,
		Timestamp: r.Timestamp,
		Reading:   r.Payload,
	})
	if err != nil {
		p.log.Error("marshal failed", "err", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(r.DeviceID), Value: b, Time: r.Timestamp})
	if err != nil {
		p.log.Warn("kafka write failed", "err", err, "deviceId", r.DeviceID)
	}
}

func (p *Readings) Close() error { return p.writer.Close() }
