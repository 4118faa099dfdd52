// consumer.go

package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/reddashi/SbD/internal/override"
)

// Consumer feeds override commands from the Kafka commands topic into the
// store. It is the networked equivalent of the stdin reader and tolerates a
// broker that is slow, absent, or flapping.
type Consumer struct {
	reader *kafka.Reader
	store  *override.Store
	log    *slog.Logger
}

func NewConsumer(brokers []string, topic, group string, store *override.Store, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{
		reader: r,
		store:  store,
		log:    log.With(slog.String("component", "command-consumer"), slog.String("topic", topic)),
	}
}

// Run blocks until the context is cancelled. Read errors back off and retry;
// malformed messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context) {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Error("failed to close kafka reader", "err", err)
		}
	}()
	c.log.Info("command consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.log.Info("command consumer stopped")
				return
			}
			c.log.Warn("kafka read error", "err", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		ApplyLine(c.store, string(m.Value), c.log)
	}
}
