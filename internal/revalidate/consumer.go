package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer relays notices published by any storefront instance to local
// notifiers, typically this instance's websocket hub. Each instance needs its
// own group id so every instance sees every notice.
type Consumer struct {
	reader  messageReader
	target  Notifier
	log     *slog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, target Notifier, log *slog.Logger) *Consumer {
	if topic == "" {
		topic = DefaultTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
	return newConsumer(reader, target, log)
}

func newConsumer(r messageReader, target Notifier, log *slog.Logger) *Consumer {
	return &Consumer{reader: r, target: target, log: log, backoff: time.Second}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.log.Warn("error reading revalidation notice", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(c.backoff):
		}
		return
	}

	var notice Notice
	if err := json.Unmarshal(m.Value, &notice); err != nil {
		c.log.Warn("error parsing revalidation notice", "offset", m.Offset, "error", err)
		return
	}
	if len(notice.Keys) == 0 {
		return
	}
	c.target.Invalidate(ctx, notice.Keys...)
}
