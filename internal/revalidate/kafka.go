package revalidate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/justuche224/swift/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "storefront.revalidate"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes a Notice per mutation. Publishing goes through a
// circuit breaker so an unreachable broker fails fast.
type KafkaNotifier struct {
	writer  messageWriter
	breaker *circuitbreaker.Breaker
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaNotifier(brokers []string, topic string, log *slog.Logger) *KafkaNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newKafkaNotifier(w, log)
}

func newKafkaNotifier(w messageWriter, log *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer:  w,
		breaker: circuitbreaker.New(circuitbreaker.Settings{Name: "revalidate-kafka"}, log),
		log:     log,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (k *KafkaNotifier) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	data, err := json.Marshal(Notice{Keys: keys, At: k.now().UTC()})
	if err != nil {
		k.log.Error("marshal revalidation notice", "error", err)
		return
	}

	// The request may finish before the broker acknowledges.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()

	err = k.breaker.Do(func() error {
		return k.writer.WriteMessages(pubCtx, kafka.Message{
			Key:   []byte(keys[0]),
			Value: data,
			Time:  k.now().UTC(),
		})
	})
	if err != nil {
		k.log.Warn("publish revalidation notice failed", "keys", keys, "error", err)
	}
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
