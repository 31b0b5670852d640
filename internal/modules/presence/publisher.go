// README: Kafka publisher for driver location events.
package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	PublishLocation(ctx context.Context, ev LocationEvent) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// PublishLocation keys by driver id so one driver's events stay ordered.
func (k *KafkaPublisher) PublishLocation(ctx context.Context, ev LocationEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode location event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.DriverID), Value: b})
}
