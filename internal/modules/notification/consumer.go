// README: Kafka consumer used by the notifier worker.
package notification

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

// Consume fetches notifications and hands them to handler until ctx is done
// or a fetch/commit error occurs. Handler errors skip the commit so the
// message is redelivered.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, n Notification) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		var n Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			// Malformed payloads are committed, not retried forever.
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}
		if err := handler(ctx, n); err != nil {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
