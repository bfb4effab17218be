// internal/messaging/stream.go
package messaging

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Message is one record read from a stream.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Stream is a cursor over an append-only message log. Fetch blocks until a
// message is available or ctx is done. Commit acknowledges a handled
// message; uncommitted messages are delivered again after a restart.
type Stream interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// KafkaStream reads a topic as a member of a consumer group.
type KafkaStream struct {
	reader *kafka.Reader
}

func NewKafkaStream(brokers []string, groupID, topic string) *KafkaStream {
	return &KafkaStream{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

func (s *KafkaStream) Fetch(ctx context.Context) (Message, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("fetch message: %w", err)
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
	}, nil
}

func (s *KafkaStream) Commit(ctx context.Context, msg Message) error {
	err := s.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
	if err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

func (s *KafkaStream) Close() error {
	return s.reader.Close()
}
