// internal/messaging/publisher.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Publisher emits game snapshots for asynchronous consumers.
type Publisher interface {
	PublishGame(ctx context.Context, snapshot GameSnapshot) error
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes snapshots keyed by game id, so every snapshot of one
// game lands on the same partition in publish order. Writes go through a
// circuit breaker: while the broker keeps failing, commands fail fast
// instead of each waiting out the writer timeout.
type KafkaPublisher struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "kafka-publisher",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		tracer: otel.Tracer("gamenexus/messaging"),
	}
}

func (p *KafkaPublisher) PublishGame(ctx context.Context, snapshot GameSnapshot) error {
	ctx, span := p.tracer.Start(ctx, "messaging.publish_game",
		trace.WithAttributes(attribute.String("game.id", snapshot.ID.String())),
	)
	defer span.End()

	value, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(snapshot.ID.String()),
			Value: value,
		})
	})
	if err != nil {
		span.SetAttributes(attribute.String("breaker.state", p.breaker.State().String()))
		return fmt.Errorf("publish snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
