// internal/messaging/consumer.go
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Handler processes one message. A handler reports only failures worth
// retrying (store I/O); messages it decides to discard return nil.
type Handler func(ctx context.Context, msg Message) error

// Consumer drives one stream through one handler, one message at a time.
type Consumer struct {
	name       string
	stream     Stream
	handle     Handler
	logger     *slog.Logger
	maxTries   uint
	initial    time.Duration
	fetchPause time.Duration
	consumed   metric.Int64Counter
}

type ConsumerOption func(*Consumer)

// WithRetry bounds how often a failing handler is retried for one message.
func WithRetry(maxTries uint, initialInterval time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.maxTries = maxTries
		c.initial = initialInterval
	}
}

func NewConsumer(name string, stream Stream, handle Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		name:       name,
		stream:     stream,
		handle:     handle,
		logger:     logger.With("consumer", name),
		maxTries:   5,
		initial:    500 * time.Millisecond,
		fetchPause: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.consumed, _ = otel.Meter("gamenexus/messaging").Int64Counter("messages.consumed")
	return c
}

// Run consumes until ctx is cancelled. Cancellation stops fetching; a
// message already fetched is still handled and committed. A message whose
// handler keeps failing after the retries is left uncommitted and Run
// returns the error, so a restart resumes from that message.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")

	for {
		msg, err := c.stream.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.fetchPause):
			}
			continue
		}

		inflight := context.WithoutCancel(ctx)
		if err := c.process(inflight, msg); err != nil {
			c.count(inflight, "failed")
			c.logger.Error("message left uncommitted after retries",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return fmt.Errorf("consumer %s: %s[%d]@%d not handled: %w",
				c.name, msg.Topic, msg.Partition, msg.Offset, err)
		}
		c.count(inflight, "ok")

		if err := c.stream.Commit(inflight, msg); err != nil {
			c.logger.Error("commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) count(ctx context.Context, outcome string) {
	c.consumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("consumer", c.name),
		attribute.String("outcome", outcome),
	))
}

func (c *Consumer) process(ctx context.Context, msg Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.handle(ctx, msg)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("handler failed, retrying", "offset", msg.Offset, "retry_in", next, "error", err)
		}),
	)
	return err
}
