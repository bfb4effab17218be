// internal/messaging/noop/publisher.go
package noop

import (
	"context"

	"gamenexus/internal/messaging"
)

// Publisher is a no-op messaging.Publisher used when Kafka is not configured.
type Publisher struct{}

func (Publisher) PublishGame(_ context.Context, _ messaging.GameSnapshot) error { return nil }
