// Package eventstore persists domain events in append-only, per-aggregate streams.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is the persisted envelope of a domain event. EventData carries the
// type-specific fields; everything else is common to all event types.
type Event struct {
	ID            int64           `json:"-" db:"id"`
	EventID       uuid.UUID       `json:"id" db:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregateId" db:"aggregate_id"`
	AggregateType string          `json:"aggregateType" db:"aggregate_type"`
	EventType     string          `json:"type" db:"event_type"`
	EventData     json.RawMessage `json:"data" db:"event_data"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"timestamp" db:"created_at"`
}

// Store is the contract the command side persists through.
//
// Append must keep events of one aggregate in the order they were appended.
// Version is the 1-based position of the event in its aggregate stream; an
// append whose version is not the next one for that stream is rejected with
// ErrConcurrencyConflict. LoadEvents returns an empty slice for unknown ids.
type Store interface {
	Append(ctx context.Context, event Event) error
	LoadEvents(ctx context.Context, aggregateID uuid.UUID) ([]Event, error)
	StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error)
}

// prepare validates an event before append and fills the envelope fields the
// caller may leave empty.
func prepare(event Event) (Event, error) {
	if event.Version < 1 {
		return event, ErrInvalidVersion
	}
	if event.AggregateID == uuid.Nil {
		return event, errors.New("event has no aggregate id")
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC()
	return event, nil
}
