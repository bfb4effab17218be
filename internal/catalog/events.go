// internal/catalog/events.go
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"gamenexus/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateType tags every game stream in the event store.
const AggregateType = "game"

// Event type tags as persisted.
const (
	EventGameCreated     = "game.created"
	EventDetailsChanged  = "game.details_changed"
	EventPriceChanged    = "game.price_changed"
	EventDiscountApplied = "game.discount_applied"
	EventGameRemoved     = "game.removed"
)

// EventMeta is the envelope shared by all game events.
type EventMeta struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	Timestamp   time.Time
	Version     int
}

func (m EventMeta) Metadata() EventMeta { return m }

func (m *EventMeta) envelope() *EventMeta { return m }

// Event is one of the game events declared in this file. The set is closed:
// envelope is unexported, so only these types satisfy it.
type Event interface {
	EventType() string
	Metadata() EventMeta
	envelope() *EventMeta
}

type GameCreated struct {
	EventMeta   `json:"-"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ReleaseDate time.Time       `json:"releaseDate"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount"`
}

// DetailsChanged carries only the fields that changed; empty means unchanged.
type DetailsChanged struct {
	EventMeta   `json:"-"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	ReleaseDate *time.Time `json:"releaseDate,omitempty"`
}

type PriceChanged struct {
	EventMeta `json:"-"`
	NewPrice  decimal.Decimal `json:"newPrice"`
}

type DiscountApplied struct {
	EventMeta  `json:"-"`
	Percentage int `json:"percentage"`
}

type GameRemoved struct {
	EventMeta `json:"-"`
}

func (*GameCreated) EventType() string     { return EventGameCreated }
func (*DetailsChanged) EventType() string  { return EventDetailsChanged }
func (*PriceChanged) EventType() string    { return EventPriceChanged }
func (*DiscountApplied) EventType() string { return EventDiscountApplied }
func (*GameRemoved) EventType() string     { return EventGameRemoved }

// newEvent returns an empty event for a persisted type tag.
func newEvent(eventType string) (Event, bool) {
	switch eventType {
	case EventGameCreated:
		return &GameCreated{}, true
	case EventDetailsChanged:
		return &DetailsChanged{}, true
	case EventPriceChanged:
		return &PriceChanged{}, true
	case EventDiscountApplied:
		return &DiscountApplied{}, true
	case EventGameRemoved:
		return &GameRemoved{}, true
	}
	return nil, false
}

func encodeEvent(e Event) (eventstore.Event, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return eventstore.Event{}, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	meta := e.Metadata()
	return eventstore.Event{
		EventID:       meta.ID,
		AggregateID:   meta.AggregateID,
		AggregateType: AggregateType,
		EventType:     e.EventType(),
		EventData:     data,
		Version:       meta.Version,
		CreatedAt:     meta.Timestamp,
	}, nil
}

func decodeEvent(record eventstore.Event) (Event, error) {
	e, ok := newEvent(record.EventType)
	if !ok {
		return nil, fmt.Errorf("%w: %q (event %s, aggregate %s, version %d)",
			ErrUnknownEvent, record.EventType, record.EventID, record.AggregateID, record.Version)
	}
	if err := json.Unmarshal(record.EventData, e); err != nil {
		return nil, fmt.Errorf("decode %s event %s: %w", record.EventType, record.EventID, err)
	}
	*e.envelope() = EventMeta{
		ID:          record.EventID,
		AggregateID: record.AggregateID,
		Timestamp:   record.CreatedAt,
		Version:     record.Version,
	}
	return e, nil
}
