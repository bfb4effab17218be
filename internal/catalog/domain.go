// internal/catalog/domain.go
package catalog

import (
	"fmt"
	"strings"
	"time"

	"gamenexus/internal/messaging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Game is the catalog aggregate. Its state only changes by applying events,
// either replayed from the store or raised by a command.
type Game struct {
	id          uuid.UUID
	name        string
	description string
	releaseDate time.Time
	price       decimal.Decimal
	discount    int
	removed     bool

	version int
	changes []Event
}

func (g *Game) ID() uuid.UUID { return g.id }
func (g *Game) Name() string { return g.name }
func (g *Game) Description() string { return g.description }
func (g *Game) ReleaseDate() time.Time { return g.releaseDate }
func (g *Game) Price() decimal.Decimal { return g.price }
func (g *Game) Discount() int { return g.discount }
func (g *Game) Removed() bool { return g.removed }
func (g *Game) Version() int { return g.version }
func (g *Game) UncommittedEvents() []Event { return g.changes }

// Value is the price after discount.
func (g *Game) Value() decimal.Decimal {
	return g.price.Sub(g.price.Mul(decimal.NewFromInt(int64(g.discount))).Div(hundred))
}

// Snapshot flattens the current state into an integration message.
func (g *Game) Snapshot() messaging.GameSnapshot {
	return messaging.GameSnapshot{
		ID:          g.id,
		Name:        g.name,
		Description: g.description,
		ReleaseDate: g.releaseDate,
		Price:       g.price,
		Discount:    g.discount,
		Value:       g.Value(),
		Removed:     g.removed,
	}
}

// ChangeDetails updates any of name, description and release date. Empty
// strings and a nil date leave the field as it is; at least one must be set.
func (g *Game) ChangeDetails(name, description string, releaseDate *time.Time) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" && description == "" && releaseDate == nil {
		return fmt.Errorf("%w: at least one of name, description or release date must be provided", ErrInvalidArgument)
	}
	if releaseDate != nil && releaseDate.IsZero() {
		return fmt.Errorf("%w: release date must be set", ErrInvalidArgument)
	}
	return g.raise(&DetailsChanged{
		Name:        name,
		Description: description,
		ReleaseDate: releaseDate,
	})
}

func (g *Game) ChangePrice(newPrice decimal.Decimal) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if !newPrice.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidArgument)
	}
	return g.raise(&PriceChanged{NewPrice: newPrice})
}

func (g *Game) ApplyDiscount(percentage int) error {
	if err := g.ensureActive(); err != nil {
		return err
	}
	if percentage < 0 || percentage > 100 {
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidArgument)
	}
	return g.raise(&DiscountApplied{Percentage: percentage})
}

// Remove retires the game. Removing twice is an error, not a no-op.
func (g *Game) Remove() error {
	if g.removed {
		return fmt.Errorf("%w: game %s was already removed", ErrInvalidOperation, g.id)
	}
	return g.raise(&GameRemoved{})
}

func (g *Game) ensureActive() error {
	if g.removed {
		return fmt.Errorf("%w: game %s was removed", ErrInvalidOperation, g.id)
	}
	return nil
}

// Replay rebuilds state from history without recording anything as pending.
func (g *Game) Replay(events []Event) error {
	for _, e := range events {
		if err := g.apply(e); err != nil {
			return err
		}
	}
	return nil
}

// raise stamps the envelope, applies the event and records it as pending.
func (g *Game) raise(e Event) error {
	meta := e.envelope()
	meta.ID = uuid.New()
	if meta.AggregateID == uuid.Nil {
		meta.AggregateID = g.id
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = g.version + 1

	if err := g.apply(e); err != nil {
		return err
	}
	g.changes = append(g.changes, e)
	return nil
}

func (g *Game) apply(e Event) error {
	switch e := e.(type) {
	case *GameCreated:
		g.id = e.AggregateID
		g.name = e.Name
		g.description = e.Description
		g.releaseDate = e.ReleaseDate
		g.price = e.Price
		g.discount = e.Discount
	case *DetailsChanged:
		if e.Name != "" {
			g.name = e.Name
		}
		if e.Description != "" {
			g.description = e.Description
		}
		if e.ReleaseDate != nil {
			g.releaseDate = *e.ReleaseDate
		}
	case *PriceChanged:
		g.price = e.NewPrice
	case *DiscountApplied:
		g.discount = e.Percentage
	case *GameRemoved:
		g.removed = true
	default:
		return fmt.Errorf("%w: %T for aggregate %s", ErrUnknownEvent, e, AggregateType)
	}
	g.version = e.Metadata().Version
	return nil
}

// markCommitted drops the first n pending events once they are stored.
func (g *Game) markCommitted(n int) {
	if n >= len(g.changes) {
		g.changes = nil
		return
	}
	g.changes = append([]Event(nil), g.changes[n:]...)
}
