// internal/catalog/builder.go
package catalog

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinNameLength        = 3
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// Builder collects the attributes of a new game and validates them together,
// so a caller sees every problem at once.
type Builder struct {
	name        string
	description string
	releaseDate time.Time
	price       decimal.Decimal
	discount    int
}

func NewGame() *Builder {
	return &Builder{}
}

func (b *Builder) Name(name string) *Builder {
	b.name = strings.TrimSpace(name)
	return b
}

func (b *Builder) Description(description string) *Builder {
	b.description = strings.TrimSpace(description)
	return b
}

func (b *Builder) ReleaseDate(date time.Time) *Builder {
	b.releaseDate = date
	return b
}

func (b *Builder) Price(price decimal.Decimal) *Builder {
	b.price = price
	return b
}

func (b *Builder) Discount(percentage int) *Builder {
	b.discount = percentage
	return b
}

// Validate returns a *ValidationError listing every violated rule, or nil.
func (b *Builder) Validate() error {
	var problems []string
	if n := utf8.RuneCountInString(b.name); n < MinNameLength || n > MaxNameLength {
		problems = append(problems, fmt.Sprintf("name must be between %d and %d characters", MinNameLength, MaxNameLength))
	}
	if utf8.RuneCountInString(b.description) > MaxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	if b.releaseDate.IsZero() {
		problems = append(problems, "release date is required")
	}
	if !b.price.IsPositive() {
		problems = append(problems, "price must be greater than zero")
	}
	if b.discount < 0 || b.discount > 100 {
		problems = append(problems, "discount must be between 0 and 100")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Build returns a new game with its creation event pending.
func (b *Builder) Build() (*Game, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	g := &Game{}
	err := g.raise(&GameCreated{
		EventMeta:   EventMeta{AggregateID: uuid.New()},
		Name:        b.name,
		Description: b.description,
		ReleaseDate: b.releaseDate.UTC(),
		Price:       b.price,
		Discount:    b.discount,
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
