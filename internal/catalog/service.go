// internal/catalog/service.go
package catalog

import (
	"context"
	"time"

	"gamenexus/internal/messaging"
	"gamenexus/internal/search"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the command surface of the catalog. Every successful
// command returns the game's resulting snapshot.
type Service interface {
	Create(ctx context.Context, in CreateGame) (*messaging.GameSnapshot, error)
	ChangeDetails(ctx context.Context, id uuid.UUID, in ChangeDetails) (*messaging.GameSnapshot, error)
	ChangePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*messaging.GameSnapshot, error)
	ApplyDiscount(ctx context.Context, id uuid.UUID, percentage int) (*messaging.GameSnapshot, error)
	Remove(ctx context.Context, id uuid.UUID) (*messaging.GameSnapshot, error)
}

type CreateGame struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ReleaseDate time.Time       `json:"releaseDate"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount"`
}

// ChangeDetails holds the optional fields of a details change.
type ChangeDetails struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ReleaseDate *time.Time `json:"releaseDate"`
}

// NameLookup finds a catalog document by exact name. A miss is (nil, nil).
type NameLookup interface {
	GetByName(ctx context.Context, name string) (*search.Document, error)
}
