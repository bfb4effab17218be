// internal/search/domain.go

// Package search holds the catalog read side: denormalized game documents,
// their stores, the projector that keeps them current and the reindex sweep.
package search

import (
	"time"

	"gamenexus/internal/messaging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Document is the read model of one game. It is always written whole.
type Document struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	ReleaseDate time.Time       `json:"releaseDate" db:"release_date"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Discount    int             `json:"discount" db:"discount"`
	Value       decimal.Decimal `json:"value" db:"value"`
	Removed     bool            `json:"removed" db:"removed"`
}

func DocumentFromSnapshot(s messaging.GameSnapshot) Document {
	return Document{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		ReleaseDate: s.ReleaseDate.UTC(),
		Price:       s.Price,
		Discount:    s.Discount,
		Value:       s.Value,
		Removed:     s.Removed,
	}
}

// NormalizePage clamps paging arguments to sane bounds.
func NormalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}
