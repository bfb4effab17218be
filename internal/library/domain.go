// internal/library/domain.go
package library

import (
	"errors"
	"slices"

	"gamenexus/internal/search"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("library not found")

// Document is the set of games a user owns. It is created on the first
// approved purchase and only ever grows.
type Document struct {
	UserID  int64       `json:"userId"`
	GameIDs []uuid.UUID `json:"gameIds"`
}

// Owns reports whether the game is already in the library.
func (d *Document) Owns(gameID uuid.UUID) bool {
	return slices.Contains(d.GameIDs, gameID)
}

// Add appends the game unless it is already owned and reports whether the
// document changed.
func (d *Document) Add(gameID uuid.UUID) bool {
	if d.Owns(gameID) {
		return false
	}
	d.GameIDs = append(d.GameIDs, gameID)
	return true
}

// Library is a user's library resolved against the catalog.
type Library struct {
	UserID int64             `json:"userId"`
	Games  []search.Document `json:"games"`
}
