// internal/library/implementation.go
package library

import (
	"context"
	"fmt"

	"gamenexus/internal/search"
)

// service implements the Service interface.
type service struct {
	libraries Repository
	catalog   CatalogLookup
}

// NewService creates a new library query service.
func NewService(libraries Repository, catalog CatalogLookup) Service {
	return &service{libraries: libraries, catalog: catalog}
}

// GetLibrary returns the user's games. Ids the catalog no longer resolves
// are left out.
func (s *service) GetLibrary(ctx context.Context, userID int64) (*Library, error) {
	doc, err := s.libraries.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	games := make([]search.Document, 0, len(doc.GameIDs))
	for _, id := range doc.GameIDs {
		game, err := s.catalog.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve game %s: %w", id, err)
		}
		if game != nil {
			games = append(games, *game)
		}
	}
	return &Library{UserID: doc.UserID, Games: games}, nil
}
