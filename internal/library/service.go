// internal/library/service.go
package library

import "context"

// Service defines the interface for the library query service.
type Service interface {
	GetLibrary(ctx context.Context, userID int64) (*Library, error)
}
