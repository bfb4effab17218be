// internal/catalog/errors.go
package catalog

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidState rejects a game that cannot be created as specified.
	ErrInvalidState = errors.New("invalid game state")
	// ErrInvalidArgument rejects a command argument before any event is raised.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidOperation rejects a command the game's lifecycle forbids.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrUnknownEvent aborts replay. It means the event log holds a type this
	// build cannot apply: corruption, or a writer newer than the reader.
	ErrUnknownEvent = errors.New("unknown event type")

	ErrNotFound = errors.New("game not found")
	ErrConflict = errors.New("game conflict")
)

// IsInvalidInput reports whether err is a business validation failure the
// caller can fix by changing the request.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidOperation)
}

// ValidationError lists every problem found while validating a new game.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "cannot create a game in an invalid state: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidState
}
