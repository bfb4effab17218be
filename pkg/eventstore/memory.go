package eventstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps streams in process memory. It honours the same version
// rules as the SQL stores.
type MemoryStore struct {
	mu     sync.Mutex
	byAgg  map[uuid.UUID][]Event
	global []Event
	seq    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byAgg: make(map[uuid.UUID][]Event)}
}

func (s *MemoryStore) Append(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event, err := prepare(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.byAgg[event.AggregateID])+1 != event.Version {
		return ErrConcurrencyConflict
	}
	s.seq++
	event.ID = s.seq
	s.byAgg[event.AggregateID] = append(s.byAgg[event.AggregateID], event)
	s.global = append(s.global, event)
	return nil
}

func (s *MemoryStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.byAgg[aggregateID]))
	copy(out, s.byAgg[aggregateID])
	return out, nil
}

func (s *MemoryStore) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Event{}
	for _, e := range s.global {
		if e.ID <= fromID {
			continue
		}
		if len(out) == batchSize {
			break
		}
		out = append(out, e)
	}
	return out, nil
}
