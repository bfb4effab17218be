// internal/catalog/repository.go
package catalog

import (
	"context"
	"fmt"

	"gamenexus/internal/messaging"
	"gamenexus/pkg/eventstore"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const streamBatchSize = 500

// Repository loads games by replaying their streams and saves the events a
// command raised.
type Repository struct {
	store  eventstore.Store
	tracer trace.Tracer
}

func NewRepository(store eventstore.Store) *Repository {
	return &Repository{
		store:  store,
		tracer: otel.Tracer("gamenexus/catalog"),
	}
}

// Load replays a game's history. A game with no events is ErrNotFound; an
// event this build cannot apply is ErrUnknownEvent and no game is returned.
func (r *Repository) Load(ctx context.Context, id uuid.UUID) (*Game, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.repository.load",
		trace.WithAttributes(attribute.String("game.id", id.String())),
	)
	defer span.End()

	records, err := r.store.LoadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load events for game %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return replayRecords(records)
}

func replayRecords(records []eventstore.Event) (*Game, error) {
	events := make([]Event, 0, len(records))
	for _, record := range records {
		e, err := decodeEvent(record)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	g := &Game{}
	if err := g.Replay(events); err != nil {
		return nil, err
	}
	return g, nil
}

// Save appends the game's pending events in order. If an append fails, the
// events already stored are dropped from pending and the rest stay there.
func (r *Repository) Save(ctx context.Context, g *Game) error {
	ctx, span := r.tracer.Start(ctx, "catalog.repository.save",
		trace.WithAttributes(
			attribute.String("game.id", g.ID().String()),
			attribute.Int("events", len(g.changes)),
		),
	)
	defer span.End()

	for i, e := range g.changes {
		record, err := encodeEvent(e)
		if err != nil {
			g.markCommitted(i)
			return err
		}
		if err := r.store.Append(ctx, record); err != nil {
			g.markCommitted(i)
			return fmt.Errorf("append %s v%d: %w", e.EventType(), record.Version, err)
		}
	}
	g.markCommitted(len(g.changes))
	return nil
}

// Snapshots replays every game in the store, in order of first appearance,
// and hands each current state to fn.
func (r *Repository) Snapshots(ctx context.Context, fn func(messaging.GameSnapshot) error) error {
	ctx, span := r.tracer.Start(ctx, "catalog.repository.snapshots")
	defer span.End()

	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	var from int64
	for {
		batch, err := r.store.StreamEvents(ctx, from, streamBatchSize)
		if err != nil {
			return fmt.Errorf("stream events after %d: %w", from, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, e := range batch {
			from = e.ID
			if e.AggregateType != AggregateType {
				continue
			}
			if _, ok := seen[e.AggregateID]; !ok {
				seen[e.AggregateID] = struct{}{}
				ids = append(ids, e.AggregateID)
			}
		}
	}
	span.SetAttributes(attribute.Int("games", len(ids)))

	for _, id := range ids {
		g, err := r.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(g.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}
