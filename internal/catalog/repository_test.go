// internal/catalog/repository_test.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"gamenexus/internal/messaging"
	"gamenexus/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails the failAt-th call to Append with err.
type failingStore struct {
	eventstore.Store
	failAt int
	err    error
	calls  int
}

func (s *failingStore) Append(ctx context.Context, event eventstore.Event) error {
	s.calls++
	if s.calls == s.failAt {
		return s.err
	}
	return s.Store.Append(ctx, event)
}

func TestRepositoryLoadNotFound(t *testing.T) {
	repo := NewRepository(eventstore.NewMemoryStore())

	g, err := repo.Load(context.Background(), uuid.New())
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositorySaveAndLoad(t *testing.T) {
	ctx := context.Background()
	sqlite, err := eventstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	stores := map[string]eventstore.Store{
		"memory": eventstore.NewMemoryStore(),
		"sqlite": sqlite,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			repo := NewRepository(store)
			g := newAlpha(t)
			require.NoError(t, g.ApplyDiscount(20))
			require.NoError(t, g.ChangePrice(decimal.NewFromInt(80)))
			require.NoError(t, repo.Save(ctx, g))
			assert.Empty(t, g.UncommittedEvents())

			loaded, err := repo.Load(ctx, g.ID())
			require.NoError(t, err)
			assert.Empty(t, loaded.UncommittedEvents())
			assert.Equal(t, 3, loaded.Version())
			assert.Equal(t, "64", loaded.Value().String())
			assertSameState(t, g, loaded)

			require.NoError(t, loaded.Remove())
			require.NoError(t, repo.Save(ctx, loaded))
			reloaded, err := repo.Load(ctx, g.ID())
			require.NoError(t, err)
			assert.True(t, reloaded.Removed())
		})
	}
}

func TestRepositoryPartialSaveKeepsRemainder(t *testing.T) {
	ctx := context.Background()
	mem := eventstore.NewMemoryStore()
	store := &failingStore{Store: mem, failAt: 2, err: errors.New("disk full")}
	repo := NewRepository(store)

	g := newAlpha(t)
	require.NoError(t, g.ApplyDiscount(10))
	require.NoError(t, g.ChangePrice(decimal.NewFromInt(120)))

	err := repo.Save(ctx, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	stored, err := mem.LoadEvents(ctx, g.ID())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	require.Len(t, g.UncommittedEvents(), 2)
	assert.IsType(t, &DiscountApplied{}, g.UncommittedEvents()[0])

	require.NoError(t, repo.Save(ctx, g))
	assert.Empty(t, g.UncommittedEvents())

	loaded, err := repo.Load(ctx, g.ID())
	require.NoError(t, err)
	assertSameState(t, g, loaded)
}

func TestRepositoryStaleSaveConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(eventstore.NewMemoryStore())
	g := newAlpha(t)
	require.NoError(t, repo.Save(ctx, g))

	first, err := repo.Load(ctx, g.ID())
	require.NoError(t, err)
	second, err := repo.Load(ctx, g.ID())
	require.NoError(t, err)

	require.NoError(t, first.ApplyDiscount(5))
	require.NoError(t, second.ApplyDiscount(50))
	require.NoError(t, repo.Save(ctx, first))

	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	assert.Len(t, second.UncommittedEvents(), 1)
}

func TestRepositoryLoadUnknownEventIsFatal(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	repo := NewRepository(store)
	g := newAlpha(t)
	require.NoError(t, repo.Save(ctx, g))

	require.NoError(t, store.Append(ctx, eventstore.Event{
		AggregateID:   g.ID(),
		AggregateType: AggregateType,
		EventType:     "game.archived",
		EventData:     json.RawMessage(`{}`),
		Version:       2,
	}))

	loaded, err := repo.Load(ctx, g.ID())
	assert.Nil(t, loaded)
	require.ErrorIs(t, err, ErrUnknownEvent)
	assert.Contains(t, err.Error(), "game.archived")
}

func TestRepositorySnapshots(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	repo := NewRepository(store)

	alpha := newAlpha(t)
	require.NoError(t, repo.Save(ctx, alpha))
	beta, err := alphaBuilder().Name("Beta").Build()
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, beta))
	require.NoError(t, alpha.ApplyDiscount(50))
	require.NoError(t, repo.Save(ctx, alpha))

	// Events of other aggregate types share the log and are ignored.
	require.NoError(t, store.Append(ctx, eventstore.Event{
		AggregateID:   uuid.New(),
		AggregateType: "order",
		EventType:     "order.placed",
		EventData:     json.RawMessage(`{}`),
		Version:       1,
	}))

	var got []messaging.GameSnapshot
	require.NoError(t, repo.Snapshots(ctx, func(s messaging.GameSnapshot) error {
		got = append(got, s)
		return nil
	}))

	require.Len(t, got, 2)
	assert.Equal(t, alpha.ID(), got[0].ID)
	assert.Equal(t, "50", got[0].Value.String())
	assert.Equal(t, "Beta", got[1].Name)
}
