// internal/catalog/service_test.go
package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gamenexus/internal/messaging"
	"gamenexus/internal/search"
	"gamenexus/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// projectingPublisher applies snapshots straight to the read side, standing
// in for the bus and the catalog projector.
type projectingPublisher struct {
	docs      *search.MemoryRepository
	err       error
	published []messaging.GameSnapshot
}

func (p *projectingPublisher) PublishGame(ctx context.Context, s messaging.GameSnapshot) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, s)
	return p.docs.Upsert(ctx, search.DocumentFromSnapshot(s))
}

type fixture struct {
	svc   Service
	store eventstore.Store
	repo  *Repository
	docs  *search.MemoryRepository
	pub   *projectingPublisher
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, eventstore.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store eventstore.Store) *fixture {
	t.Helper()
	docs := search.NewMemoryRepository()
	pub := &projectingPublisher{docs: docs}
	repo := NewRepository(store)
	return &fixture{
		svc:   NewService(repo, docs, pub, discardLogger()),
		store: store,
		repo:  repo,
		docs:  docs,
		pub:   pub,
	}
}

func alphaInput() CreateGame {
	return CreateGame{
		Name:        "Alpha",
		Description: "A game about beginnings",
		ReleaseDate: launch,
		Price:       decimal.NewFromInt(100),
	}
}

func TestServiceCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, "Alpha", snap.Name)
	assert.Equal(t, "100", snap.Value.String())

	require.Len(t, f.pub.published, 1)
	assert.Equal(t, snap.ID, f.pub.published[0].ID)

	events, err := f.store.LoadEvents(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventGameCreated, events[0].EventType)
}

func TestServiceCreateInvalid(t *testing.T) {
	f := newFixture(t)
	in := alphaInput()
	in.Price = decimal.Zero

	_, err := f.svc.Create(context.Background(), in)
	assert.True(t, IsInvalidInput(err))
	assert.Empty(t, f.pub.published)
}

func TestServiceCreateDuplicateNameConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, alphaInput())
	require.ErrorIs(t, err, ErrConflict)

	docs, err := f.docs.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Len(t, f.pub.published, 1)
}

func TestServiceChangeDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)
	beta := alphaInput()
	beta.Name = "Beta"
	_, err = f.svc.Create(ctx, beta)
	require.NoError(t, err)

	_, err = f.svc.ChangeDetails(ctx, alpha.ID, ChangeDetails{Name: "Beta"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.ChangeDetails(ctx, alpha.ID, ChangeDetails{Name: "Al"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.ChangeDetails(ctx, alpha.ID, ChangeDetails{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Keeping its own name is not a conflict.
	later := launch.Add(48 * time.Hour)
	snap, err := f.svc.ChangeDetails(ctx, alpha.ID, ChangeDetails{Name: "Alpha", ReleaseDate: &later})
	require.NoError(t, err)
	assert.True(t, snap.ReleaseDate.Equal(later))

	snap, err = f.svc.ChangeDetails(ctx, alpha.ID, ChangeDetails{Name: "Gamma", Description: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Gamma", snap.Name)
	assert.Equal(t, "renamed", snap.Description)

	doc, err := f.docs.GetByID(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gamma", doc.Name)
}

func TestServicePriceAndDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)

	snap, err := f.svc.ChangePrice(ctx, game.ID, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, "200", snap.Value.String())

	snap, err = f.svc.ApplyDiscount(ctx, game.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, snap.Discount)
	assert.Equal(t, "150", snap.Value.String())

	_, err = f.svc.ApplyDiscount(ctx, game.ID, 150)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.ChangePrice(ctx, game.ID, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Len(t, f.pub.published, 3)
}

func TestServiceRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)

	snap, err := f.svc.Remove(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, snap.Removed)

	_, err = f.svc.ChangePrice(ctx, game.ID, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = f.svc.Remove(ctx, game.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	loaded, err := f.repo.Load(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", loaded.Price().String())
}

func TestServiceNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := f.svc.ChangePrice(ctx, id, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.ApplyDiscount(ctx, id, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.ChangeDetails(ctx, id, ChangeDetails{Name: "Delta"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Remove(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.pub.published)
}

func TestServicePublishFailureAfterSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)

	f.pub.err = errors.New("broker unavailable")
	_, err = f.svc.ApplyDiscount(ctx, game.ID, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.False(t, IsInvalidInput(err))

	loaded, err := f.repo.Load(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, loaded.Discount(), "the event is durable even though publishing failed")

	doc, err := f.docs.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Discount, "the read side lags until the next publish")
}

func TestServiceConcurrentModificationConflicts(t *testing.T) {
	store := &failingStore{Store: eventstore.NewMemoryStore(), failAt: 2, err: eventstore.ErrConcurrencyConflict}
	f := newFixtureWithStore(t, store)
	ctx := context.Background()
	game, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)

	_, err = f.svc.ApplyDiscount(ctx, game.ID, 10)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
}

func TestServiceUnknownEventSurfaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	game, err := f.svc.Create(ctx, alphaInput())
	require.NoError(t, err)
	require.NoError(t, f.store.Append(ctx, eventstore.Event{
		AggregateID:   game.ID,
		AggregateType: AggregateType,
		EventType:     "game.archived",
		EventData:     []byte(`{}`),
		Version:       2,
	}))

	_, err = f.svc.ApplyDiscount(ctx, game.ID, 10)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.False(t, IsInvalidInput(err))
}
