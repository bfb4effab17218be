// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"gamenexus/internal/messaging"
	"gamenexus/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface.
type service struct {
	repo      *Repository
	names     NameLookup
	publisher messaging.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewService creates a new catalog command service.
func NewService(repo *Repository, names NameLookup, publisher messaging.Publisher, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		names:     names,
		publisher: publisher,
		logger:    logger.With("component", "catalog"),
		tracer:    otel.Tracer("gamenexus/catalog"),
	}
}

// Create validates and stores a new game, then publishes its snapshot.
func (s *service) Create(ctx context.Context, in CreateGame) (*messaging.GameSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create")
	defer span.End()

	builder := NewGame().
		Name(in.Name).
		Description(in.Description).
		ReleaseDate(in.ReleaseDate).
		Price(in.Price).
		Discount(in.Discount)
	if err := builder.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, strings.TrimSpace(in.Name), uuid.Nil); err != nil {
		return nil, err
	}

	game, err := builder.Build()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("game.id", game.ID().String()))
	return s.commit(ctx, span, "created", game)
}

// ChangeDetails renames, redescribes or redates a game.
func (s *service) ChangeDetails(ctx context.Context, id uuid.UUID, in ChangeDetails) (*messaging.GameSnapshot, error) {
	name := strings.TrimSpace(in.Name)
	if name != "" {
		if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
			return nil, fmt.Errorf("%w: name must be between %d and %d characters", ErrInvalidArgument, MinNameLength, MaxNameLength)
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Description)) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description must be at most %d characters", ErrInvalidArgument, MaxDescriptionLength)
	}

	return s.mutate(ctx, "details_changed", id, func(ctx context.Context, g *Game) error {
		if name != "" && name != g.Name() {
			if err := s.ensureNameFree(ctx, name, g.ID()); err != nil {
				return err
			}
		}
		return g.ChangeDetails(name, in.Description, in.ReleaseDate)
	})
}

func (s *service) ChangePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*messaging.GameSnapshot, error) {
	return s.mutate(ctx, "price_changed", id, func(_ context.Context, g *Game) error {
		return g.ChangePrice(price)
	})
}

func (s *service) ApplyDiscount(ctx context.Context, id uuid.UUID, percentage int) (*messaging.GameSnapshot, error) {
	return s.mutate(ctx, "discount_applied", id, func(_ context.Context, g *Game) error {
		return g.ApplyDiscount(percentage)
	})
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) (*messaging.GameSnapshot, error) {
	return s.mutate(ctx, "removed", id, func(_ context.Context, g *Game) error {
		return g.Remove()
	})
}

func (s *service) mutate(ctx context.Context, action string, id uuid.UUID, command func(context.Context, *Game) error) (*messaging.GameSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "catalog."+action,
		trace.WithAttributes(attribute.String("game.id", id.String())),
	)
	defer span.End()

	game, err := s.repo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			span.SetStatus(codes.Error, "replay aborted")
			s.logger.Error("event log cannot be replayed", "game_id", id, "error", err)
		}
		return nil, err
	}
	if err := command(ctx, game); err != nil {
		return nil, err
	}
	return s.commit(ctx, span, action, game)
}

// commit saves the pending events and publishes the resulting snapshot. A
// publish failure is reported even though the events are already stored.
func (s *service) commit(ctx context.Context, span trace.Span, action string, game *Game) (*messaging.GameSnapshot, error) {
	if err := s.repo.Save(ctx, game); err != nil {
		span.SetStatus(codes.Error, "save failed")
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return nil, fmt.Errorf("%w: game %s was modified concurrently: %w", ErrConflict, game.ID(), err)
		}
		return nil, fmt.Errorf("save game %s: %w", game.ID(), err)
	}

	snapshot := game.Snapshot()
	if err := s.publisher.PublishGame(ctx, snapshot); err != nil {
		span.SetStatus(codes.Error, "publish failed")
		s.logger.Error("snapshot not published, read side is stale until the next change or a reindex",
			"game_id", game.ID(), "version", game.Version(), "error", err)
		return nil, fmt.Errorf("publish game %s: %w", game.ID(), err)
	}

	s.logger.Info("game "+action, "game_id", game.ID(), "version", game.Version())
	return &snapshot, nil
}

func (s *service) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	doc, err := s.names.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("look up name %q: %w", name, err)
	}
	if doc != nil && doc.ID != self {
		return fmt.Errorf("%w: a game named %q already exists", ErrConflict, name)
	}
	return nil
}
