// internal/library/projector.go
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gamenexus/internal/messaging"
	"gamenexus/internal/search"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CatalogLookup resolves a game in the catalog read store. A miss is (nil, nil).
type CatalogLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*search.Document, error)
}

// Projector grants ownership of a game when its payment is approved.
//
// It depends on the catalog projection having already stored the game. A
// payment that arrives before that is dropped; redelivery of the same
// message is the only way it is applied later.
type Projector struct {
	libraries Repository
	catalog   CatalogLookup
	logger    *slog.Logger
	outcomes  metric.Int64Counter
}

func NewProjector(libraries Repository, catalog CatalogLookup, logger *slog.Logger) *Projector {
	p := &Projector{
		libraries: libraries,
		catalog:   catalog,
		logger:    logger.With("projector", "ownership"),
	}
	p.outcomes, _ = otel.Meter("gamenexus/library").Int64Counter("ownership.projected")
	return p
}

// Handle is a messaging.Handler. Drops return nil; store failures are
// returned so the consumer can retry them.
func (p *Projector) Handle(ctx context.Context, msg messaging.Message) error {
	var payment messaging.PaymentMessage
	if err := json.Unmarshal(msg.Value, &payment); err != nil {
		p.drop(ctx, "undecodable", "skipping undecodable payment message", "offset", msg.Offset, "error", err)
		return nil
	}
	fields := []any{"order_id", payment.OrderID, "user_id", payment.UserID, "item_id", payment.ItemID}

	if !payment.Approved() {
		p.count(ctx, "not_approved")
		p.logger.Debug("ignoring payment that is not approved", append(fields, "status", payment.Status)...)
		return nil
	}

	doc, err := p.libraries.GetByUserID(ctx, payment.UserID)
	if err != nil {
		return fmt.Errorf("load library for order %d: %w", payment.OrderID, err)
	}

	game, err := p.catalog.GetByID(ctx, payment.ItemID)
	if err != nil {
		return fmt.Errorf("resolve game for order %d: %w", payment.OrderID, err)
	}
	if game == nil {
		p.drop(ctx, "unresolved", "dropping payment for a game the catalog does not know", fields...)
		return nil
	}

	if doc == nil {
		doc = &Document{UserID: payment.UserID}
	}
	if !doc.Add(game.ID) {
		p.count(ctx, "duplicate")
		p.logger.Info("game already owned", fields...)
		return nil
	}

	if err := p.libraries.Upsert(ctx, *doc); err != nil {
		return fmt.Errorf("save library for order %d: %w", payment.OrderID, err)
	}
	p.count(ctx, "granted")
	p.logger.Info("ownership granted", fields...)
	return nil
}

func (p *Projector) drop(ctx context.Context, reason, msg string, args ...any) {
	p.count(ctx, reason)
	p.logger.Warn(msg, args...)
}

func (p *Projector) count(ctx context.Context, outcome string) {
	p.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
