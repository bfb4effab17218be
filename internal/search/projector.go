// internal/search/projector.go
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gamenexus/internal/messaging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Projector turns game snapshots into catalog documents. Each snapshot
// overwrites the stored document, so redelivery is harmless.
type Projector struct {
	repo      Repository
	logger    *slog.Logger
	projected metric.Int64Counter
}

func NewProjector(repo Repository, logger *slog.Logger) *Projector {
	p := &Projector{
		repo:   repo,
		logger: logger.With("projector", "catalog"),
	}
	p.projected, _ = otel.Meter("gamenexus/search").Int64Counter("catalog.projected")
	return p
}

// Handle is a messaging.Handler. Undecodable payloads are skipped; only a
// failed write is returned, so the consumer can retry it.
func (p *Projector) Handle(ctx context.Context, msg messaging.Message) error {
	var snapshot messaging.GameSnapshot
	if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
		p.count(ctx, "skipped")
		p.logger.Warn("skipping undecodable message", "offset", msg.Offset, "error", err)
		return nil
	}
	if snapshot.ID == uuid.Nil {
		p.count(ctx, "skipped")
		p.logger.Warn("skipping message without a game id", "offset", msg.Offset)
		return nil
	}

	if err := p.repo.Upsert(ctx, DocumentFromSnapshot(snapshot)); err != nil {
		return fmt.Errorf("project game %s: %w", snapshot.ID, err)
	}
	p.count(ctx, "projected")
	p.logger.Info("game projected", "game_id", snapshot.ID, "removed", snapshot.Removed)
	return nil
}

func (p *Projector) count(ctx context.Context, outcome string) {
	p.projected.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
