// internal/search/reindex.go
package search

import (
	"context"
	"fmt"
	"log/slog"

	"gamenexus/internal/messaging"
)

// SnapshotSource yields the authoritative current state of every game.
type SnapshotSource interface {
	Snapshots(ctx context.Context, fn func(messaging.GameSnapshot) error) error
}

// Reindexer rebuilds the document store from the write side. It is the
// recovery path when published snapshots were lost.
type Reindexer struct {
	source    SnapshotSource
	repo      Repository
	batchSize int
	logger    *slog.Logger
}

func NewReindexer(source SnapshotSource, repo Repository, batchSize int, logger *slog.Logger) *Reindexer {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Reindexer{
		source:    source,
		repo:      repo,
		batchSize: batchSize,
		logger:    logger.With("component", "reindex"),
	}
}

// Reindex overwrites a document for every game and returns how many were written.
func (r *Reindexer) Reindex(ctx context.Context) (int, error) {
	r.logger.Info("reindex started")

	batch := make([]Document, 0, r.batchSize)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.repo.BulkUpsert(ctx, batch); err != nil {
			return fmt.Errorf("write batch after %d documents: %w", written, err)
		}
		written += len(batch)
		batch = batch[:0]
		return nil
	}

	err := r.source.Snapshots(ctx, func(s messaging.GameSnapshot) error {
		batch = append(batch, DocumentFromSnapshot(s))
		if len(batch) < r.batchSize {
			return nil
		}
		return flush()
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		r.logger.Error("reindex failed", "written", written, "error", err)
		return written, fmt.Errorf("reindex: %w", err)
	}

	r.logger.Info("reindex finished", "written", written)
	return written, nil
}
