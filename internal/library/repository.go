// internal/library/repository.go
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository stores library documents by user.
type Repository interface {
	// GetByUserID returns (nil, nil) when the user has no library yet.
	GetByUserID(ctx context.Context, userID int64) (*Document, error)
	Upsert(ctx context.Context, doc Document) error
}

// RedisRepository keeps each library as one JSON value under library:<userID>.
type RedisRepository struct {
	client redis.UniversalClient
	tracer trace.Tracer
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client, tracer: otel.Tracer("gamenexus/library")}
}

func libraryKey(userID int64) string {
	return "library:" + strconv.FormatInt(userID, 10)
}

func (r *RedisRepository) GetByUserID(ctx context.Context, userID int64) (*Document, error) {
	ctx, span := r.tracer.Start(ctx, "library.get", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	raw, err := r.client.Get(ctx, libraryKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get library %d: %w", userID, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode library %d: %w", userID, err)
	}
	return &doc, nil
}

func (r *RedisRepository) Upsert(ctx context.Context, doc Document) error {
	ctx, span := r.tracer.Start(ctx, "library.upsert", trace.WithAttributes(
		attribute.Int64("user.id", doc.UserID),
		attribute.Int("games", len(doc.GameIDs)),
	))
	defer span.End()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode library %d: %w", doc.UserID, err)
	}
	if err := r.client.Set(ctx, libraryKey(doc.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set library %d: %w", doc.UserID, err)
	}
	return nil
}
