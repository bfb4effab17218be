// internal/search/postgres.go
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const documentSchema = `
CREATE TABLE IF NOT EXISTS game_documents (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	release_date TIMESTAMPTZ NOT NULL,
	price NUMERIC NOT NULL,
	discount INT NOT NULL,
	value NUMERIC NOT NULL,
	removed BOOLEAN NOT NULL DEFAULT FALSE,
	search tsvector GENERATED ALWAYS AS (to_tsvector('english', name || ' ' || description)) STORED
);
CREATE INDEX IF NOT EXISTS game_documents_search_idx ON game_documents USING GIN (search);
CREATE INDEX IF NOT EXISTS game_documents_name_idx ON game_documents (name);
`

const documentColumns = `id, name, description, release_date, price, discount, value, removed`

const upsertDocument = `
INSERT INTO game_documents (id, name, description, release_date, price, discount, value, removed)
VALUES (:id, :name, :description, :release_date, :price, :discount, :value, :removed)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	release_date = EXCLUDED.release_date,
	price = EXCLUDED.price,
	discount = EXCLUDED.discount,
	value = EXCLUDED.value,
	removed = EXCLUDED.removed
`

// PostgresRepository stores documents in Postgres and searches them with
// its full-text engine.
type PostgresRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, tracer: otel.Tracer("gamenexus/search")}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, documentSchema); err != nil {
		return fmt.Errorf("create document schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	ctx, span := r.tracer.Start(ctx, "search.get_by_id", trace.WithAttributes(attribute.String("game.id", id.String())))
	defer span.End()

	return r.getOne(ctx, `SELECT `+documentColumns+` FROM game_documents WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*Document, error) {
	ctx, span := r.tracer.Start(ctx, "search.get_by_name")
	defer span.End()

	return r.getOne(ctx, `SELECT `+documentColumns+` FROM game_documents WHERE name = $1 ORDER BY id LIMIT 1`, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*Document, error) {
	var doc Document
	if err := r.db.GetContext(ctx, &doc, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]Document, error) {
	ctx, span := r.tracer.Start(ctx, "search.list")
	defer span.End()

	offset, limit = NormalizePage(offset, limit)
	docs := []Document{}
	err := r.db.SelectContext(ctx, &docs,
		`SELECT `+documentColumns+` FROM game_documents ORDER BY name, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Search ORs a prefix match of every query word over name and description,
// and falls back to a case-insensitive substring match on the name.
func (r *PostgresRepository) Search(ctx context.Context, term string, offset, limit int) ([]Document, error) {
	ctx, span := r.tracer.Start(ctx, "search.search", trace.WithAttributes(attribute.String("search.term", term)))
	defer span.End()

	words := searchTerms(term)
	if len(words) == 0 {
		return []Document{}, nil
	}
	for i, w := range words {
		words[i] = w + ":*"
	}
	tsquery := strings.Join(words, " | ")
	like := "%" + escapeLike(strings.TrimSpace(term)) + "%"

	offset, limit = NormalizePage(offset, limit)
	docs := []Document{}
	err := r.db.SelectContext(ctx, &docs, `
		SELECT `+documentColumns+`
		FROM game_documents
		WHERE search @@ to_tsquery('english', $1) OR name ILIKE $2
		ORDER BY ts_rank(search, to_tsquery('english', $1)) DESC, name, id
		LIMIT $3 OFFSET $4`,
		tsquery, like, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	span.SetAttributes(attribute.Int("search.hits", len(docs)))
	return docs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresRepository) Upsert(ctx context.Context, doc Document) error {
	ctx, span := r.tracer.Start(ctx, "search.upsert", trace.WithAttributes(attribute.String("game.id", doc.ID.String())))
	defer span.End()

	if _, err := r.db.NamedExecContext(ctx, upsertDocument, doc); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// BulkUpsert writes all documents in one transaction.
func (r *PostgresRepository) BulkUpsert(ctx context.Context, docs []Document) error {
	ctx, span := r.tracer.Start(ctx, "search.bulk_upsert", trace.WithAttributes(attribute.Int("documents", len(docs))))
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertDocument)
	if err != nil {
		return fmt.Errorf("prepare bulk upsert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	return tx.Commit()
}
