package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL UNIQUE,
	aggregate_id TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data BLOB NOT NULL,
	version INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (aggregate_id, version)
);
`

// SQLiteStore is a single-file event store for local development and tests.
type SQLiteStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection keeps the version check and
	// the insert on the same lock.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		tracer: otel.Tracer("gamenexus/eventstore"),
	}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, event Event) error {
	ctx, span := s.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", event.AggregateID.String()),
			attribute.String("event.type", event.EventType),
			attribute.Int("event.version", event.Version),
		),
	)
	defer span.End()

	event, err := prepare(event)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = ?`,
		event.AggregateID.String(),
	).Scan(&currentVersion)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query current version: %w", err)
	}
	if currentVersion+1 != event.Version {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return ErrConcurrencyConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (event_id, aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.EventID.String(),
		event.AggregateID.String(),
		event.AggregateType,
		event.EventType,
		[]byte(event.EventData),
		event.Version,
		event.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		WHERE aggregate_id = ?
		ORDER BY version ASC
	`, aggregateID.String())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanSQLiteEvents(rows)
}

func (s *SQLiteStore) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
	`, fromID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}
	defer rows.Close()

	return scanSQLiteEvents(rows)
}

func scanSQLiteEvents(rows *sql.Rows) ([]Event, error) {
	events := []Event{}
	for rows.Next() {
		var (
			event       Event
			eventID     string
			aggregateID string
			data        []byte
			createdAt   int64
		)
		err := rows.Scan(
			&event.ID,
			&eventID,
			&aggregateID,
			&event.AggregateType,
			&event.EventType,
			&data,
			&event.Version,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if event.EventID, err = uuid.Parse(eventID); err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		if event.AggregateID, err = uuid.Parse(aggregateID); err != nil {
			return nil, fmt.Errorf("parse aggregate id: %w", err)
		}
		event.EventData = data
		event.CreatedAt = time.Unix(0, createdAt).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
