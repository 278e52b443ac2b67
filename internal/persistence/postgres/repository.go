// Package postgres persists CesiZen aggregates in Postgres and records their events in the outbox
// table within the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
)

// Repository implements every domain repository on top of a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var (
	_ domain.UserRepository       = (*Repository)(nil)
	_ domain.CategoryRepository   = (*Repository)(nil)
	_ domain.ResourceRepository   = (*Repository)(nil)
	_ domain.DiagnosticRepository = (*Repository)(nil)
	_ domain.InfoRepository       = (*Repository)(nil)
	_ domain.ReportRepository     = (*Repository)(nil)
	_ domain.BreathingRepository  = (*Repository)(nil)
	_ domain.ReportTargets        = (*Repository)(nil)
)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// inTx runs fn in a transaction, committing when it returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeReportCreated: {
		Topic:         events.TopicReports,
		SchemaSubject: events.TopicReports + "-report_created-value",
	},
	events.TypeReportStatusChanged: {
		Topic:         events.TopicReports,
		SchemaSubject: events.TopicReports + "-report_status_changed-value",
	},
	events.TypeDiagnosticCompleted: {
		Topic:         events.TopicDiagnostics,
		SchemaSubject: events.TopicDiagnostics + "-value",
	},
	events.TypeContentChanged: {
		Topic:         events.TopicContent,
		SchemaSubject: events.TopicContent + "-value",
	},
}

// outboxRecord is one event to append to the outbox.
type outboxRecord struct {
	eventType     string
	aggregateType string
	aggregateID   string
	partitionKey  string
	// dedupeKey is set for events that may only be recorded once per aggregate.
	dedupeKey string
	payload   any
}

func insertOutbox(ctx context.Context, tx pgx.Tx, rec outboxRecord) error {
	meta, ok := eventCatalog[rec.eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", rec.eventType)
	}
	body, err := json.Marshal(rec.payload)
	if err != nil {
		return err
	}
	partitionKey := rec.partitionKey
	if partitionKey == "" {
		partitionKey = rec.aggregateID
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		rec.aggregateType,
		rec.aggregateID,
		rec.eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		nullIfEmpty(rec.dedupeKey),
	)
	return err
}

// contentChanged builds the outbox record for an editorial write.
func contentChanged(entity, id, action string, at time.Time) outboxRecord {
	return outboxRecord{
		eventType:     events.TypeContentChanged,
		aggregateType: entity,
		aggregateID:   id,
		partitionKey:  entity,
		payload: events.ContentChanged{
			Entity:     entity,
			EntityID:   id,
			Action:     action,
			OccurredAt: at,
		},
	}
}

// execAffecting runs stmt and fails with ErrNotFound when no row matched.
func execAffecting(ctx context.Context, q interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}, entity, id, stmt string, args ...any) error {
	tag, err := q.Exec(ctx, stmt, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missing(entity, id)
	}
	return nil
}

// getOne scans a single row, returning nil when it does not exist.
func getOne[T any](ctx context.Context, pool *pgxpool.Pool, scan pgx.RowToFunc[T], query string, args ...any) (*T, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	item, err := pgx.CollectOneRow(rows, scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// list scans every row of query.
func list[T any](ctx context.Context, pool *pgxpool.Pool, scan pgx.RowToFunc[T], query string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

func count(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (int, error) {
	var n int
	if err := pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// translate maps constraint violations onto domain errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrConflict)
		case "23503":
			return fmt.Errorf("%s still referenced: %w", pgErr.TableName, domain.ErrConflict)
		}
	}
	return err
}

func missing(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
