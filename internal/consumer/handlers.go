package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/observability"
	"example.com/cesizen/internal/platform/events"
)

// EventLogHandler appends every consumed event to the event_log audit table.
type EventLogHandler struct {
	pool *pgxpool.Pool
}

// NewEventLogHandler constructs a handler backed by the provided pool.
func NewEventLogHandler(pool *pgxpool.Pool) *EventLogHandler {
	return &EventLogHandler{pool: pool}
}

// Handle stores the event. Redelivered records are ignored.
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO event_log (event_type, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}

// CacheInvalidationHandler drops cached read models named by content.changed events.
type CacheInvalidationHandler struct {
	invalidator cache.Invalidator
	logger      logrus.FieldLogger
}

// NewCacheInvalidationHandler constructs a CacheInvalidationHandler.
func NewCacheInvalidationHandler(invalidator cache.Invalidator, logger logrus.FieldLogger) *CacheInvalidationHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CacheInvalidationHandler{invalidator: invalidator, logger: logger}
}

// Handle ignores every event type other than content.changed.
func (h *CacheInvalidationHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeContentChanged {
		return nil
	}
	var change events.ContentChanged
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		return fmt.Errorf("decode content.changed: %w", err)
	}
	observability.RecordContentChange(change.OccurredAt)

	keys := cache.KeysForEntity(change.Entity)
	if len(keys) == 0 {
		return nil
	}
	if err := h.invalidator.Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate %v: %w", keys, err)
	}
	h.logger.WithFields(logrus.Fields{"entity": change.Entity, "entity_id": change.EntityID, "keys": keys}).Debug("cache invalidated")
	return nil
}
