//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/platform/events"
	"example.com/cesizen/internal/testutil"
)

func TestEventLogHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool, _ := testutil.StartPostgres(t)
	handler := NewEventLogHandler(pool)

	payload := json.RawMessage(`{"report_id":"r1","reporter_id":"u1"}`)
	msg := Message{
		EventType:     events.TypeReportCreated,
		SchemaID:      42,
		SchemaSubject: "cesizen_reports-report_created-value",
		Topic:         events.TopicReports,
		Partition:     0,
		Offset:        5,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var stored []byte
	require.NoError(t, pool.QueryRow(ctx, `SELECT payload FROM event_log LIMIT 1`).Scan(&stored))
	require.JSONEq(t, string(payload), string(stored))
}
