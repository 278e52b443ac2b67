package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/platform/events"
)

type recordingInvalidator struct {
	keys []string
	err  error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...string) error {
	r.keys = append(r.keys, keys...)
	return r.err
}

func contentMessage(t *testing.T, entity string) Message {
	t.Helper()
	payload, err := json.Marshal(events.ContentChanged{Entity: entity, EntityID: "id-1", Action: events.ActionUpdated, OccurredAt: time.Now().UTC()})
	require.NoError(t, err)
	return Message{Topic: events.TopicContent, EventType: events.TypeContentChanged, Payload: payload}
}

func TestCacheInvalidationHandler(t *testing.T) {
	logger, _ := test.NewNullLogger()
	inv := &recordingInvalidator{}
	h := NewCacheInvalidationHandler(inv, logger)

	require.NoError(t, h.Handle(context.Background(), contentMessage(t, events.EntityCategory)))
	require.NoError(t, h.Handle(context.Background(), contentMessage(t, events.EntityDiagnosticQuestion)))
	require.NoError(t, h.Handle(context.Background(), contentMessage(t, events.EntityResource)))
	require.Equal(t, []string{cache.KeyCategories, cache.KeyDiagnosticQuestions}, inv.keys)

	require.NoError(t, h.Handle(context.Background(), Message{EventType: events.TypeReportCreated, Payload: json.RawMessage(`{}`)}))
	require.Len(t, inv.keys, 2)
}

func TestCacheInvalidationHandlerErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := NewCacheInvalidationHandler(&recordingInvalidator{err: errors.New("redis down")}, logger)

	err := h.Handle(context.Background(), contentMessage(t, events.EntityBreathingExercise))
	require.ErrorContains(t, err, "redis down")

	err = h.Handle(context.Background(), Message{EventType: events.TypeContentChanged, Payload: json.RawMessage(`not json`)})
	require.ErrorContains(t, err, "decode content.changed")
}
