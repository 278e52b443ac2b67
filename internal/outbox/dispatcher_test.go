package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/platform/events"
)

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: append([]kafka.Message(nil), msgs...)})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(_ context.Context, subject string, _ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, subject)
	if s.err != nil {
		return 0, s.err
	}
	return s.id, nil
}

func newTestDispatcher(producer MessageWriter, registry SchemaRegistrar) *Dispatcher {
	logger, _ := test.NewNullLogger()
	return NewDispatcher(nil, producer, registry, logger, 10*time.Millisecond, 10)
}

func TestDeliverGroupsByTopicAndFramesPayload(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := newTestDispatcher(producer, registry)

	messages := []Message{
		{EventID: 1, EventType: events.TypeReportCreated, Topic: events.TopicReports, SchemaSubject: "reports-created", PartitionKey: "r1", Payload: json.RawMessage(`{"report_id":"r1"}`)},
		{EventID: 2, EventType: events.TypeContentChanged, Topic: events.TopicContent, SchemaSubject: "content", PartitionKey: "category", Payload: json.RawMessage(`{"entity":"category"}`)},
		{EventID: 3, EventType: events.TypeReportCreated, Topic: events.TopicReports, SchemaSubject: "reports-created", PartitionKey: "r2", Payload: json.RawMessage(`{"report_id":"r2"}`)},
	}
	require.NoError(t, d.deliver(context.Background(), messages))

	require.Len(t, producer.writes, 2)
	require.Equal(t, events.TopicReports, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 2)
	require.Equal(t, events.TopicContent, producer.writes[1].topic)
	require.Len(t, registry.calls, 2, "schema ids are cached per subject")

	first := producer.writes[0].messages[0]
	require.Equal(t, []byte("r1"), first.Key)
	schemaID, payload, err := DecodeWireFormat(first.Value)
	require.NoError(t, err)
	require.Equal(t, 42, schemaID)
	require.JSONEq(t, `{"report_id":"r1"}`, string(payload))
	require.Contains(t, first.Headers, kafka.Header{Key: HeaderEventType, Value: []byte(events.TypeReportCreated)})
	require.Contains(t, first.Headers, kafka.Header{Key: HeaderSchemaSubject, Value: []byte("reports-created")})
}

func TestDeliverRejectsUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 1}
	d := newTestDispatcher(producer, registry)

	err := d.deliver(context.Background(), []Message{{EventType: "mystery", Topic: "x"}})
	require.ErrorContains(t, err, "no schema metadata for event_type=mystery")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverPropagatesFailures(t *testing.T) {
	msg := Message{EventType: events.TypeContentChanged, Topic: events.TopicContent, SchemaSubject: "content", Payload: json.RawMessage(`{}`)}

	d := newTestDispatcher(&stubProducer{}, &stubRegistry{err: errors.New("registry down")})
	require.ErrorContains(t, d.deliver(context.Background(), []Message{msg}), "registry down")

	d = newTestDispatcher(&stubProducer{err: errors.New("broker down")}, &stubRegistry{id: 3})
	require.ErrorContains(t, d.deliver(context.Background(), []Message{msg}), "broker down")
}

func TestWireFormat(t *testing.T) {
	framed := encodeWireFormat(258, []byte("{}"))
	require.Equal(t, []byte{0, 0, 0, 1, 2, '{', '}'}, framed)

	_, _, err := DecodeWireFormat([]byte{1, 2})
	require.Error(t, err)
}

func TestBackoffDelayIsCapped(t *testing.T) {
	m := &DLQManager{baseDelay: time.Minute}
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(8))
	require.Equal(t, time.Hour, m.backoffDelay(100))
}

func TestSchemaRegistryRegistersMissingSubject(t *testing.T) {
	var registered string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/known/versions/latest":
			_, _ = w.Write([]byte(`{"id": 5}`))
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/fresh/versions":
			body, _ := io.ReadAll(r.Body)
			registered = string(body)
			_, _ = w.Write([]byte(`{"id": 9}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")

	id, err := client.EnsureSchema(context.Background(), "known", contentChangedSchema)
	require.NoError(t, err)
	require.Equal(t, 5, id)

	id, err = client.EnsureSchema(context.Background(), "fresh", contentChangedSchema)
	require.NoError(t, err)
	require.Equal(t, 9, id)
	require.Contains(t, registered, `"schemaType":"JSON"`)
}

func TestSchemaRegistryServerErrorIsNotRetriedAsRegistration(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "any", "{}")
	require.Error(t, err)
	require.Zero(t, posts)
}

func TestSchemaCatalogCoversEveryEvent(t *testing.T) {
	for _, eventType := range []string{events.TypeReportCreated, events.TypeReportStatusChanged, events.TypeDiagnosticCompleted, events.TypeContentChanged} {
		require.True(t, KnownEventType(eventType), eventType)
		var schema map[string]any
		require.NoError(t, json.Unmarshal([]byte(schemaCatalog[eventType].Schema), &schema), eventType)
	}
}
