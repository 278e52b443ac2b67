//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/outbox"
	"example.com/cesizen/internal/platform/events"
)

type syncInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (s *syncInvalidator) Invalidate(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, keys...)
	return nil
}

func (s *syncInvalidator) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func TestContentChangedInvalidatesCacheThroughKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.Run(ctx, "confluentinc/confluent-local:7.5.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: events.TopicContent, NumPartitions: 1, ReplicationFactor: 1}))

	logger, _ := test.NewNullLogger()
	inv := &syncInvalidator{}
	reader := NewKafkaReader(brokers, "cesizen-integration", []string{events.TopicContent})
	defer reader.Close()

	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = NewProcessor(reader, NewCacheInvalidationHandler(inv, logger), WithLogger(logger)).Run(consumerCtx)
	}()

	payload, err := json.Marshal(events.ContentChanged{Entity: events.EntityCategory, EntityID: "c1", Action: events.ActionCreated, OccurredAt: time.Now().UTC()})
	require.NoError(t, err)

	producer := outbox.NewKafkaProducer(brokers)
	defer producer.Close()
	require.NoError(t, producer.WriteMessages(ctx, events.TopicContent, kafka.Message{
		Key:   []byte(events.EntityCategory),
		Value: framed(7, string(payload)),
		Headers: []kafka.Header{
			{Key: outbox.HeaderEventType, Value: []byte(events.TypeContentChanged)},
			{Key: outbox.HeaderSchemaSubject, Value: []byte("cesizen_content-value")},
		},
	}))

	require.Eventually(t, func() bool {
		keys := inv.snapshot()
		return len(keys) == 1 && keys[0] == cache.KeyCategories
	}, time.Minute, 200*time.Millisecond)
}
