//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/ecobolig/housing-energy-etl/internal/adapter/kafka"
	"github.com/ecobolig/housing-energy-etl/internal/config"
	"github.com/ecobolig/housing-energy-etl/internal/domain"
	"github.com/ecobolig/housing-energy-etl/internal/observability"
	"github.com/ecobolig/housing-energy-etl/internal/pipeline"
)

const testSnapshotTopic = "test-energy-snapshots"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type stubSource struct {
	rows []domain.RawRecord
}

func (s *stubSource) Rows(_ context.Context) ([]domain.RawRecord, error) {
	return s.rows, nil
}

func testSources() pipeline.Sources {
	return pipeline.Sources{
		Buildings: &stubSource{rows: []domain.RawRecord{{
			"project_name": "Moholt 50",
			"city":         "TRONDHEIM",
			"project_type": "studentboliger",
			"lat":          "63,4",
			"lon":          "10,4",
			"Total_BRA":    "100",
		}}},
		Temperature: &stubSource{rows: []domain.RawRecord{{
			"project_name": "Moholt 50",
			"Time":         "jan.22",
			"temperature":  "-4,2",
		}}},
		Electricity: &stubSource{rows: []domain.RawRecord{{
			"project_name": "Moholt 50",
			"year":         "2022",
			"Jan_KwH":      "500",
			"Feb_KwH":      "300",
		}}},
	}
}

// TestSnapshotPublishing wires the dataset builder to a real Kafka broker and
// verifies that a fresh build lands one message per joined record, with the
// build fingerprint in the headers, and that memoized rebuilds publish nothing.
func TestSnapshotPublishing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testSnapshotTopic,
	}
	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	builder := pipeline.New(testSources(), discardLogger(), metrics, writer, domain.DefaultProjectType, 4)

	ds, err := builder.Dataset(ctx)
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)

	// A memoized lookup must not republish.
	_, err = builder.Dataset(ctx)
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSnapshotTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]domain.JoinedRecord, 0, len(ds.Records))
	for len(received) < len(ds.Records) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read snapshot message")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, ds.Fingerprint, headers["fingerprint"])
		_, err = time.Parse(time.RFC3339, headers["built_at"])
		assert.NoError(t, err, "built_at should be valid RFC3339")

		var record domain.JoinedRecord
		require.NoError(t, json.Unmarshal(msg.Value, &record))
		assert.Equal(t, "Moholt 50", record.BuildingID)
		received = append(received, record)
	}

	months := make(map[int]domain.JoinedRecord, len(received))
	for _, r := range received {
		months[r.Month] = r
	}
	require.Contains(t, months, 1)
	require.Contains(t, months, 2)

	jan := months[1]
	require.NotNil(t, jan.KWh)
	assert.InDelta(t, 500, *jan.KWh, 1e-9)
	require.NotNil(t, jan.MeanTemp)
	assert.InDelta(t, -4.2, *jan.MeanTemp, 1e-9)
	require.NotNil(t, jan.YearTotalKWh)
	assert.InDelta(t, 800, *jan.YearTotalKWh, 1e-9)

	// Verify no extra message arrives from the memoized lookup.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message from the memoized build")
}
