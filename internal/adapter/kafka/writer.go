// Package kafka publishes dataset snapshots to a sink topic so downstream
// consumers can track every fresh build.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ecobolig/housing-energy-etl/internal/config"
	"github.com/ecobolig/housing-energy-etl/internal/domain"
)

// Writer produces dataset snapshot messages to a Kafka topic.
// It implements pipeline.SnapshotPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishDataset serializes every joined record of the dataset and publishes
// them in a single WriteMessages call. The fingerprint header lets consumers
// group messages belonging to one build.
func (w *Writer) PublishDataset(ctx context.Context, ds *domain.Dataset) error {
	if len(ds.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ds.Records))
	for i := range ds.Records {
		msg, err := serializeToMessage(ds.Records[i], ds.Fingerprint, ds.BuiltAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot messages: %w", err)
	}
	w.logger.Info("snapshot published", "fingerprint", ds.Fingerprint, "records", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one joined record into a Kafka message. The key
// is the record's period identity so compacted topics retain the latest value
// per period.
func serializeToMessage(record domain.JoinedRecord, fingerprint string, builtAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize joined record: %w", err)
	}
	key := record.BuildingID + "|" + strconv.Itoa(record.Year) + "|" + strconv.Itoa(record.Month)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "fingerprint", Value: []byte(fingerprint)},
			{Key: "built_at", Value: []byte(builtAt.Format(time.RFC3339))},
		},
	}, nil
}
