// Package export publishes delta events and dispatched alerts to a Kafka
// topic for downstream consumers (archival, fan-out to other services).
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// Writer produces pipeline records to the export topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the export topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishEvents publishes every delta event in a single WriteMessages call.
func (w *Writer) PublishEvents(ctx context.Context, events []domain.Earthquake) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := eventMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish delta events: %w", err)
	}
	w.metrics.ExportedRecords.Add(float64(len(msgs)))
	return nil
}

// PublishAlert publishes one dispatched alert.
func (w *Writer) PublishAlert(ctx context.Context, alert domain.AlertMessage) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("serialize alert: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(alert.Origin),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte("alert")},
			{Key: "created_at", Value: []byte(alert.CreatedAt.Format(time.RFC3339))},
		},
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	w.metrics.ExportedRecords.Inc()
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// eventMessage marshals an Earthquake into a Kafka message keyed by event ID
// so replays and compaction dedupe naturally.
func eventMessage(ev domain.Earthquake) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte("earthquake")},
			{Key: "severity", Value: []byte(ev.Severity)},
		},
	}, nil
}
