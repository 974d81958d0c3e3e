package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/osm-address-etl/internal/config"
	"github.com/couchcryptid/osm-address-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Message header keys.
const (
	HeaderTable = "table"
	HeaderRunID = "run_id"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes one message per output record to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer    messageWriter
	logger    *slog.Logger
	runID     string
	batchSize int
	pending   []kafkago.Message
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
	}
	return newWriter(w, runID, cfg.BatchSize, logger)
}

func newWriter(w messageWriter, runID string, batchSize int, logger *slog.Logger) *Writer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Writer{writer: w, logger: logger, runID: runID, batchSize: batchSize}
}

// Load queues a message for every record of b and publishes once the batch is full.
func (w *Writer) Load(ctx context.Context, b domain.Bundle) error {
	msgs, err := serializeBundle(b, w.runID)
	if err != nil {
		return err
	}
	w.pending = append(w.pending, msgs...)
	if len(w.pending) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush publishes all queued messages in a single WriteMessages call.
func (w *Writer) Flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, w.pending...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(w.pending), err)
	}
	w.logger.Debug("published records", "count", len(w.pending))
	w.pending = w.pending[:0]
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeBundle marshals every record of a bundle into a Kafka message keyed
// by the owning element id, so all records of an element share a partition.
func serializeBundle(b domain.Bundle, runID string) ([]kafkago.Message, error) {
	var msgs []kafkago.Message
	add := func(t domain.Table, record any) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("serialize %s record for %s: %w", t, b.ID(), err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(b.ID()),
			Value: data,
			Headers: []kafkago.Header{
				{Key: HeaderTable, Value: []byte(t)},
				{Key: HeaderRunID, Value: []byte(runID)},
			},
		})
		return nil
	}

	tagTable := domain.TableNodeTags
	switch b.Kind {
	case domain.KindNode:
		if err := add(domain.TableNodes, b.Node); err != nil {
			return nil, err
		}
	case domain.KindWay:
		tagTable = domain.TableWayTags
		if err := add(domain.TableWays, b.Way); err != nil {
			return nil, err
		}
		for _, wn := range b.WayNodes {
			if err := add(domain.TableWayNodes, wn); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("serialize %s: %w", b.Kind, domain.ErrUnsupportedKind)
	}
	for _, tag := range b.Tags {
		if err := add(tagTable, tag); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}
