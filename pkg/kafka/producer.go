package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds Kafka configuration
type Config struct {
	Brokers    []string
	PriceTopic string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, priceTopic string) Config {
	var brokerList []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokerList = append(brokerList, b)
		}
	}

	return Config{
		Brokers:    brokerList,
		PriceTopic: priceTopic,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes price snapshots to Kafka
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.PriceTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Dev brokers may not have the topic yet
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, cfg.PriceTopic, logger)
}

func newProducer(w messageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: w,
		logger: logger,
		topic:  topic,
	}
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PriceSnapshotMessage is the Kafka payload for a persisted version price
type PriceSnapshotMessage struct {
	models.PriceSnapshot

	TraceID string `json:"trace_id,omitempty"`
}

// PublishPrice publishes one price snapshot keyed by the version's natural key,
// so every snapshot of a version lands on the same partition.
func (p *Producer) PublishPrice(ctx context.Context, snapshot models.PriceSnapshot) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishPrice")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("vehicle_type", snapshot.VehicleType.String()),
		attribute.String("version_code", snapshot.VersionCode),
	)

	if snapshot.ObservedAt.IsZero() {
		snapshot.ObservedAt = time.Now().UTC()
	}

	msg := PriceSnapshotMessage{
		PriceSnapshot: snapshot,
		TraceID:       tracing.GetTraceID(ctx),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		return fmt.Errorf("failed to marshal price snapshot: %w", err)
	}

	headers := []kafka.Header{
		{Key: "run_id", Value: []byte(snapshot.RunID)},
		{Key: "vehicle_type", Value: []byte(snapshot.VehicleType.String())},
		{Key: "type", Value: []byte("price.snapshot")},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(snapshot.Key()),
		Value:   data,
		Headers: headers,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish price snapshot to Kafka topic %s", p.topic)
		return err
	}

	p.logger.WithContext(ctx).Debugf("Published price snapshot %s to %s", snapshot.Key(), p.topic)
	return nil
}
