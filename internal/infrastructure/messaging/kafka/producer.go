package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/appraisehub/valuation-platform/internal/config"
	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	"github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// Producer implements evidence.ChangePublisher and report publication over
// Kafka.  Messages are keyed by property address so per-property ordering is
// preserved within a partition.
type Producer struct {
	writer *kafka.Writer
	log    logging.Logger
}

// NewProducer constructs a Producer from config.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer, log: log.Named("kafka")}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// evidenceChangedEvent is the wire form of an evidence-change notification.
type evidenceChangedEvent struct {
	PropertyAddress string    `json:"property_address"`
	HasMinimum      bool      `json:"has_minimum"`
	QualifyingCount int       `json:"qualifying_count"`
	ComparableIDs   []string  `json:"comparable_ids"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// PublishEvidenceChanged implements evidence.ChangePublisher.
func (p *Producer) PublishEvidenceChanged(ctx context.Context, address common.PropertyAddress, set *evidence.ComparableSet) error {
	event := evidenceChangedEvent{
		PropertyAddress: address.String(),
		HasMinimum:      set.HasMinimum,
		QualifyingCount: set.QualifyingCount,
		OccurredAt:      time.Now().UTC(),
	}
	for _, id := range set.IDs() {
		event.ComparableIDs = append(event.ComparableIDs, id.String())
	}
	return p.publish(ctx, TopicEvidenceChanged, address.String(), event)
}

// reportCompiledEvent is the wire form of a completed compilation.  The full
// report lives in the artifact store; the event carries enough to fetch it.
type reportCompiledEvent struct {
	PropertyAddress string    `json:"property_address"`
	DocumentHash    string    `json:"document_hash"`
	TotalPages      int       `json:"total_pages"`
	CompiledAt      time.Time `json:"compiled_at"`
}

// PublishReportCompiled implements report publication for the pipeline.
func (p *Producer) PublishReportCompiled(ctx context.Context, r *report.CompiledReport) error {
	event := reportCompiledEvent{
		PropertyAddress: r.PropertyAddress.String(),
		DocumentHash:    r.DocumentHash,
		TotalPages:      r.TotalPages,
		CompiledAt:      r.CompiledAt,
	}
	return p.publish(ctx, TopicReportCompiled, r.PropertyAddress.String(), event)
}

func (p *Producer) publish(ctx context.Context, topic, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event")
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to publish event").
			WithDetail(topic)
	}
	p.log.Debug("event published",
		logging.String("topic", topic),
		logging.String("key", key))
	return nil
}
