package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "kafka producer closed")

// ProducerConfig holds settings for the event producer.
type ProducerConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes index-lifecycle events.
type Producer struct {
	writer writerInterface
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer creates a Producer over the given brokers.
func NewProducer(cfg ProducerConfig, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, logger: logger}, nil
}

// PublishIndexRebuilt announces an index rebuild.
func (p *Producer) PublishIndexRebuilt(ctx context.Context, ev IndexRebuiltEvent) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if ev.RebuiltAt.IsZero() {
		ev.RebuiltAt = time.Now()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode index event")
	}
	msg := kafka.Message{
		Topic: TopicIndexRebuilt,
		Key:   []byte(ev.Collection),
		Value: value,
		Time:  ev.RebuiltAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "publish index event failed")
	}
	p.logger.Debug("published index-rebuilt event",
		logging.String("collection", ev.Collection),
		logging.Int("record_count", ev.RecordCount))
	return nil
}

// Close flushes and closes the writer. Idempotent.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	if err != nil {
		p.logger.Error("failed to close kafka producer", logging.Err(err))
		return err
	}
	p.logger.Info("kafka producer closed")
	return nil
}
