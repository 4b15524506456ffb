package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// ConsumerConfig holds settings for the reindex-event consumer.
type ConsumerConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	GroupID  string   `mapstructure:"group_id"`
	Topic    string   `mapstructure:"topic"`
	MinBytes int      `mapstructure:"min_bytes"`
	MaxBytes int      `mapstructure:"max_bytes"`
}

// IndexEventHandler reacts to one index-rebuilt event.  Returning an error
// logs the failure; the consumer moves on either way, since a missed cache
// invalidation only delays freshness until the TTL lapses.
type IndexEventHandler func(ctx context.Context, ev IndexRebuiltEvent) error

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer consumes index-rebuilt events and dispatches them to a handler.
type Consumer struct {
	reader  readerInterface
	handler IndexEventHandler
	logger  logging.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a Consumer for the configured topic.
func NewConsumer(cfg ConsumerConfig, handler IndexEventHandler, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group id required")
	}
	if handler == nil {
		return nil, errors.New(errors.ErrCodeValidation, "event handler required")
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicIndexRebuilt
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 * 1024 * 1024
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, handler: handler, logger: logger}, nil
}

// Start launches the consume loop in the background.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)
	c.logger.Info("kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}

		c.dispatch(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.Err(err))
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, m kafka.Message) {
	var ev IndexRebuiltEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.logger.Warn("dropping undecodable index event",
			logging.Int64("offset", m.Offset), logging.Err(err))
		return
	}
	if err := c.handler(ctx, ev); err != nil {
		c.logger.Error("index event handler failed",
			logging.String("collection", ev.Collection), logging.Err(err))
		return
	}
	c.logger.Info("processed index-rebuilt event",
		logging.String("collection", ev.Collection),
		logging.Int("record_count", ev.RecordCount))
}

// Close stops the loop and releases the reader. Idempotent.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	c.logger.Info("kafka consumer closed")
	return err
}
