// Package ingest builds the similarity index from source records: validate,
// chunk, embed, insert, then announce the rebuild so cached answers citing
// stale records get dropped.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/messaging/kafka"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// BatchEmbedder turns chunk texts into vectors.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordIndex receives validated records with their vectors and reports how
// many rows the store accepted.
type RecordIndex interface {
	InsertBatch(ctx context.Context, records []biopharma.SourceRecord, vectors [][]float32) (int, error)
}

// EventPublisher announces completed rebuilds.
type EventPublisher interface {
	PublishIndexRebuilt(ctx context.Context, ev kafka.IndexRebuiltEvent) error
}

// Report summarises one indexing run.
type Report struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

const defaultBatchSize = 64

// maxConcurrentBatches bounds parallel embed+insert pipelines.
const maxConcurrentBatches = 4

// Service drives batch indexing.
type Service struct {
	embedder   BatchEmbedder
	index      RecordIndex
	publisher  EventPublisher
	collection string
	batchSize  int
	logger     logging.Logger
	metrics    *prometheus.Metrics
}

// Option customises Service construction.
type Option func(*Service)

// WithPublisher attaches a rebuild-event publisher; without one, rebuilds
// complete silently.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithBatchSize overrides the embed batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMetrics attaches a metrics instance.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires a Service.
func NewService(embedder BatchEmbedder, index RecordIndex, collection string, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		embedder:   embedder,
		index:      index,
		collection: collection,
		batchSize:  defaultBatchSize,
		logger:     logger,
		metrics:    prometheus.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexRecords validates and indexes the given records.  Malformed records
// are skipped and counted, never fatal; an embed or insert failure aborts the
// run with an error.
func (s *Service) IndexRecords(ctx context.Context, records []biopharma.SourceRecord) (*Report, error) {
	report := &Report{}

	valid := make([]biopharma.SourceRecord, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			report.Skipped++
			s.logger.Warn("skipping malformed record",
				logging.String("record_id", r.ID), logging.Err(err))
			continue
		}
		valid = append(valid, r)
	}
	s.metrics.IndexedRecords.WithLabelValues("skipped").Add(float64(report.Skipped))

	if len(valid) == 0 {
		s.logger.Info("nothing to index", logging.Int("skipped", report.Skipped))
		return report, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	var mu sync.Mutex

	for start := 0; start < len(valid); start += s.batchSize {
		end := start + s.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]
		g.Go(func() error {
			n, err := s.indexBatch(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			report.Indexed += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.IndexedRecords.WithLabelValues("failed").Add(float64(len(valid) - report.Indexed))
		return report, err
	}
	s.metrics.IndexedRecords.WithLabelValues("indexed").Add(float64(report.Indexed))

	s.logger.Info("index rebuild complete",
		logging.Int("indexed", report.Indexed),
		logging.Int("skipped", report.Skipped))

	if s.publisher != nil {
		ev := kafka.IndexRebuiltEvent{
			Collection:  s.collection,
			RecordCount: report.Indexed,
			SkippedRows: report.Skipped,
		}
		if err := s.publisher.PublishIndexRebuilt(ctx, ev); err != nil {
			// The index itself is already rebuilt; stale cache entries age
			// out via TTL, so a lost event is only logged.
			s.logger.Warn("failed to publish rebuild event", logging.Err(err))
		}
	}
	return report, nil
}

func (s *Service) indexBatch(ctx context.Context, batch []biopharma.SourceRecord) (int, error) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.ChunkText()
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embed batch failed")
	}
	n, err := s.index.InsertBatch(ctx, batch, vectors)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeIndexWriteFailed, "insert batch failed")
	}
	return n, nil
}

// ParseRecords decodes a JSON array of source records.
func ParseRecords(r io.Reader) ([]biopharma.SourceRecord, error) {
	var records []biopharma.SourceRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode records")
	}
	return records, nil
}
