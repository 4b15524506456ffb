package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

// Field names of the record collection.  metadataFields lists everything the
// aggregator needs back from a query, in schema order.
const (
	fieldID     = "id"
	fieldVector = "vector"
)

var metadataFields = []string{
	"source", "generic_name", "brand_name", "company", "target",
	"mechanism", "drug_class", "indication", "phase", "status", "nct_id",
}

// CollectionConfig describes the record collection.
type CollectionConfig struct {
	Name         string
	EmbeddingDim int
	MetricType   entity.MetricType
}

// recordSchema builds the collection schema: a varchar primary key, the
// embedding vector, and one varchar column per metadata field.
func recordSchema(cfg CollectionConfig) *entity.Schema {
	fields := []*entity.Field{
		entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64).WithIsPrimaryKey(true),
		entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(cfg.EmbeddingDim)),
	}
	for _, name := range metadataFields {
		fields = append(fields, entity.NewField().WithName(name).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024))
	}
	return &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "biopartnering drug-program records",
		Fields:         fields,
	}
}

// EnsureCollection creates the record collection, its HNSW index, and loads
// it into memory.  Existing collections are left untouched and only loaded.
func EnsureCollection(ctx context.Context, c *Client, cfg CollectionConfig, logger logging.Logger) error {
	if cfg.Name == "" || cfg.EmbeddingDim <= 0 {
		return errors.New(errors.ErrCodeValidation, "collection name and embedding dim are required")
	}
	if cfg.MetricType == "" {
		cfg.MetricType = entity.L2
	}

	mc := c.Raw()
	has, err := mc.HasCollection(ctx, cfg.Name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to probe collection")
	}

	if !has {
		if err := mc.CreateCollection(ctx, recordSchema(cfg), 2); err != nil {
			return errors.Wrap(err, errors.ErrCodeIndexUnavailable,
				fmt.Sprintf("failed to create collection %q", cfg.Name))
		}
		idx, err := entity.NewIndexHNSW(cfg.MetricType, 16, 200)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to build index definition")
		}
		if err := mc.CreateIndex(ctx, cfg.Name, fieldVector, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to create vector index")
		}
		logger.Info("collection created",
			logging.String("collection", cfg.Name),
			logging.Int("dim", cfg.EmbeddingDim),
		)
	}

	if err := mc.LoadCollection(ctx, cfg.Name, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexUnavailable, "failed to load collection")
	}
	return nil
}
