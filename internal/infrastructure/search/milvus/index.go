package milvus

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// Index exposes the record collection as the engine's similarity-index
// boundary: Query for retrieval, InsertBatch for the ingestion service.
type Index struct {
	client *Client
	cfg    CollectionConfig
	logger logging.Logger
}

// NewIndex wraps an established client and collection.
func NewIndex(c *Client, cfg CollectionConfig, logger logging.Logger) *Index {
	if cfg.MetricType == "" {
		cfg.MetricType = entity.L2
	}
	return &Index{client: c, cfg: cfg, logger: logger}
}

// Query returns up to topK nearest records for the given embedding, with the
// index's native distances.  Errors carry ErrCodeIndexUnavailable; the search
// engine above translates them into an empty hit set.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]biopharma.IndexMatch, error) {
	if len(vector) == 0 || topK <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "vector and positive topK are required")
	}

	ctx, cancel := ix.client.requestCtx(ctx)
	defer cancel()

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build search param")
	}

	outputs := append([]string{fieldID}, metadataFields...)
	results, err := ix.client.Raw().Search(
		ctx, ix.cfg.Name, nil, "", outputs,
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, ix.cfg.MetricType, topK, sp,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIndexUnavailable, "similarity query failed")
	}

	var matches []biopharma.IndexMatch
	for _, res := range results {
		if res.Err != nil {
			return nil, errors.Wrap(res.Err, errors.ErrCodeIndexUnavailable, "similarity query partial failure")
		}
		for i := 0; i < res.ResultCount; i++ {
			matches = append(matches, biopharma.IndexMatch{
				Record:   recordAt(res.Fields, i),
				Distance: float64(res.Scores[i]),
			})
		}
	}
	return matches, nil
}

// InsertBatch stores records with their embeddings and flushes the segment.
// records and vectors must be parallel slices.
func (ix *Index) InsertBatch(ctx context.Context, records []biopharma.SourceRecord, vectors [][]float32) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if len(records) != len(vectors) {
		return 0, errors.New(errors.ErrCodeValidation, "records and vectors length mismatch")
	}

	ctx, cancel := ix.client.requestCtx(ctx)
	defer cancel()

	cols := buildColumns(records, vectors, ix.cfg.EmbeddingDim)
	if _, err := ix.client.Raw().Insert(ctx, ix.cfg.Name, "", cols...); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeIndexWriteFailed, "insert failed")
	}
	if err := ix.client.Raw().Flush(ctx, ix.cfg.Name, false); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeIndexWriteFailed, "flush failed")
	}

	ix.logger.Info("records indexed",
		logging.String("collection", ix.cfg.Name),
		logging.Int("count", len(records)),
	)
	return len(records), nil
}

// buildColumns lays records out as parallel varchar columns plus the vector
// column, in schema order.
func buildColumns(records []biopharma.SourceRecord, vectors [][]float32, dim int) []entity.Column {
	n := len(records)
	ids := make([]string, n)
	meta := make(map[string][]string, len(metadataFields))
	for _, f := range metadataFields {
		meta[f] = make([]string, n)
	}
	for i, r := range records {
		ids[i] = r.ID
		meta["source"][i] = string(r.Tier)
		meta["generic_name"][i] = r.GenericName
		meta["brand_name"][i] = r.BrandName
		meta["company"][i] = r.Company
		meta["target"][i] = r.Target
		meta["mechanism"][i] = r.Mechanism
		meta["drug_class"][i] = r.DrugClass
		meta["indication"][i] = r.Indication
		meta["phase"][i] = r.Phase
		meta["status"][i] = r.Status
		meta["nct_id"][i] = r.NCTID
	}

	cols := []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldVector, dim, vectors),
	}
	for _, f := range metadataFields {
		cols = append(cols, entity.NewColumnVarChar(f, meta[f]))
	}
	return cols
}

// recordAt reconstructs a SourceRecord from row i of a query result set.
// Missing columns yield empty fields, never a failure; the aggregator treats
// incomplete records per its malformed-record policy.
func recordAt(rs client.ResultSet, i int) biopharma.SourceRecord {
	return biopharma.SourceRecord{
		ID:          stringAt(rs, fieldID, i),
		Tier:        biopharma.SourceTier(stringAt(rs, "source", i)),
		GenericName: stringAt(rs, "generic_name", i),
		BrandName:   stringAt(rs, "brand_name", i),
		Company:     stringAt(rs, "company", i),
		Target:      stringAt(rs, "target", i),
		Mechanism:   stringAt(rs, "mechanism", i),
		DrugClass:   stringAt(rs, "drug_class", i),
		Indication:  stringAt(rs, "indication", i),
		Phase:       stringAt(rs, "phase", i),
		Status:      stringAt(rs, "status", i),
		NCTID:       stringAt(rs, "nct_id", i),
	}
}

func stringAt(rs client.ResultSet, name string, i int) string {
	col := rs.GetColumn(name)
	if col == nil {
		return ""
	}
	vc, ok := col.(*entity.ColumnVarChar)
	if !ok {
		return ""
	}
	v, err := vc.ValueByIdx(i)
	if err != nil {
		return ""
	}
	return v
}
