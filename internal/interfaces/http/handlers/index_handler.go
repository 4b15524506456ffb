package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/ingest"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// Indexer embeds and indexes a batch of source records.
type Indexer interface {
	IndexRecords(ctx context.Context, records []biopharma.SourceRecord) (*ingest.Report, error)
}

// IndexHandler exposes record ingestion over HTTP.
type IndexHandler struct {
	indexer Indexer
	logger  logging.Logger
}

// NewIndexHandler wires the ingest service into the HTTP layer.
func NewIndexHandler(indexer Indexer, logger logging.Logger) *IndexHandler {
	return &IndexHandler{indexer: indexer, logger: logger}
}

// IndexRecords handles POST /api/v1/index/records.  The body is a JSON array
// of source records; malformed rows are skipped and counted, not fatal.
func (h *IndexHandler) IndexRecords(c *gin.Context) {
	records, err := ingest.ParseRecords(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "body must be a JSON array of source records")
		return
	}
	if len(records) == 0 {
		respondBadRequest(c, "at least one record is required")
		return
	}

	report, err := h.indexer.IndexRecords(c.Request.Context(), records)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("records indexed via api",
		logging.Int("indexed", report.Indexed),
		logging.Int("skipped", report.Skipped))
	c.JSON(http.StatusOK, report)
}
