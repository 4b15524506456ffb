package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
)

// CacheHandler exposes the query-cache administration endpoints.
type CacheHandler struct {
	cache  *querycache.Cache
	logger logging.Logger
}

// NewCacheHandler wires the query cache into the HTTP layer.
func NewCacheHandler(cache *querycache.Cache, logger logging.Logger) *CacheHandler {
	return &CacheHandler{cache: cache, logger: logger}
}

// Stats handles GET /api/v1/cache/stats.
func (h *CacheHandler) Stats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// InvalidateRequest is the POST /api/v1/cache/invalidate body.  An empty or
// absent query drops every entry.
type InvalidateRequest struct {
	Query string `json:"query"`
}

// InvalidateResponse reports how many entries were removed.
type InvalidateResponse struct {
	Removed int `json:"removed"`
}

// Invalidate handles POST /api/v1/cache/invalidate.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var req InvalidateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "body must be JSON with an optional query field")
			return
		}
	}

	removed, err := h.cache.Invalidate(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("cache invalidated via api",
		logging.Int("removed", removed),
		logging.Bool("full", req.Query == ""))
	c.JSON(http.StatusOK, InvalidateResponse{Removed: removed})
}

// Sweep handles POST /api/v1/cache/sweep.
func (h *CacheHandler) Sweep(c *gin.Context) {
	removed, err := h.cache.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, InvalidateResponse{Removed: removed})
}
