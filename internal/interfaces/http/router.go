// Package http wires the HTTP interface: routing, middleware, and the
// server lifecycle.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/interfaces/http/handlers"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the router needs.  Nil handlers simply
// leave their routes unregistered, which keeps partial wiring usable in
// tests and in the CLI-only deployment.
type RouterConfig struct {
	Logger        logging.Logger
	Metrics       *prometheus.Metrics
	AnswerHandler *handlers.AnswerHandler
	CacheHandler  *handlers.CacheHandler
	IndexHandler  *handlers.IndexHandler
	HealthHandler *handlers.HealthHandler
}

// NewRouter builds the gin engine with the middleware chain and all
// registered routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger))
	}
	r.Use(gin.Recovery())

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	registerAnswerRoutes(v1, cfg.AnswerHandler)
	registerCacheRoutes(v1, cfg.CacheHandler)
	registerIndexRoutes(v1, cfg.IndexHandler)
	return r
}

func registerAnswerRoutes(g *gin.RouterGroup, h *handlers.AnswerHandler) {
	if h == nil {
		return
	}
	g.POST("/answers", h.Answer)
}

func registerCacheRoutes(g *gin.RouterGroup, h *handlers.CacheHandler) {
	if h == nil {
		return
	}
	g.GET("/cache/stats", h.Stats)
	g.POST("/cache/invalidate", h.Invalidate)
	g.POST("/cache/sweep", h.Sweep)
}

func registerIndexRoutes(g *gin.RouterGroup, h *handlers.IndexHandler) {
	if h == nil {
		return
	}
	g.POST("/index/records", h.IndexRecords)
}
