package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
)

// Pinger checks one backing dependency.
type Pinger func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pingers map[string]Pinger
	logger  logging.Logger
	timeout time.Duration
}

// NewHealthHandler builds the probe handler.  Each named pinger becomes one
// readiness check; liveness never touches dependencies.
func NewHealthHandler(logger logging.Logger, pingers map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		pingers: pingers,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz handles GET /readyz.  It pings every dependency and reports 503 if
// any check fails.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.pingers))
	ready := true
	for name, ping := range h.pingers {
		if err := ping(ctx); err != nil {
			ready = false
			checks[name] = err.Error()
			h.logger.Warn("readiness check failed",
				logging.String("check", name), logging.Err(err))
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
