package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// Answerer resolves a natural-language question to an answer envelope.
type Answerer interface {
	Answer(ctx context.Context, question string) (*biopharma.AnswerResult, error)
}

// AnswerHandler exposes the question-answering entry point.
type AnswerHandler struct {
	answerer Answerer
	logger   logging.Logger
}

// NewAnswerHandler wires the answering service into the HTTP layer.
func NewAnswerHandler(answerer Answerer, logger logging.Logger) *AnswerHandler {
	return &AnswerHandler{answerer: answerer, logger: logger}
}

// AnswerRequest is the POST /api/v1/answers body.
type AnswerRequest struct {
	Question string `json:"question" binding:"required"`
}

// Answer handles POST /api/v1/answers.
func (h *AnswerHandler) Answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "body must be JSON with a non-empty question field")
		return
	}

	result, err := h.answerer.Answer(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
