// Package handlers implements the HTTP API surface: question answering,
// cache administration, record ingestion, and health probes.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error to its HTTP status and writes the
// standard error envelope.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    string(code),
		Message: err.Error(),
	})
}

// respondBadRequest rejects a malformed request body or parameter.
func respondBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:    string(errors.ErrCodeBadRequest),
		Message: msg,
	})
}
