// Package middleware holds the HTTP middleware chain: request IDs and
// structured request logging.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request ID on requests and responses.
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID assigns every request a UUID unless the client supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the request's ID, or "" outside the middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
