package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sjperalta/parktime-api/pkg/logger"
)

// RequestIDHeader is read from and echoed on every response
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

// RequestID tags each request with an id, reusing the caller's X-Request-ID when
// it is short enough, and puts it on the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
