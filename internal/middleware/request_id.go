package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roomclean/internal/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// RequestID propagates or mints a request id and puts it on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
