package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roomclean/internal/pkg/logger"
	"roomclean/internal/pkg/response"
)

// ErrorLogger logs failed requests and recovers from panics.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				requestLogger(c, start).Error("panic recovered",
					zap.Error(err),
					zap.ByteString("stack", debug.Stack()),
				)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			if len(c.Errors) == 0 {
				if c.Writer.Status() >= http.StatusInternalServerError {
					requestLogger(c, start).Error("request failed")
				}
				return
			}

			log := requestLogger(c, start)
			for _, e := range c.Errors {
				fields := []zap.Field{zap.Error(e.Err), zap.Uint64("type", uint64(e.Type))}
				if e.Meta != nil {
					fields = append(fields, zap.Any("meta", e.Meta))
				}
				log.Error("request error", fields...)
			}
		}()

		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requestLogger(c, start).Info("request")
	}
}

func requestLogger(c *gin.Context, start time.Time) *zap.Logger {
	return logger.FromCtx(c.Request.Context()).With(
		zap.Int("status", c.Writer.Status()),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("client_ip", c.ClientIP()),
		zap.Int64("user_id", c.GetInt64(ctxUserID)),
		zap.String("role", c.GetString(ctxRole)),
		zap.Duration("latency", time.Since(start)),
	)
}
