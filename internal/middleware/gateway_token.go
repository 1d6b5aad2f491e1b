package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/logger"
	"roomclean/internal/pkg/response"
)

// GatewayToken protects the payment callback with a static bearer token and
// marks the caller as the payment gateway.
func GatewayToken(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			logGatewayFailure(c, http.StatusInternalServerError, "token_not_configured")
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Gateway token is not configured")
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			logGatewayFailure(c, http.StatusUnauthorized, "missing_auth")
			response.Abort(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logGatewayFailure(c, http.StatusUnauthorized, "invalid_auth_format")
			response.Abort(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			logGatewayFailure(c, http.StatusForbidden, "invalid_token")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "Invalid gateway token")
			return
		}

		gw := domain.GatewayActor()
		c.Set(ctxUserID, gw.ID)
		c.Set(ctxRole, string(gw.Role))
		c.Next()
	}
}

func logGatewayFailure(c *gin.Context, status int, reason string) {
	logger.FromCtx(c.Request.Context()).Warn("gateway auth failed",
		zap.Int("status", status),
		zap.String("reason", reason),
		zap.String("client_ip", c.ClientIP()),
	)
}
