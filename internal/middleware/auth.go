package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/jwt"
	"roomclean/internal/pkg/response"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxLocale = "locale"
)

// JWTAuth verifies the bearer token and stores the caller in the gin context.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		// Browsers cannot set headers on a websocket handshake.
		if header == "" && websocket.IsWebSocketUpgrade(c.Request) {
			if token := c.Query("access_token"); token != "" {
				header = "Bearer " + token
			}
		}
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, jwt.ErrInvalidClaims) {
				code = "INVALID_CLAIMS"
			}
			response.Abort(c, http.StatusUnauthorized, code, "Invalid or expired token")
			return
		}

		role := domain.UserRole(claims.Role)
		if role != domain.RoleCustomer && role != domain.RoleAdmin && role != domain.RoleStaff {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Unknown role")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxLocale, claims.Locale)
		c.Next()
	}
}

// ActorFrom returns the caller stored by JWTAuth or GatewayToken.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	role := c.GetString(ctxRole)
	if role == "" {
		return domain.Actor{}, false
	}
	actor := domain.Actor{
		ID:     c.GetInt64(ctxUserID),
		Role:   domain.UserRole(role),
		Locale: c.GetString(ctxLocale),
	}
	if actor.IsGateway() {
		return actor, true
	}
	return actor, actor.ID > 0
}
