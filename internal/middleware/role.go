package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/response"
)

// RequireRole lets the request through only for one of the given roles.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	allowed := make(map[domain.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}
		if !allowed[actor.Role] {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}

func CustomerOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleCustomer)
}
