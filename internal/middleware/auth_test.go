package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomclean/internal/domain"
	"roomclean/internal/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func actorEcho(c *gin.Context) {
	actor, ok := ActorFrom(c)
	c.JSON(http.StatusOK, gin.H{"ok": ok, "id": actor.ID, "role": actor.Role, "locale": actor.Locale})
}

func TestJWTAuth_ValidToken(t *testing.T) {
	tokens := jwt.New("test-secret-123", time.Hour)
	token, err := tokens.GenerateToken(42, "customer", "id")
	require.NoError(t, err)

	router := gin.New()
	router.Use(JWTAuth(tokens))
	router.GET("/protected", actorEcho)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"id":42,"role":"customer","locale":"id"}`, w.Body.String())
}

func TestJWTAuth_Rejections(t *testing.T) {
	tokens := jwt.New("secret", time.Hour)
	foreign, err := jwt.New("other-secret", time.Hour).GenerateToken(1, "admin", "")
	require.NoError(t, err)
	gatewayRole, err := tokens.GenerateToken(1, string(domain.RoleGateway), "")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage", "Bearer invalid-jwt-here", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"gateway role in user token", "Bearer " + gatewayRole, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(JWTAuth(tokens))
			router.GET("/protected", func(c *gin.Context) {
				t.Fatal("handler should not be reached")
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tokens := jwt.New("secret", time.Hour)
	customer, _ := tokens.GenerateToken(7, "customer", "")
	admin, _ := tokens.GenerateToken(1, "admin", "")

	router := gin.New()
	router.Use(JWTAuth(tokens))
	router.GET("/admin", AdminOnly(), actorEcho)

	for token, want := range map[string]int{customer: http.StatusForbidden, admin: http.StatusOK} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	router := gin.New()
	router.GET("/admin", AdminOnly(), actorEcho)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayToken(t *testing.T) {
	router := gin.New()
	router.POST("/callback", GatewayToken("s3cret"), actorEcho)

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token s3cret", http.StatusUnauthorized},
		{"Bearer nope", http.StatusForbidden},
		{"Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/callback", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.header)
		if tc.status == http.StatusOK {
			assert.JSONEq(t, `{"ok":true,"id":0,"role":"payment_gateway","locale":""}`, w.Body.String())
		}
	}
}

func TestGatewayToken_NotConfigured(t *testing.T) {
	router := gin.New()
	router.POST("/callback", GatewayToken(""), actorEcho)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callback", nil)
	req.Header.Set("Authorization", "Bearer ")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
