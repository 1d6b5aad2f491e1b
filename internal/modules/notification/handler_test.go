package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomclean/internal/domain"
	"roomclean/internal/middleware"
	"roomclean/internal/pkg/clock"
	"roomclean/internal/pkg/jwt"
)

func TestHandler_Inbox(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := setupStore(t)
	clk := clock.NewManual(t0)
	em := NewEmitter(clk)
	ctx := context.Background()
	require.NoError(t, queue(ctx, em, store, domain.AdminPool(), domain.NotifOrderCreated, "New order", "", orderRef(1)))
	require.NoError(t, queue(ctx, em, store, domain.AdminPool(), domain.NotifOrderRated, "Rated", "", orderRef(1)))

	tokens := jwt.New("notif-secret", time.Hour)
	r := gin.New()
	NewHandler(NewService(store, clk, nil), NewHub(), nil).RegisterRoutes(r.Group("/api/v1", middleware.JWTAuth(tokens)))

	adminToken, err := tokens.GenerateToken(adminA.ID, string(adminA.Role), "")
	require.NoError(t, err)
	customerToken, err := tokens.GenerateToken(customer.ID, string(customer.Role), "")
	require.NoError(t, err)

	do := func(token, method, path string) (int, map[string]any) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	status, body := do(adminToken, http.MethodGet, "/api/v1/notifications?limit=1")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Len(t, data["notifications"], 1)
	assert.EqualValues(t, 2, data["unread_count"])
	id := int64(data["notifications"].([]any)[0].(map[string]any)["id"].(float64))

	status, _ = do(customerToken, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", id))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(adminToken, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", id))
	assert.Equal(t, http.StatusOK, status)

	status, body = do(adminToken, http.MethodGet, "/api/v1/notifications/unread-count")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["unread_count"])

	status, body = do(adminToken, http.MethodPatch, "/api/v1/notifications/read-all")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["updated"])

	status, body = do(adminToken, http.MethodPatch, "/api/v1/notifications/abc/read")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ID", body["error"].(map[string]any)["code"])

	status, body = do(customerToken, http.MethodGet, "/api/v1/notifications")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"].(map[string]any)["notifications"])
}
