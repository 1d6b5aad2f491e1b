package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"roomclean/internal/config"
	"roomclean/internal/database"
	"roomclean/internal/domain"
	"roomclean/internal/pkg/clock"
	"roomclean/internal/repository"
)

const gatewayToken = "test-gateway-token"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type suite struct {
	app      *App
	clock    *clock.Manual
	pkg      *domain.CleaningPackage
	customer string
	admin    string
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	pkg := &domain.CleaningPackage{Name: "Deep clean", BasePrice: decimal.NewFromInt(200000), Active: true, CreatedAt: clk.Now()}
	require.NoError(t, repository.NewPackageRepository(db).Create(context.Background(), pkg))

	cfg := &config.Config{
		AppEnv:          "test",
		JWTSecret:       "server-test-secret",
		JWTTTL:          time.Hour,
		GatewayToken:    gatewayToken,
		LockWait:        time.Second,
		NotifyInterval:  time.Second,
		NotifyBatch:     10,
		NotifyAttempts:  3,
		NotifyRetention: 24 * time.Hour,
		RateLimitRPS:    100,
		RateLimitBurst:  100,
		DefaultLocale:   "en",
	}
	app := New(Options{Config: cfg, DB: db, Log: zap.NewNop(), Clock: clk})

	customerToken, err := app.Tokens.GenerateToken(10, string(domain.RoleCustomer), "en")
	require.NoError(t, err)
	adminToken, err := app.Tokens.GenerateToken(1, string(domain.RoleAdmin), "en")
	require.NoError(t, err)

	return &suite{app: app, clock: clk, pkg: pkg, customer: customerToken, admin: adminToken}
}

func (s *suite) do(t *testing.T, auth, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestHealth(t *testing.T) {
	s := setupSuite(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRoutes_Guards(t *testing.T) {
	s := setupSuite(t)

	status, env := s.do(t, "", http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = s.do(t, s.customer, http.MethodGet, "/api/v1/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, s.admin, http.MethodPost, "/api/v1/orders", gin.H{})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, "wrong-token", http.MethodPost, "/api/v1/payments/callback", gin.H{"order_id": 1, "status": "PAID"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, "", http.MethodGet, "/api/v1/packages", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestFullFlow_OnlinePayment(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()

	status, env := s.do(t, s.customer, http.MethodPost, "/api/v1/orders", gin.H{
		"package_id":     s.pkg.ID,
		"scheduled_at":   s.clock.Now().Add(time.Hour).Format(time.RFC3339),
		"before_photo":   "https://cdn.example/before.jpg",
		"payment_method": "CARD",
	})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	var created struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	orderID := created.Order.ID

	status, env = s.do(t, s.admin, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"unread_count":1}`, string(env.Data))

	status, env = s.do(t, s.admin, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/confirm", orderID), gin.H{"staff_id": 7})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = s.do(t, gatewayToken, http.MethodPost, "/api/v1/payments/callback", gin.H{
		"order_id":  orderID,
		"status":    "PAID",
		"reference": "ch_123",
	})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = s.do(t, gatewayToken, http.MethodPost, "/api/v1/payments/callback", gin.H{"order_id": orderID, "status": "PAID"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	s.clock.Advance(time.Hour + 6*time.Minute)
	status, env = s.do(t, s.customer, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/after-photo", orderID), gin.H{"after_photo": "https://cdn.example/after.jpg"})
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	status, _ = s.do(t, s.customer, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/complete", orderID), nil)
	require.Equal(t, http.StatusOK, status)

	delivered, err := s.app.Dispatcher.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Positive(t, delivered)

	status, env = s.do(t, s.customer, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, status)
	var inbox struct {
		Notifications []domain.Notification `json:"notifications"`
		UnreadCount   int64                 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	kinds := make([]domain.NotificationKind, 0, len(inbox.Notifications))
	for _, n := range inbox.Notifications {
		kinds = append(kinds, n.Kind)
		assert.NotNil(t, n.DeliveredAt)
	}
	assert.Contains(t, kinds, domain.NotifOrderConfirmed)
	assert.Contains(t, kinds, domain.NotifPaymentPaid)
	assert.Equal(t, int64(len(inbox.Notifications)), inbox.UnreadCount)

	status, _ = s.do(t, s.customer, http.MethodPatch, "/api/v1/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(t, s.customer, http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"unread_count":0}`, string(env.Data))
}
