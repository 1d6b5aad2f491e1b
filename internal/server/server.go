// Package server wires the HTTP router and the background workers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"roomclean/internal/config"
	"roomclean/internal/lock"
	"roomclean/internal/middleware"
	"roomclean/internal/modules/catalog"
	"roomclean/internal/modules/notification"
	"roomclean/internal/modules/order"
	"roomclean/internal/modules/payment"
	"roomclean/internal/pkg/clock"
	"roomclean/internal/pkg/jwt"
	"roomclean/internal/pkg/response"
	"roomclean/internal/repository"
)

const cleanupInterval = 24 * time.Hour

type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Locker lock.Locker

	// Cache is optional; it fronts the package list.
	Cache redis.Cmdable
	// Publisher is optional; it fans notifications out to the broker.
	Publisher notification.Publisher
}

type App struct {
	Router        *gin.Engine
	Orders        *order.Service
	Notifications *notification.Service
	Dispatcher    *notification.Dispatcher
	Hub           *notification.Hub
	Tokens        *jwt.Service

	cfg     *config.Config
	limiter *middleware.RateLimiter
}

func New(opts Options) *App {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	locker := opts.Locker
	if locker == nil {
		locker = lock.NewMemoryLocker(cfg.LockWait)
	}

	orderRepo := repository.NewOrderRepository(opts.DB)
	packageRepo := repository.NewPackageRepository(opts.DB)
	notificationRepo := repository.NewNotificationRepository(opts.DB)

	hub := notification.NewHub()
	deliverers := []notification.Deliverer{hub}
	if opts.Publisher != nil {
		deliverers = append(deliverers, notification.NewBrokerDeliverer(opts.Publisher))
	}
	dispatcher := notification.NewDispatcher(notificationRepo, notification.DispatcherConfig{
		Interval:    cfg.NotifyInterval,
		BatchSize:   cfg.NotifyBatch,
		MaxAttempts: cfg.NotifyAttempts,
	}, clk, log.Named("dispatcher"), deliverers...)
	emitter := notification.NewEmitter(clk).OnStored(dispatcher.Wake)
	notifications := notification.NewService(notificationRepo, clk, log.Named("notifications"))

	orders := order.NewService(orderRepo, packageRepo, locker, emitter, clk, log.Named("orders")).
		WithDefaultLocale(cfg.DefaultLocale)
	catalogService := catalog.NewService(packageRepo, opts.Cache, log.Named("catalog"))
	tokens := jwt.New(cfg.JWTSecret, cfg.JWTTTL)

	app := &App{
		Orders:        orders,
		Notifications: notifications,
		Dispatcher:    dispatcher,
		Hub:           hub,
		Tokens:        tokens,
		cfg:           cfg,
		limiter:       middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	app.Router = app.routes(
		order.NewHandler(orders),
		payment.NewHandler(orders.PaymentCallbacks(), order.WriteError, log.Named("payments")),
		catalog.NewHandler(catalogService),
		notification.NewHandler(notifications, hub, log.Named("ws")),
	)
	return app
}

func (a *App) routes(orders *order.Handler, payments *payment.Handler, packages *catalog.Handler, inbox *notification.Handler) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(),
		middleware.AccessLog(),
		middleware.CORS(a.cfg.CORSOrigins...),
	)

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	packages.RegisterPublicRoutes(v1)

	gateway := v1.Group("", middleware.GatewayToken(a.cfg.GatewayToken), a.limiter.Middleware("gateway"))
	payments.RegisterCallbackRoutes(gateway)

	authed := v1.Group("", middleware.JWTAuth(a.Tokens))
	inbox.RegisterRoutes(authed)

	customer := authed.Group("", middleware.CustomerOnly(), a.limiter.Middleware("customer"))
	orders.RegisterCustomerRoutes(customer)

	admin := authed.Group("/admin", middleware.AdminOnly())
	orders.RegisterAdminRoutes(admin)

	return r
}

// StartBackground runs the dispatcher, the limiter sweep and the
// notification cleanup until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	go a.Dispatcher.Run(ctx)
	go a.limiter.Cleanup(ctx)
	go a.Notifications.ScheduleCleanup(ctx, cleanupInterval, a.cfg.NotifyRetention)
}
