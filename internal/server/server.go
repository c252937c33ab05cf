package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fabro-storefront/internal/catalog"
	"fabro-storefront/internal/config"
	"fabro-storefront/internal/handler"
	adminauth "fabro-storefront/internal/middleware"
	"fabro-storefront/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const bodyLimit = "1M"

// Services is everything the HTTP layer talks to.
type Services struct {
	Catalog       catalog.Catalog
	Cart          service.CartService
	Orders        service.OrderService
	Lifecycle     service.LifecycleService
	Payments      service.PaymentService
	Notifications service.NotificationService
	Admin         service.AdminService
	// Ping reports whether the database is reachable.
	Ping func(ctx context.Context) error
}

type Server struct {
	echo                *echo.Echo
	cfg                 *config.Config
	ping                func(ctx context.Context) error
	catalogHandler      *handler.CatalogHandler
	cartHandler         *handler.CartHandler
	orderHandler        *handler.OrderHandler
	paymentHandler      *handler.PaymentHandler
	notificationHandler *handler.NotificationHandler
	adminHandler        *handler.AdminHandler
}

func NewServer(svc Services, cfg *config.Config, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit))

	s := &Server{
		echo:                e,
		cfg:                 cfg,
		ping:                svc.Ping,
		catalogHandler:      handler.NewCatalogHandler(svc.Catalog),
		cartHandler:         handler.NewCartHandler(svc.Cart),
		orderHandler:        handler.NewOrderHandler(svc.Orders, svc.Lifecycle, svc.Notifications),
		paymentHandler:      handler.NewPaymentHandler(svc.Payments),
		notificationHandler: handler.NewNotificationHandler(svc.Notifications),
		adminHandler:        handler.NewAdminHandler(svc.Admin, svc.Lifecycle),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	// public writes and order lookups by guessable numbers are throttled per client IP
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.cfg.RateLimit.RequestsPerSecond),
			Burst:     s.cfg.RateLimit.Burst,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
	adminOnly := adminauth.AdminAuth([]byte(s.cfg.Admin.JWTSecret))

	api.GET("/health", s.health)

	// -------- catalog --------
	api.GET("/products", s.catalogHandler.ListProducts)
	api.GET("/products/:id", s.catalogHandler.GetProduct)
	api.GET("/catalog/categories", s.catalogHandler.Categories)
	api.GET("/catalog/sections", s.catalogHandler.Sections)
	api.POST("/cart/quote", s.cartHandler.Quote)

	// -------- orders --------
	api.POST("/orders", s.orderHandler.CreateOrder, limiter)
	api.GET("/orders/:orderId", s.orderHandler.GetOrder)
	api.PUT("/orders/:orderId", s.orderHandler.UpdateOrder, adminOnly)
	api.GET("/orders/:orderId/whatsapp", s.orderHandler.WhatsAppLink)
	api.GET("/track", s.orderHandler.TrackOrder, limiter)

	// -------- payments --------
	payments := api.Group("/payments")
	payments.POST("/razorpay", s.paymentHandler.CreatePaymentOrder)
	payments.POST("/verify", s.paymentHandler.VerifyPayment)
	payments.POST("/webhook", s.paymentHandler.RazorpayWebhook)

	// -------- notifications --------
	api.POST("/emails/order-confirmation", s.notificationHandler.SendOrderConfirmation)

	// -------- admin --------
	api.POST("/admin/login", s.adminHandler.Login, limiter)
	admin := api.Group("/admin", adminOnly)
	admin.GET("/orders", s.adminHandler.ListOrders)
	admin.GET("/orders/:orderId/history", s.adminHandler.OrderHistory)
	admin.GET("/dashboard", s.adminHandler.Dashboard)
}

func (s *Server) health(c echo.Context) error {
	if s.ping != nil {
		if err := s.ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Handler exposes the router so tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	err := s.echo.Start(address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
