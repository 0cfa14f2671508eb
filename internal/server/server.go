package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/handler"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/rates"
	"github.com/gateflow/gateflow/internal/scope"
	"github.com/gateflow/gateflow/internal/server/middleware"
	"github.com/gateflow/gateflow/internal/service"
	"github.com/gateflow/gateflow/internal/webhook"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes

	// IPRateLimit is the unauthenticated per-IP backstop, requests/minute.
	IPRateLimit int

	APIKeyHeader string
	SessionTTL   time.Duration
	Version      string
	BaseURL      string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     1 * 1024 * 1024, // 1MB
		IPRateLimit:     300,
		APIKeyHeader:    "X-API-Key",
		SessionTTL:      time.Hour,
		Version:         "dev",
		BaseURL:         "http://localhost:8080",
	}
}

// Deps bundles the services the server routes to.
type Deps struct {
	Store    *config.Store
	AuthSvc  *service.AuthService
	KeySvc   *service.KeyService
	OrderSvc *service.OrderService
	Provider payment.Provider
	Rates    rates.Provider
	Notifier *webhook.Notifier
}

// Server is the top-level HTTP server for the gateway. It owns the Chi
// router, the per-key rate limiter, and graceful shutdown.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	limiter    *service.KeyLimiter
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: service.NewKeyLimiter(),
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	sysHandler := handler.NewSystemHandler(s.deps.Store, s.deps.AuthSvc, s.cfg.Version)
	authHandler := handler.NewAuthHandler(s.deps.AuthSvc, s.cfg.SessionTTL)
	keyHandler := handler.NewKeyHandler(s.deps.Store, s.deps.KeySvc)
	productHandler := handler.NewProductHandler(s.deps.Store, s.deps.Rates)
	couponHandler := handler.NewCouponHandler(s.deps.Store)
	orderHandler := handler.NewOrderHandler(s.deps.Store, s.deps.OrderSvc)
	refundHandler := handler.NewRefundHandler(s.deps.Store, s.deps.OrderSvc)
	webhookHandler := handler.NewWebhookHandler(s.deps.Store)
	analyticsHandler := handler.NewAnalyticsHandler(s.deps.Store)
	openAPIHandler := handler.NewOpenAPIHandler(s.cfg.BaseURL, s.cfg.Version)

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", s.cfg.APIKeyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}
	if s.cfg.IPRateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.IPRateLimit))
	}

	// --- Probes (no auth required) ---
	r.Get("/healthz", sysHandler.Health)
	r.Get("/readyz", sysHandler.Ready)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		// The document and login are the only unauthenticated endpoints.
		r.Get("/openapi.json", openAPIHandler.ServeSpec)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.deps.AuthSvc, s.cfg.APIKeyHeader))
			r.Use(middleware.KeyRateLimit(s.limiter))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Get("/system/version", sysHandler.Version)

			// Credential and account management never accepts API keys.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession())

				r.Get("/api-keys", keyHandler.List)
				r.Post("/api-keys", keyHandler.Create)
				r.Get("/api-keys/{keyID}", keyHandler.Get)
				r.Post("/api-keys/{keyID}/rotate", keyHandler.Rotate)
				r.Delete("/api-keys/{keyID}", keyHandler.Revoke)

				r.Get("/admins", sysHandler.ListAdmins)
				r.Post("/admins", sysHandler.CreateAdmin)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.ProductsRead))
				r.Get("/products", productHandler.List)
				r.Get("/products/{productID}", productHandler.Get)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.ProductsWrite))
				r.Post("/products", productHandler.Create)
				r.Patch("/products/{productID}", productHandler.Update)
				r.Delete("/products/{productID}", productHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.CouponsRead))
				r.Get("/coupons", couponHandler.List)
				r.Get("/coupons/{couponID}", couponHandler.Get)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.CouponsWrite))
				r.Post("/coupons", couponHandler.Create)
				r.Patch("/coupons/{couponID}", couponHandler.Update)
				r.Delete("/coupons/{couponID}", couponHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.OrdersRead))
				r.Get("/orders", orderHandler.List)
				r.Get("/orders/{orderID}", orderHandler.Get)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.OrdersWrite))
				r.Post("/orders/checkout", orderHandler.Checkout)
				r.Post("/orders/{orderID}/verify-payment", orderHandler.VerifyPayment)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.RefundRequestsRead))
				r.Get("/refund-requests", refundHandler.List)
				r.Get("/refund-requests/{requestID}", refundHandler.Get)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.RefundRequestsWrite))
				r.Post("/orders/{orderID}/refund-requests", refundHandler.Create)
				r.Post("/refund-requests/{requestID}/approve", refundHandler.Approve)
				r.Post("/refund-requests/{requestID}/deny", refundHandler.Deny)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.WebhooksRead))
				r.Get("/webhooks", webhookHandler.List)
				r.Get("/webhooks/{endpointID}", webhookHandler.Get)
				r.Get("/webhooks/{endpointID}/deliveries", webhookHandler.ListDeliveries)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.WebhooksWrite))
				r.Post("/webhooks", webhookHandler.Create)
				r.Patch("/webhooks/{endpointID}", webhookHandler.Update)
				r.Delete("/webhooks/{endpointID}", webhookHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireScopes(scope.AnalyticsRead))
				r.Get("/analytics/overview", analyticsHandler.Overview)
				r.Get("/analytics/revenue", analyticsHandler.Revenue)
				r.Get("/analytics/key-usage", analyticsHandler.KeyUsage)
			})
		})
	})

	s.router = r
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests and pending webhook deliveries before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "version", s.cfg.Version)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Let in-flight webhook deliveries finish before the store goes away.
	s.deps.Notifier.Wait()
	s.deps.Store.Close()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
