package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/rates"
	"github.com/gateflow/gateflow/internal/server/middleware"
	"github.com/gateflow/gateflow/internal/service"
	"github.com/gateflow/gateflow/internal/webhook"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"
)

// testEnv holds shared state for handler integration tests. Routes are
// mounted without the auth middleware; the principal is injected directly
// so each test controls who the caller is.
type testEnv struct {
	store    *config.Store
	authSvc  *service.AuthService
	keySvc   *service.KeyService
	orderSvc *service.OrderService
	provider *payment.StaticProvider
	router   chi.Router

	// principal is attached to every request sent through do. Defaults to
	// an admin session for admin 1.
	principal *middleware.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("sqlite", "")
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := payment.NewStaticProvider()
	notifier := webhook.New(store, logger, false, 0)

	authSvc := service.NewAuthService(store, testJWTSecret)
	keySvc := service.NewKeyService(store, service.DefaultGraceHours)
	orderSvc := service.NewOrderService(store, provider, notifier, logger)

	sysHandler := NewSystemHandler(store, authSvc, "test")
	authHandler := NewAuthHandler(authSvc, 0)
	keyHandler := NewKeyHandler(store, keySvc)
	productHandler := NewProductHandler(store, rates.DefaultStaticProvider())
	couponHandler := NewCouponHandler(store)
	orderHandler := NewOrderHandler(store, orderSvc)
	refundHandler := NewRefundHandler(store, orderSvc)
	webhookHandler := NewWebhookHandler(store)
	analyticsHandler := NewAnalyticsHandler(store)

	r := chi.NewRouter()
	r.Get("/healthz", sysHandler.Health)
	r.Get("/readyz", sysHandler.Ready)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)

		r.Get("/system/version", sysHandler.Version)
		r.Get("/admins", sysHandler.ListAdmins)
		r.Post("/admins", sysHandler.CreateAdmin)

		r.Get("/api-keys", keyHandler.List)
		r.Post("/api-keys", keyHandler.Create)
		r.Get("/api-keys/{keyID}", keyHandler.Get)
		r.Post("/api-keys/{keyID}/rotate", keyHandler.Rotate)
		r.Delete("/api-keys/{keyID}", keyHandler.Revoke)

		r.Get("/products", productHandler.List)
		r.Post("/products", productHandler.Create)
		r.Get("/products/{productID}", productHandler.Get)
		r.Patch("/products/{productID}", productHandler.Update)
		r.Delete("/products/{productID}", productHandler.Delete)

		r.Get("/coupons", couponHandler.List)
		r.Post("/coupons", couponHandler.Create)
		r.Get("/coupons/{couponID}", couponHandler.Get)
		r.Patch("/coupons/{couponID}", couponHandler.Update)
		r.Delete("/coupons/{couponID}", couponHandler.Delete)

		r.Post("/orders/checkout", orderHandler.Checkout)
		r.Get("/orders", orderHandler.List)
		r.Get("/orders/{orderID}", orderHandler.Get)
		r.Post("/orders/{orderID}/verify-payment", orderHandler.VerifyPayment)
		r.Post("/orders/{orderID}/refund-requests", refundHandler.Create)

		r.Get("/refund-requests", refundHandler.List)
		r.Get("/refund-requests/{requestID}", refundHandler.Get)
		r.Post("/refund-requests/{requestID}/approve", refundHandler.Approve)
		r.Post("/refund-requests/{requestID}/deny", refundHandler.Deny)

		r.Get("/webhooks", webhookHandler.List)
		r.Post("/webhooks", webhookHandler.Create)
		r.Get("/webhooks/{endpointID}", webhookHandler.Get)
		r.Patch("/webhooks/{endpointID}", webhookHandler.Update)
		r.Delete("/webhooks/{endpointID}", webhookHandler.Delete)
		r.Get("/webhooks/{endpointID}/deliveries", webhookHandler.ListDeliveries)

		r.Get("/analytics/overview", analyticsHandler.Overview)
		r.Get("/analytics/revenue", analyticsHandler.Revenue)
		r.Get("/analytics/key-usage", analyticsHandler.KeyUsage)
	})

	return &testEnv{
		store:     store,
		authSvc:   authSvc,
		keySvc:    keySvc,
		orderSvc:  orderSvc,
		provider:  provider,
		router:    r,
		principal: &middleware.Principal{Type: "admin", AdminID: 1, IsAdmin: true},
	}
}

// seedAdmin creates a default admin account and returns it.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.Admin{
		Email:        "admin@example.com",
		PasswordHash: hash,
		Name:         "Test Admin",
		IsActive:     true,
	}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// seedProduct creates an active product and returns it.
func (e *testEnv) seedProduct(t *testing.T, slug string, priceCents int64) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:       "Product " + slug,
		Slug:       slug,
		PriceCents: priceCents,
		Currency:   "USD",
		IsActive:   true,
	}
	if err := e.store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("seedProduct: %v", err)
	}
	return p
}

// do executes an HTTP request against the test router with the env's
// principal attached and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.principal != nil {
		ctx := context.WithValue(req.Context(), middleware.AuthPrincipalKey, e.principal)
		req = req.WithContext(ctx)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// dataEnvelope decodes {"data": ...} into the given destination.
func dataEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	decodeJSON(t, rr, &env)
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("dataEnvelope: %v; body = %s", err, rr.Body.String())
	}
}

// listEnvelope decodes {"data": [...], "pagination": {...}}.
func listEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) *model.Pagination {
	t.Helper()
	var env struct {
		Data       json.RawMessage   `json:"data"`
		Pagination *model.Pagination `json:"pagination"`
	}
	decodeJSON(t, rr, &env)
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("listEnvelope: %v; body = %s", err, rr.Body.String())
	}
	return env.Pagination
}

// errorCode extracts the code from an error envelope.
func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeJSON(t, rr, &env)
	return env.Error.Code
}
