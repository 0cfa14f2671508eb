package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gateflow/gateflow/internal/scope"
	"github.com/gateflow/gateflow/internal/service"
)

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID == "" {
		t.Error("expected X-Request-ID in response header")
	}
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	id := GetRequestID(context.Background())
	if id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Principal helpers
// ---------------------------------------------------------------------------

func withPrincipal(req *http.Request, p *Principal) *http.Request {
	ctx := context.WithValue(req.Context(), AuthPrincipalKey, p)
	return req.WithContext(ctx)
}

func sessionPrincipal() *Principal {
	return &Principal{Type: "admin", AdminID: 1, IsAdmin: true}
}

func keyPrincipal(scopes ...string) *Principal {
	return &Principal{Type: "api_key", AdminID: 1, KeyID: 7, Scopes: scopes, RateLimit: 60}
}

// ---------------------------------------------------------------------------
// RequireSession middleware tests
// ---------------------------------------------------------------------------

func TestRequireSessionAllowsAdmins(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireSession()(inner)

	req := withPrincipal(httptest.NewRequest("GET", "/api/v1/api-keys", nil), sessionPrincipal())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRequireSessionBlocksAPIKeys(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not be called for api key principals")
	})
	handler := RequireSession()(inner)

	// Even a wildcard key cannot reach key management.
	req := withPrincipal(httptest.NewRequest("GET", "/api/v1/api-keys", nil), keyPrincipal(scope.Wildcard))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestRequireSessionBlocksUnauthenticated(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not be called for unauthenticated")
	})
	handler := RequireSession()(inner)

	req := httptest.NewRequest("GET", "/api/v1/api-keys", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequireScopes middleware tests
// ---------------------------------------------------------------------------

func TestRequireScopes(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		required  []string
		wantCode  int
	}{
		{"key with scope", keyPrincipal(scope.ProductsRead), []string{scope.ProductsRead}, http.StatusOK},
		{"key missing scope", keyPrincipal(scope.ProductsRead), []string{scope.ProductsWrite}, http.StatusForbidden},
		{"wildcard key", keyPrincipal(scope.Wildcard), []string{scope.OrdersWrite}, http.StatusOK},
		{"session passes everything", sessionPrincipal(), []string{scope.AnalyticsRead}, http.StatusOK},
		{"unauthenticated", nil, []string{scope.ProductsRead}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := RequireScopes(tt.required...)(inner)

			req := httptest.NewRequest("GET", "/api/v1/products", nil)
			if tt.principal != nil {
				req = withPrincipal(req, tt.principal)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("got %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// KeyRateLimit middleware tests
// ---------------------------------------------------------------------------

func TestKeyRateLimit(t *testing.T) {
	limiter := service.NewKeyLimiter()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := KeyRateLimit(limiter)(inner)

	p := keyPrincipal(scope.Wildcard)
	p.RateLimit = 2

	for i := 0; i < 2; i++ {
		req := withPrincipal(httptest.NewRequest("GET", "/api/v1/orders", nil), p)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i+1, rr.Code)
		}
	}

	req := withPrincipal(httptest.NewRequest("GET", "/api/v1/orders", nil), p)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on a throttled response")
	}
}

func TestKeyRateLimitIgnoresSessions(t *testing.T) {
	limiter := service.NewKeyLimiter()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := KeyRateLimit(limiter)(inner)

	for i := 0; i < 10; i++ {
		req := withPrincipal(httptest.NewRequest("GET", "/api/v1/orders", nil), sessionPrincipal())
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("session request %d throttled: %d", i+1, rr.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// GetPrincipal tests
// ---------------------------------------------------------------------------

func TestGetPrincipalWithValue(t *testing.T) {
	expected := &Principal{Type: "admin", AdminID: 42, IsAdmin: true}
	ctx := context.WithValue(context.Background(), AuthPrincipalKey, expected)

	got := GetPrincipal(ctx)
	if got == nil {
		t.Fatal("expected non-nil principal")
	}
	if got.AdminID != 42 {
		t.Errorf("expected AdminID 42, got %d", got.AdminID)
	}
	if !got.IsAdmin {
		t.Error("expected IsAdmin true")
	}
}

func TestGetPrincipalWithoutValue(t *testing.T) {
	got := GetPrincipal(context.Background())
	if got != nil {
		t.Error("expected nil principal from bare context")
	}
}
