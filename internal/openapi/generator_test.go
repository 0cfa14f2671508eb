package openapi

import (
	"encoding/json"
	"testing"
)

func TestGenerate(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.2.3")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("version = %q", doc.Info.Version)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("servers = %+v", doc.Servers)
	}
}

func TestGenerateCoversResources(t *testing.T) {
	doc := Generate("http://localhost:8080", "test")

	paths := []string{
		"/api/v1/auth/login",
		"/api/v1/api-keys",
		"/api/v1/api-keys/{keyID}/rotate",
		"/api/v1/products",
		"/api/v1/coupons",
		"/api/v1/orders/checkout",
		"/api/v1/orders/{orderID}/verify-payment",
		"/api/v1/orders/{orderID}/refund-requests",
		"/api/v1/refund-requests/{requestID}/approve",
		"/api/v1/webhooks",
		"/api/v1/webhooks/{endpointID}/deliveries",
		"/api/v1/analytics/overview",
	}
	for _, p := range paths {
		if doc.Paths.Find(p) == nil {
			t.Errorf("missing path %s", p)
		}
	}

	for _, name := range []string{"Product", "Coupon", "Order", "RefundRequest", "APIKey", "WebhookEndpoint", "Error", "Pagination"} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}
}

func TestGenerateSecuritySchemes(t *testing.T) {
	doc := Generate("http://localhost:8080", "test")

	apiKey, ok := doc.Components.SecuritySchemes["apiKey"]
	if !ok {
		t.Fatal("missing apiKey security scheme")
	}
	if apiKey.Value.Name != "X-API-Key" {
		t.Errorf("header = %q", apiKey.Value.Name)
	}
	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Error("missing bearerAuth security scheme")
	}
}

// The document must serialize cleanly; a cyclic or malformed ref would fail.
func TestGenerateMarshals(t *testing.T) {
	doc := Generate("http://localhost:8080", "test")
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("empty document")
	}
}
