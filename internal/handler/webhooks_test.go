package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/webhook"
)

func createEndpoint(t *testing.T, env *testEnv, url string, events ...string) (secret string, ep model.WebhookEndpoint) {
	t.Helper()
	rr := env.do(t, "POST", "/api/v1/webhooks", toJSON(t, map[string]interface{}{
		"url":    url,
		"events": events,
	}))
	assertStatus(t, rr, http.StatusCreated)

	var body struct {
		Secret   string                `json:"secret"`
		Endpoint model.WebhookEndpoint `json:"endpoint"`
	}
	dataEnvelope(t, rr, &body)
	return body.Secret, body.Endpoint
}

func TestCreateWebhookEndpoint(t *testing.T) {
	env := newTestEnv(t)
	secret, ep := createEndpoint(t, env, "https://example.com/hooks", webhook.EventOrderPaid)

	if !strings.HasPrefix(secret, "whsec_") {
		t.Errorf("secret %q lacks whsec_ prefix", secret)
	}
	if ep.ID == 0 {
		t.Error("expected persisted endpoint")
	}
	if !ep.IsActive {
		t.Error("endpoints default to active")
	}
}

func TestCreateWebhookEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/webhooks", toJSON(t, map[string]interface{}{
		"url": "ftp://example.com/hooks",
	}))
	assertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "POST", "/api/v1/webhooks", toJSON(t, map[string]interface{}{
		"url":    "https://example.com/hooks",
		"events": []string{"order.imploded"},
	}))
	assertStatus(t, rr, http.StatusBadRequest)
}

// The secret appears in the create response and never again.
func TestWebhookSecretShownOnce(t *testing.T) {
	env := newTestEnv(t)
	secret, ep := createEndpoint(t, env, "https://example.com/hooks")

	rr := env.do(t, "GET", fmt.Sprintf("/api/v1/webhooks/%d", ep.ID), nil)
	assertStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), secret) {
		t.Error("secret leaked in get response")
	}

	rr = env.do(t, "GET", "/api/v1/webhooks", nil)
	assertStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), secret) {
		t.Error("secret leaked in list response")
	}
}

func TestUpdateWebhookEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, ep := createEndpoint(t, env, "https://example.com/hooks", webhook.EventOrderPaid)

	rr := env.do(t, "PATCH", fmt.Sprintf("/api/v1/webhooks/%d", ep.ID), toJSON(t, map[string]interface{}{
		"url":       "https://example.com/hooks/v2",
		"events":    []string{webhook.EventOrderRefunded},
		"is_active": false,
	}))
	assertStatus(t, rr, http.StatusOK)

	var got model.WebhookEndpoint
	dataEnvelope(t, rr, &got)
	if got.URL != "https://example.com/hooks/v2" {
		t.Errorf("url = %q", got.URL)
	}
	if got.IsActive {
		t.Error("expected deactivated")
	}
	if len(got.Events) != 1 || got.Events[0] != webhook.EventOrderRefunded {
		t.Errorf("events = %v", got.Events)
	}
}

func TestDeleteWebhookEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, ep := createEndpoint(t, env, "https://example.com/hooks")

	assertStatus(t, env.do(t, "DELETE", fmt.Sprintf("/api/v1/webhooks/%d", ep.ID), nil), http.StatusOK)
	assertStatus(t, env.do(t, "GET", fmt.Sprintf("/api/v1/webhooks/%d", ep.ID), nil), http.StatusNotFound)
}

func TestListDeliveriesUnknownEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/v1/webhooks/999/deliveries", nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestListDeliveriesEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, ep := createEndpoint(t, env, "https://example.com/hooks")

	rr := env.do(t, "GET", fmt.Sprintf("/api/v1/webhooks/%d/deliveries", ep.ID), nil)
	assertStatus(t, rr, http.StatusOK)

	var deliveries []model.WebhookDelivery
	p := listEnvelope(t, rr, &deliveries)
	if len(deliveries) != 0 {
		t.Errorf("expected empty log, got %d", len(deliveries))
	}
	if p.HasMore {
		t.Error("expected no next page")
	}
}
