package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/payment"
)

// checkout creates a pending order through the API with a seeded provider
// session matching the product price.
func checkout(t *testing.T, env *testEnv, product *model.Product, sessionID string) *model.Order {
	t.Helper()
	env.provider.Seed(payment.Session{
		ID:          sessionID,
		Paid:        true,
		AmountCents: product.PriceCents,
		Currency:    product.Currency,
	})

	rr := env.do(t, "POST", "/api/v1/orders/checkout", toJSON(t, map[string]interface{}{
		"product_id":          product.ID,
		"provider_session_id": sessionID,
		"customer_email":      "buyer@example.com",
	}))
	assertStatus(t, rr, http.StatusCreated)

	var order model.Order
	dataEnvelope(t, rr, &order)
	return &order
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)

	order := checkout(t, env, product, "cs_1")
	if order.Status != model.OrderPending {
		t.Errorf("status = %q", order.Status)
	}
	if order.AmountCents != 4900 {
		t.Errorf("amount = %d", order.AmountCents)
	}
}

func TestCheckoutUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/v1/orders/checkout", toJSON(t, map[string]interface{}{
		"product_id":          999,
		"provider_session_id": "cs_x",
		"customer_email":      "buyer@example.com",
	}))
	assertStatus(t, rr, http.StatusNotFound)
}

func TestCheckoutDuplicateSession(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)
	first := checkout(t, env, product, "cs_dup")

	// Retrying the same session is idempotent: the first order comes back.
	again := checkout(t, env, product, "cs_dup")
	if again.ID != first.ID {
		t.Errorf("retry created order %d, want %d", again.ID, first.ID)
	}
}

func TestCheckoutMissingEmail(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)

	rr := env.do(t, "POST", "/api/v1/orders/checkout", toJSON(t, map[string]interface{}{
		"product_id":          product.ID,
		"provider_session_id": "cs_2",
	}))
	assertStatus(t, rr, http.StatusBadRequest)
	if code := errorCode(t, rr); code != model.CodeValidationError {
		t.Errorf("code = %q", code)
	}
}

func TestVerifyPayment(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)
	order := checkout(t, env, product, "cs_3")

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/verify-payment", order.ID), nil)
	assertStatus(t, rr, http.StatusOK)

	var got model.Order
	dataEnvelope(t, rr, &got)
	if got.Status != model.OrderPaid {
		t.Errorf("status = %q, want paid", got.Status)
	}
	if got.PaidAt == nil {
		t.Error("expected paid_at")
	}

	// Second call is a no-op, not an error.
	rr = env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/verify-payment", order.ID), nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestVerifyPaymentUnpaidSession(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)

	env.provider.Seed(payment.Session{ID: "cs_unpaid", Paid: false, AmountCents: 4900, Currency: "USD"})
	rr := env.do(t, "POST", "/api/v1/orders/checkout", toJSON(t, map[string]interface{}{
		"product_id":          product.ID,
		"provider_session_id": "cs_unpaid",
		"customer_email":      "buyer@example.com",
	}))
	assertStatus(t, rr, http.StatusCreated)
	var order model.Order
	dataEnvelope(t, rr, &order)

	rr = env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/verify-payment", order.ID), nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestListOrdersStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)
	paid := checkout(t, env, product, "cs_a")
	checkout(t, env, product, "cs_b")

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/verify-payment", paid.ID), nil)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/api/v1/orders?status=paid", nil)
	assertStatus(t, rr, http.StatusOK)
	var orders []model.Order
	listEnvelope(t, rr, &orders)
	if len(orders) != 1 || orders[0].ID != paid.ID {
		t.Errorf("paid filter returned %d orders", len(orders))
	}

	rr = env.do(t, "GET", "/api/v1/orders?status=smashed", nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/v1/orders/12345", nil)
	assertStatus(t, rr, http.StatusNotFound)
}
