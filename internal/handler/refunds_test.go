package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gateflow/gateflow/internal/model"
)

// paidOrder runs checkout plus verify-payment to produce a paid order.
func paidOrder(t *testing.T, env *testEnv, sessionID string) *model.Order {
	t.Helper()
	product := env.seedProduct(t, "plan-"+sessionID, 4900)
	order := checkout(t, env, product, sessionID)

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/verify-payment", order.ID), nil)
	assertStatus(t, rr, http.StatusOK)
	var paid model.Order
	dataEnvelope(t, rr, &paid)
	return &paid
}

func requestRefund(t *testing.T, env *testEnv, orderID int64) *model.RefundRequest {
	t.Helper()
	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/refund-requests", orderID),
		toJSON(t, map[string]string{"reason": "Did not meet expectations"}))
	assertStatus(t, rr, http.StatusCreated)
	var req model.RefundRequest
	dataEnvelope(t, rr, &req)
	return &req
}

func TestCreateRefundRequest(t *testing.T) {
	env := newTestEnv(t)
	order := paidOrder(t, env, "cs_r1")

	req := requestRefund(t, env, order.ID)
	if req.Status != model.RefundPending {
		t.Errorf("status = %q", req.Status)
	}
	if req.OrderID != order.ID {
		t.Errorf("order_id = %d", req.OrderID)
	}
}

func TestCreateRefundRequestUnpaidOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct(t, "pro-plan", 4900)
	order := checkout(t, env, product, "cs_r2")

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/refund-requests", order.ID),
		toJSON(t, map[string]string{"reason": "too soon"}))
	assertStatus(t, rr, http.StatusConflict)
}

func TestCreateRefundRequestNoReason(t *testing.T) {
	env := newTestEnv(t)
	order := paidOrder(t, env, "cs_r3")

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/refund-requests", order.ID),
		toJSON(t, map[string]string{"reason": "  "}))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestDuplicatePendingRefundRequest(t *testing.T) {
	env := newTestEnv(t)
	order := paidOrder(t, env, "cs_r4")
	requestRefund(t, env, order.ID)

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/orders/%d/refund-requests", order.ID),
		toJSON(t, map[string]string{"reason": "again"}))
	assertStatus(t, rr, http.StatusConflict)
}

func TestApproveRefund(t *testing.T) {
	env := newTestEnv(t)
	order := paidOrder(t, env, "cs_r5")
	req := requestRefund(t, env, order.ID)

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/refund-requests/%d/approve", req.ID),
		toJSON(t, map[string]string{"note": "approved by support"}))
	assertStatus(t, rr, http.StatusOK)

	var decided model.RefundRequest
	dataEnvelope(t, rr, &decided)
	if decided.Status != model.RefundApproved {
		t.Errorf("status = %q", decided.Status)
	}
	if decided.ProviderRefundID == "" {
		t.Error("expected provider refund id")
	}
	if decided.DecidedAt == nil {
		t.Error("expected decided_at")
	}

	// The order flips to refunded.
	rr = env.do(t, "GET", fmt.Sprintf("/api/v1/orders/%d", order.ID), nil)
	var got model.Order
	dataEnvelope(t, rr, &got)
	if got.Status != model.OrderRefunded {
		t.Errorf("order status = %q", got.Status)
	}
}

func TestApproveRefundProviderDown(t *testing.T) {
	env := newTestEnv(t)
	order := paidOrder(t, env, "cs_r6")
	req := requestRefund(t, env, order.ID)

	env.provider.FailRefunds = true
	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/refund-requests/%d/approve", req.ID), nil)
	assertStatus(t, rr, http.StatusInternalServerError)
	if code := errorCode(t, rr); code != model.CodeInternalError {
		t.Errorf("code = %q", code)
	}

	// The request is back to pending and can be retried.
	rr = env.do(t, "GET", fmt.Sprintf("/api/v1/refund-requests/%d", req.ID), nil)
	var got model.RefundRequest
	dataEnvelope(t, rr, &got)
	if got.Status != model.RefundPending {
		t.Errorf("status = %q, want pending after provider failure", got.Status)
	}

	env.provider.FailRefunds = false
	rr = env.do(t, "POST", fmt.Sprintf("/api/v1/refund-requests/%d/approve", req.ID), nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestDenyRefund(t *testing.T) {
	env := newTestEnv(t)
	order := paidOrder(t, env, "cs_r7")
	req := requestRefund(t, env, order.ID)

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/refund-requests/%d/deny", req.ID),
		toJSON(t, map[string]string{"note": "outside refund window"}))
	assertStatus(t, rr, http.StatusOK)

	var decided model.RefundRequest
	dataEnvelope(t, rr, &decided)
	if decided.Status != model.RefundDenied {
		t.Errorf("status = %q", decided.Status)
	}
	if decided.DecisionNote != "outside refund window" {
		t.Errorf("note = %q", decided.DecisionNote)
	}

	// Deciding twice conflicts.
	rr = env.do(t, "POST", fmt.Sprintf("/api/v1/refund-requests/%d/deny", req.ID), nil)
	assertStatus(t, rr, http.StatusConflict)

	// The order stays paid.
	rr = env.do(t, "GET", fmt.Sprintf("/api/v1/orders/%d", order.ID), nil)
	var got model.Order
	dataEnvelope(t, rr, &got)
	if got.Status != model.OrderPaid {
		t.Errorf("order status = %q", got.Status)
	}
}

func TestListRefundRequestsStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	a := paidOrder(t, env, "cs_r8")
	b := paidOrder(t, env, "cs_r9")
	requestRefund(t, env, a.ID)
	reqB := requestRefund(t, env, b.ID)

	rr := env.do(t, "POST", fmt.Sprintf("/api/v1/refund-requests/%d/deny", reqB.ID), nil)
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/api/v1/refund-requests?status=pending", nil)
	assertStatus(t, rr, http.StatusOK)
	var pending []model.RefundRequest
	listEnvelope(t, rr, &pending)
	if len(pending) != 1 {
		t.Errorf("pending filter returned %d requests", len(pending))
	}
}
