package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/webhook"
)

func newTestOrders(t *testing.T) (*OrderService, *config.Store, *payment.StaticProvider) {
	t.Helper()
	store := newTestStore(t)
	provider := payment.NewStaticProvider()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := webhook.New(store, logger, false, 0)
	return NewOrderService(store, provider, notifier, logger), store, provider
}

func seedProduct(t *testing.T, store *config.Store, priceCents int64) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:       "Pro License",
		Slug:       "pro-license",
		PriceCents: priceCents,
		Currency:   "USD",
		IsActive:   true,
	}
	if err := store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p
}

func TestCheckout(t *testing.T) {
	svc, store, _ := newTestOrders(t)
	ctx := context.Background()
	product := seedProduct(t, store, 5000)

	order, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_100",
		CustomerEmail:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if order.Status != model.OrderPending {
		t.Errorf("status: %q", order.Status)
	}
	if order.AmountCents != 5000 {
		t.Errorf("amount: %d", order.AmountCents)
	}

	// Repeating the session returns the existing order, not an error.
	again, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_100",
		CustomerEmail:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("repeat Checkout: %v", err)
	}
	if again.ID != order.ID {
		t.Errorf("repeat checkout created order %d, want %d", again.ID, order.ID)
	}
}

func TestCheckoutWithCoupon(t *testing.T) {
	svc, store, _ := newTestOrders(t)
	ctx := context.Background()
	product := seedProduct(t, store, 10000)

	coupon := &model.Coupon{Code: "LAUNCH20", PercentOff: 20, IsActive: true}
	if err := store.CreateCoupon(ctx, coupon); err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}

	order, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_200",
		CustomerEmail:     "buyer@example.com",
		CouponCode:        "LAUNCH20",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if order.AmountCents != 8000 {
		t.Errorf("discounted amount: %d, want 8000", order.AmountCents)
	}
	if order.CouponID == nil || *order.CouponID != coupon.ID {
		t.Errorf("coupon not linked: %v", order.CouponID)
	}

	if _, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_201",
		CustomerEmail:     "buyer@example.com",
		CouponCode:        "NOPE",
	}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown coupon: got %v", err)
	}
}

func TestApplyCoupon(t *testing.T) {
	tests := []struct {
		name   string
		price  int64
		coupon model.Coupon
		want   int64
	}{
		{"percent", 10000, model.Coupon{PercentOff: 25}, 7500},
		{"fixed", 10000, model.Coupon{AmountOffCents: 1500}, 8500},
		{"fixed exceeds price", 1000, model.Coupon{AmountOffCents: 5000}, 0},
		{"full percent", 800, model.Coupon{PercentOff: 100}, 0},
		{"no discount", 800, model.Coupon{}, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyCoupon(tt.price, &tt.coupon); got != tt.want {
				t.Errorf("ApplyCoupon(%d) = %d, want %d", tt.price, got, tt.want)
			}
		})
	}
}

func TestVerifyPayment(t *testing.T) {
	svc, store, provider := newTestOrders(t)
	ctx := context.Background()
	product := seedProduct(t, store, 5000)

	order, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_300",
		CustomerEmail:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// Session not paid yet.
	provider.Seed(payment.Session{ID: "cs_300", Paid: false, AmountCents: 5000, Currency: "USD"})
	if _, err := svc.VerifyPayment(ctx, order.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("unpaid session: got %v", err)
	}

	// Paid: order transitions and coupon counters stay untouched.
	provider.Seed(payment.Session{ID: "cs_300", Paid: true, AmountCents: 5000, Currency: "USD"})
	verified, err := svc.VerifyPayment(ctx, order.ID)
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if verified.Status != model.OrderPaid || verified.PaidAt == nil {
		t.Errorf("order not marked paid: %+v", verified)
	}

	// Idempotent: a second verification is a no-op.
	again, err := svc.VerifyPayment(ctx, order.ID)
	if err != nil {
		t.Fatalf("second VerifyPayment: %v", err)
	}
	if again.Status != model.OrderPaid {
		t.Errorf("second verify changed status: %q", again.Status)
	}
}

func TestVerifyPaymentAmountMismatch(t *testing.T) {
	svc, store, provider := newTestOrders(t)
	ctx := context.Background()
	product := seedProduct(t, store, 5000)

	order, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_400",
		CustomerEmail:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	provider.Seed(payment.Session{ID: "cs_400", Paid: true, AmountCents: 100, Currency: "USD"})
	if _, err := svc.VerifyPayment(ctx, order.ID); !errors.Is(err, config.ErrConflict) {
		t.Errorf("amount mismatch: got %v", err)
	}

	stored, _ := store.GetOrder(ctx, order.ID)
	if stored.Status != model.OrderPending {
		t.Errorf("mismatch must not mark the order paid: %q", stored.Status)
	}
}

func paidOrder(t *testing.T, svc *OrderService, store *config.Store, provider *payment.StaticProvider, session string) *model.Order {
	t.Helper()
	ctx := context.Background()
	product := seedProduct(t, store, 5000)

	order, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: session,
		CustomerEmail:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	provider.Seed(payment.Session{ID: session, Paid: true, AmountCents: 5000, Currency: "USD"})
	order, err = svc.VerifyPayment(ctx, order.ID)
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	return order
}

func TestRefundLifecycle(t *testing.T) {
	svc, store, provider := newTestOrders(t)
	ctx := context.Background()
	order := paidOrder(t, svc, store, provider, "cs_500")

	req, err := svc.RequestRefund(ctx, order.ID, "did not need it")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}
	if req.Status != model.RefundPending {
		t.Errorf("status: %q", req.Status)
	}

	// One pending request per order.
	if _, err := svc.RequestRefund(ctx, order.ID, "again"); !errors.Is(err, config.ErrConflict) {
		t.Errorf("duplicate request: got %v", err)
	}

	approved, err := svc.ApproveRefund(ctx, req.ID, "ok")
	if err != nil {
		t.Fatalf("ApproveRefund: %v", err)
	}
	if approved.Status != model.RefundApproved {
		t.Errorf("status: %q", approved.Status)
	}
	if approved.ProviderRefundID == "" {
		t.Error("expected a provider refund id")
	}
	if approved.DecidedAt == nil {
		t.Error("expected a decision timestamp")
	}

	stored, _ := store.GetOrder(ctx, order.ID)
	if stored.Status != model.OrderRefunded {
		t.Errorf("order status: %q", stored.Status)
	}

	// Deciding twice conflicts.
	if _, err := svc.ApproveRefund(ctx, req.ID, "again"); !errors.Is(err, config.ErrConflict) {
		t.Errorf("double decision: got %v", err)
	}
}

func TestApproveRefundProviderFailureReverts(t *testing.T) {
	svc, store, provider := newTestOrders(t)
	ctx := context.Background()
	order := paidOrder(t, svc, store, provider, "cs_600")

	req, err := svc.RequestRefund(ctx, order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	provider.FailRefunds = true
	if _, err := svc.ApproveRefund(ctx, req.ID, "ok"); !errors.Is(err, payment.ErrUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}

	// The request is back to pending and the order is untouched.
	stored, _ := store.GetRefundRequest(ctx, req.ID)
	if stored.Status != model.RefundPending {
		t.Errorf("request status after failure: %q", stored.Status)
	}
	if stored.DecidedAt != nil {
		t.Error("decision timestamp should be cleared")
	}
	orderRow, _ := store.GetOrder(ctx, order.ID)
	if orderRow.Status != model.OrderPaid {
		t.Errorf("order status after failure: %q", orderRow.Status)
	}

	// The provider recovers; approval succeeds on retry.
	provider.FailRefunds = false
	if _, err := svc.ApproveRefund(ctx, req.ID, "ok"); err != nil {
		t.Fatalf("retry ApproveRefund: %v", err)
	}
}

func TestDenyRefund(t *testing.T) {
	svc, store, provider := newTestOrders(t)
	ctx := context.Background()
	order := paidOrder(t, svc, store, provider, "cs_700")

	req, err := svc.RequestRefund(ctx, order.ID, "please")
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}

	denied, err := svc.DenyRefund(ctx, req.ID, "outside refund window")
	if err != nil {
		t.Fatalf("DenyRefund: %v", err)
	}
	if denied.Status != model.RefundDenied {
		t.Errorf("status: %q", denied.Status)
	}
	if denied.DecisionNote != "outside refund window" {
		t.Errorf("note: %q", denied.DecisionNote)
	}

	// Denial does not touch the order.
	stored, _ := store.GetOrder(ctx, order.ID)
	if stored.Status != model.OrderPaid {
		t.Errorf("order status: %q", stored.Status)
	}
}

func TestRequestRefundRequiresPaidOrder(t *testing.T) {
	svc, store, _ := newTestOrders(t)
	ctx := context.Background()
	product := seedProduct(t, store, 5000)

	order, err := svc.Checkout(ctx, CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: "cs_800",
		CustomerEmail:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if _, err := svc.RequestRefund(ctx, order.ID, "too slow"); !errors.Is(err, config.ErrConflict) {
		t.Errorf("pending order refund: got %v", err)
	}
}
