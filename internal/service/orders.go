package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/webhook"
)

// OrderService owns the purchase flow: checkout, payment verification, and
// the refund lifecycle. Provider calls and local state changes are ordered
// so a provider failure never leaves the store claiming money moved.
type OrderService struct {
	store    *config.Store
	provider payment.Provider
	notifier *webhook.Notifier
	logger   *slog.Logger
}

func NewOrderService(store *config.Store, provider payment.Provider, notifier *webhook.Notifier, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		provider: provider,
		notifier: notifier,
		logger:   logger,
	}
}

// CheckoutParams describe a new order.
type CheckoutParams struct {
	ProductID         int64  `json:"product_id"`
	ProviderSessionID string `json:"provider_session_id"`
	CustomerEmail     string `json:"customer_email"`
	CouponCode        string `json:"coupon_code"`
}

// Checkout creates a pending order for a product, applying a coupon when
// one is given. The amount is computed server-side from the catalog price;
// client-supplied amounts are never trusted. Checkout is idempotent per
// provider session: repeating a session ID returns the order created first.
func (s *OrderService) Checkout(ctx context.Context, params CheckoutParams) (*model.Order, error) {
	params.CustomerEmail = strings.TrimSpace(params.CustomerEmail)
	params.ProviderSessionID = strings.TrimSpace(params.ProviderSessionID)
	if params.ProviderSessionID == "" {
		return nil, fmt.Errorf("%w: provider_session_id is required", ErrValidation)
	}
	if params.CustomerEmail == "" || !strings.Contains(params.CustomerEmail, "@") {
		return nil, fmt.Errorf("%w: valid customer_email is required", ErrValidation)
	}

	product, err := s.store.GetProduct(ctx, params.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product is not for sale", ErrValidation)
	}

	amount := product.PriceCents
	var couponID *int64
	if code := strings.TrimSpace(params.CouponCode); code != "" {
		coupon, err := s.store.GetCouponByCode(ctx, code)
		if err != nil {
			if errors.Is(err, config.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown coupon code", ErrValidation)
			}
			return nil, err
		}
		if !coupon.Redeemable(time.Now().UTC()) {
			return nil, fmt.Errorf("%w: coupon is no longer redeemable", ErrValidation)
		}
		amount = ApplyCoupon(amount, coupon)
		couponID = &coupon.ID
	}

	order := &model.Order{
		ProviderSessionID: params.ProviderSessionID,
		ProductID:         product.ID,
		CouponID:          couponID,
		CustomerEmail:     params.CustomerEmail,
		AmountCents:       amount,
		Currency:          product.Currency,
		Status:            model.OrderPending,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, config.ErrConflict) {
			// A retry of a session we already accepted. First write wins.
			return s.store.GetOrderBySession(ctx, params.ProviderSessionID)
		}
		return nil, err
	}
	return order, nil
}

// ApplyCoupon returns the discounted price in minor units, floored at zero.
func ApplyCoupon(priceCents int64, c *model.Coupon) int64 {
	discounted := priceCents
	if c.PercentOff > 0 {
		discounted = priceCents - priceCents*int64(c.PercentOff)/100
	} else if c.AmountOffCents > 0 {
		discounted = priceCents - c.AmountOffCents
	}
	if discounted < 0 {
		return 0
	}
	return discounted
}

// VerifyPayment asks the payment provider whether the order's checkout
// session was paid and, if so, transitions the order to paid. Verifying an
// already-paid order is a no-op returning the current state, so retries and
// duplicate webhooks from the provider are safe.
func (s *OrderService) VerifyPayment(ctx context.Context, orderID int64) (*model.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPending {
		return order, nil
	}

	session, err := s.provider.VerifySession(ctx, order.ProviderSessionID)
	if err != nil {
		return nil, err
	}
	if !session.Paid {
		return nil, fmt.Errorf("%w: payment not completed", ErrValidation)
	}
	if session.AmountCents != order.AmountCents {
		return nil, fmt.Errorf("%w: paid amount %d does not match order amount %d",
			config.ErrConflict, session.AmountCents, order.AmountCents)
	}

	if err := s.store.MarkOrderPaid(ctx, order.ID); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			// A concurrent verification won the transition.
			return s.store.GetOrder(ctx, order.ID)
		}
		return nil, err
	}

	if order.CouponID != nil {
		if err := s.store.RedeemCoupon(ctx, *order.CouponID); err != nil {
			// The order is paid either way; log and move on.
			s.logger.Warn("coupon redemption count update failed",
				"order_id", order.ID, "coupon_id", *order.CouponID, "error", err)
		}
	}

	order, err = s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Emit(webhook.EventOrderPaid, order)
	return order, nil
}

// RequestRefund opens a refund request against a paid order. Only one
// pending request may exist per order.
func (s *OrderService) RequestRefund(ctx context.Context, orderID int64, reason string) (*model.RefundRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPaid {
		return nil, fmt.Errorf("%w: only paid orders can be refunded", config.ErrConflict)
	}

	pending, err := s.store.HasPendingRefundRequest(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("%w: a refund request is already pending for this order", config.ErrConflict)
	}

	req := &model.RefundRequest{
		OrderID: order.ID,
		Reason:  reason,
	}
	if err := s.store.CreateRefundRequest(ctx, req); err != nil {
		return nil, err
	}
	s.notifier.Emit(webhook.EventRefundCreated, req)
	return req, nil
}

// ApproveRefund approves a pending refund request and executes the refund
// at the payment provider. The pending-to-approved transition is claimed
// first so concurrent decisions cannot both reach the provider; if the
// provider call then fails, the claim is reverted and the request stays
// pending.
func (s *OrderService) ApproveRefund(ctx context.Context, requestID int64, note string) (*model.RefundRequest, error) {
	req, err := s.store.GetRefundRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	// Claim the decision before touching the provider.
	if err := s.store.DecideRefundRequest(ctx, requestID, model.RefundApproved, "", note); err != nil {
		return nil, err
	}

	refundID, err := s.provider.Refund(ctx, order.ProviderSessionID, order.AmountCents)
	if err != nil {
		if revertErr := s.store.RevertRefundDecision(ctx, requestID); revertErr != nil {
			s.logger.Error("refund decision revert failed",
				"request_id", requestID, "error", revertErr)
		}
		return nil, fmt.Errorf("provider refund failed: %w", err)
	}

	// Record the provider refund ID on the now-approved row.
	if err := s.store.SetRefundProviderID(ctx, requestID, refundID); err != nil {
		s.logger.Error("recording provider refund id failed",
			"request_id", requestID, "refund_id", refundID, "error", err)
	}
	if err := s.store.MarkOrderRefunded(ctx, order.ID); err != nil {
		s.logger.Error("marking order refunded failed", "order_id", order.ID, "error", err)
	}

	req, err = s.store.GetRefundRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.notifier.Emit(webhook.EventRefundApproved, req)
	if refreshed, err := s.store.GetOrder(ctx, order.ID); err == nil {
		s.notifier.Emit(webhook.EventOrderRefunded, refreshed)
	}
	return req, nil
}

// DenyRefund denies a pending refund request. No provider call is involved.
func (s *OrderService) DenyRefund(ctx context.Context, requestID int64, note string) (*model.RefundRequest, error) {
	if err := s.store.DecideRefundRequest(ctx, requestID, model.RefundDenied, "", note); err != nil {
		return nil, err
	}
	req, err := s.store.GetRefundRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.notifier.Emit(webhook.EventRefundDenied, req)
	return req, nil
}
