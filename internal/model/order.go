package model

import "time"

// Order statuses. Orders move pending → paid on payment verification and
// paid → refunded when a refund request is approved.
const (
	OrderPending  = "pending"
	OrderPaid     = "paid"
	OrderRefunded = "refunded"
)

// Order records a purchase. ProviderSessionID is the payment provider's
// checkout session identifier and is unique, which makes verify-payment
// idempotent.
type Order struct {
	ID                int64      `json:"id" db:"id"`
	ProviderSessionID string     `json:"provider_session_id" db:"provider_session_id"`
	ProductID         int64      `json:"product_id" db:"product_id"`
	CouponID          *int64     `json:"coupon_id,omitempty" db:"coupon_id"`
	CustomerEmail     string     `json:"customer_email" db:"customer_email"`
	AmountCents       int64      `json:"amount_cents" db:"amount_cents"`
	Currency          string     `json:"currency" db:"currency"`
	Status            string     `json:"status" db:"status"`
	PaidAt            *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
