package model

import "time"

// Refund request statuses.
const (
	RefundPending  = "pending"
	RefundApproved = "approved"
	RefundDenied   = "denied"
)

// RefundRequest tracks a customer's request to reverse a paid order.
// Approval calls the payment provider; the local status only sticks once
// the provider refund succeeds.
type RefundRequest struct {
	ID               int64      `json:"id" db:"id"`
	OrderID          int64      `json:"order_id" db:"order_id"`
	Reason           string     `json:"reason" db:"reason"`
	Status           string     `json:"status" db:"status"`
	ProviderRefundID string     `json:"provider_refund_id,omitempty" db:"provider_refund_id"`
	DecisionNote     string     `json:"decision_note,omitempty" db:"decision_note"`
	DecidedAt        *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
