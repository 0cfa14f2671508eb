package payment

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound means the provider has no record of the checkout
	// session.
	ErrSessionNotFound = errors.New("payment session not found")

	// ErrRefundRejected means the provider refused the refund (already
	// refunded, disputed, or outside the refund window).
	ErrRefundRejected = errors.New("refund rejected by provider")

	// ErrUnavailable means the provider could not be reached. Callers must
	// not commit local state changes that assume the provider call happened.
	ErrUnavailable = errors.New("payment provider unavailable")
)

// Session is the provider's view of a checkout session.
type Session struct {
	ID            string `json:"id"`
	Paid          bool   `json:"paid"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
}

// Provider abstracts the upstream payment processor. Implementations must
// be safe for concurrent use.
type Provider interface {
	// VerifySession returns the current state of a checkout session.
	VerifySession(ctx context.Context, sessionID string) (*Session, error)

	// Refund reverses a paid session and returns the provider's refund ID.
	Refund(ctx context.Context, sessionID string, amountCents int64) (string, error)
}
