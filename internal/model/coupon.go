package model

import "time"

// Coupon is a discount code applied at checkout. Exactly one of
// PercentOff / AmountOffCents is non-zero.
type Coupon struct {
	ID             int64      `json:"id" db:"id"`
	Code           string     `json:"code" db:"code"`
	PercentOff     int        `json:"percent_off" db:"percent_off"`
	AmountOffCents int64      `json:"amount_off_cents" db:"amount_off_cents"`
	MaxRedemptions int        `json:"max_redemptions" db:"max_redemptions"` // 0 = unlimited
	RedeemedCount  int        `json:"redeemed_count" db:"redeemed_count"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// CouponUpdate carries the mutable coupon fields for PATCH requests.
type CouponUpdate struct {
	PercentOff     *int       `json:"percent_off,omitempty"`
	AmountOffCents *int64     `json:"amount_off_cents,omitempty"`
	MaxRedemptions *int       `json:"max_redemptions,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// Redeemable reports whether the coupon can still be applied at the given
// instant.
func (c *Coupon) Redeemable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return false
	}
	if c.MaxRedemptions > 0 && c.RedeemedCount >= c.MaxRedemptions {
		return false
	}
	return true
}
