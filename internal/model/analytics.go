package model

import "time"

// OrderStats aggregates order counts and revenue across the whole store.
type OrderStats struct {
	TotalOrders    int64 `json:"total_orders" db:"total_orders"`
	PendingOrders  int64 `json:"pending_orders" db:"pending_orders"`
	PaidOrders     int64 `json:"paid_orders" db:"paid_orders"`
	RefundedOrders int64 `json:"refunded_orders" db:"refunded_orders"`
	GrossCents     int64 `json:"gross_cents" db:"gross_cents"`
	RefundedCents  int64 `json:"refunded_cents" db:"refunded_cents"`
}

// PaidOrder is the minimal projection used for revenue bucketing.
type PaidOrder struct {
	PaidAt      time.Time `json:"paid_at" db:"paid_at"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
}

// RevenuePoint is one day of revenue, keyed by UTC date.
type RevenuePoint struct {
	Day         string `json:"day"`
	Orders      int64  `json:"orders"`
	AmountCents int64  `json:"amount_cents"`
}

// KeyUsage reports per-key request counters for usage analytics.
type KeyUsage struct {
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	Name       string     `json:"name" db:"name"`
	UsageCount int64      `json:"usage_count" db:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}
