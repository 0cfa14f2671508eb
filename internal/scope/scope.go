package scope

import (
	"fmt"
	"sort"
)

// Wildcard grants every scope. Keys issued without an explicit scope list
// default to it.
const Wildcard = "*"

// The enumerated scope set. Each API operation declares the scope it
// requires; anything outside this list is rejected at key issuance.
const (
	ProductsRead        = "products:read"
	ProductsWrite       = "products:write"
	CouponsRead         = "coupons:read"
	CouponsWrite        = "coupons:write"
	OrdersRead          = "orders:read"
	OrdersWrite         = "orders:write"
	RefundRequestsRead  = "refund_requests:read"
	RefundRequestsWrite = "refund_requests:write"
	WebhooksRead        = "webhooks:read"
	WebhooksWrite       = "webhooks:write"
	AnalyticsRead       = "analytics:read"
)

var known = map[string]bool{
	Wildcard:            true,
	ProductsRead:        true,
	ProductsWrite:       true,
	CouponsRead:         true,
	CouponsWrite:        true,
	OrdersRead:          true,
	OrdersWrite:         true,
	RefundRequestsRead:  true,
	RefundRequestsWrite: true,
	WebhooksRead:        true,
	WebhooksWrite:       true,
	AnalyticsRead:       true,
}

// All returns the full enumerated scope set (excluding the wildcard),
// sorted for stable display.
func All() []string {
	out := make([]string, 0, len(known)-1)
	for s := range known {
		if s != Wildcard {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks every scope string against the enumerated set. Unknown
// scopes are rejected here, at issuance time, not deferred to check time.
func Validate(scopes []string) error {
	for _, s := range scopes {
		if !known[s] {
			return fmt.Errorf("unknown scope %q", s)
		}
	}
	return nil
}

// Allowed reports whether the granted set covers every required scope.
// The wildcard covers everything; an empty required list is always allowed.
func Allowed(granted []string, required ...string) bool {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		if s == Wildcard {
			return true
		}
		have[s] = true
	}
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}
