package model

import "time"

// APIKey represents a bearer credential used to authenticate programmatic
// requests against the v1 API. The raw key is never stored; only a SHA-256
// hash and a short prefix for identification are persisted.
type APIKey struct {
	ID                 int64      `json:"id" db:"id"`
	AdminID            int64      `json:"-" db:"admin_id"`
	KeyHash            string     `json:"-" db:"key_hash"` // SHA-256 hash, never expose
	KeyPrefix          string     `json:"key_prefix" db:"key_prefix"`
	Name               string     `json:"name" db:"name"`
	Scopes             []string   `json:"scopes"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute" db:"rate_limit_per_minute"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedReason      string     `json:"revoked_reason,omitempty" db:"revoked_reason"`
	RotationGraceUntil *time.Time `json:"rotation_grace_until,omitempty" db:"rotation_grace_until"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	UsageCount         int64      `json:"usage_count" db:"usage_count"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Usable reports whether the key authenticates requests at the given instant.
// A rotated key stays usable until its grace window closes; a revoked key
// without a grace window is dead immediately.
func (k *APIKey) Usable(now time.Time) bool {
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	if k.IsActive && k.RevokedAt == nil {
		return true
	}
	return k.RotationGraceUntil != nil && !now.After(*k.RotationGraceUntil)
}
