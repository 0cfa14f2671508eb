package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/scope"
)

// ErrValidation marks request-level input errors so handlers can map them
// to a 400 instead of a 500.
var ErrValidation = errors.New("validation failed")

// Key format constants. A raw key is the mode prefix followed by 64 hex
// characters (256 bits of entropy); the stored display prefix is the first
// 12 characters of the raw key.
const (
	LiveKeyPrefix   = "gf_live_"
	TestKeyPrefix   = "gf_test_"
	keyRandomBytes  = 32
	displayPrefixLn = 12

	MaxKeyNameLen      = 100
	MinRateLimit       = 1
	MaxRateLimit       = 1000
	DefaultRateLimit   = 60
	MaxGraceHours      = 168
	DefaultGraceHours  = 24
	RevokedReasonDflt  = "Revoked"
	RotatedReason      = "Rotated"
	RotatedNameSuffix  = " (rotated)"
)

// KeyService owns the API key lifecycle: issuance, rotation, and revocation.
type KeyService struct {
	store             *config.Store
	defaultGraceHours int
}

func NewKeyService(store *config.Store, defaultGraceHours int) *KeyService {
	if defaultGraceHours < 0 || defaultGraceHours > MaxGraceHours {
		defaultGraceHours = DefaultGraceHours
	}
	return &KeyService{store: store, defaultGraceHours: defaultGraceHours}
}

// IssueParams are the caller-supplied attributes of a new key.
type IssueParams struct {
	Name               string     `json:"name"`
	Scopes             []string   `json:"scopes"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	ExpiresAt          *time.Time `json:"expires_at"`
	TestMode           bool       `json:"test_mode"`
}

// GenerateKey returns a fresh raw API key in the requested mode.
func GenerateKey(testMode bool) (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	mode := LiveKeyPrefix
	if testMode {
		mode = TestKeyPrefix
	}
	return mode + hex.EncodeToString(buf), nil
}

// DisplayPrefix returns the stored identification prefix of a raw key.
func DisplayPrefix(rawKey string) string {
	if len(rawKey) < displayPrefixLn {
		return rawKey
	}
	return rawKey[:displayPrefixLn]
}

func (p *IssueParams) validate(now time.Time) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(p.Name) > MaxKeyNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxKeyNameLen)
	}
	if len(p.Scopes) == 0 {
		p.Scopes = []string{scope.Wildcard}
	}
	if err := scope.Validate(p.Scopes); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.RateLimitPerMinute == 0 {
		p.RateLimitPerMinute = DefaultRateLimit
	}
	if p.RateLimitPerMinute < MinRateLimit || p.RateLimitPerMinute > MaxRateLimit {
		return fmt.Errorf("%w: rate_limit_per_minute must be between %d and %d",
			ErrValidation, MinRateLimit, MaxRateLimit)
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}
	return nil
}

// Issue creates a new API key for the admin and returns both the stored
// record and the raw key. The raw key is shown exactly once; only its hash
// survives.
func (s *KeyService) Issue(ctx context.Context, adminID int64, params IssueParams) (*model.APIKey, string, error) {
	if err := params.validate(time.Now().UTC()); err != nil {
		return nil, "", err
	}

	rawKey, err := GenerateKey(params.TestMode)
	if err != nil {
		return nil, "", err
	}

	key := &model.APIKey{
		AdminID:            adminID,
		KeyHash:            config.HashAPIKey(rawKey),
		KeyPrefix:          DisplayPrefix(rawKey),
		Name:               params.Name,
		Scopes:             params.Scopes,
		RateLimitPerMinute: params.RateLimitPerMinute,
		IsActive:           true,
		ExpiresAt:          params.ExpiresAt,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, rawKey, nil
}

// Get returns one of the admin's keys. Keys owned by other admins are
// reported as missing.
func (s *KeyService) Get(ctx context.Context, adminID, keyID int64) (*model.APIKey, error) {
	return s.store.GetAPIKeyForAdmin(ctx, keyID, adminID)
}

// RotationResult reports both halves of a completed rotation: the
// replacement key with its one-time plaintext, and what happened to the
// old credential.
type RotationResult struct {
	NewKey     *model.APIKey
	RawKey     string     // Plaintext of the new key, shown ONCE.
	OldKeyID   int64
	GraceUntil *time.Time // nil when the old key was revoked immediately.
}

// Rotate replaces one of the admin's keys with a fresh credential carrying
// the same scopes, rate limit, and expiry, under the old name marked as
// rotated. The old key stays valid for the grace window; zero grace hours
// revokes it immediately. graceHours nil picks the configured default.
func (s *KeyService) Rotate(ctx context.Context, adminID, keyID int64, graceHours *int) (*RotationResult, error) {
	hours := s.defaultGraceHours
	if graceHours != nil {
		hours = *graceHours
	}
	if hours < 0 || hours > MaxGraceHours {
		return nil, fmt.Errorf("%w: grace_period_hours must be between 0 and %d", ErrValidation, MaxGraceHours)
	}

	old, err := s.store.GetAPIKeyForAdmin(ctx, keyID, adminID)
	if err != nil {
		return nil, err
	}
	if !old.IsActive || old.RevokedAt != nil {
		return nil, fmt.Errorf("%w: key is inactive or revoked and cannot be rotated", ErrValidation)
	}

	testMode := strings.HasPrefix(old.KeyPrefix, TestKeyPrefix)
	rawKey, err := GenerateKey(testMode)
	if err != nil {
		return nil, err
	}

	name := old.Name
	if !strings.HasSuffix(name, RotatedNameSuffix) {
		name += RotatedNameSuffix
	}

	newKey := &model.APIKey{
		AdminID:            adminID,
		KeyHash:            config.HashAPIKey(rawKey),
		KeyPrefix:          DisplayPrefix(rawKey),
		Name:               name,
		Scopes:             old.Scopes,
		RateLimitPerMinute: old.RateLimitPerMinute,
		IsActive:           true,
		ExpiresAt:          old.ExpiresAt,
	}

	var graceUntil *time.Time
	if hours > 0 {
		t := time.Now().UTC().Add(time.Duration(hours) * time.Hour)
		graceUntil = &t
	}

	if err := s.store.RotateAPIKey(ctx, old.ID, newKey, graceUntil); err != nil {
		return nil, err
	}
	return &RotationResult{
		NewKey:     newKey,
		RawKey:     rawKey,
		OldKeyID:   old.ID,
		GraceUntil: graceUntil,
	}, nil
}

// Revoke deactivates one of the admin's keys immediately. Revocation is
// permanent; there is no grace window and no reactivation.
func (s *KeyService) Revoke(ctx context.Context, adminID, keyID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = RevokedReasonDflt
	}
	return s.store.RevokeAPIKey(ctx, keyID, adminID, reason, nil)
}
