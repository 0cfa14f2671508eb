package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/scope"
)

func newTestKeys(t *testing.T) (*KeyService, *config.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewKeyService(store, DefaultGraceHours), store
}

func TestGenerateKeyFormat(t *testing.T) {
	live, err := GenerateKey(false)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !strings.HasPrefix(live, LiveKeyPrefix) {
		t.Errorf("live key prefix: %q", live)
	}
	if len(live) != len(LiveKeyPrefix)+64 {
		t.Errorf("live key length: %d", len(live))
	}

	test, err := GenerateKey(true)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !strings.HasPrefix(test, TestKeyPrefix) {
		t.Errorf("test key prefix: %q", test)
	}

	other, _ := GenerateKey(false)
	if live == other {
		t.Error("two generated keys collided")
	}

	if got := DisplayPrefix(live); got != live[:12] {
		t.Errorf("DisplayPrefix: %q", got)
	}
}

func TestIssueDefaults(t *testing.T) {
	keys, _ := newTestKeys(t)
	ctx := context.Background()

	key, rawKey, err := keys.Issue(ctx, 7, IssueParams{Name: "  backend  "})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if key.Name != "backend" {
		t.Errorf("name not trimmed: %q", key.Name)
	}
	if len(key.Scopes) != 1 || key.Scopes[0] != scope.Wildcard {
		t.Errorf("default scopes: %v", key.Scopes)
	}
	if key.RateLimitPerMinute != DefaultRateLimit {
		t.Errorf("default rate limit: %d", key.RateLimitPerMinute)
	}
	if !key.IsActive {
		t.Error("new key should be active")
	}
	if key.KeyHash != config.HashAPIKey(rawKey) {
		t.Error("stored hash does not match raw key")
	}
	if key.KeyPrefix != rawKey[:12] {
		t.Errorf("stored prefix %q does not match raw key", key.KeyPrefix)
	}
}

func TestIssueValidation(t *testing.T) {
	keys, _ := newTestKeys(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)

	cases := []struct {
		name   string
		params IssueParams
	}{
		{"empty name", IssueParams{Name: "   "}},
		{"long name", IssueParams{Name: strings.Repeat("x", MaxKeyNameLen+1)}},
		{"unknown scope", IssueParams{Name: "k", Scopes: []string{"admin:everything"}}},
		{"rate too high", IssueParams{Name: "k", RateLimitPerMinute: MaxRateLimit + 1}},
		{"rate negative", IssueParams{Name: "k", RateLimitPerMinute: -1}},
		{"past expiry", IssueParams{Name: "k", ExpiresAt: &past}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := keys.Issue(ctx, 1, tc.params); !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestRotate(t *testing.T) {
	keys, store := newTestKeys(t)
	ctx := context.Background()

	old, oldRaw, err := keys.Issue(ctx, 1, IssueParams{
		Name:               "prod",
		Scopes:             []string{scope.OrdersRead},
		RateLimitPerMinute: 120,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	grace := 2
	res, err := keys.Rotate(ctx, 1, old.ID, &grace)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.RawKey == oldRaw {
		t.Fatal("rotation reused the raw key")
	}
	if res.NewKey.Name != old.Name+RotatedNameSuffix {
		t.Errorf("new key name = %q, want rotation suffix", res.NewKey.Name)
	}
	if res.NewKey.RateLimitPerMinute != 120 {
		t.Errorf("rate limit not carried over: %+v", res.NewKey)
	}
	if len(res.NewKey.Scopes) != 1 || res.NewKey.Scopes[0] != scope.OrdersRead {
		t.Errorf("scopes not carried over: %v", res.NewKey.Scopes)
	}
	if res.OldKeyID != old.ID {
		t.Errorf("old key id = %d, want %d", res.OldKeyID, old.ID)
	}
	if res.GraceUntil == nil {
		t.Fatal("expected a grace deadline in the result")
	}

	// Old key: deactivated with a grace window, still usable.
	stored, err := store.GetAPIKeyForAdmin(ctx, old.ID, 1)
	if err != nil {
		t.Fatalf("GetAPIKeyForAdmin: %v", err)
	}
	if stored.IsActive || stored.RevokedAt == nil {
		t.Error("old key should be deactivated")
	}
	if stored.RevokedReason != RotatedReason {
		t.Errorf("revoked reason: %q", stored.RevokedReason)
	}
	if stored.RotationGraceUntil == nil {
		t.Fatal("expected a grace window")
	}
	if !stored.Usable(time.Now().UTC()) {
		t.Error("old key should stay usable inside the grace window")
	}
	if stored.Usable(time.Now().UTC().Add(3 * time.Hour)) {
		t.Error("old key should die after the grace window")
	}
}

func TestRotateZeroGraceRevokesImmediately(t *testing.T) {
	keys, store := newTestKeys(t)
	ctx := context.Background()

	old, _, err := keys.Issue(ctx, 1, IssueParams{Name: "prod"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	zero := 0
	res, err := keys.Rotate(ctx, 1, old.ID, &zero)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.GraceUntil != nil {
		t.Error("zero grace should not report a deadline")
	}

	stored, err := store.GetAPIKeyForAdmin(ctx, old.ID, 1)
	if err != nil {
		t.Fatalf("GetAPIKeyForAdmin: %v", err)
	}
	if stored.RotationGraceUntil != nil {
		t.Error("zero grace should not set a window")
	}
	if stored.Usable(time.Now().UTC()) {
		t.Error("old key should be dead immediately")
	}
}

func TestRotateGuards(t *testing.T) {
	keys, _ := newTestKeys(t)
	ctx := context.Background()

	key, _, err := keys.Issue(ctx, 1, IssueParams{Name: "prod"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Out-of-range grace.
	bad := MaxGraceHours + 1
	if _, err := keys.Rotate(ctx, 1, key.ID, &bad); !errors.Is(err, ErrValidation) {
		t.Errorf("oversized grace: got %v", err)
	}

	// Another admin's key looks missing, not forbidden.
	if _, err := keys.Rotate(ctx, 2, key.ID, nil); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("cross-admin rotate: got %v", err)
	}

	// Rotating a revoked key is a request-level error, not a conflict.
	if err := keys.Revoke(ctx, 1, key.ID, ""); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := keys.Rotate(ctx, 1, key.ID, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("rotate revoked: got %v", err)
	}
}

func TestRotateTwiceKeepsOneSuffix(t *testing.T) {
	keys, _ := newTestKeys(t)
	ctx := context.Background()

	key, _, err := keys.Issue(ctx, 1, IssueParams{Name: "prod"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	zero := 0
	first, err := keys.Rotate(ctx, 1, key.ID, &zero)
	if err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	second, err := keys.Rotate(ctx, 1, first.NewKey.ID, &zero)
	if err != nil {
		t.Fatalf("second Rotate: %v", err)
	}
	if second.NewKey.Name != "prod"+RotatedNameSuffix {
		t.Errorf("suffix stacked: %q", second.NewKey.Name)
	}

	// The already-rotated first key is dead and cannot rotate again.
	if _, err := keys.Rotate(ctx, 1, first.OldKeyID, &zero); !errors.Is(err, ErrValidation) {
		t.Errorf("rotate rotated-out key: got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	keys, store := newTestKeys(t)
	ctx := context.Background()

	key, _, err := keys.Issue(ctx, 1, IssueParams{Name: "prod"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Cross-admin revoke is a not-found.
	if err := keys.Revoke(ctx, 2, key.ID, ""); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("cross-admin revoke: got %v", err)
	}

	if err := keys.Revoke(ctx, 1, key.ID, ""); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	stored, _ := store.GetAPIKeyForAdmin(ctx, key.ID, 1)
	if stored.RevokedReason != RevokedReasonDflt {
		t.Errorf("default reason: %q", stored.RevokedReason)
	}

	// Revocation is permanent: a second revoke finds nothing active.
	if err := keys.Revoke(ctx, 1, key.ID, "again"); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("double revoke: got %v", err)
	}
}

func TestListKeysPagination(t *testing.T) {
	keys, store := newTestKeys(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, _, err := keys.Issue(ctx, 1, IssueParams{Name: "key"}); err != nil {
			t.Fatalf("Issue: %v", err)
		}
	}
	// Another admin's keys must not leak into the page.
	if _, _, err := keys.Issue(ctx, 2, IssueParams{Name: "other"}); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	page := &pagination.Page{Limit: 2, SortField: "created_at"}
	rows, err := store.ListAPIKeysForAdmin(ctx, 1, page)
	if err != nil {
		t.Fatalf("ListAPIKeysForAdmin: %v", err)
	}
	// QueryLimit is limit+1; the store returns up to 3 rows here.
	if len(rows) != 3 {
		t.Fatalf("expected limit+1 rows, got %d", len(rows))
	}
	for _, k := range rows {
		if k.AdminID != 1 {
			t.Errorf("leaked key for admin %d", k.AdminID)
		}
	}
}
