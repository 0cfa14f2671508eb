package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/scope"
)

func keyRecord(rawKey string, expires time.Time) model.APIKey {
	return model.APIKey{
		AdminID:            1,
		KeyHash:            config.HashAPIKey(rawKey),
		KeyPrefix:          DisplayPrefix(rawKey),
		Name:               "expired",
		Scopes:             []string{scope.Wildcard},
		RateLimitPerMinute: DefaultRateLimit,
		IsActive:           true,
		ExpiresAt:          &expires,
	}
}

func newAdmin(email, hash string) model.Admin {
	return model.Admin{Email: email, PasswordHash: hash, Name: "Test Admin", IsActive: true}
}

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore("sqlite", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestAuth(t *testing.T) (*AuthService, *config.Store) {
	t.Helper()
	store := newTestStore(t)
	auth := NewAuthService(store, "test-secret-key-for-jwt")
	return auth, store
}

func TestJWTRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, 42, "admin@example.com", 1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	principal, err := auth.ValidateJWT(ctx, token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if principal.AdminID != 42 {
		t.Errorf("AdminID: got %d, want 42", principal.AdminID)
	}
	if principal.Email != "admin@example.com" {
		t.Errorf("Email: got %q, want %q", principal.Email, "admin@example.com")
	}
}

func TestJWTExpired(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	token, err := auth.IssueJWT(ctx, 1, "test@test.com", -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}

	if _, err := auth.ValidateJWT(ctx, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTInvalidToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.ValidateJWT(ctx, "garbage.token.here"); err == nil {
		t.Fatal("expected error for invalid token")
	}
}

func TestAPIKeyValidation(t *testing.T) {
	auth, store := newTestAuth(t)
	keys := NewKeyService(store, DefaultGraceHours)
	ctx := context.Background()

	key, rawKey, err := keys.Issue(ctx, 1, IssueParams{
		Name:   "ci deploys",
		Scopes: []string{scope.ProductsRead, scope.OrdersRead},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	principal, err := auth.ValidateAPIKey(ctx, rawKey)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if principal.KeyID != key.ID {
		t.Errorf("KeyID: got %d, want %d", principal.KeyID, key.ID)
	}
	if principal.AdminID != 1 {
		t.Errorf("AdminID: got %d, want 1", principal.AdminID)
	}
	if len(principal.Scopes) != 2 {
		t.Errorf("Scopes: got %v", principal.Scopes)
	}

	if _, err := auth.ValidateAPIKey(ctx, "gf_live_wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAPIKeyRevoked(t *testing.T) {
	auth, store := newTestAuth(t)
	keys := NewKeyService(store, DefaultGraceHours)
	ctx := context.Background()

	key, rawKey, err := keys.Issue(ctx, 1, IssueParams{Name: "revoke-test"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := keys.Revoke(ctx, 1, key.ID, "compromised"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := auth.ValidateAPIKey(ctx, rawKey); !errors.Is(err, ErrKeyRevoked) {
		t.Errorf("expected ErrKeyRevoked, got %v", err)
	}
}

func TestAPIKeyExpired(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	// Issue rejects past expiries, so build the expired row directly.
	rawKey, err := GenerateKey(false)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	rec := keyRecord(rawKey, past)
	if err := store.CreateAPIKey(ctx, &rec); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if _, err := auth.ValidateAPIKey(ctx, rawKey); !errors.Is(err, ErrKeyExpired) {
		t.Errorf("expected ErrKeyExpired, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()

	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := newAdmin("owner@example.com", hash)
	if err := store.CreateAdmin(ctx, &admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}

	got, err := auth.Login(ctx, "owner@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != admin.ID {
		t.Errorf("admin ID: got %d, want %d", got.ID, admin.ID)
	}
	if got.LastLoginAt == nil {
		t.Error("expected last login timestamp to be set")
	}

	if _, err := auth.Login(ctx, "owner@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := auth.Login(ctx, "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "S3cret") {
		t.Error("wrong password accepted")
	}
	if CheckPassword("malformed", "s3cret") {
		t.Error("malformed hash accepted")
	}

	// Salting: same password, different digests.
	hash2, _ := HashPassword("s3cret")
	if hash == hash2 {
		t.Error("expected unique salts per hash")
	}
}
