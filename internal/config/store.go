package config

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
)

// Store persists all gateway state: admin accounts, API keys, the product
// catalog, coupons, orders, refund requests, and webhook configuration.
// SQLite is the default backend; Postgres and MySQL are supported through
// the same sqlx layer, with queries rebound per driver.
type Store struct {
	db *sqlx.DB
}

// NewStore opens a store on the given driver and DSN. Supported drivers are
// "sqlite", "pgx" (Postgres), and "mysql". MySQL DSNs must include
// parseTime=true so timestamp columns scan into time.Time.
func NewStore(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = "sqlite"
	}
	if driver == "sqlite" && dsn == "" {
		dsn = ":memory:?_journal_mode=WAL"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// OpenDefault opens the SQLite store under dataDir, creating the directory
// if needed. Pass empty string for in-memory.
func OpenDefault(dataDir string) (*Store, error) {
	if dataDir == "" {
		return NewStore("sqlite", "")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := filepath.Join(dataDir, "gateflow.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	return NewStore("sqlite", dsn)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// namedInsert runs a named INSERT and returns the new row id. Postgres has
// no LastInsertId, so the query grows a RETURNING clause there.
func (s *Store) namedInsert(ctx context.Context, q string, arg interface{}) (int64, error) {
	if s.db.DriverName() == "pgx" {
		rows, err := sqlx.NamedQueryContext(ctx, s.db, q+" RETURNING id", arg)
		if err != nil {
			return 0, err
		}
		defer rows.Close()
		var id int64
		if rows.Next() {
			if err := rows.Scan(&id); err != nil {
				return 0, err
			}
		}
		return id, rows.Err()
	}

	result, err := s.db.NamedExecContext(ctx, q, arg)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// exec runs a ?-placeholder statement rebound for the active driver and
// maps zero affected rows to ErrNotFound.
func (s *Store) exec(ctx context.Context, what, q string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// get runs a single-row ?-placeholder query, mapping sql.ErrNoRows to
// ErrNotFound.
func (s *Store) get(ctx context.Context, dest interface{}, what, q string, args ...interface{}) error {
	if err := s.db.GetContext(ctx, dest, s.db.Rebind(q), args...); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// selectPage runs a keyset-paginated SELECT: the base filter, the cursor
// predicate, the whitelisted order clause, and limit+1 rows so the caller
// can detect whether more remain.
func (s *Store) selectPage(ctx context.Context, dest interface{}, table, baseWhere string, baseArgs []interface{}, page *pagination.Page) error {
	var where []string
	args := make([]interface{}, 0, len(baseArgs)+3)
	if baseWhere != "" {
		where = append(where, baseWhere)
		args = append(args, baseArgs...)
	}
	if clause, cursorArgs := page.WhereClause(); clause != "" {
		where = append(where, clause)
		args = append(args, cursorArgs...)
	}

	q := "SELECT * FROM " + table
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + page.OrderClause() + " LIMIT ?"
	args = append(args, page.QueryLimit())

	if err := s.db.SelectContext(ctx, dest, s.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint failure on
// any of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "Duplicate entry") // mysql
}

// ---------------------------------------------------------------------------
// Admin CRUD
// ---------------------------------------------------------------------------

// CreateAdmin inserts a new admin account. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	const q = `INSERT INTO admins
		(email, password_hash, name, is_active, is_super_admin, created_at, updated_at)
		VALUES
		(:email, :password_hash, :name, :is_active, :is_super_admin, :created_at, :updated_at)`

	id, err := s.namedInsert(ctx, q, admin)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	if err := s.get(ctx, &admin, "get admin", "SELECT * FROM admins WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &admin, nil
}

// GetAdminByEmail returns an admin by email address.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	if err := s.get(ctx, &admin, "get admin by email", "SELECT * FROM admins WHERE email = ?", email); err != nil {
		return nil, err
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. This is used
// for first-run detection to trigger the initial setup flow.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.exec(ctx, "update admin last login",
		"UPDATE admins SET last_login_at = ?, updated_at = ? WHERE id = ?", now, now, id)
}

// ---------------------------------------------------------------------------
// API key management
// ---------------------------------------------------------------------------

// apiKeyRow is a flat struct that maps 1:1 to the api_keys table columns.
// The scopes_json column stores the JSON-encoded scope list.
type apiKeyRow struct {
	ID                 int64      `db:"id"`
	AdminID            int64      `db:"admin_id"`
	KeyHash            string     `db:"key_hash"`
	KeyPrefix          string     `db:"key_prefix"`
	Name               string     `db:"name"`
	ScopesJSON         string     `db:"scopes_json"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute"`
	IsActive           bool       `db:"is_active"`
	ExpiresAt          *time.Time `db:"expires_at"`
	RevokedAt          *time.Time `db:"revoked_at"`
	RevokedReason      string     `db:"revoked_reason"`
	RotationGraceUntil *time.Time `db:"rotation_grace_until"`
	LastUsedAt         *time.Time `db:"last_used_at"`
	UsageCount         int64      `db:"usage_count"`
	CreatedAt          time.Time  `db:"created_at"`
}

func apiKeyRowFromModel(k *model.APIKey) (apiKeyRow, error) {
	scopes := k.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return apiKeyRow{}, fmt.Errorf("marshal scopes: %w", err)
	}
	return apiKeyRow{
		ID:                 k.ID,
		AdminID:            k.AdminID,
		KeyHash:            k.KeyHash,
		KeyPrefix:          k.KeyPrefix,
		Name:               k.Name,
		ScopesJSON:         string(scopesJSON),
		RateLimitPerMinute: k.RateLimitPerMinute,
		IsActive:           k.IsActive,
		ExpiresAt:          k.ExpiresAt,
		RevokedAt:          k.RevokedAt,
		RevokedReason:      k.RevokedReason,
		RotationGraceUntil: k.RotationGraceUntil,
		LastUsedAt:         k.LastUsedAt,
		UsageCount:         k.UsageCount,
		CreatedAt:          k.CreatedAt,
	}, nil
}

func (r apiKeyRow) toModel() (model.APIKey, error) {
	var scopes []string
	if r.ScopesJSON != "" {
		if err := json.Unmarshal([]byte(r.ScopesJSON), &scopes); err != nil {
			return model.APIKey{}, fmt.Errorf("unmarshal scopes: %w", err)
		}
	}
	if scopes == nil {
		scopes = []string{}
	}
	return model.APIKey{
		ID:                 r.ID,
		AdminID:            r.AdminID,
		KeyHash:            r.KeyHash,
		KeyPrefix:          r.KeyPrefix,
		Name:               r.Name,
		Scopes:             scopes,
		RateLimitPerMinute: r.RateLimitPerMinute,
		IsActive:           r.IsActive,
		ExpiresAt:          r.ExpiresAt,
		RevokedAt:          r.RevokedAt,
		RevokedReason:      r.RevokedReason,
		RotationGraceUntil: r.RotationGraceUntil,
		LastUsedAt:         r.LastUsedAt,
		UsageCount:         r.UsageCount,
		CreatedAt:          r.CreatedAt,
	}, nil
}

const apiKeyInsertQ = `INSERT INTO api_keys
	(admin_id, key_hash, key_prefix, name, scopes_json, rate_limit_per_minute,
	 is_active, expires_at, revoked_at, revoked_reason, rotation_grace_until,
	 last_used_at, usage_count, created_at)
	VALUES
	(:admin_id, :key_hash, :key_prefix, :name, :scopes_json, :rate_limit_per_minute,
	 :is_active, :expires_at, :revoked_at, :revoked_reason, :rotation_grace_until,
	 :last_used_at, :usage_count, :created_at)`

// CreateAPIKey inserts a new API key record. The key_hash must already be set
// (use HashAPIKey). The ID and CreatedAt fields are populated after insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = time.Now().UTC()

	row, err := apiKeyRowFromModel(key)
	if err != nil {
		return err
	}
	id, err := s.namedInsert(ctx, apiKeyInsertQ, row)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	key.ID = id
	return nil
}

// GetAPIKey returns an API key by ID regardless of owner. Handlers must use
// GetAPIKeyForAdmin instead so one admin cannot read another's keys.
func (s *Store) GetAPIKey(ctx context.Context, id int64) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.get(ctx, &row, "get api key", "SELECT * FROM api_keys WHERE id = ?", id); err != nil {
		return nil, err
	}
	key, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetAPIKeyForAdmin returns an API key by ID, but only if it belongs to the
// given admin. A key owned by someone else is indistinguishable from a
// missing one.
func (s *Store) GetAPIKeyForAdmin(ctx context.Context, id, adminID int64) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.get(ctx, &row, "get api key",
		"SELECT * FROM api_keys WHERE id = ? AND admin_id = ?", id, adminID); err != nil {
		return nil, err
	}
	key, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetAPIKeyByHash looks up an API key by its SHA-256 hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var row apiKeyRow
	if err := s.get(ctx, &row, "get api key by hash",
		"SELECT * FROM api_keys WHERE key_hash = ?", hash); err != nil {
		return nil, err
	}
	key, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListAPIKeysForAdmin returns one page of the admin's API keys.
func (s *Store) ListAPIKeysForAdmin(ctx context.Context, adminID int64, page *pagination.Page) ([]model.APIKey, error) {
	var rows []apiKeyRow
	if err := s.selectPage(ctx, &rows, "api_keys", "admin_id = ?", []interface{}{adminID}, page); err != nil {
		return nil, err
	}
	keys := make([]model.APIKey, 0, len(rows))
	for _, r := range rows {
		k, err := r.toModel()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// TouchAPIKey bumps the key's last_used_at and usage counter. Called on the
// hot path after successful authentication, typically fire-and-forget.
func (s *Store) TouchAPIKey(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.exec(ctx, "touch api key",
		"UPDATE api_keys SET last_used_at = ?, usage_count = usage_count + 1 WHERE id = ?", now, id)
}

// RevokeAPIKey deactivates a key owned by the admin. A nil graceUntil kills
// the key immediately; otherwise it keeps authenticating until the grace
// window closes. Revoking an already-revoked key returns ErrNotFound.
func (s *Store) RevokeAPIKey(ctx context.Context, id, adminID int64, reason string, graceUntil *time.Time) error {
	now := time.Now().UTC()
	return s.exec(ctx, "revoke api key",
		`UPDATE api_keys
		 SET is_active = ?, revoked_at = ?, revoked_reason = ?, rotation_grace_until = ?
		 WHERE id = ? AND admin_id = ? AND is_active = ?`,
		false, now, reason, graceUntil, id, adminID, true)
}

// RotateAPIKey atomically inserts the replacement key and deactivates the
// old one. The new key is written first so there is no instant where the
// caller holds zero working credentials.
func (s *Store) RotateAPIKey(ctx context.Context, oldID int64, newKey *model.APIKey, graceUntil *time.Time) error {
	newKey.CreatedAt = time.Now().UTC()
	row, err := apiKeyRowFromModel(newKey)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.db.DriverName() == "pgx" {
		var id int64
		stmt, err := tx.PrepareNamedContext(ctx, apiKeyInsertQ+" RETURNING id")
		if err != nil {
			return fmt.Errorf("insert rotated key: %w", err)
		}
		defer stmt.Close()
		if err := stmt.GetContext(ctx, &id, row); err != nil {
			return fmt.Errorf("insert rotated key: %w", err)
		}
		newKey.ID = id
	} else {
		result, err := tx.NamedExecContext(ctx, apiKeyInsertQ, row)
		if err != nil {
			return fmt.Errorf("insert rotated key: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get rotated key id: %w", err)
		}
		newKey.ID = id
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE api_keys
		 SET is_active = ?, revoked_at = ?, revoked_reason = ?, rotation_grace_until = ?
		 WHERE id = ? AND is_active = ?`),
		false, now, "Rotated", graceUntil, oldID, true)
	if err != nil {
		return fmt.Errorf("deactivate rotated key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate rotated key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// GetSetting returns a settings value, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	q := "SELECT value FROM settings WHERE " + settingsKeyColumn(s.db.DriverName()) + " = ?"
	if err := s.get(ctx, &value, "get setting", q, key); err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting upserts a settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	var q string
	if s.db.DriverName() == "mysql" {
		q = "INSERT INTO settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)"
	} else {
		q = "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Utility
// ---------------------------------------------------------------------------

// HashAPIKey returns the hex-encoded SHA-256 hash of a raw API key string.
// Keys carry 256 bits of entropy, so a deterministic hash is safe here and
// keeps the authentication lookup a single indexed query.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
