package config

import (
	"fmt"
	"strings"
)

// migrate creates and upgrades the schema. Statements are idempotent: table
// creation uses IF NOT EXISTS and ALTER TABLE tolerates duplicate columns,
// so running against an existing database is a no-op.
func (s *Store) migrate() error {
	// Column type spellings that differ across the supported backends.
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "DATETIME"
	switch s.db.DriverName() {
	case "pgx":
		pk = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMP"
	case "mysql":
		pk = "BIGINT PRIMARY KEY AUTO_INCREMENT"
		ts = "DATETIME(6)"
	}

	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admins (
			id %s,
			email VARCHAR(190) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL,
			is_super_admin BOOLEAN NOT NULL,
			last_login_at %s,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS api_keys (
			id %s,
			admin_id BIGINT NOT NULL,
			key_hash VARCHAR(64) UNIQUE NOT NULL,
			key_prefix VARCHAR(32) NOT NULL,
			name VARCHAR(100) NOT NULL,
			scopes_json TEXT NOT NULL,
			rate_limit_per_minute INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL,
			expires_at %s,
			revoked_at %s,
			revoked_reason VARCHAR(255) NOT NULL,
			rotation_grace_until %s,
			last_used_at %s,
			usage_count BIGINT NOT NULL,
			created_at %s NOT NULL
		)`, pk, ts, ts, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
			id %s,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(190) UNIQUE NOT NULL,
			description TEXT NOT NULL,
			price_cents BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			is_active BOOLEAN NOT NULL,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS coupons (
			id %s,
			code VARCHAR(190) UNIQUE NOT NULL,
			percent_off INTEGER NOT NULL,
			amount_off_cents BIGINT NOT NULL,
			max_redemptions INTEGER NOT NULL,
			redeemed_count INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL,
			expires_at %s,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS orders (
			id %s,
			provider_session_id VARCHAR(190) UNIQUE NOT NULL,
			product_id BIGINT NOT NULL,
			coupon_id BIGINT,
			customer_email VARCHAR(255) NOT NULL,
			amount_cents BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			status VARCHAR(20) NOT NULL,
			paid_at %s,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS refund_requests (
			id %s,
			order_id BIGINT NOT NULL,
			reason TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			provider_refund_id VARCHAR(190) NOT NULL,
			decision_note TEXT NOT NULL,
			decided_at %s,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS webhook_endpoints (
			id %s,
			url VARCHAR(2048) NOT NULL,
			secret VARCHAR(128) NOT NULL,
			events_json TEXT NOT NULL,
			is_active BOOLEAN NOT NULL,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, pk, ts, ts),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id %s,
			endpoint_id BIGINT NOT NULL REFERENCES webhook_endpoints(id) ON DELETE CASCADE,
			event VARCHAR(100) NOT NULL,
			payload TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			response_code INTEGER NOT NULL,
			error TEXT NOT NULL,
			duration_ms DOUBLE PRECISION NOT NULL,
			created_at %s NOT NULL
		)`, pk, ts),

		// Key-value settings (instance ID, schema markers, etc.)
		`CREATE TABLE IF NOT EXISTS settings (
			` + settingsKeyColumn(s.db.DriverName()) + ` VARCHAR(190) PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX idx_api_keys_admin ON api_keys(admin_id)`,
		`CREATE INDEX idx_orders_status ON orders(status)`,
		`CREATE INDEX idx_refund_requests_order ON refund_requests(order_id)`,
		`CREATE INDEX idx_webhook_deliveries_endpoint ON webhook_deliveries(endpoint_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// ALTER TABLE ADD COLUMN and CREATE INDEX are not idempotent on
			// every backend; treat duplicates as a no-op.
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "duplicate column") ||
				strings.Contains(msg, "already exists") ||
				strings.Contains(msg, "duplicate key name") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// settingsKeyColumn quotes the settings key column for MySQL, where "key"
// is a reserved word.
func settingsKeyColumn(driver string) string {
	if driver == "mysql" {
		return "`key`"
	}
	return "key"
}
