package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
)

// ---------------------------------------------------------------------------
// Product CRUD
// ---------------------------------------------------------------------------

// CreateProduct inserts a new product. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert. A duplicate slug returns
// ErrConflict.
func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	const q = `INSERT INTO products
		(name, slug, description, price_cents, currency, is_active, created_at, updated_at)
		VALUES
		(:name, :slug, :description, :price_cents, :currency, :is_active, :created_at, :updated_at)`

	id, err := s.namedInsert(ctx, q, p)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug already in use", ErrConflict)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID = id
	return nil
}

// GetProduct returns a product by ID.
func (s *Store) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	if err := s.get(ctx, &p, "get product", "SELECT * FROM products WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductBySlug returns a product by its unique slug.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var p model.Product
	if err := s.get(ctx, &p, "get product by slug", "SELECT * FROM products WHERE slug = ?", slug); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns one page of products.
func (s *Store) ListProducts(ctx context.Context, page *pagination.Page) ([]model.Product, error) {
	var products []model.Product
	if err := s.selectPage(ctx, &products, "products", "", nil, page); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct applies the non-nil fields of upd to the product and returns
// the updated row.
func (s *Store) UpdateProduct(ctx context.Context, id int64, upd *model.ProductUpdate) (*model.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.PriceCents != nil {
		p.PriceCents = *upd.PriceCents
	}
	if upd.Currency != nil {
		p.Currency = *upd.Currency
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = time.Now().UTC()

	const q = `UPDATE products SET
		name = :name, description = :description, price_cents = :price_cents,
		currency = :currency, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update product rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return p, nil
}

// DeleteProduct removes a product by ID.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete product", "DELETE FROM products WHERE id = ?", id)
}

// ---------------------------------------------------------------------------
// Coupon CRUD
// ---------------------------------------------------------------------------

// CreateCoupon inserts a new coupon. A duplicate code returns ErrConflict.
func (s *Store) CreateCoupon(ctx context.Context, c *model.Coupon) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `INSERT INTO coupons
		(code, percent_off, amount_off_cents, max_redemptions, redeemed_count,
		 is_active, expires_at, created_at, updated_at)
		VALUES
		(:code, :percent_off, :amount_off_cents, :max_redemptions, :redeemed_count,
		 :is_active, :expires_at, :created_at, :updated_at)`

	id, err := s.namedInsert(ctx, q, c)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: coupon code already exists", ErrConflict)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	c.ID = id
	return nil
}

// GetCoupon returns a coupon by ID.
func (s *Store) GetCoupon(ctx context.Context, id int64) (*model.Coupon, error) {
	var c model.Coupon
	if err := s.get(ctx, &c, "get coupon", "SELECT * FROM coupons WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCouponByCode returns a coupon by its unique code.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var c model.Coupon
	if err := s.get(ctx, &c, "get coupon by code", "SELECT * FROM coupons WHERE code = ?", code); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCoupons returns one page of coupons.
func (s *Store) ListCoupons(ctx context.Context, page *pagination.Page) ([]model.Coupon, error) {
	var coupons []model.Coupon
	if err := s.selectPage(ctx, &coupons, "coupons", "", nil, page); err != nil {
		return nil, err
	}
	return coupons, nil
}

// UpdateCoupon applies the non-nil fields of upd to the coupon and returns
// the updated row. The code itself is immutable after creation.
func (s *Store) UpdateCoupon(ctx context.Context, id int64, upd *model.CouponUpdate) (*model.Coupon, error) {
	c, err := s.GetCoupon(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.PercentOff != nil {
		c.PercentOff = *upd.PercentOff
	}
	if upd.AmountOffCents != nil {
		c.AmountOffCents = *upd.AmountOffCents
	}
	if upd.MaxRedemptions != nil {
		c.MaxRedemptions = *upd.MaxRedemptions
	}
	if upd.IsActive != nil {
		c.IsActive = *upd.IsActive
	}
	if upd.ExpiresAt != nil {
		c.ExpiresAt = upd.ExpiresAt
	}
	c.UpdatedAt = time.Now().UTC()

	const q = `UPDATE coupons SET
		percent_off = :percent_off, amount_off_cents = :amount_off_cents,
		max_redemptions = :max_redemptions, is_active = :is_active,
		expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update coupon rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return c, nil
}

// DeleteCoupon removes a coupon by ID.
func (s *Store) DeleteCoupon(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete coupon", "DELETE FROM coupons WHERE id = ?", id)
}

// RedeemCoupon atomically increments the coupon's redemption counter, but
// only while a redemption slot remains. ErrConflict means the coupon was
// exhausted by a concurrent redemption.
func (s *Store) RedeemCoupon(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	err := s.exec(ctx, "redeem coupon",
		`UPDATE coupons SET redeemed_count = redeemed_count + 1, updated_at = ?
		 WHERE id = ? AND is_active = ?
		   AND (max_redemptions = 0 OR redeemed_count < max_redemptions)`,
		now, id, true)
	if err == ErrNotFound {
		// Distinguish "gone" from "exhausted" for the caller's error message.
		if _, getErr := s.GetCoupon(ctx, id); getErr == nil {
			return fmt.Errorf("%w: coupon fully redeemed or inactive", ErrConflict)
		}
		return ErrNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// CreateOrder inserts a new order in pending status. A duplicate provider
// session ID returns ErrConflict, which makes order creation idempotent per
// checkout session.
func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	const q = `INSERT INTO orders
		(provider_session_id, product_id, coupon_id, customer_email, amount_cents,
		 currency, status, paid_at, created_at, updated_at)
		VALUES
		(:provider_session_id, :product_id, :coupon_id, :customer_email, :amount_cents,
		 :currency, :status, :paid_at, :created_at, :updated_at)`

	id, err := s.namedInsert(ctx, q, o)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order already exists for session", ErrConflict)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID = id
	return nil
}

// GetOrder returns an order by ID.
func (s *Store) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	if err := s.get(ctx, &o, "get order", "SELECT * FROM orders WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderBySession returns an order by its payment provider session ID.
func (s *Store) GetOrderBySession(ctx context.Context, sessionID string) (*model.Order, error) {
	var o model.Order
	if err := s.get(ctx, &o, "get order by session",
		"SELECT * FROM orders WHERE provider_session_id = ?", sessionID); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns one page of orders, optionally filtered by status.
func (s *Store) ListOrders(ctx context.Context, status string, page *pagination.Page) ([]model.Order, error) {
	var (
		where string
		args  []interface{}
	)
	if status != "" {
		where = "status = ?"
		args = []interface{}{status}
	}
	var orders []model.Order
	if err := s.selectPage(ctx, &orders, "orders", where, args, page); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkOrderPaid transitions a pending order to paid. The status guard makes
// the transition idempotent-safe: a second verification finds zero pending
// rows and gets ErrNotFound.
func (s *Store) MarkOrderPaid(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.exec(ctx, "mark order paid",
		"UPDATE orders SET status = ?, paid_at = ?, updated_at = ? WHERE id = ? AND status = ?",
		model.OrderPaid, now, now, id, model.OrderPending)
}

// MarkOrderRefunded transitions a paid order to refunded.
func (s *Store) MarkOrderRefunded(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.exec(ctx, "mark order refunded",
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		model.OrderRefunded, now, id, model.OrderPaid)
}

// ---------------------------------------------------------------------------
// Refund requests
// ---------------------------------------------------------------------------

// CreateRefundRequest inserts a pending refund request for an order.
func (s *Store) CreateRefundRequest(ctx context.Context, r *model.RefundRequest) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Status = model.RefundPending

	const q = `INSERT INTO refund_requests
		(order_id, reason, status, provider_refund_id, decision_note, decided_at, created_at, updated_at)
		VALUES
		(:order_id, :reason, :status, :provider_refund_id, :decision_note, :decided_at, :created_at, :updated_at)`

	id, err := s.namedInsert(ctx, q, r)
	if err != nil {
		return fmt.Errorf("insert refund request: %w", err)
	}
	r.ID = id
	return nil
}

// GetRefundRequest returns a refund request by ID.
func (s *Store) GetRefundRequest(ctx context.Context, id int64) (*model.RefundRequest, error) {
	var r model.RefundRequest
	if err := s.get(ctx, &r, "get refund request",
		"SELECT * FROM refund_requests WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// HasPendingRefundRequest reports whether the order already has an undecided
// refund request.
func (s *Store) HasPendingRefundRequest(ctx context.Context, orderID int64) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(
		"SELECT COUNT(*) FROM refund_requests WHERE order_id = ? AND status = ?"),
		orderID, model.RefundPending); err != nil {
		return false, fmt.Errorf("count pending refund requests: %w", err)
	}
	return count > 0, nil
}

// ListRefundRequests returns one page of refund requests, optionally
// filtered by status.
func (s *Store) ListRefundRequests(ctx context.Context, status string, page *pagination.Page) ([]model.RefundRequest, error) {
	var (
		where string
		args  []interface{}
	)
	if status != "" {
		where = "status = ?"
		args = []interface{}{status}
	}
	var requests []model.RefundRequest
	if err := s.selectPage(ctx, &requests, "refund_requests", where, args, page); err != nil {
		return nil, err
	}
	return requests, nil
}

// DecideRefundRequest moves a pending request to its final status. The
// status guard rejects double decisions: deciding a non-pending request
// returns ErrConflict if the row exists, ErrNotFound otherwise.
func (s *Store) DecideRefundRequest(ctx context.Context, id int64, status, providerRefundID, note string) error {
	now := time.Now().UTC()
	err := s.exec(ctx, "decide refund request",
		`UPDATE refund_requests
		 SET status = ?, provider_refund_id = ?, decision_note = ?, decided_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, providerRefundID, note, now, now, id, model.RefundPending)
	if err == ErrNotFound {
		if _, getErr := s.GetRefundRequest(ctx, id); getErr == nil {
			return fmt.Errorf("%w: refund request already decided", ErrConflict)
		}
		return ErrNotFound
	}
	return err
}

// SetRefundProviderID records the provider's refund identifier on a
// decided request.
func (s *Store) SetRefundProviderID(ctx context.Context, id int64, providerRefundID string) error {
	now := time.Now().UTC()
	return s.exec(ctx, "set refund provider id",
		"UPDATE refund_requests SET provider_refund_id = ?, updated_at = ? WHERE id = ?",
		providerRefundID, now, id)
}

// RevertRefundDecision returns a decided request to pending. Used when the
// payment provider call that the decision depended on fails after the local
// status was claimed.
func (s *Store) RevertRefundDecision(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.exec(ctx, "revert refund decision",
		`UPDATE refund_requests
		 SET status = ?, provider_refund_id = ?, decision_note = ?, decided_at = NULL, updated_at = ?
		 WHERE id = ?`,
		model.RefundPending, "", "", now, id)
}

// ---------------------------------------------------------------------------
// Webhook endpoints and deliveries
// ---------------------------------------------------------------------------

// webhookEndpointRow maps 1:1 to the webhook_endpoints table. The
// events_json column stores the JSON-encoded event filter.
type webhookEndpointRow struct {
	ID         int64     `db:"id"`
	URL        string    `db:"url"`
	Secret     string    `db:"secret"`
	EventsJSON string    `db:"events_json"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r webhookEndpointRow) toModel() (model.WebhookEndpoint, error) {
	var events []string
	if r.EventsJSON != "" {
		if err := json.Unmarshal([]byte(r.EventsJSON), &events); err != nil {
			return model.WebhookEndpoint{}, fmt.Errorf("unmarshal events: %w", err)
		}
	}
	if events == nil {
		events = []string{}
	}
	return model.WebhookEndpoint{
		ID:        r.ID,
		URL:       r.URL,
		Secret:    r.Secret,
		Events:    events,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// CreateWebhookEndpoint inserts a new webhook endpoint.
func (s *Store) CreateWebhookEndpoint(ctx context.Context, e *model.WebhookEndpoint) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	events := e.Events
	if events == nil {
		events = []string{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	row := webhookEndpointRow{
		URL:        e.URL,
		Secret:     e.Secret,
		EventsJSON: string(eventsJSON),
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}

	const q = `INSERT INTO webhook_endpoints
		(url, secret, events_json, is_active, created_at, updated_at)
		VALUES
		(:url, :secret, :events_json, :is_active, :created_at, :updated_at)`

	id, err := s.namedInsert(ctx, q, row)
	if err != nil {
		return fmt.Errorf("insert webhook endpoint: %w", err)
	}
	e.ID = id
	return nil
}

// GetWebhookEndpoint returns a webhook endpoint by ID.
func (s *Store) GetWebhookEndpoint(ctx context.Context, id int64) (*model.WebhookEndpoint, error) {
	var row webhookEndpointRow
	if err := s.get(ctx, &row, "get webhook endpoint",
		"SELECT * FROM webhook_endpoints WHERE id = ?", id); err != nil {
		return nil, err
	}
	e, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListWebhookEndpoints returns one page of webhook endpoints.
func (s *Store) ListWebhookEndpoints(ctx context.Context, page *pagination.Page) ([]model.WebhookEndpoint, error) {
	var rows []webhookEndpointRow
	if err := s.selectPage(ctx, &rows, "webhook_endpoints", "", nil, page); err != nil {
		return nil, err
	}
	endpoints := make([]model.WebhookEndpoint, 0, len(rows))
	for _, r := range rows {
		e, err := r.toModel()
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}

// ListActiveWebhookEndpoints returns every active endpoint, unpaginated, for
// the delivery fan-out.
func (s *Store) ListActiveWebhookEndpoints(ctx context.Context) ([]model.WebhookEndpoint, error) {
	var rows []webhookEndpointRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		"SELECT * FROM webhook_endpoints WHERE is_active = ? ORDER BY id"), true); err != nil {
		return nil, fmt.Errorf("list active webhook endpoints: %w", err)
	}
	endpoints := make([]model.WebhookEndpoint, 0, len(rows))
	for _, r := range rows {
		e, err := r.toModel()
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}

// UpdateWebhookEndpoint replaces the endpoint's URL, event filter, and
// active flag. The secret is immutable after creation.
func (s *Store) UpdateWebhookEndpoint(ctx context.Context, e *model.WebhookEndpoint) error {
	e.UpdatedAt = time.Now().UTC()

	events := e.Events
	if events == nil {
		events = []string{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	return s.exec(ctx, "update webhook endpoint",
		`UPDATE webhook_endpoints
		 SET url = ?, events_json = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		e.URL, string(eventsJSON), e.IsActive, e.UpdatedAt, e.ID)
}

// DeleteWebhookEndpoint removes a webhook endpoint by ID. Its delivery log
// rows are cascade deleted.
func (s *Store) DeleteWebhookEndpoint(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete webhook endpoint",
		"DELETE FROM webhook_endpoints WHERE id = ?", id)
}

// RecordWebhookDelivery appends one delivery attempt to the log.
func (s *Store) RecordWebhookDelivery(ctx context.Context, d *model.WebhookDelivery) error {
	d.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO webhook_deliveries
		(endpoint_id, event, payload, success, response_code, error, duration_ms, created_at)
		VALUES
		(:endpoint_id, :event, :payload, :success, :response_code, :error, :duration_ms, :created_at)`

	id, err := s.namedInsert(ctx, q, d)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	d.ID = id
	return nil
}

// ListWebhookDeliveries returns one page of delivery attempts for an
// endpoint.
func (s *Store) ListWebhookDeliveries(ctx context.Context, endpointID int64, page *pagination.Page) ([]model.WebhookDelivery, error) {
	var deliveries []model.WebhookDelivery
	if err := s.selectPage(ctx, &deliveries, "webhook_deliveries",
		"endpoint_id = ?", []interface{}{endpointID}, page); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ---------------------------------------------------------------------------
// Analytics
// ---------------------------------------------------------------------------

// OrderStats returns order counts and revenue totals across the whole
// order table.
func (s *Store) OrderStats(ctx context.Context) (*model.OrderStats, error) {
	const q = `SELECT
		COUNT(*) AS total_orders,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending_orders,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS paid_orders,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS refunded_orders,
		COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS gross_cents,
		COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0) AS refunded_cents
		FROM orders`

	var stats model.OrderStats
	if err := s.db.GetContext(ctx, &stats, s.db.Rebind(q),
		model.OrderPending, model.OrderPaid, model.OrderRefunded,
		model.OrderPaid, model.OrderRefunded); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return &stats, nil
}

// PaidOrdersSince returns the paid timestamps and amounts of orders paid at
// or after the cutoff, oldest first. Daily bucketing happens in Go so the
// query stays portable across backends.
func (s *Store) PaidOrdersSince(ctx context.Context, since time.Time) ([]model.PaidOrder, error) {
	var rows []model.PaidOrder
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT paid_at, amount_cents FROM orders
		 WHERE status = ? AND paid_at IS NOT NULL AND paid_at >= ?
		 ORDER BY paid_at`),
		model.OrderPaid, since); err != nil {
		return nil, fmt.Errorf("paid orders since: %w", err)
	}
	return rows, nil
}

// KeyUsage returns per-key usage counters for the admin's keys, most used
// first.
func (s *Store) KeyUsage(ctx context.Context, adminID int64) ([]model.KeyUsage, error) {
	var rows []model.KeyUsage
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT key_prefix, name, usage_count, last_used_at FROM api_keys
		 WHERE admin_id = ?
		 ORDER BY usage_count DESC, id`),
		adminID); err != nil {
		return nil, fmt.Errorf("key usage: %w", err)
	}
	return rows, nil
}
