package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/rates"
	"github.com/gateflow/gateflow/internal/service"
)

// registerTools registers all GateFlow MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Catalog tools -----

	srv.AddTool(
		mcp.NewTool("gateflow_list_products",
			mcp.WithDescription(
				"List products in the catalog with their prices. Use this first to "+
					"discover what can be purchased. Pass a currency code to get an "+
					"advisory display price alongside the settlement price.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("include_inactive",
				mcp.Description("Include products that are not currently for sale"),
			),
			mcp.WithString("currency",
				mcp.Description("ISO 4217 code for an advisory display price (e.g. EUR)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of products to return (default 25, max 100)"),
			),
		),
		s.handleListProducts,
	)

	srv.AddTool(
		mcp.NewTool("gateflow_get_product",
			mcp.WithDescription(
				"Get a single product by its URL slug, including price, currency, "+
					"and whether it is currently for sale.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("slug",
				mcp.Required(),
				mcp.Description("URL slug of the product (e.g. \"pro-plan\")"),
			),
		),
		s.handleGetProduct,
	)

	srv.AddTool(
		mcp.NewTool("gateflow_check_coupon",
			mcp.WithDescription(
				"Check whether a coupon code can be applied at checkout. Returns the "+
					"discount it grants and, if it cannot be redeemed, the reason why.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("code",
				mcp.Required(),
				mcp.Description("Coupon code to check (case-insensitive)"),
			),
		),
		s.handleCheckCoupon,
	)

	// ----- Checkout tools -----

	srv.AddTool(
		mcp.NewTool("gateflow_checkout",
			mcp.WithDescription(
				"Create a pending order for a product. The amount is computed "+
					"server-side from the catalog price, minus any coupon discount. "+
					"The order stays pending until gateflow_verify_payment confirms "+
					"the provider session was paid.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("product_slug",
				mcp.Required(),
				mcp.Description("URL slug of the product to purchase"),
			),
			mcp.WithString("customer_email",
				mcp.Required(),
				mcp.Description("Email address of the purchasing customer"),
			),
			mcp.WithString("provider_session_id",
				mcp.Required(),
				mcp.Description("Payment provider checkout session ID (e.g. a Stripe cs_... ID)"),
			),
			mcp.WithString("coupon_code",
				mcp.Description("Optional coupon code to apply"),
			),
		),
		s.handleCheckout,
	)

	srv.AddTool(
		mcp.NewTool("gateflow_verify_payment",
			mcp.WithDescription(
				"Verify an order's payment with the provider and mark it paid. "+
					"Safe to call repeatedly; verifying an already-paid order is a no-op.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("order_id",
				mcp.Required(),
				mcp.Description("ID of the order to verify"),
			),
		),
		s.handleVerifyPayment,
	)

	// ----- Order tools -----

	srv.AddTool(
		mcp.NewTool("gateflow_list_orders",
			mcp.WithDescription(
				"List orders, newest first, optionally filtered by status "+
					"(pending, paid, or refunded).",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("status",
				mcp.Description("Filter by order status: pending, paid, or refunded"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of orders to return (default 25, max 100)"),
			),
		),
		s.handleListOrders,
	)

	srv.AddTool(
		mcp.NewTool("gateflow_get_order",
			mcp.WithDescription(
				"Get a single order by ID, including its status, amount, and "+
					"payment timestamps.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("order_id",
				mcp.Required(),
				mcp.Description("ID of the order to fetch"),
			),
		),
		s.handleGetOrder,
	)

	srv.AddTool(
		mcp.NewTool("gateflow_request_refund",
			mcp.WithDescription(
				"Open a refund request for a paid order. The request starts in the "+
					"pending state and waits for an operator to approve or deny it; "+
					"money only moves on approval.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("order_id",
				mcp.Required(),
				mcp.Description("ID of the paid order to refund"),
			),
			mcp.WithString("reason",
				mcp.Required(),
				mcp.Description("Why the customer wants the refund"),
			),
		),
		s.handleRequestRefund,
	)

	// ----- Analytics tools -----

	srv.AddTool(
		mcp.NewTool("gateflow_revenue_summary",
			mcp.WithDescription(
				"Summarize order counts and paid revenue. Includes lifetime totals "+
					"and, when 'days' is given, revenue for the trailing window.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("days",
				mcp.Description("Trailing window in days for recent revenue (1-365)"),
			),
		),
		s.handleRevenueSummary,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

// productInfo is the shape list/get product tools return. The settlement
// price is always present; display fields appear only when a conversion was
// requested and succeeded.
type productInfo struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
	Description       string `json:"description,omitempty"`
	PriceCents        int64  `json:"price_cents"`
	Currency          string `json:"currency"`
	IsActive          bool   `json:"is_active"`
	DisplayPriceCents *int64 `json:"display_price_cents,omitempty"`
	DisplayCurrency   string `json:"display_currency,omitempty"`
}

func (s *MCPServer) productInfo(ctx context.Context, p *model.Product, displayCurrency string) productInfo {
	info := productInfo{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		IsActive:    p.IsActive,
	}
	if displayCurrency != "" {
		converted, err := rates.Convert(ctx, s.rates, p.PriceCents, p.Currency, displayCurrency)
		if err == nil {
			info.DisplayPriceCents = &converted
			info.DisplayCurrency = strings.ToUpper(displayCurrency)
		}
	}
	return info
}

// handleListProducts returns a page of catalog products.
func (s *MCPServer) handleListProducts(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	limit := clamp(optionalInt(request, "limit", 25), 1, 100)
	includeInactive := request.GetBool("include_inactive", false)
	displayCurrency := optionalString(request, "currency")

	page := &pagination.Page{
		Limit:      limit,
		SortField:  "created_at",
		Descending: true,
	}
	products, err := s.store.ListProducts(ctx, page)
	if err != nil {
		return toolError("Failed to list products: %v", err)
	}

	items := make([]productInfo, 0, len(products))
	for i := range products {
		if !includeInactive && !products[i].IsActive {
			continue
		}
		items = append(items, s.productInfo(ctx, &products[i], displayCurrency))
	}

	return successJSON(map[string]interface{}{
		"products": items,
		"count":    len(items),
	})
}

// handleGetProduct returns a single product by slug.
func (s *MCPServer) handleGetProduct(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	slug, err := requireString(request, "slug")
	if err != nil {
		return toolError("%v", err)
	}

	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return toolError("Product %q not found. Use gateflow_list_products to see the catalog.", slug)
	}

	return successJSON(s.productInfo(ctx, product, ""))
}

// handleCheckCoupon reports whether a coupon can still be redeemed.
func (s *MCPServer) handleCheckCoupon(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	code, err := requireString(request, "code")
	if err != nil {
		return toolError("%v", err)
	}

	coupon, err := s.store.GetCouponByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return toolError("Coupon %q not found.", code)
	}

	now := time.Now().UTC()
	result := map[string]interface{}{
		"code":       coupon.Code,
		"redeemable": coupon.Redeemable(now),
	}
	if coupon.PercentOff > 0 {
		result["discount"] = fmt.Sprintf("%d%% off", coupon.PercentOff)
	} else {
		result["discount"] = fmt.Sprintf("%d cents off", coupon.AmountOffCents)
	}
	if !coupon.Redeemable(now) {
		switch {
		case !coupon.IsActive:
			result["reason"] = "coupon is disabled"
		case coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now):
			result["reason"] = "coupon has expired"
		default:
			result["reason"] = "coupon has reached its redemption limit"
		}
	}

	return successJSON(result)
}

// handleCheckout creates a pending order.
func (s *MCPServer) handleCheckout(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	slug, err := requireString(request, "product_slug")
	if err != nil {
		return toolError("%v", err)
	}
	email, err := requireString(request, "customer_email")
	if err != nil {
		return toolError("%v", err)
	}
	sessionID, err := requireString(request, "provider_session_id")
	if err != nil {
		return toolError("%v", err)
	}

	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return toolError("Product %q not found. Use gateflow_list_products to see the catalog.", slug)
	}

	order, err := s.orderSvc.Checkout(ctx, service.CheckoutParams{
		ProductID:         product.ID,
		ProviderSessionID: sessionID,
		CustomerEmail:     email,
		CouponCode:        optionalString(request, "coupon_code"),
	})
	if err != nil {
		return toolError("Checkout failed: %v", err)
	}

	return successJSON(map[string]interface{}{
		"order": order,
		"next_step": fmt.Sprintf(
			"Order %d is pending. Call gateflow_verify_payment once the provider session is paid.",
			order.ID),
	})
}

// handleVerifyPayment confirms an order's payment with the provider.
func (s *MCPServer) handleVerifyPayment(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	orderID := optionalInt(request, "order_id", 0)
	if orderID <= 0 {
		return toolError("A positive order_id is required.")
	}

	order, err := s.orderSvc.VerifyPayment(ctx, int64(orderID))
	if err != nil {
		return toolError("Payment verification failed for order %d: %v", orderID, err)
	}

	return successJSON(order)
}

// handleListOrders returns a page of orders, optionally filtered by status.
func (s *MCPServer) handleListOrders(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	status := optionalString(request, "status")
	switch status {
	case "", model.OrderPending, model.OrderPaid, model.OrderRefunded:
	default:
		return toolError("Unknown status %q. Valid statuses: pending, paid, refunded.", status)
	}

	limit := clamp(optionalInt(request, "limit", 25), 1, 100)
	page := &pagination.Page{
		Limit:      limit,
		SortField:  "created_at",
		Descending: true,
	}

	orders, err := s.store.ListOrders(ctx, status, page)
	if err != nil {
		return toolError("Failed to list orders: %v", err)
	}

	return successJSON(map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// handleGetOrder returns a single order by ID.
func (s *MCPServer) handleGetOrder(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	orderID := optionalInt(request, "order_id", 0)
	if orderID <= 0 {
		return toolError("A positive order_id is required.")
	}

	order, err := s.store.GetOrder(ctx, int64(orderID))
	if err != nil {
		return toolError("Order %d not found.", orderID)
	}

	return successJSON(order)
}

// handleRequestRefund opens a refund request for a paid order.
func (s *MCPServer) handleRequestRefund(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	orderID := optionalInt(request, "order_id", 0)
	if orderID <= 0 {
		return toolError("A positive order_id is required.")
	}
	reason, err := requireString(request, "reason")
	if err != nil {
		return toolError("%v", err)
	}

	refund, err := s.orderSvc.RequestRefund(ctx, int64(orderID), reason)
	if err != nil {
		return toolError("Refund request failed for order %d: %v", orderID, err)
	}

	return successJSON(map[string]interface{}{
		"refund_request": refund,
		"note":           "The request is pending operator review. No money moves until it is approved.",
	})
}

// handleRevenueSummary returns lifetime order stats plus optional trailing
// window revenue.
func (s *MCPServer) handleRevenueSummary(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	stats, err := s.store.OrderStats(ctx)
	if err != nil {
		return toolError("Failed to load order stats: %v", err)
	}

	result := map[string]interface{}{
		"lifetime": stats,
	}

	if days := optionalInt(request, "days", 0); days > 0 {
		if days > 365 {
			days = 365
		}
		since := time.Now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
		paid, err := s.store.PaidOrdersSince(ctx, since)
		if err != nil {
			return toolError("Failed to load recent revenue: %v", err)
		}
		var total int64
		for _, p := range paid {
			total += p.AmountCents
		}
		result["window"] = map[string]interface{}{
			"days":                days,
			"paid_orders":         len(paid),
			"revenue_cents":       total,
			"window_starts_after": since,
		}
	}

	return successJSON(result)
}
