package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gateflow/gateflow/internal/pagination"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// gateflow://catalog: the active product catalog
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			"gateflow://catalog",
			"Product Catalog",
			mcp.WithResourceDescription(
				"All products currently for sale, with their slugs, prices, "+
					"and settlement currencies.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCatalogResource,
	)

	// -------------------------------------------------------------------
	// gateflow://orders/{id}: one order's current state (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"gateflow://orders/{id}",
			"Order Status",
			mcp.WithTemplateDescription(
				"Current state of a single order: status, amount, customer, "+
					"and payment timestamps.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleOrderResource,
	)
}

// handleCatalogResource returns a JSON list of every active product.
func (s *MCPServer) handleCatalogResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	page := &pagination.Page{
		Limit:     100,
		SortField: "name",
	}
	products, err := s.store.ListProducts(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	items := make([]productInfo, 0, len(products))
	for i := range products {
		if !products[i].IsActive {
			continue
		}
		items = append(items, s.productInfo(ctx, &products[i], ""))
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gateflow://catalog",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// handleOrderResource returns the current state of one order.
func (s *MCPServer) handleOrderResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	// Extract the order ID from URI: "gateflow://orders/{id}"
	uri := request.Params.URI
	idStr := strings.TrimPrefix(uri, "gateflow://orders/")
	if idStr == "" || idStr == uri {
		return nil, fmt.Errorf("invalid order URI %q: expected gateflow://orders/{id}", uri)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid order ID %q in URI", idStr)
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %d not found: %w", id, err)
	}

	b, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
