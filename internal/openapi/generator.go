// Package openapi generates the OpenAPI 3.1 document for the v1 API.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/gateflow/gateflow/internal/scope"
)

// Generate builds the OpenAPI description of the gateway's v1 API.
func Generate(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "GateFlow API",
			Description: "Product access gateway: catalog, checkout, refunds, API keys, and webhooks.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "apiKey",
			In:          "header",
			Name:        "X-API-Key",
			Description: "Scoped API key. Available scopes: " + fmt.Sprint(scope.All()),
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
		{"bearerAuth": {}},
	}

	doc.Paths = openapi3.NewPaths()

	registerSchemas(doc)
	addAuthPaths(doc)
	addKeyPaths(doc)
	addProductPaths(doc)
	addCouponPaths(doc)
	addOrderPaths(doc)
	addRefundPaths(doc)
	addWebhookPaths(doc)
	addAnalyticsPaths(doc)
	addSystemPaths(doc)

	return doc
}

// ---------------------------------------------------------------------------
// Component schemas
// ---------------------------------------------------------------------------

func registerSchemas(doc *openapi3.T) {
	doc.Components.Schemas["Error"] = objectSchema(openapi3.Schemas{
		"error": objectSchema(openapi3.Schemas{
			"code":    stringSchema(),
			"message": stringSchema(),
			"details": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
		}),
	})

	doc.Components.Schemas["Pagination"] = objectSchema(openapi3.Schemas{
		"cursor":      stringSchema(),
		"next_cursor": nullableString(),
		"has_more":    boolSchema(),
		"limit":       intSchema("int32"),
	})

	doc.Components.Schemas["Product"] = objectSchema(openapi3.Schemas{
		"id":          intSchema("int64"),
		"name":        stringSchema(),
		"slug":        stringSchema(),
		"description": stringSchema(),
		"price_cents": intSchema("int64"),
		"currency":    stringSchema(),
		"is_active":   boolSchema(),
		"created_at":  timeSchema(),
		"updated_at":  timeSchema(),
	})

	doc.Components.Schemas["Coupon"] = objectSchema(openapi3.Schemas{
		"id":               intSchema("int64"),
		"code":             stringSchema(),
		"percent_off":      intSchema("int32"),
		"amount_off_cents": intSchema("int64"),
		"max_redemptions":  intSchema("int32"),
		"redeemed_count":   intSchema("int32"),
		"is_active":        boolSchema(),
		"expires_at":       timeSchema(),
		"created_at":       timeSchema(),
	})

	doc.Components.Schemas["Order"] = objectSchema(openapi3.Schemas{
		"id":                  intSchema("int64"),
		"provider_session_id": stringSchema(),
		"product_id":          intSchema("int64"),
		"coupon_id":           intSchema("int64"),
		"customer_email":      stringSchema(),
		"amount_cents":        intSchema("int64"),
		"currency":            stringSchema(),
		"status":              enumSchema("pending", "paid", "refunded"),
		"paid_at":             timeSchema(),
		"created_at":          timeSchema(),
	})

	doc.Components.Schemas["RefundRequest"] = objectSchema(openapi3.Schemas{
		"id":                 intSchema("int64"),
		"order_id":           intSchema("int64"),
		"reason":             stringSchema(),
		"status":             enumSchema("pending", "approved", "denied"),
		"provider_refund_id": stringSchema(),
		"decision_note":      stringSchema(),
		"decided_at":         timeSchema(),
		"created_at":         timeSchema(),
	})

	doc.Components.Schemas["APIKey"] = objectSchema(openapi3.Schemas{
		"id":                    intSchema("int64"),
		"key_prefix":            stringSchema(),
		"name":                  stringSchema(),
		"scopes":                stringArraySchema(),
		"rate_limit_per_minute": intSchema("int32"),
		"is_active":             boolSchema(),
		"expires_at":            timeSchema(),
		"rotation_grace_until":  timeSchema(),
		"last_used_at":          timeSchema(),
		"usage_count":           intSchema("int64"),
		"created_at":            timeSchema(),
	})

	doc.Components.Schemas["WebhookEndpoint"] = objectSchema(openapi3.Schemas{
		"id":         intSchema("int64"),
		"url":        stringSchema(),
		"events":     stringArraySchema(),
		"is_active":  boolSchema(),
		"created_at": timeSchema(),
	})

	doc.Components.Schemas["WebhookDelivery"] = objectSchema(openapi3.Schemas{
		"id":            intSchema("int64"),
		"endpoint_id":   intSchema("int64"),
		"event":         stringSchema(),
		"success":       boolSchema(),
		"response_code": intSchema("int32"),
		"error":         stringSchema(),
		"duration_ms":   numberSchema(),
		"created_at":    timeSchema(),
	})
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

func addAuthPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/auth/login", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log in as an admin",
			OperationID: "login",
			RequestBody: jsonBody(true, objectSchema(openapi3.Schemas{
				"email":    stringSchema(),
				"password": stringSchema(),
			})),
			Responses: newResponses("200", "Session token", dataSchema(objectSchema(openapi3.Schemas{
				"session_token": stringSchema(),
				"token_type":    stringSchema(),
				"expires_in":    intSchema("int32"),
			}))),
		},
	})
	doc.Paths.Set("/api/v1/auth/logout", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "End the current session",
			OperationID: "logout",
			Responses:   newResponses("200", "Session invalidated", dataSchema(anyObject())),
		},
	})
	doc.Paths.Set("/api/v1/auth/me", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Describe the authenticated identity",
			OperationID: "me",
			Responses:   newResponses("200", "Current principal", dataSchema(anyObject())),
		},
	})
}

func addKeyPaths(doc *openapi3.T) {
	keyRef := componentRef("APIKey")

	doc.Paths.Set("/api/v1/api-keys", &openapi3.PathItem{
		Get: listOperation("api-keys", "API keys", keyRef,
			"created_at", "name", "last_used_at"),
		Post: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Issue an API key",
			Description: "The plaintext key appears in this response only.",
			OperationID: "create_api_key",
			RequestBody: jsonBody(true, objectSchema(openapi3.Schemas{
				"name":                  stringSchema(),
				"scopes":                stringArraySchema(),
				"rate_limit_per_minute": intSchema("int32"),
				"expires_at":            timeSchema(),
				"test_mode":             boolSchema(),
			})),
			Responses: newResponses("201", "The new key", dataSchema(objectSchema(openapi3.Schemas{
				"api_key": stringSchema(),
				"record":  keyRef,
			}))),
		},
	})
	doc.Paths.Set("/api/v1/api-keys/{keyID}", &openapi3.PathItem{
		Parameters: idParam("keyID"),
		Get: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Get an API key",
			OperationID: "get_api_key",
			Responses:   newResponses("200", "The key", dataSchema(keyRef)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Revoke an API key",
			Description: "Revocation is permanent.",
			OperationID: "revoke_api_key",
			RequestBody: jsonBody(false, objectSchema(openapi3.Schemas{
				"reason": stringSchema(),
			})),
			Responses: newResponses("200", "Revoked", dataSchema(anyObject())),
		},
	})
	doc.Paths.Set("/api/v1/api-keys/{keyID}/rotate", &openapi3.PathItem{
		Parameters: idParam("keyID"),
		Post: &openapi3.Operation{
			Tags:        []string{"api-keys"},
			Summary:     "Rotate an API key",
			Description: "Issues a replacement key. The old key keeps working until its grace window closes.",
			OperationID: "rotate_api_key",
			RequestBody: jsonBody(false, objectSchema(openapi3.Schemas{
				"grace_period_hours": intSchema("int32"),
			})),
			Responses: newResponses("200", "The replacement key and the old key's fate", dataSchema(objectSchema(openapi3.Schemas{
				"new_key": keyRef,
				"old_key": objectSchema(openapi3.Schemas{
					"id":          intSchema("int64"),
					"grace_until": timeSchema(),
					"message":     stringSchema(),
				}),
			}))),
		},
	})
}

func addProductPaths(doc *openapi3.T) {
	ref := componentRef("Product")

	doc.Paths.Set("/api/v1/products", &openapi3.PathItem{
		Get: listOperation("products", "products", ref,
			"created_at", "name", "price_cents"),
		Post: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Create a product",
			OperationID: "create_product",
			RequestBody: jsonBody(true, ref),
			Responses:   newResponses("201", "Created product", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/products/{productID}", &openapi3.PathItem{
		Parameters: idParam("productID"),
		Get: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Get a product",
			OperationID: "get_product",
			Parameters: openapi3.Parameters{
				queryParam("currency", "Display currency for price conversion", stringSchema()),
			},
			Responses: newResponses("200", "The product", dataSchema(ref)),
		},
		Patch: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Update a product",
			OperationID: "update_product",
			RequestBody: jsonBody(true, ref),
			Responses:   newResponses("200", "Updated product", dataSchema(ref)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"products"},
			Summary:     "Delete a product",
			OperationID: "delete_product",
			Responses:   newResponses("200", "Deleted", dataSchema(anyObject())),
		},
	})
}

func addCouponPaths(doc *openapi3.T) {
	ref := componentRef("Coupon")

	doc.Paths.Set("/api/v1/coupons", &openapi3.PathItem{
		Get: listOperation("coupons", "coupons", ref,
			"created_at", "code", "expires_at"),
		Post: &openapi3.Operation{
			Tags:        []string{"coupons"},
			Summary:     "Create a coupon",
			OperationID: "create_coupon",
			RequestBody: jsonBody(true, ref),
			Responses:   newResponses("201", "Created coupon", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/coupons/{couponID}", &openapi3.PathItem{
		Parameters: idParam("couponID"),
		Get: &openapi3.Operation{
			Tags:        []string{"coupons"},
			Summary:     "Get a coupon",
			OperationID: "get_coupon",
			Responses:   newResponses("200", "The coupon", dataSchema(ref)),
		},
		Patch: &openapi3.Operation{
			Tags:        []string{"coupons"},
			Summary:     "Update a coupon",
			OperationID: "update_coupon",
			RequestBody: jsonBody(true, ref),
			Responses:   newResponses("200", "Updated coupon", dataSchema(ref)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"coupons"},
			Summary:     "Delete a coupon",
			OperationID: "delete_coupon",
			Responses:   newResponses("200", "Deleted", dataSchema(anyObject())),
		},
	})
}

func addOrderPaths(doc *openapi3.T) {
	ref := componentRef("Order")

	doc.Paths.Set("/api/v1/orders/checkout", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"orders"},
			Summary:     "Create a pending order",
			Description: "The amount is computed server-side from the catalog price and any coupon.",
			OperationID: "checkout",
			RequestBody: jsonBody(true, objectSchema(openapi3.Schemas{
				"product_id":          intSchema("int64"),
				"provider_session_id": stringSchema(),
				"customer_email":      stringSchema(),
				"coupon_code":         stringSchema(),
			})),
			Responses: newResponses("201", "Pending order", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/orders", &openapi3.PathItem{
		Get: withParams(
			listOperation("orders", "orders", ref, "created_at", "amount_cents", "status"),
			queryParam("status", "Filter by order status", enumSchema("pending", "paid", "refunded")),
		),
	})
	doc.Paths.Set("/api/v1/orders/{orderID}", &openapi3.PathItem{
		Parameters: idParam("orderID"),
		Get: &openapi3.Operation{
			Tags:        []string{"orders"},
			Summary:     "Get an order",
			OperationID: "get_order",
			Responses:   newResponses("200", "The order", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/orders/{orderID}/verify-payment", &openapi3.PathItem{
		Parameters: idParam("orderID"),
		Post: &openapi3.Operation{
			Tags:        []string{"orders"},
			Summary:     "Verify payment and settle the order",
			Description: "Idempotent. Checks the payment provider session and marks the order paid when it settled for the right amount.",
			OperationID: "verify_payment",
			Responses:   newResponses("200", "The order after verification", dataSchema(ref)),
		},
	})
}

func addRefundPaths(doc *openapi3.T) {
	ref := componentRef("RefundRequest")

	doc.Paths.Set("/api/v1/orders/{orderID}/refund-requests", &openapi3.PathItem{
		Parameters: idParam("orderID"),
		Post: &openapi3.Operation{
			Tags:        []string{"refund-requests"},
			Summary:     "Open a refund request",
			OperationID: "create_refund_request",
			RequestBody: jsonBody(true, objectSchema(openapi3.Schemas{
				"reason": stringSchema(),
			})),
			Responses: newResponses("201", "Pending request", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/refund-requests", &openapi3.PathItem{
		Get: withParams(
			listOperation("refund-requests", "refund requests", ref, "created_at", "status"),
			queryParam("status", "Filter by request status", enumSchema("pending", "approved", "denied")),
		),
	})
	doc.Paths.Set("/api/v1/refund-requests/{requestID}", &openapi3.PathItem{
		Parameters: idParam("requestID"),
		Get: &openapi3.Operation{
			Tags:        []string{"refund-requests"},
			Summary:     "Get a refund request",
			OperationID: "get_refund_request",
			Responses:   newResponses("200", "The request", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/refund-requests/{requestID}/approve", &openapi3.PathItem{
		Parameters: idParam("requestID"),
		Post: &openapi3.Operation{
			Tags:        []string{"refund-requests"},
			Summary:     "Approve a refund request",
			Description: "Executes the refund with the payment provider. If the provider call fails the request returns to pending.",
			OperationID: "approve_refund_request",
			RequestBody: jsonBody(false, objectSchema(openapi3.Schemas{
				"note": stringSchema(),
			})),
			Responses: newResponses("200", "Approved request", dataSchema(ref)),
		},
	})
	doc.Paths.Set("/api/v1/refund-requests/{requestID}/deny", &openapi3.PathItem{
		Parameters: idParam("requestID"),
		Post: &openapi3.Operation{
			Tags:        []string{"refund-requests"},
			Summary:     "Deny a refund request",
			OperationID: "deny_refund_request",
			RequestBody: jsonBody(false, objectSchema(openapi3.Schemas{
				"note": stringSchema(),
			})),
			Responses: newResponses("200", "Denied request", dataSchema(ref)),
		},
	})
}

func addWebhookPaths(doc *openapi3.T) {
	ref := componentRef("WebhookEndpoint")
	deliveryRef := componentRef("WebhookDelivery")

	doc.Paths.Set("/api/v1/webhooks", &openapi3.PathItem{
		Get: listOperation("webhooks", "webhook endpoints", ref, "created_at", "url"),
		Post: &openapi3.Operation{
			Tags:        []string{"webhooks"},
			Summary:     "Register a webhook endpoint",
			Description: "The signing secret appears in this response only.",
			OperationID: "create_webhook",
			RequestBody: jsonBody(true, objectSchema(openapi3.Schemas{
				"url":    stringSchema(),
				"events": stringArraySchema(),
			})),
			Responses: newResponses("201", "The endpoint and its secret", dataSchema(objectSchema(openapi3.Schemas{
				"secret":   stringSchema(),
				"endpoint": ref,
			}))),
		},
	})
	doc.Paths.Set("/api/v1/webhooks/{endpointID}", &openapi3.PathItem{
		Parameters: idParam("endpointID"),
		Get: &openapi3.Operation{
			Tags:        []string{"webhooks"},
			Summary:     "Get a webhook endpoint",
			OperationID: "get_webhook",
			Responses:   newResponses("200", "The endpoint", dataSchema(ref)),
		},
		Patch: &openapi3.Operation{
			Tags:        []string{"webhooks"},
			Summary:     "Update a webhook endpoint",
			OperationID: "update_webhook",
			RequestBody: jsonBody(true, ref),
			Responses:   newResponses("200", "Updated endpoint", dataSchema(ref)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"webhooks"},
			Summary:     "Delete a webhook endpoint",
			OperationID: "delete_webhook",
			Responses:   newResponses("200", "Deleted", dataSchema(anyObject())),
		},
	})
	doc.Paths.Set("/api/v1/webhooks/{endpointID}/deliveries", &openapi3.PathItem{
		Parameters: idParam("endpointID"),
		Get:        listOperation("webhooks", "webhook deliveries", deliveryRef, "created_at", "event"),
	})
}

func addAnalyticsPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/analytics/overview", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"analytics"},
			Summary:     "Order counts and gross revenue",
			OperationID: "analytics_overview",
			Responses:   newResponses("200", "Aggregate order stats", dataSchema(anyObject())),
		},
	})
	doc.Paths.Set("/api/v1/analytics/revenue", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"analytics"},
			Summary:     "Daily revenue series",
			OperationID: "analytics_revenue",
			Parameters: openapi3.Parameters{
				queryParam("days", "Trailing window in days (1-365, default 30)", intSchema("int32")),
			},
			Responses: newResponses("200", "One point per UTC day", dataSchema(anyObject())),
		},
	})
	doc.Paths.Set("/api/v1/analytics/key-usage", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"analytics"},
			Summary:     "Per-key request counters",
			OperationID: "analytics_key_usage",
			Responses:   newResponses("200", "Usage per key", dataSchema(anyObject())),
		},
	})
}

func addSystemPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/system/version", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Build version",
			OperationID: "version",
			Responses:   newResponses("200", "Version info", dataSchema(anyObject())),
		},
	})
	doc.Paths.Set("/api/v1/admins", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List admin accounts",
			OperationID: "list_admins",
			Responses:   newResponses("200", "Admin accounts", dataSchema(anyObject())),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Create an admin account",
			OperationID: "create_admin",
			RequestBody: jsonBody(true, objectSchema(openapi3.Schemas{
				"email":    stringSchema(),
				"password": stringSchema(),
				"name":     stringSchema(),
			})),
			Responses: newResponses("201", "Created admin", dataSchema(anyObject())),
		},
	})
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

// listOperation generates a GET operation for a cursor-paginated collection.
func listOperation(tag, plural string, itemRef *openapi3.SchemaRef, sorts ...string) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     fmt.Sprintf("List %s", plural),
		Description: fmt.Sprintf("Returns %s in cursor-paginated pages.", plural),
		OperationID: fmt.Sprintf("list_%s", tag),
		Parameters:  listQueryParameters(sorts...),
		Responses: newResponses("200", fmt.Sprintf("One page of %s", plural), &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type: &openapi3.Types{"object"},
				Properties: openapi3.Schemas{
					"data": &openapi3.SchemaRef{
						Value: &openapi3.Schema{
							Type:  &openapi3.Types{"array"},
							Items: itemRef,
						},
					},
					"pagination": componentRef("Pagination"),
				},
			},
		}),
	}
}

func withParams(op *openapi3.Operation, params ...*openapi3.ParameterRef) *openapi3.Operation {
	op.Parameters = append(op.Parameters, params...)
	return op
}

// listQueryParameters returns the shared cursor pagination parameters.
func listQueryParameters(sorts ...string) openapi3.Parameters {
	sortSchema := &openapi3.Schema{Type: &openapi3.Types{"string"}}
	for _, s := range sorts {
		sortSchema.Enum = append(sortSchema.Enum, s)
	}
	limitSchema := &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}

	return openapi3.Parameters{
		queryParam("cursor", "Opaque cursor from a previous page", stringSchema()),
		queryParam("limit", "Page size (1-100, default 50, clamped)", &openapi3.SchemaRef{Value: limitSchema}),
		queryParam("sort", "Sort field", &openapi3.SchemaRef{Value: sortSchema}),
		queryParam("sort_order", "asc or desc", enumSchema("asc", "desc")),
	}
}

func queryParam(name, description string, schema *openapi3.SchemaRef) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        name,
			In:          "query",
			Description: description,
			Schema:      schema,
		},
	}
}

func idParam(name string) openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     name,
				In:       "path",
				Required: true,
				Schema:   intSchema("int64"),
			},
		},
	}
}

func jsonBody(required bool, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: required,
			Content:  openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

// newResponses builds the success response plus the shared error response.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})
	errDesc := "Error"
	responses.Set("default", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &errDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(componentRef("Error")),
		},
	})
	return responses
}

// dataSchema wraps a schema in the standard data envelope.
func dataSchema(inner *openapi3.SchemaRef) *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{"data": inner})
}

func componentRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func objectSchema(props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
		},
	}
}

func anyObject() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

func stringSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}

func stringArraySchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: stringSchema(),
		},
	}
}

func nullableString() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Nullable: true}}
}

func boolSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
}

func numberSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}
}

func intSchema(format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: format}}
}

func timeSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
}

func enumSchema(values ...string) *openapi3.SchemaRef {
	s := &openapi3.Schema{Type: &openapi3.Types{"string"}}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return &openapi3.SchemaRef{Value: s}
}
