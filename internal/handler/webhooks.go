package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/webhook"
)

// WebhookHandler serves webhook endpoint registration and the delivery log.
type WebhookHandler struct {
	store *config.Store
}

func NewWebhookHandler(store *config.Store) *WebhookHandler {
	return &WebhookHandler{store: store}
}

var webhookSortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "url"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

var deliverySortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "event"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

// createEndpointRequest is the expected payload for endpoint registration.
type createEndpointRequest struct {
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	IsActive *bool    `json:"is_active"`
}

// updateEndpointRequest carries the mutable endpoint fields. The signing
// secret is immutable; rotate by replacing the endpoint.
type updateEndpointRequest struct {
	URL      *string   `json:"url,omitempty"`
	Events   *[]string `json:"events,omitempty"`
	IsActive *bool     `json:"is_active,omitempty"`
}

// createEndpointResponse includes the signing secret, shown exactly once.
type createEndpointResponse struct {
	Secret   string                 `json:"secret"` // Plaintext, shown ONCE.
	Endpoint *model.WebhookEndpoint `json:"endpoint"`
}

func validateEndpointURL(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "required"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "must be an absolute http(s) URL"
	}
	return raw, ""
}

func validateEvents(events []string) string {
	for _, ev := range events {
		if ev == "*" {
			continue
		}
		if !webhook.KnownEvent(ev) {
			return "unknown event type " + ev
		}
	}
	return ""
}

// generateSecret produces a fresh endpoint signing secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}

// List returns one page of registered endpoints.
// GET /api/v1/webhooks
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r, webhookSortOptions)
	if !ok {
		return
	}

	endpoints, err := h.store.ListWebhookEndpoints(r.Context(), page)
	if err != nil {
		writeDomainError(w, err, "list webhook endpoints")
		return
	}

	rows, meta := pagination.BuildPage(endpoints, page, endpointCursor(page))
	writeList(w, rows, meta)
}

// Create registers a webhook endpoint and returns its signing secret. The
// secret is never retrievable again.
// POST /api/v1/webhooks
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEndpointRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	cleanURL, problem := validateEndpointURL(req.URL)
	if problem != "" {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "Invalid endpoint", map[string]interface{}{"url": problem})
		return
	}
	if problem := validateEvents(req.Events); problem != "" {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "Invalid endpoint", map[string]interface{}{"events": problem})
		return
	}

	secret, err := generateSecret()
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.CodeInternalError, "Failed to generate secret")
		return
	}

	endpoint := &model.WebhookEndpoint{
		URL:      cleanURL,
		Secret:   secret,
		Events:   req.Events,
		IsActive: true,
	}
	if req.IsActive != nil {
		endpoint.IsActive = *req.IsActive
	}

	if err := h.store.CreateWebhookEndpoint(r.Context(), endpoint); err != nil {
		writeDomainError(w, err, "create webhook endpoint")
		return
	}
	writeData(w, http.StatusCreated, createEndpointResponse{Secret: secret, Endpoint: endpoint})
}

// Get returns one endpoint by ID. The secret is not included.
// GET /api/v1/webhooks/{endpointID}
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "endpointID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	endpoint, err := h.store.GetWebhookEndpoint(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "webhook endpoint")
		return
	}
	writeData(w, http.StatusOK, endpoint)
}

// Update applies a partial update to an endpoint.
// PATCH /api/v1/webhooks/{endpointID}
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "endpointID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var req updateEndpointRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	endpoint, err := h.store.GetWebhookEndpoint(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "webhook endpoint")
		return
	}

	if req.URL != nil {
		cleanURL, problem := validateEndpointURL(*req.URL)
		if problem != "" {
			writeError(w, http.StatusBadRequest, model.CodeValidationError, "Invalid endpoint", map[string]interface{}{"url": problem})
			return
		}
		endpoint.URL = cleanURL
	}
	if req.Events != nil {
		if problem := validateEvents(*req.Events); problem != "" {
			writeError(w, http.StatusBadRequest, model.CodeValidationError, "Invalid endpoint", map[string]interface{}{"events": problem})
			return
		}
		endpoint.Events = *req.Events
	}
	if req.IsActive != nil {
		endpoint.IsActive = *req.IsActive
	}

	if err := h.store.UpdateWebhookEndpoint(r.Context(), endpoint); err != nil {
		writeDomainError(w, err, "webhook endpoint")
		return
	}
	writeData(w, http.StatusOK, endpoint)
}

// Delete removes an endpoint and its delivery log.
// DELETE /api/v1/webhooks/{endpointID}
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "endpointID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	if err := h.store.DeleteWebhookEndpoint(r.Context(), id); err != nil {
		writeDomainError(w, err, "webhook endpoint")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"message": "Webhook endpoint deleted"})
}

// ListDeliveries returns one page of the endpoint's delivery log.
// GET /api/v1/webhooks/{endpointID}/deliveries
func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "endpointID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}
	page, ok := parsePage(w, r, deliverySortOptions)
	if !ok {
		return
	}

	// 404 for unknown endpoints instead of an empty log.
	if _, err := h.store.GetWebhookEndpoint(r.Context(), id); err != nil {
		writeDomainError(w, err, "webhook endpoint")
		return
	}

	deliveries, err := h.store.ListWebhookDeliveries(r.Context(), id, page)
	if err != nil {
		writeDomainError(w, err, "list webhook deliveries")
		return
	}

	rows, meta := pagination.BuildPage(deliveries, page, deliveryCursor(page))
	writeList(w, rows, meta)
}

func endpointCursor(page *pagination.Page) func(model.WebhookEndpoint) pagination.Cursor {
	return func(e model.WebhookEndpoint) pagination.Cursor {
		var v string
		switch page.SortField {
		case "url":
			v = e.URL
		default:
			v = e.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: e.ID}
	}
}

func deliveryCursor(page *pagination.Page) func(model.WebhookDelivery) pagination.Cursor {
	return func(d model.WebhookDelivery) pagination.Cursor {
		var v string
		switch page.SortField {
		case "event":
			v = d.Event
		default:
			v = d.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: d.ID}
	}
}
