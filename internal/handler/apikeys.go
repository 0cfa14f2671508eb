package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/server/middleware"
	"github.com/gateflow/gateflow/internal/service"
)

// KeyHandler serves API key management. Every route is session-only and
// owner-scoped: an admin sees and touches only their own keys, and a key
// belonging to someone else is indistinguishable from a missing one.
type KeyHandler struct {
	store  *config.Store
	keySvc *service.KeyService
}

func NewKeyHandler(store *config.Store, keySvc *service.KeyService) *KeyHandler {
	return &KeyHandler{store: store, keySvc: keySvc}
}

var keySortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "name", "last_used_at"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

// createKeyResponse includes the plaintext key, shown exactly once.
type createKeyResponse struct {
	Key    string        `json:"api_key"` // Plaintext, shown ONCE.
	Record *model.APIKey `json:"record"`
}

// List returns one page of the admin's API keys.
// GET /api/v1/api-keys
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	page, ok := parsePage(w, r, keySortOptions)
	if !ok {
		return
	}

	keys, err := h.store.ListAPIKeysForAdmin(r.Context(), p.AdminID, page)
	if err != nil {
		writeDomainError(w, err, "list api keys")
		return
	}

	rows, meta := pagination.BuildPage(keys, page, apiKeyCursor(page))
	writeList(w, rows, meta)
}

// Create issues a new API key.
// POST /api/v1/api-keys
func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())

	var params service.IssueParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	key, rawKey, err := h.keySvc.Issue(r.Context(), p.AdminID, params)
	if err != nil {
		writeDomainError(w, err, "create api key")
		return
	}

	writeData(w, http.StatusCreated, createKeyResponse{Key: rawKey, Record: key})
}

// Get returns one of the admin's keys.
// GET /api/v1/api-keys/{keyID}
func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := urlID(r, "keyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	key, err := h.keySvc.Get(r.Context(), p.AdminID, id)
	if err != nil {
		writeDomainError(w, err, "api key")
		return
	}
	writeData(w, http.StatusOK, key)
}

// rotateRequest carries the optional grace override for Rotate.
type rotateRequest struct {
	GracePeriodHours *int `json:"grace_period_hours"`
}

// rotateResponse pairs the replacement credential with the old key's fate.
type rotateResponse struct {
	NewKey rotatedNewKey `json:"new_key"`
	OldKey rotatedOldKey `json:"old_key"`
}

type rotatedNewKey struct {
	*model.APIKey
	Key string `json:"key"` // Plaintext, shown ONCE.
}

type rotatedOldKey struct {
	ID         int64      `json:"id"`
	GraceUntil *time.Time `json:"grace_until"`
	Message    string     `json:"message"`
}

// Rotate replaces a key with a fresh credential. The old key keeps working
// until its grace window closes.
// POST /api/v1/api-keys/{keyID}/rotate
func (h *KeyHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := urlID(r, "keyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var req rotateRequest
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.keySvc.Rotate(r.Context(), p.AdminID, id, req.GracePeriodHours)
	if err != nil {
		writeDomainError(w, err, "rotate api key")
		return
	}

	msg := "Old key revoked immediately"
	if res.GraceUntil != nil {
		msg = fmt.Sprintf("Old key remains valid until %s", res.GraceUntil.Format(time.RFC3339))
	}
	writeData(w, http.StatusOK, rotateResponse{
		NewKey: rotatedNewKey{APIKey: res.NewKey, Key: res.RawKey},
		OldKey: rotatedOldKey{ID: res.OldKeyID, GraceUntil: res.GraceUntil, Message: msg},
	})
}

// revokeRequest carries the optional reason for Revoke.
type revokeRequest struct {
	Reason string `json:"reason"`
}

// Revoke permanently deactivates a key.
// DELETE /api/v1/api-keys/{keyID}
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := urlID(r, "keyID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var req revokeRequest
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
			return
		}
	}

	if err := h.keySvc.Revoke(r.Context(), p.AdminID, id, req.Reason); err != nil {
		writeDomainError(w, err, "api key")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"message": "API key revoked"})
}

// apiKeyCursor extracts the page cursor for the active sort field.
func apiKeyCursor(page *pagination.Page) func(model.APIKey) pagination.Cursor {
	return func(k model.APIKey) pagination.Cursor {
		var v string
		switch page.SortField {
		case "name":
			v = k.Name
		case "last_used_at":
			if k.LastUsedAt != nil {
				v = k.LastUsedAt.UTC().Format(time.RFC3339Nano)
			}
		default:
			v = k.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: k.ID}
	}
}
