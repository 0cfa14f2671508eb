package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/service"
)

// SystemHandler serves operational endpoints and admin account management.
type SystemHandler struct {
	store   *config.Store
	authSvc *service.AuthService
	version string
	started time.Time
}

func NewSystemHandler(store *config.Store, authSvc *service.AuthService, version string) *SystemHandler {
	return &SystemHandler{
		store:   store,
		authSvc: authSvc,
		version: version,
		started: time.Now(),
	}
}

// ---------------------------------------------------------------------------
// Health and version
// ---------------------------------------------------------------------------

// Health reports process liveness. It never touches the database.
// GET /healthz
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Ready reports whether the gateway can serve traffic, which means the
// store answers a ping.
// GET /readyz
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  "store unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

// Version reports the build version.
// GET /api/v1/system/version
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{"version": h.version})
}

// ---------------------------------------------------------------------------
// Admin management
// ---------------------------------------------------------------------------

// ListAdmins returns all admin accounts.
// GET /api/v1/admins
func (h *SystemHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeDomainError(w, err, "list admins")
		return
	}

	views := make([]map[string]interface{}, 0, len(admins))
	for i := range admins {
		views = append(views, adminView(&admins[i]))
	}
	writeData(w, http.StatusOK, views)
}

// createAdminRequest is the expected payload for admin creation.
type createAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreateAdmin creates a new admin account.
// POST /api/v1/admins
func (h *SystemHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "A valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "Password must be at least 8 characters")
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.CodeInternalError, "Failed to hash password")
		return
	}

	admin := &model.Admin{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		IsActive:     true,
	}
	if err := h.store.CreateAdmin(r.Context(), admin); err != nil {
		writeDomainError(w, err, "create admin")
		return
	}
	writeData(w, http.StatusCreated, adminView(admin))
}

// adminView strips the password hash from an admin record.
func adminView(admin *model.Admin) map[string]interface{} {
	m := map[string]interface{}{
		"id":         admin.ID,
		"email":      admin.Email,
		"name":       admin.Name,
		"is_active":  admin.IsActive,
		"created_at": admin.CreatedAt,
		"updated_at": admin.UpdatedAt,
	}
	if admin.LastLoginAt != nil {
		m["last_login_at"] = admin.LastLoginAt
	}
	return m
}
