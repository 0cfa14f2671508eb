package handler

import (
	"net/http"
	"time"

	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/server/middleware"
	"github.com/gateflow/gateflow/internal/service"
)

// AuthHandler serves admin session endpoints.
type AuthHandler struct {
	authSvc *service.AuthService
	ttl     time.Duration
}

// NewAuthHandler creates a new AuthHandler. A zero ttl defaults to one hour.
func NewAuthHandler(authSvc *service.AuthService, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{authSvc: authSvc, ttl: ttl}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response payload for a successful login.
type loginResponse struct {
	Token     string `json:"session_token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	AdminID   int64  `json:"admin_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// Login authenticates an admin user and returns a JWT session token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "Email and password are required")
		return
	}

	admin, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// One message for unknown email, wrong password, or disabled
		// account, so login cannot be used to probe for accounts.
		writeError(w, http.StatusUnauthorized, model.CodeUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authSvc.IssueJWT(r.Context(), admin.ID, admin.Email, h.ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.CodeInternalError, "Failed to issue token")
		return
	}

	writeData(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.ttl.Seconds()),
		AdminID:   admin.ID,
		Email:     admin.Email,
		Name:      admin.Name,
	})
}

// Logout invalidates the current session. Since JWTs are stateless, this is
// a no-op on the server side. Clients should discard their token.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"message": "Session invalidated",
	})
}

// Me returns the authenticated identity: the admin ID and, for API keys,
// the key's prefix and scopes.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, model.CodeUnauthorized, "Authentication required")
		return
	}

	out := map[string]interface{}{
		"type":     p.Type,
		"admin_id": p.AdminID,
	}
	if p.Type == "api_key" {
		out["key_prefix"] = p.KeyPrefix
		out["scopes"] = p.Scopes
		out["rate_limit_per_minute"] = p.RateLimit
	}
	writeData(w, http.StatusOK, out)
}
