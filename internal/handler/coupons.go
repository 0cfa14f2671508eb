package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
)

// CouponHandler serves discount code management.
type CouponHandler struct {
	store *config.Store
}

func NewCouponHandler(store *config.Store) *CouponHandler {
	return &CouponHandler{store: store}
}

var couponSortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "code", "expires_at"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

// createCouponRequest is the expected payload for coupon creation. Exactly
// one of percent_off / amount_off_cents must be set.
type createCouponRequest struct {
	Code           string     `json:"code"`
	PercentOff     int        `json:"percent_off"`
	AmountOffCents int64      `json:"amount_off_cents"`
	MaxRedemptions int        `json:"max_redemptions"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsActive       *bool      `json:"is_active"`
}

func (req *createCouponRequest) validate() map[string]interface{} {
	problems := map[string]interface{}{}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		problems["code"] = "required"
	}
	hasPercent := req.PercentOff != 0
	hasAmount := req.AmountOffCents != 0
	if hasPercent == hasAmount {
		problems["discount"] = "exactly one of percent_off or amount_off_cents must be set"
	}
	if req.PercentOff < 0 || req.PercentOff > 100 {
		problems["percent_off"] = "must be between 1 and 100"
	}
	if req.AmountOffCents < 0 {
		problems["amount_off_cents"] = "must not be negative"
	}
	if req.MaxRedemptions < 0 {
		problems["max_redemptions"] = "must not be negative"
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		problems["expires_at"] = "must be in the future"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// List returns one page of coupons.
// GET /api/v1/coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r, couponSortOptions)
	if !ok {
		return
	}

	coupons, err := h.store.ListCoupons(r.Context(), page)
	if err != nil {
		writeDomainError(w, err, "list coupons")
		return
	}

	rows, meta := pagination.BuildPage(coupons, page, couponCursor(page))
	writeList(w, rows, meta)
}

// Create adds a coupon.
// POST /api/v1/coupons
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}
	if problems := req.validate(); problems != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "Invalid coupon", problems)
		return
	}

	coupon := &model.Coupon{
		Code:           req.Code,
		PercentOff:     req.PercentOff,
		AmountOffCents: req.AmountOffCents,
		MaxRedemptions: req.MaxRedemptions,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       true,
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := h.store.CreateCoupon(r.Context(), coupon); err != nil {
		writeDomainError(w, err, "create coupon")
		return
	}
	writeData(w, http.StatusCreated, coupon)
}

// Get returns one coupon by ID.
// GET /api/v1/coupons/{couponID}
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "couponID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	coupon, err := h.store.GetCoupon(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "coupon")
		return
	}
	writeData(w, http.StatusOK, coupon)
}

// Update applies a partial update to a coupon. The code itself is
// immutable; issued codes stay valid for their lifetime.
// PATCH /api/v1/coupons/{couponID}
func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "couponID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var upd model.CouponUpdate
	if err := readJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}
	if upd.PercentOff != nil && (*upd.PercentOff < 0 || *upd.PercentOff > 100) {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "percent_off must be between 0 and 100")
		return
	}
	if upd.AmountOffCents != nil && *upd.AmountOffCents < 0 {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "amount_off_cents must not be negative")
		return
	}
	if upd.MaxRedemptions != nil && *upd.MaxRedemptions < 0 {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "max_redemptions must not be negative")
		return
	}

	coupon, err := h.store.UpdateCoupon(r.Context(), id, &upd)
	if err != nil {
		writeDomainError(w, err, "coupon")
		return
	}
	writeData(w, http.StatusOK, coupon)
}

// Delete removes a coupon.
// DELETE /api/v1/coupons/{couponID}
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "couponID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	if err := h.store.DeleteCoupon(r.Context(), id); err != nil {
		writeDomainError(w, err, "coupon")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"message": "Coupon deleted"})
}

func couponCursor(page *pagination.Page) func(model.Coupon) pagination.Cursor {
	return func(c model.Coupon) pagination.Cursor {
		var v string
		switch page.SortField {
		case "code":
			v = c.Code
		case "expires_at":
			if c.ExpiresAt != nil {
				v = c.ExpiresAt.UTC().Format(time.RFC3339Nano)
			}
		default:
			v = c.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: c.ID}
	}
}
