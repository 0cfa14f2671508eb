package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/service"
)

// RefundHandler serves the refund request lifecycle. Requests are created
// against a paid order and decided by an approve or deny call; approval
// only sticks once the payment provider accepts the refund.
type RefundHandler struct {
	store    *config.Store
	orderSvc *service.OrderService
}

func NewRefundHandler(store *config.Store, orderSvc *service.OrderService) *RefundHandler {
	return &RefundHandler{store: store, orderSvc: orderSvc}
}

var refundSortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "status"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

// createRefundRequest is the expected payload when opening a request.
type createRefundRequest struct {
	Reason string `json:"reason"`
}

// decisionRequest carries the optional note recorded with a decision.
type decisionRequest struct {
	Note string `json:"note"`
}

// Create opens a refund request against a paid order.
// POST /api/v1/orders/{orderID}/refund-requests
func (h *RefundHandler) Create(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var req createRefundRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	rr, err := h.orderSvc.RequestRefund(r.Context(), orderID, req.Reason)
	if err != nil {
		writeDomainError(w, err, "refund request")
		return
	}
	writeData(w, http.StatusCreated, rr)
}

// List returns one page of refund requests, optionally filtered by status.
// GET /api/v1/refund-requests
func (h *RefundHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r, refundSortOptions)
	if !ok {
		return
	}

	status := queryString(r, "status")
	switch status {
	case "", model.RefundPending, model.RefundApproved, model.RefundDenied:
	default:
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "invalid status filter "+strconv.Quote(status))
		return
	}

	requests, err := h.store.ListRefundRequests(r.Context(), status, page)
	if err != nil {
		writeDomainError(w, err, "list refund requests")
		return
	}

	rows, meta := pagination.BuildPage(requests, page, refundCursor(page))
	writeList(w, rows, meta)
}

// Get returns one refund request by ID.
// GET /api/v1/refund-requests/{requestID}
func (h *RefundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "requestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	rr, err := h.store.GetRefundRequest(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "refund request")
		return
	}
	writeData(w, http.StatusOK, rr)
}

// Approve grants a pending refund request and executes the refund with
// the payment provider. If the provider call fails the request returns to
// pending so the decision can be retried.
// POST /api/v1/refund-requests/{requestID}/approve
func (h *RefundHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "requestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var req decisionRequest
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
			return
		}
	}

	rr, err := h.orderSvc.ApproveRefund(r.Context(), id, req.Note)
	if err != nil {
		writeDomainError(w, err, "approve refund")
		return
	}
	writeData(w, http.StatusOK, rr)
}

// Deny rejects a pending refund request. The order stays paid.
// POST /api/v1/refund-requests/{requestID}/deny
func (h *RefundHandler) Deny(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "requestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var req decisionRequest
	if r.ContentLength > 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
			return
		}
	}

	rr, err := h.orderSvc.DenyRefund(r.Context(), id, req.Note)
	if err != nil {
		writeDomainError(w, err, "deny refund")
		return
	}
	writeData(w, http.StatusOK, rr)
}

func refundCursor(page *pagination.Page) func(model.RefundRequest) pagination.Cursor {
	return func(rr model.RefundRequest) pagination.Cursor {
		var v string
		switch page.SortField {
		case "status":
			v = rr.Status
		default:
			v = rr.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: rr.ID}
	}
}
