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

// OrderHandler serves checkout, order listing, and payment verification.
type OrderHandler struct {
	store    *config.Store
	orderSvc *service.OrderService
}

func NewOrderHandler(store *config.Store, orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{store: store, orderSvc: orderSvc}
}

var orderSortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "amount_cents", "status"},
	NumericSorts: []string{"amount_cents"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

// Checkout creates a pending order for a product.
// POST /api/v1/orders/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var params service.CheckoutParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orderSvc.Checkout(r.Context(), params)
	if err != nil {
		writeDomainError(w, err, "checkout")
		return
	}
	writeData(w, http.StatusCreated, order)
}

// List returns one page of orders, optionally filtered by status.
// GET /api/v1/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r, orderSortOptions)
	if !ok {
		return
	}

	status := queryString(r, "status")
	switch status {
	case "", model.OrderPending, model.OrderPaid, model.OrderRefunded:
	default:
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "invalid status filter "+strconv.Quote(status))
		return
	}

	orders, err := h.store.ListOrders(r.Context(), status, page)
	if err != nil {
		writeDomainError(w, err, "list orders")
		return
	}

	rows, meta := pagination.BuildPage(orders, page, orderCursor(page))
	writeList(w, rows, meta)
}

// Get returns one order by ID.
// GET /api/v1/orders/{orderID}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "order")
		return
	}
	writeData(w, http.StatusOK, order)
}

// VerifyPayment checks the payment provider for the order's session and,
// if it is paid for the right amount, marks the order paid. Safe to call
// repeatedly; an already-settled order is returned as is.
// POST /api/v1/orders/{orderID}/verify-payment
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	order, err := h.orderSvc.VerifyPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "verify payment")
		return
	}
	writeData(w, http.StatusOK, order)
}

func orderCursor(page *pagination.Page) func(model.Order) pagination.Cursor {
	return func(o model.Order) pagination.Cursor {
		var v string
		switch page.SortField {
		case "amount_cents":
			v = strconv.FormatInt(o.AmountCents, 10)
		case "status":
			v = o.Status
		default:
			v = o.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: o.ID}
	}
}
