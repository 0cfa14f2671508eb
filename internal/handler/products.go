package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/rates"
)

// ProductHandler serves catalog management and read access.
type ProductHandler struct {
	store *config.Store
	rates rates.Provider
}

func NewProductHandler(store *config.Store, rp rates.Provider) *ProductHandler {
	return &ProductHandler{store: store, rates: rp}
}

var productSortOptions = pagination.Options{
	AllowedSorts: []string{"created_at", "name", "price_cents"},
	NumericSorts: []string{"price_cents"},
	DefaultSort:  "created_at",
	DefaultDesc:  true,
}

// productView is a product plus an optional display price in the currency
// the caller asked for. The stored price is always returned unchanged.
type productView struct {
	model.Product
	DisplayPriceCents *int64  `json:"display_price_cents,omitempty"`
	DisplayCurrency   *string `json:"display_currency,omitempty"`
}

// withDisplay converts the product price to the requested currency. A
// failed conversion leaves the display fields unset rather than failing
// the request; the stored price is still there.
func (h *ProductHandler) withDisplay(r *http.Request, p model.Product) productView {
	view := productView{Product: p}
	want := strings.ToUpper(strings.TrimSpace(queryString(r, "currency")))
	if want == "" || want == strings.ToUpper(p.Currency) {
		return view
	}
	converted, err := rates.Convert(r.Context(), h.rates, p.PriceCents, p.Currency, want)
	if err != nil {
		return view
	}
	view.DisplayPriceCents = &converted
	view.DisplayCurrency = &want
	return view
}

// createProductRequest is the expected payload for product creation.
type createProductRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	IsActive    *bool  `json:"is_active"`
}

func (req *createProductRequest) validate() map[string]interface{} {
	problems := map[string]interface{}{}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Name == "" {
		problems["name"] = "required"
	}
	if req.Slug == "" {
		problems["slug"] = "required"
	} else if strings.ContainsAny(req.Slug, " /\\?#") {
		problems["slug"] = "must be URL-safe"
	}
	if req.PriceCents < 0 {
		problems["price_cents"] = "must not be negative"
	}
	if len(req.Currency) != 3 {
		problems["currency"] = "must be a 3-letter code"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// List returns one page of products.
// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r, productSortOptions)
	if !ok {
		return
	}

	products, err := h.store.ListProducts(r.Context(), page)
	if err != nil {
		writeDomainError(w, err, "list products")
		return
	}

	rows, meta := pagination.BuildPage(products, page, productCursor(page))
	views := make([]productView, 0, len(rows))
	for _, p := range rows {
		views = append(views, h.withDisplay(r, p))
	}
	writeList(w, views, meta)
}

// Create adds a product to the catalog.
// POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}
	if problems := req.validate(); problems != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "Invalid product", problems)
		return
	}

	product := &model.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		writeDomainError(w, err, "create product")
		return
	}
	writeData(w, http.StatusCreated, product)
}

// Get returns one product by ID.
// GET /api/v1/products/{productID}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "product")
		return
	}
	writeData(w, http.StatusOK, h.withDisplay(r, *product))
}

// Update applies a partial update to a product.
// PATCH /api/v1/products/{productID}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	var upd model.ProductUpdate
	if err := readJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, "Invalid request body: "+err.Error())
		return
	}
	if upd.PriceCents != nil && *upd.PriceCents < 0 {
		writeError(w, http.StatusBadRequest, model.CodeValidationError, "price_cents must not be negative")
		return
	}
	if upd.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*upd.Currency))
		if len(c) != 3 {
			writeError(w, http.StatusBadRequest, model.CodeValidationError, "currency must be a 3-letter code")
			return
		}
		upd.Currency = &c
	}

	product, err := h.store.UpdateProduct(r.Context(), id, &upd)
	if err != nil {
		writeDomainError(w, err, "product")
		return
	}
	writeData(w, http.StatusOK, product)
}

// Delete removes a product from the catalog.
// DELETE /api/v1/products/{productID}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return
	}

	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		writeDomainError(w, err, "product")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"message": "Product deleted"})
}

func productCursor(page *pagination.Page) func(model.Product) pagination.Cursor {
	return func(p model.Product) pagination.Cursor {
		var v string
		switch page.SortField {
		case "name":
			v = p.Name
		case "price_cents":
			v = strconv.FormatInt(p.PriceCents, 10)
		default:
			v = p.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		return pagination.Cursor{SortValue: v, RowID: p.ID}
	}
}
