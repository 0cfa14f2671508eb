package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/pagination"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/service"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeData wraps a single resource in the standard data envelope.
func writeData(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, model.DataResponse{Data: v})
}

// writeList wraps a result page in the standard list envelope.
func writeList(w http.ResponseWriter, data interface{}, p *model.Pagination) {
	writeJSON(w, http.StatusOK, model.ListResponse{Data: data, Pagination: p})
}

// writeError writes a structured error response using the standard error
// envelope. The optional details map carries field-level context.
func writeError(w http.ResponseWriter, status int, code, message string, details ...map[string]interface{}) {
	var detailMap map[string]interface{}
	if len(details) > 0 {
		detailMap = details[0]
	}
	writeJSON(w, status, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Details: detailMap,
		},
	})
}

// writeDomainError maps store, service, and provider failures onto the
// error taxonomy. Raw driver errors never reach the client; what falls
// through is a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, model.CodeNotFound, fallbackMsg+" not found")
	case errors.Is(err, config.ErrConflict):
		writeError(w, http.StatusConflict, model.CodeConflict, err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, model.CodeValidationError, err.Error())
	case errors.Is(err, payment.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, model.CodeNotFound, "payment session not found")
	case errors.Is(err, payment.ErrRefundRejected):
		writeError(w, http.StatusConflict, model.CodeConflict, "refund rejected by payment provider")
	case errors.Is(err, payment.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, model.CodeInternalError, "payment provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, model.CodeInternalError, fallbackMsg+" failed")
	}
}

// readJSON decodes the request body as JSON into v. Unknown fields are
// rejected so typos surface as 400s instead of silently dropped input. The
// body is closed after decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// urlID extracts and parses a numeric URL parameter.
func urlID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + param)
	}
	return id, nil
}

// parsePage validates the request's pagination parameters against the
// endpoint's sort whitelist and writes the 400 itself on failure.
func parsePage(w http.ResponseWriter, r *http.Request, opts pagination.Options) (*pagination.Page, bool) {
	page, err := pagination.ParseRequest(r, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeInvalidInput, err.Error())
		return nil, false
	}
	return page, true
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}
