package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/payment"
	"github.com/gateflow/gateflow/internal/service"
)

// ---------------------------------------------------------------------------
// writeDomainError tests
// ---------------------------------------------------------------------------

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", config.ErrNotFound, http.StatusNotFound, model.CodeNotFound},
		{"wrapped not found", errors.Join(errors.New("ctx"), config.ErrNotFound), http.StatusNotFound, model.CodeNotFound},
		{"conflict", config.ErrConflict, http.StatusConflict, model.CodeConflict},
		{"validation", service.ErrValidation, http.StatusBadRequest, model.CodeValidationError},
		{"provider session missing", payment.ErrSessionNotFound, http.StatusNotFound, model.CodeNotFound},
		{"provider refund rejected", payment.ErrRefundRejected, http.StatusConflict, model.CodeConflict},
		{"provider down", payment.ErrUnavailable, http.StatusInternalServerError, model.CodeInternalError},
		{"unknown error", errors.New("driver exploded"), http.StatusInternalServerError, model.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tt.err, "thing")
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if code := errorCode(t, rr); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

// Raw driver errors must never leak into response bodies.
func TestWriteDomainErrorHidesInternals(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDomainError(rr, errors.New("dial tcp 10.0.0.5:5432: connection refused"), "list products")
	if strings.Contains(rr.Body.String(), "10.0.0.5") {
		t.Errorf("internal error detail leaked: %s", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// urlID tests
// ---------------------------------------------------------------------------

func requestWithParam(param, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(param, value)
	req := httptest.NewRequest("GET", "/test", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestURLID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{"valid id", "42", 42, false},
		{"zero rejected", "0", 0, true},
		{"negative rejected", "-3", 0, true},
		{"non-numeric rejected", "abc", 0, true},
		{"empty rejected", "", 0, true},
		{"overflow rejected", "99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := urlID(requestWithParam("orderID", tt.value), "orderID")
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("urlID(%q): %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("urlID(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// readJSON tests
// ---------------------------------------------------------------------------

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"reason":"x","bogus":1}`))
	var dst struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(req, &dst); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestReadJSONDecodes(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"reason":"broken"}`))
	var dst struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(req, &dst); err != nil {
		t.Fatalf("readJSON: %v", err)
	}
	if dst.Reason != "broken" {
		t.Errorf("Reason = %q", dst.Reason)
	}
}
