package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
	"github.com/gateflow/gateflow/internal/server/middleware"
)

// AnalyticsHandler serves aggregate reporting over orders and key usage.
type AnalyticsHandler struct {
	store *config.Store
}

func NewAnalyticsHandler(store *config.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

const (
	defaultRevenueDays = 30
	maxRevenueDays     = 365
)

// Overview returns order counts and gross revenue across all time.
// GET /api/v1/analytics/overview
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.OrderStats(r.Context())
	if err != nil {
		writeDomainError(w, err, "analytics overview")
		return
	}
	writeData(w, http.StatusOK, stats)
}

// Revenue returns paid revenue bucketed by UTC day over a trailing window.
// Days with no paid orders are filled with zero rows so the series has no
// gaps. The window defaults to 30 days; ?days= widens it up to a year.
// GET /api/v1/analytics/revenue
func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	days := defaultRevenueDays
	if raw := queryString(r, "days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRevenueDays {
			writeError(w, http.StatusBadRequest, model.CodeInvalidInput,
				"days must be between 1 and "+strconv.Itoa(maxRevenueDays))
			return
		}
		days = n
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	paid, err := h.store.PaidOrdersSince(r.Context(), since)
	if err != nil {
		writeDomainError(w, err, "analytics revenue")
		return
	}

	writeData(w, http.StatusOK, bucketRevenue(paid, since, now))
}

// bucketRevenue groups paid orders into one row per UTC day, zero-filling
// the days in [since, until] that saw no payments.
func bucketRevenue(paid []model.PaidOrder, since, until time.Time) []model.RevenuePoint {
	byDay := make(map[string]*model.RevenuePoint)
	for _, p := range paid {
		day := p.PaidAt.UTC().Format("2006-01-02")
		pt, ok := byDay[day]
		if !ok {
			pt = &model.RevenuePoint{Day: day}
			byDay[day] = pt
		}
		pt.Orders++
		pt.AmountCents += p.AmountCents
	}

	for d := since; !d.After(until); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			byDay[day] = &model.RevenuePoint{Day: day}
		}
	}

	out := make([]model.RevenuePoint, 0, len(byDay))
	for _, pt := range byDay {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// KeyUsage returns per-key request counters for the caller's keys.
// GET /api/v1/analytics/key-usage
func (h *AnalyticsHandler) KeyUsage(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())

	usage, err := h.store.KeyUsage(r.Context(), p.AdminID)
	if err != nil {
		writeDomainError(w, err, "analytics key usage")
		return
	}
	writeData(w, http.StatusOK, usage)
}
