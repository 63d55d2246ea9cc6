package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/smart-city-assistant/services/dashboard"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// DashboardService is the subset of dashboard.Service used by DashboardHandler
type DashboardService interface {
	City(name string) (*dashboard.CityDashboard, error)
	KPIHistory(name, metric string, days int) (*dashboard.History, error)
	Report(ctx context.Context, name string) (*dashboard.Report, error)
}

// DashboardHandler serves /api/dashboard
type DashboardHandler struct {
	service DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger}
}

// HandleCities handles GET /api/dashboard/cities
func (h *DashboardHandler) HandleCities(w http.ResponseWriter, r *http.Request) {
	cities := dashboard.Cities()
	_ = utils.WriteOK(w, map[string]interface{}{
		"cities": cities,
		"count":  len(cities),
	})
}

// HandleCity handles GET /api/dashboard/city/{name}
func (h *DashboardHandler) HandleCity(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.City(chi.URLParam(r, "name"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, view)
}

// HandleKPIHistory handles GET /api/dashboard/kpi-history/{name}?metric=&days=
func (h *DashboardHandler) HandleKPIHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	metric := strings.TrimSpace(query.Get("metric"))
	if metric == "" {
		_ = utils.WriteBadRequest(w, "metric is required", map[string]string{"metric": "metric is required"})
		return
	}

	days, err := utils.ParseIntDefault(query.Get("days"), dashboard.DefaultHistoryDays)
	if err != nil {
		_ = utils.WriteBadRequest(w, "days must be an integer", map[string]string{"days": "days must be an integer"})
		return
	}

	history, err := h.service.KPIHistory(chi.URLParam(r, "name"), metric, days)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, history)
}

// HandleReport handles GET /api/dashboard/city/{name}/report
func (h *DashboardHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, report)
}
