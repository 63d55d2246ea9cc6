package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/smart-city-assistant/services/llm"
	"github.com/upb/smart-city-assistant/utils"
	"go.uber.org/zap"
)

// GatewayStatus reports the text-generation gateway state
type GatewayStatus interface {
	Status() llm.Status
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Gateway   *llm.Status       `json:"gateway,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db      *sql.DB
	gateway GatewayStatus
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. gateway may be nil.
func NewHealthHandler(db *sql.DB, gateway GatewayStatus, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		gateway: gateway,
		logger:  logger,
	}
}

// HandleRoot handles GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]string{
		"message": "Sustainable Smart City Assistant API is running!",
	})
}

// HandleHealth handles GET /health
// Liveness only; always 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]string{
		"status":  "healthy",
		"message": "API is operational",
	})
}

// HandleReadiness handles GET /health/ready
// The database gates readiness. A gateway without a credential is reported
// as degraded since assistant features then answer with fallback text.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	var gateway *llm.Status
	if h.gateway != nil {
		st := h.gateway.Status()
		gateway = &st
		if st.HasCredential {
			checks["watsonx"] = "healthy"
		} else {
			checks["watsonx"] = "degraded"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Gateway:   gateway,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
