package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/statuspulse/statuspulse/internal/api"
	"github.com/statuspulse/statuspulse/internal/database"
	"github.com/statuspulse/statuspulse/internal/jobs"
)

// HTTPHandler exposes the engine's on-demand operations over HTTP.
type HTTPHandler struct {
	db         *gorm.DB
	scheduler  *jobs.HealthCheckScheduler
	evaluator  *jobs.AlertRuleEvaluator
	calculator *jobs.UptimeCalculator
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(db *gorm.DB, scheduler *jobs.HealthCheckScheduler, evaluator *jobs.AlertRuleEvaluator, calculator *jobs.UptimeCalculator) *HTTPHandler {
	return &HTTPHandler{
		db:         db,
		scheduler:  scheduler,
		evaluator:  evaluator,
		calculator: calculator,
	}
}

// SetupRoutes configures all HTTP routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/monitor/run", h.handleRunAll)
	mux.HandleFunc("/api/monitor/run/", h.handleRunEntity)
	mux.HandleFunc("/api/monitor/settings", h.handleMonitorSettings)
	mux.HandleFunc("/api/alerts/evaluate", h.handleEvaluateAlerts)
	mux.HandleFunc("/api/uptime/backfill", h.handleBackfill)
}

// handleHealth returns a simple health check response
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRunAll handles POST /api/monitor/run: check every eligible entity now.
func (h *HTTPHandler) handleRunAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	count, err := h.scheduler.TriggerAll()
	if err != nil {
		log.Printf("Manual check run failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to run checks")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// handleRunEntity handles POST /api/monitor/run/{app|component}/{id}.
func (h *HTTPHandler) handleRunEntity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/monitor/run/"), "/")
	if len(parts) != 2 {
		api.RespondError(w, http.StatusBadRequest, "Expected /api/monitor/run/{app|component}/{id}")
		return
	}

	var kind database.EntityType
	switch parts[0] {
	case "app":
		kind = database.EntityTypeApp
	case "component":
		kind = database.EntityTypeComponent
	default:
		api.RespondError(w, http.StatusBadRequest, "Entity type must be app or component")
		return
	}

	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "Invalid entity id")
		return
	}

	result, err := h.scheduler.TriggerEntity(kind, uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			api.RespondError(w, http.StatusNotFound, "Entity not found")
			return
		}
		log.Printf("Manual check for %s %d failed: %v", kind, id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to run check")
		return
	}
	api.RespondJSON(w, http.StatusOK, result)
}

// handleMonitorSettings handles GET and PUT /api/monitor/settings.
func (h *HTTPHandler) handleMonitorSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := database.GetOrCreateMonitorSettings(h.db)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		api.RespondJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		var req api.UpdateMonitorSettingsRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		settings, err := database.GetOrCreateMonitorSettings(h.db)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}

		if req.Enabled != nil {
			settings.Enabled = *req.Enabled
		}
		if req.TickIntervalSeconds != nil {
			settings.TickIntervalSeconds = *req.TickIntervalSeconds
		}
		if req.WorkerPoolSize != nil {
			settings.WorkerPoolSize = *req.WorkerPoolSize
		}
		if req.DefaultFailureThreshold != nil {
			settings.DefaultFailureThreshold = *req.DefaultFailureThreshold
		}
		if req.DefaultTimeoutSeconds != nil {
			settings.DefaultTimeoutSeconds = *req.DefaultTimeoutSeconds
		}

		if err := database.UpdateMonitorSettings(h.db, settings); err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}
		log.Printf("Monitor settings updated (enabled=%t, tick=%ds, pool=%d)",
			settings.Enabled, settings.TickIntervalSeconds, settings.WorkerPoolSize)
		api.RespondJSON(w, http.StatusOK, settings)

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleEvaluateAlerts handles POST /api/alerts/evaluate.
func (h *HTTPHandler) handleEvaluateAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	fired, err := h.evaluator.Run()
	if err != nil {
		log.Printf("Manual alert evaluation failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to evaluate alert rules")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]int{"fired": fired})
}

// handleBackfill handles POST /api/uptime/backfill.
func (h *HTTPHandler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req api.BackfillRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Days <= 0 || req.Days > 365 {
		api.RespondError(w, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	processed, err := h.calculator.Backfill(req.Days)
	if err != nil {
		log.Printf("Uptime backfill failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to backfill uptime")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]int{"days_processed": processed})
}
