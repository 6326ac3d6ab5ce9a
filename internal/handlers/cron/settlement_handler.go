package cron

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kevin07696/reconciliation-service/internal/domain"
	settlementService "github.com/kevin07696/reconciliation-service/internal/services/settlement"
	"github.com/kevin07696/reconciliation-service/pkg/observability"
	"github.com/kevin07696/reconciliation-service/pkg/timeutil"
	"go.uber.org/zap"
)

// SettlementHandler handles cron job endpoints for settlement batch runs
type SettlementHandler struct {
	settlements *settlementService.Service
	logger      *zap.Logger
	cronSecret  string // Secret token for authenticating scheduler requests
}

// NewSettlementHandler creates a new settlement cron handler
func NewSettlementHandler(settlements *settlementService.Service, logger *zap.Logger, cronSecret string) *SettlementHandler {
	return &SettlementHandler{
		settlements: settlements,
		logger:      logger,
		cronSecret:  cronSecret,
	}
}

// RunSettlementRequest represents the request body for a settlement run
type RunSettlementRequest struct {
	PeriodStart string `json:"period_start"` // RFC3339 timestamp, required
	PeriodEnd   string `json:"period_end"`   // RFC3339 timestamp, required
	DryRun      bool   `json:"dry_run"`
}

// RunSettlementResponse represents the response from a settlement run
type RunSettlementResponse struct {
	Success     bool                      `json:"success"`
	Error       string                    `json:"error,omitempty"`
	Report      *settlementService.Report `json:"report,omitempty"`
	ProcessedAt string                    `json:"processed_at"`
}

// RunSettlement handles the POST /cron/run-settlement endpoint.
// This endpoint is called by the external scheduler to settle a window.
func (h *SettlementHandler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("settlement cron job triggered",
		zap.String("method", r.Method),
		zap.String("remote_addr", r.RemoteAddr),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RunSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	periodStart, err := timeutil.ParseDate(time.RFC3339, req.PeriodStart)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "period_start must be an RFC3339 timestamp")
		return
	}
	periodEnd, err := timeutil.ParseDate(time.RFC3339, req.PeriodEnd)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "period_end must be an RFC3339 timestamp")
		return
	}

	started := time.Now()
	report, err := h.settlements.RunSettlementPeriod(r.Context(), settlementService.RunRequest{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		DryRun:      req.DryRun,
	})
	if err != nil {
		if domain.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Batch failures must be visible to whoever triggered the job
		observability.RecordSettlementRun("failed", req.DryRun, time.Since(started))
		h.logger.Error("settlement run failed",
			zap.Error(err),
			zap.Bool("ledger_integrity", domain.IsIntegrityError(err)),
		)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	observability.RecordSettlementRun(string(report.Status), req.DryRun, time.Since(started))
	observability.RecordSettlementTotals(report.TotalPayout, report.TotalCommission)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := RunSettlementResponse{
		Success:     true,
		Report:      report,
		ProcessedAt: timeutil.Now().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode settlement response", zap.Error(err))
	}
}

// authenticateRequest verifies the cron request is authorized
func (h *SettlementHandler) authenticateRequest(r *http.Request) bool {
	if secret := r.Header.Get("X-Cron-Secret"); secret != "" && secret == h.cronSecret {
		return true
	}
	if r.Header.Get("Authorization") == "Bearer "+h.cronSecret {
		return true
	}
	return false
}

// respondError sends an error response
func (h *SettlementHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := RunSettlementResponse{
		Success:     false,
		Error:       message,
		ProcessedAt: timeutil.Now().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// HealthCheck handles GET /cron/health for monitoring
func (h *SettlementHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"time":   timeutil.Now().Format(time.RFC3339),
	})
}
