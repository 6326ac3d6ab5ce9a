package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	webhookService "github.com/kevin07696/reconciliation-service/internal/services/webhook"
	"github.com/kevin07696/reconciliation-service/pkg/observability"
	"go.uber.org/zap"
)

// maxPayloadBytes bounds the accepted webhook body size
const maxPayloadBytes = 1 << 20

// GatewayHandler receives payment gateway callbacks.
// Contract: this endpoint always answers HTTP 200, whatever happened
// internally, to suppress gateway-side retries. Failures are reported only
// in the response body and in server logs.
type GatewayHandler struct {
	reconciler *webhookService.Reconciler
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewGatewayHandler creates a gateway webhook handler
func NewGatewayHandler(reconciler *webhookService.Reconciler, logger *zap.Logger) *GatewayHandler {
	return &GatewayHandler{
		reconciler: reconciler,
		validate:   validator.New(),
		logger:     logger,
	}
}

// webhookResponse is the body sent back to the gateway
type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HandleWebhook handles POST /webhooks/payment-gateway
func (h *GatewayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		h.respond(w, false, "unable to read request body")
		return
	}

	var event webhookService.GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("malformed webhook payload", zap.Error(err))
		observability.RecordWebhook("unknown", "malformed")
		h.respond(w, false, "malformed payload")
		return
	}
	event.Raw = body

	if err := h.validate.Struct(&event); err != nil {
		h.logger.Warn("webhook payload missing required fields",
			zap.Error(err),
			zap.String("event_type", event.EventType),
		)
		observability.RecordWebhook(event.EventType, "invalid")
		h.respond(w, false, "missing required fields")
		return
	}

	outcome, err := h.reconciler.ProcessWebhook(r.Context(), &event)
	if err != nil {
		// Internal failure: still acknowledge with 200 so the gateway does
		// not retry into the same error; the event can be replayed from the
		// gateway dashboard once the cause is fixed.
		h.logger.Error("webhook processing failed",
			zap.Error(err),
			zap.String("event_type", event.EventType),
			zap.String("gateway_order_id", event.Data.OrderID),
		)
		observability.RecordWebhook(event.EventType, "error")
		h.respond(w, false, "processing failed")
		return
	}

	observability.RecordWebhook(event.EventType, outcome.Reason)
	h.respondOutcome(w, outcome)
}

func (h *GatewayHandler) respond(w http.ResponseWriter, success bool, message string) {
	h.write(w, webhookResponse{Success: success, Message: message})
}

func (h *GatewayHandler) respondOutcome(w http.ResponseWriter, outcome *webhookService.Outcome) {
	h.write(w, webhookResponse{
		Success: true,
		Message: outcome.Reason,
		Code:    string(outcome.Code),
	})
}

func (h *GatewayHandler) write(w http.ResponseWriter, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode webhook response", zap.Error(err))
	}
}
