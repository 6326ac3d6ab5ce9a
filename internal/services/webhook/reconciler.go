package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/reconciliation-service/internal/domain"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	"github.com/kevin07696/reconciliation-service/pkg/timeutil"
	"go.uber.org/zap"
)

// Outcome reasons reported by ProcessWebhook
const (
	ReasonApplied            = "applied"
	ReasonAlreadyProcessed   = "already_processed"
	ReasonRejectedTransition = "rejected_transition"
	ReasonIgnoredEventType   = "ignored_event_type"
)

// GatewayEvent is the decoded webhook payload from the payment gateway
type GatewayEvent struct {
	EventType string           `json:"eventType" validate:"required"`
	CreatedAt string           `json:"createdAt"`
	Data      GatewayEventData `json:"data" validate:"required"`
	Raw       []byte           `json:"-"`
}

// GatewayEventData carries the payment object inside a gateway event
type GatewayEventData struct {
	PaymentKey  string     `json:"paymentKey"`
	OrderID     string     `json:"orderId" validate:"required"`
	Status      string     `json:"status"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	TotalAmount *int64     `json:"totalAmount,omitempty"`
	Method      string     `json:"method,omitempty"`
	Cancels     []struct {
		CancelAmount int64  `json:"cancelAmount"`
		CancelReason string `json:"cancelReason"`
	} `json:"cancels,omitempty"`
}

// Outcome describes what a webhook delivery did to the ledger. Code is set
// only when the delivery was acknowledged without being applied.
type Outcome struct {
	Applied bool
	Reason  string
	Code    domain.ErrorCode
	Status  models.PaymentStatus
}

// Reconciler turns gateway callbacks into authoritative payment state
// transitions with idempotency and out-of-order protection.
type Reconciler struct {
	db           ports.TransactionManager
	payments     ports.PaymentRepository
	webhooks     ports.WebhookRepository
	reservations ports.ReservationNotifier
	logger       *zap.Logger

	// duplicate deliveries inside this window short-circuit
	idempotencyWindow time.Duration
}

// NewReconciler creates a webhook reconciler
func NewReconciler(
	db ports.TransactionManager,
	payments ports.PaymentRepository,
	webhooks ports.WebhookRepository,
	reservations ports.ReservationNotifier,
	idempotencyWindow time.Duration,
	logger *zap.Logger,
) *Reconciler {
	if idempotencyWindow <= 0 {
		idempotencyWindow = time.Hour
	}
	return &Reconciler{
		db:                db,
		payments:          payments,
		webhooks:          webhooks,
		reservations:      reservations,
		logger:            logger,
		idempotencyWindow: idempotencyWindow,
	}
}

// ProcessWebhook applies one inbound gateway event. At most one payment
// mutation happens per call, inside a single transaction holding the
// payment's row lock. Idempotent replays and invalid transitions commit
// without mutating anything.
func (r *Reconciler) ProcessWebhook(ctx context.Context, event *GatewayEvent) (*Outcome, error) {
	if event.EventType == "" {
		return nil, domain.ErrMissingEventType
	}
	if event.Data.OrderID == "" {
		return nil, domain.ErrMissingOrderID
	}

	var outcome *Outcome

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		payment, err := r.payments.GetByOrderIDForUpdate(ctx, tx, event.Data.OrderID)
		if err != nil {
			return err
		}

		// Idempotency guard: a duplicate (order id, event type, status)
		// delivery within the recency window is acknowledged, not reapplied.
		cutoff := timeutil.Now().Add(-r.idempotencyWindow)
		duplicate, err := r.webhooks.ExistsRecent(ctx, tx, event.Data.OrderID, event.EventType, event.Data.Status, cutoff)
		if err != nil {
			return err
		}
		if duplicate {
			r.logger.Info("duplicate webhook short-circuited",
				zap.String("gateway_order_id", event.Data.OrderID),
				zap.String("event_type", event.EventType),
				zap.String("reported_status", event.Data.Status),
			)
			outcome = &Outcome{Applied: false, Reason: ReasonAlreadyProcessed, Code: domain.ErrorCodeAlreadyProcessed, Status: payment.Status}
			return nil
		}

		// Persist the event unconditionally, even when the transition below
		// is rejected: the audit trail stays complete and the row feeds
		// future idempotency checks.
		record := &models.WebhookEvent{
			ID:             uuid.New(),
			PaymentID:      payment.ID,
			GatewayOrderID: event.Data.OrderID,
			PaymentKey:     event.Data.PaymentKey,
			EventType:      event.EventType,
			ReportedStatus: event.Data.Status,
			RawPayload:     event.Raw,
			ReceivedAt:     timeutil.Now(),
		}
		if err := r.webhooks.Create(ctx, tx, record); err != nil {
			return err
		}

		proposed := r.proposedStatus(event)

		if !models.IsValidTransition(payment.Status, proposed) {
			r.logger.Warn("webhook transition rejected",
				zap.String("gateway_order_id", event.Data.OrderID),
				zap.String("current_status", string(payment.Status)),
				zap.String("proposed_status", string(proposed)),
			)
			outcome = &Outcome{Applied: false, Reason: ReasonRejectedTransition, Code: domain.ErrorCodeInvalidTransition, Status: payment.Status}
			return nil
		}

		applied, err := r.dispatch(ctx, tx, payment, event, proposed)
		if err != nil {
			return err
		}
		if !applied {
			outcome = &Outcome{Applied: false, Reason: ReasonIgnoredEventType, Code: domain.ErrorCodeUnrecognizedEvent, Status: payment.Status}
			return nil
		}

		outcome = &Outcome{Applied: true, Reason: ReasonApplied, Status: proposed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("webhook processed",
		zap.String("gateway_order_id", event.Data.OrderID),
		zap.String("event_type", event.EventType),
		zap.Bool("applied", outcome.Applied),
		zap.String("reason", outcome.Reason),
	)

	return outcome, nil
}

// proposedStatus derives the status a given event proposes for the payment
func (r *Reconciler) proposedStatus(event *GatewayEvent) models.PaymentStatus {
	if event.EventType == models.EventCancelStatusChanged {
		return models.StatusCanceled
	}
	return models.MapGatewayStatus(event.Data.Status)
}

// dispatch applies the event-type specific mutation and reservation cascade.
// Returns false when the event type is unrecognized and nothing was mutated.
func (r *Reconciler) dispatch(ctx context.Context, tx pgx.Tx, payment *models.Payment, event *GatewayEvent, proposed models.PaymentStatus) (bool, error) {
	switch event.EventType {
	case models.EventPaymentStatusChanged:
		switch proposed {
		case models.StatusSuccess:
			paidAt := timeutil.Now()
			if event.Data.ApprovedAt != nil {
				paidAt = event.Data.ApprovedAt.UTC()
			}
			amount := payment.Amount
			if event.Data.TotalAmount != nil {
				amount = *event.Data.TotalAmount
			}
			if err := r.payments.MarkSucceeded(ctx, tx, payment.ID, event.Data.PaymentKey, event.Data.Method, amount, paidAt); err != nil {
				return false, err
			}
			if payment.ReservationID != nil {
				if err := r.reservations.PaymentConfirmed(ctx, tx, *payment.ReservationID); err != nil {
					return false, fmt.Errorf("reservation confirm cascade: %w", err)
				}
			}
			return true, nil

		case models.StatusFailed:
			if err := r.payments.MarkFailed(ctx, tx, payment.ID); err != nil {
				return false, err
			}
			if payment.ReservationID != nil {
				if err := r.reservations.PaymentFailed(ctx, tx, *payment.ReservationID); err != nil {
					return false, fmt.Errorf("reservation fail cascade: %w", err)
				}
			}
			return true, nil

		default:
			// A pending-ish gateway status proposes no mutation
			return false, nil
		}

	case models.EventCancelStatusChanged:
		if err := r.payments.MarkCanceled(ctx, tx, payment.ID, timeutil.Now()); err != nil {
			return false, err
		}
		if payment.ReservationID != nil {
			if err := r.reservations.PaymentCanceled(ctx, tx, *payment.ReservationID); err != nil {
				return false, fmt.Errorf("reservation cancel cascade: %w", err)
			}
		}
		return true, nil

	default:
		r.logger.Info("unrecognized webhook event type ignored",
			zap.String("event_type", event.EventType),
			zap.String("gateway_order_id", event.Data.OrderID),
		)
		return false, nil
	}
}
