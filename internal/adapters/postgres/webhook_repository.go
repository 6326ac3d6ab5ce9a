package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
)

// WebhookRepository implements ports.WebhookRepository over pgx.
// payment_webhooks rows are append-only.
type WebhookRepository struct {
	db ports.DBPort
}

// NewWebhookRepository creates a new webhook event repository
func NewWebhookRepository(db ports.DBPort) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

// Create records an inbound gateway event
func (r *WebhookRepository) Create(ctx context.Context, tx ports.DBTX, event *models.WebhookEvent) error {
	query := `INSERT INTO payment_webhooks
		(id, payment_id, gateway_order_id, gateway_payment_key, event_type,
		 reported_status, raw_payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.executor(tx).Exec(ctx, query,
		event.ID, event.PaymentID, event.GatewayOrderID, nullText(event.PaymentKey),
		event.EventType, event.ReportedStatus, event.RawPayload, event.ReceivedAt)
	if err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}

	return nil
}

// ExistsRecent reports whether a matching event was already recorded at or
// after the cutoff. This is the idempotency guard for redelivered webhooks.
func (r *WebhookRepository) ExistsRecent(ctx context.Context, tx ports.DBTX, gatewayOrderID, eventType, reportedStatus string, since time.Time) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM payment_webhooks
		WHERE gateway_order_id = $1 AND event_type = $2 AND reported_status = $3
			AND received_at >= $4
	)`

	var exists bool
	err := r.executor(tx).QueryRow(ctx, query, gatewayOrderID, eventType, reportedStatus, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent webhook event: %w", err)
	}

	return exists, nil
}
