package ports

import (
	"context"
	"time"

	"github.com/kevin07696/reconciliation-service/internal/domain/models"
)

// WebhookRepository persists inbound gateway events. Rows are append-only.
type WebhookRepository interface {
	// Create records an inbound event. Events are persisted unconditionally,
	// including ones whose transition is later rejected, to keep the audit
	// trail complete and protect future idempotency checks.
	Create(ctx context.Context, tx DBTX, event *models.WebhookEvent) error

	// ExistsRecent reports whether an event with the same
	// (order id, event type, reported status) was received at or after
	// the given cutoff.
	ExistsRecent(ctx context.Context, tx DBTX, gatewayOrderID, eventType, reportedStatus string, since time.Time) (bool, error)
}
