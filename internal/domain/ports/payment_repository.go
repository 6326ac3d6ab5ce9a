package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
)

// PaymentRepository defines persistence for the payments ledger table.
// Locking methods must be called inside a transaction: the row locks they
// acquire are only meaningful until that transaction commits or rolls back.
type PaymentRepository interface {
	// GetByOrderIDForUpdate looks up a payment by its gateway order id with
	// an exclusive row lock, blocking concurrent webhooks and settlement
	// runs touching the same payment.
	GetByOrderIDForUpdate(ctx context.Context, tx DBTX, gatewayOrderID string) (*models.Payment, error)

	// MarkSucceeded sets the payment to success and stores the gateway
	// confirmation details.
	MarkSucceeded(ctx context.Context, tx DBTX, id uuid.UUID, paymentKey, method string, amount int64, paidAt time.Time) error

	// MarkFailed sets the payment to failed.
	MarkFailed(ctx context.Context, tx DBTX, id uuid.UUID) error

	// MarkCanceled sets the payment to canceled with the given timestamp.
	MarkCanceled(ctx context.Context, tx DBTX, id uuid.UUID, canceledAt time.Time) error

	// ListSettleableForUpdate selects all successful, unsettled payments
	// paid inside the half-open window [periodStart, periodEnd), ordered by
	// (merchant_id, paid_at), locking the full result set atomically.
	ListSettleableForUpdate(ctx context.Context, tx DBTX, periodStart, periodEnd time.Time) ([]*models.Payment, error)

	// ClaimForSettlement flips is_settled 0->1 and links the statement, but
	// only if the payment is still unsettled. Returns false when a
	// concurrent process already claimed the row.
	ClaimForSettlement(ctx context.Context, tx DBTX, paymentID, statementID uuid.UUID) (bool, error)
}
