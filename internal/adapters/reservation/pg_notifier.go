package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	"go.uber.org/zap"
)

// PgNotifier cascades payment outcomes into the reservations table, which is
// owned by the booking service but shares the relational store. Updates run
// on the webhook's transaction so the cascade commits or rolls back together
// with the payment mutation.
type PgNotifier struct {
	db     ports.DBPort
	logger *zap.Logger
}

// NewPgNotifier creates a reservation notifier backed by the shared store
func NewPgNotifier(db ports.DBPort, logger *zap.Logger) *PgNotifier {
	return &PgNotifier{db: db, logger: logger}
}

func (n *PgNotifier) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return n.db.GetDB()
}

// PaymentConfirmed marks the reservation confirmed and paid
func (n *PgNotifier) PaymentConfirmed(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID) error {
	return n.setPaymentStatus(ctx, tx, reservationID, "confirmed", "paid")
}

// PaymentFailed marks the reservation's payment as failed
func (n *PgNotifier) PaymentFailed(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID) error {
	return n.setPaymentStatus(ctx, tx, reservationID, "pending", "failed")
}

// PaymentCanceled marks the reservation canceled with its payment refunded
func (n *PgNotifier) PaymentCanceled(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID) error {
	return n.setPaymentStatus(ctx, tx, reservationID, "canceled", "refunded")
}

func (n *PgNotifier) setPaymentStatus(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID, status, paymentStatus string) error {
	query := `UPDATE reservations
		SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1`

	tag, err := n.executor(tx).Exec(ctx, query, reservationID, status, paymentStatus)
	if err != nil {
		return fmt.Errorf("cascade reservation %s: %w", paymentStatus, err)
	}
	if tag.RowsAffected() == 0 {
		// The reservation may already be archived by the booking service.
		// The payment remains the source of truth, so this is not fatal.
		n.logger.Warn("reservation cascade matched no rows",
			zap.String("reservation_id", reservationID.String()),
			zap.String("payment_status", paymentStatus))
	}

	return nil
}
