package ports

import (
	"context"

	"github.com/google/uuid"
)

// ReservationNotifier cascades payment outcomes into the reservation domain,
// which is owned by an external collaborator. Calls happen inside the same
// database transaction as the payment mutation, so an error here rolls the
// whole webhook application back.
type ReservationNotifier interface {
	// PaymentConfirmed marks the reservation confirmed/paid.
	PaymentConfirmed(ctx context.Context, tx DBTX, reservationID uuid.UUID) error

	// PaymentFailed marks the reservation's payment as failed.
	PaymentFailed(ctx context.Context, tx DBTX, reservationID uuid.UUID) error

	// PaymentCanceled marks the reservation canceled/refunded.
	PaymentCanceled(ctx context.Context, tx DBTX, reservationID uuid.UUID) error
}
