package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the current state of a payment
type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusSuccess  PaymentStatus = "success"
	StatusFailed   PaymentStatus = "failed"
	StatusCanceled PaymentStatus = "canceled"
	StatusRefunded PaymentStatus = "refunded"
)

// Payment represents one customer charge attempt.
// Amount is in integer minor units (e.g., KRW won, USD cents).
type Payment struct {
	ID                    uuid.UUID
	MerchantID            string
	UserID                string
	ReservationID         *uuid.UUID
	Amount                int64
	Currency              string
	Provider              string
	GatewayPaymentKey     string // empty until the gateway confirms the charge
	GatewayOrderID        string // caller-generated, globally unique, idempotency anchor
	GatewayPaymentMethod  string
	Status                PaymentStatus
	PaidAt                *time.Time
	CanceledAt            *time.Time
	IsSettled             bool
	SettlementStatementID *uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// gatewayStatusMap translates the gateway's status vocabulary into ours.
// Unknown gateway statuses deliberately map to pending: an unrecognized
// state must never silently become a terminal failure.
var gatewayStatusMap = map[string]PaymentStatus{
	"READY":               StatusPending,
	"IN_PROGRESS":         StatusPending,
	"WAITING_FOR_DEPOSIT": StatusPending,
	"DONE":                StatusSuccess,
	"CANCELED":            StatusCanceled,
	"PARTIAL_CANCELED":    StatusCanceled,
	"ABORTED":             StatusFailed,
	"EXPIRED":             StatusFailed,
}

// MapGatewayStatus maps a gateway-reported status to an internal PaymentStatus.
// It is total: unrecognized values default to pending.
func MapGatewayStatus(gatewayStatus string) PaymentStatus {
	if status, ok := gatewayStatusMap[gatewayStatus]; ok {
		return status
	}
	return StatusPending
}

// validTransitions is the adjacency table of legal status changes.
// failed, canceled, and refunded are terminal.
var validTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending: {StatusSuccess, StatusFailed, StatusCanceled},
	StatusSuccess: {StatusCanceled, StatusRefunded},
}

// IsValidTransition reports whether moving from current to proposed is legal.
// An invalid transition is not an error condition for callers: the webhook
// must still be recorded and acknowledged, just not applied.
func IsValidTransition(current, proposed PaymentStatus) bool {
	for _, next := range validTransitions[current] {
		if next == proposed {
			return true
		}
	}
	return false
}
