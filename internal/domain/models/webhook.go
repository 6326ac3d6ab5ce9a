package models

import (
	"time"

	"github.com/google/uuid"
)

// Gateway webhook event types we dispatch on. Anything else is recorded
// for audit but never mutates a payment.
const (
	EventPaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
	EventCancelStatusChanged  = "CANCEL_STATUS_CHANGED"
)

// WebhookEvent is the immutable persisted record of one received gateway
// callback. Rows are never mutated after insert; they exist for idempotency
// lookups and audit replay.
type WebhookEvent struct {
	ID             uuid.UUID
	PaymentID      uuid.UUID
	GatewayOrderID string
	PaymentKey     string
	EventType      string
	ReportedStatus string
	RawPayload     []byte
	ReceivedAt     time.Time
}
