package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementStatus represents the payout state of a settlement statement
type StatementStatus string

const (
	StatementPending StatementStatus = "pending"
	StatementPaid    StatementStatus = "paid"
	StatementFailed  StatementStatus = "failed"
)

// RunStatus represents the terminal state of one settlement batch run
type RunStatus string

const (
	RunNoop    RunStatus = "noop"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// SettlementError type tags written to the audit trail
const (
	ErrorTypeAlreadySettled        = "already_settled"
	ErrorTypeStatementInsertFailed = "statement_insert_failed"
	ErrorTypeItemInsertFailed      = "item_insert_failed"
	ErrorTypeRunFailed             = "run_failed"
)

// SettlementStatement is one merchant's payout record for one settlement run.
// Invariant: CommissionAmount = floor(TotalSales * CommissionRate) and
// PayoutAmount = TotalSales - CommissionAmount, so the two always sum back
// to TotalSales with no rounding leakage.
type SettlementStatement struct {
	ID               uuid.UUID
	MerchantID       string
	PeriodStart      time.Time // half-open interval [PeriodStart, PeriodEnd)
	PeriodEnd        time.Time
	TotalSales       int64
	CommissionRate   decimal.Decimal
	CommissionAmount int64
	PayoutAmount     int64
	Status           StatementStatus
	PayoutAt         *time.Time // set by the external payout process
	Metadata         map[string]string
	CreatedAt        time.Time
}

// SettlementItem links one payment to the statement that settled it.
// A payment appears in at most one statement, enforced by the
// (statement_id, payment_id) uniqueness constraint and the is_settled claim.
type SettlementItem struct {
	ID          uuid.UUID
	StatementID uuid.UUID
	PaymentID   uuid.UUID
	Amount      int64
	CreatedAt   time.Time
}

// SettlementRun is the forensic log row for one batch invocation. It is
// created before any computation and updated at each milestone, outside the
// batch transaction, so a trace survives even a full rollback.
type SettlementRun struct {
	ID                  uuid.UUID
	PeriodStart         time.Time
	PeriodEnd           time.Time
	Status              RunStatus
	DryRun              bool
	TotalPayments       int
	TotalStatements     int
	SuccessPaymentCount int
	SkippedPaymentCount int
	TotalPayout         int64
	TotalCommission     int64
	ErrorMessage        string
	StartedAt           time.Time
	FinishedAt          *time.Time
}

// SettlementError is an append-only diagnostic row referencing a run.
// Writing one is always best-effort and never blocks the batch.
type SettlementError struct {
	ID          uuid.UUID
	RunID       uuid.UUID
	ErrorType   string
	PaymentID   *uuid.UUID
	MerchantID  string
	StatementID *uuid.UUID
	Message     string
	RawContext  map[string]string
	CreatedAt   time.Time
}

// ComputeCommission splits totalSales into commission and payout amounts.
// The commission is floored, so payout absorbs the remainder and
// commission + payout == totalSales exactly.
func ComputeCommission(totalSales int64, rate decimal.Decimal) (commission, payout int64) {
	commission = decimal.NewFromInt(totalSales).Mul(rate).Floor().IntPart()
	payout = totalSales - commission
	return commission, payout
}
