package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	"go.uber.org/zap"
)

// SettlementRunRepository implements ports.SettlementRunRepository.
// Every statement executes directly on the pool: run logs and error rows are
// the forensic trail and must survive a rollback of the batch transaction
// they describe.
type SettlementRunRepository struct {
	db ports.DBPort
}

// NewSettlementRunRepository creates a new settlement run repository
func NewSettlementRunRepository(db ports.DBPort) *SettlementRunRepository {
	return &SettlementRunRepository{db: db}
}

// CreateRun inserts the placeholder log row for a run and returns its id
func (r *SettlementRunRepository) CreateRun(ctx context.Context, run *models.SettlementRun) (uuid.UUID, error) {
	query := `INSERT INTO settlement_runs
		(id, period_start, period_end, status, dry_run, total_payments,
		 total_statements, success_payment_count, skipped_payment_count,
		 total_payout, total_commission, error_message, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var id uuid.UUID
	err := r.db.GetDB().QueryRow(ctx, query,
		run.ID, run.PeriodStart, run.PeriodEnd, string(run.Status), run.DryRun,
		run.TotalPayments, run.TotalStatements, run.SuccessPaymentCount,
		run.SkippedPaymentCount, run.TotalPayout, run.TotalCommission,
		nullText(run.ErrorMessage), run.StartedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create settlement run: %w", err)
	}

	return id, nil
}

// UpdateRun writes the run's current counters and status
func (r *SettlementRunRepository) UpdateRun(ctx context.Context, run *models.SettlementRun) error {
	query := `UPDATE settlement_runs
		SET status = $2, total_payments = $3, total_statements = $4,
			success_payment_count = $5, skipped_payment_count = $6,
			total_payout = $7, total_commission = $8, error_message = $9,
			finished_at = $10
		WHERE id = $1`

	_, err := r.db.GetDB().Exec(ctx, query,
		run.ID, string(run.Status), run.TotalPayments, run.TotalStatements,
		run.SuccessPaymentCount, run.SkippedPaymentCount, run.TotalPayout,
		run.TotalCommission, nullText(run.ErrorMessage), nullTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("update settlement run: %w", err)
	}

	return nil
}

// CreateError appends one diagnostic row referencing a run
func (r *SettlementRunRepository) CreateError(ctx context.Context, settlementError *models.SettlementError) error {
	rawContext, err := json.Marshal(settlementError.RawContext)
	if err != nil {
		return fmt.Errorf("marshal error context: %w", err)
	}
	if settlementError.RawContext == nil {
		rawContext = []byte("{}")
	}

	query := `INSERT INTO settlement_errors
		(id, run_id, error_type, payment_id, merchant_id, statement_id,
		 message, raw_context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.GetDB().Exec(ctx, query,
		settlementError.ID, settlementError.RunID, settlementError.ErrorType,
		nullUUID(settlementError.PaymentID), nullText(settlementError.MerchantID),
		nullUUID(settlementError.StatementID), settlementError.Message,
		rawContext, settlementError.CreatedAt)
	if err != nil {
		return fmt.Errorf("create settlement error: %w", err)
	}

	return nil
}

// BestEffortAuditSink implements ports.AuditSink on top of the run
// repository. Write failures are swallowed and only reported through the
// logger so an audit fault can never abort a settlement run.
type BestEffortAuditSink struct {
	runs   ports.SettlementRunRepository
	logger *zap.Logger
}

// NewBestEffortAuditSink creates a best-effort audit sink
func NewBestEffortAuditSink(runs ports.SettlementRunRepository, logger *zap.Logger) *BestEffortAuditSink {
	return &BestEffortAuditSink{runs: runs, logger: logger}
}

// RecordError writes a settlement error row, swallowing any failure
func (s *BestEffortAuditSink) RecordError(ctx context.Context, settlementError *models.SettlementError) {
	if err := s.runs.CreateError(ctx, settlementError); err != nil {
		s.logger.Error("failed to record settlement error",
			zap.Error(err),
			zap.String("run_id", settlementError.RunID.String()),
			zap.String("error_type", settlementError.ErrorType),
			zap.String("message", settlementError.Message),
		)
	}
}
