package settlement

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/reconciliation-service/internal/domain"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	"github.com/kevin07696/reconciliation-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxErrorMessageLen bounds the error text stored on a failed run row
const maxErrorMessageLen = 500

// RunRequest is the input for one settlement batch invocation
type RunRequest struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	DryRun      bool
}

// StatementSummary is the per-merchant breakdown inside a report
type StatementSummary struct {
	StatementID      uuid.UUID `json:"statement_id,omitempty"`
	MerchantID       string    `json:"merchant_id"`
	TotalSales       int64     `json:"total_sales"`
	CommissionAmount int64     `json:"commission_amount"`
	PayoutAmount     int64     `json:"payout_amount"`
	PaymentCount     int       `json:"payment_count"`
}

// Report is the structured result of one settlement run
type Report struct {
	RunID               uuid.UUID          `json:"run_id"`
	Status              models.RunStatus   `json:"status"`
	DryRun              bool               `json:"dry_run"`
	TotalPayments       int                `json:"total_payments"`
	TotalStatements     int                `json:"total_statements"`
	SuccessPaymentCount int                `json:"success_payment_count"`
	SkippedPaymentCount int                `json:"skipped_payment_count"`
	TotalPayout         int64              `json:"total_payout"`
	TotalCommission     int64              `json:"total_commission"`
	Settlements         []StatementSummary `json:"settlements"`
}

// Service is the settlement batch engine. One invocation claims all eligible
// payments in the window inside a single transaction, folds them into
// per-merchant statements, and marks them settled exactly once.
type Service struct {
	db             ports.TransactionManager
	payments       ports.PaymentRepository
	statements     ports.SettlementRepository
	runs           ports.SettlementRunRepository
	audit          ports.AuditSink
	commissionRate decimal.Decimal
	logger         *zap.Logger
}

// NewService creates a settlement batch service
func NewService(
	db ports.TransactionManager,
	payments ports.PaymentRepository,
	statements ports.SettlementRepository,
	runs ports.SettlementRunRepository,
	audit ports.AuditSink,
	commissionRate decimal.Decimal,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:             db,
		payments:       payments,
		statements:     statements,
		runs:           runs,
		audit:          audit,
		commissionRate: commissionRate,
		logger:         logger,
	}
}

// merchantGroup holds one merchant's payments in (merchant, paid_at) order
type merchantGroup struct {
	merchantID string
	payments   []*models.Payment
	totalSales int64
}

// RunSettlementPeriod executes one settlement batch over the half-open
// window [PeriodStart, PeriodEnd). The run log row is created before any
// computation and finalized after commit or rollback, so every invocation
// leaves a forensic trace even when the ledger transaction is rolled back.
func (s *Service) RunSettlementPeriod(ctx context.Context, req RunRequest) (*Report, error) {
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return nil, domain.ErrMissingPeriodBounds
	}
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, domain.ErrInvalidPeriod.
			WithDetail("period_start", req.PeriodStart).
			WithDetail("period_end", req.PeriodEnd)
	}

	run := &models.SettlementRun{
		ID:          uuid.New(),
		PeriodStart: req.PeriodStart.UTC(),
		PeriodEnd:   req.PeriodEnd.UTC(),
		Status:      models.RunNoop,
		DryRun:      req.DryRun,
		StartedAt:   timeutil.Now(),
	}
	runID, err := s.runs.CreateRun(ctx, run)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "create settlement run", err)
	}
	run.ID = runID

	s.logger.Info("settlement run started",
		zap.String("run_id", runID.String()),
		zap.Time("period_start", run.PeriodStart),
		zap.Time("period_end", run.PeriodEnd),
		zap.Bool("dry_run", req.DryRun),
	)

	var report *Report
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var txErr error
		report, txErr = s.runLocked(ctx, tx, run, req)
		return txErr
	})
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	s.finishRun(ctx, run, report)
	return report, nil
}

// runLocked does the work inside the batch transaction: claim, group, fold.
func (s *Service) runLocked(ctx context.Context, tx pgx.Tx, run *models.SettlementRun, req RunRequest) (*Report, error) {
	payments, err := s.payments.ListSettleableForUpdate(ctx, tx, run.PeriodStart, run.PeriodEnd)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       run.ID,
		DryRun:      req.DryRun,
		Settlements: []StatementSummary{},
	}
	report.TotalPayments = len(payments)

	if len(payments) == 0 {
		report.Status = models.RunNoop
		return report, nil
	}

	groups := groupByMerchant(payments)

	if req.DryRun {
		s.simulate(report, groups)
		report.Status = models.RunSuccess
		return report, nil
	}

	for _, group := range groups {
		if group.totalSales <= 0 {
			// The whole group stays unsettled and is retried in a later
			// window. No statement is created for it.
			report.SkippedPaymentCount += len(group.payments)
			s.logger.Warn("merchant group skipped: non-positive total",
				zap.String("run_id", run.ID.String()),
				zap.String("merchant_id", group.merchantID),
				zap.Int64("total_sales", group.totalSales),
				zap.Int("payments", len(group.payments)),
			)
			continue
		}

		summary, err := s.settleMerchant(ctx, tx, run, group)
		if err != nil {
			return nil, err
		}

		report.TotalStatements++
		report.SuccessPaymentCount += summary.PaymentCount
		report.SkippedPaymentCount += len(group.payments) - summary.PaymentCount
		report.TotalPayout += summary.PayoutAmount
		report.TotalCommission += summary.CommissionAmount
		report.Settlements = append(report.Settlements, *summary)
	}

	report.Status = models.RunSuccess
	return report, nil
}

// settleMerchant creates one statement and folds the group's payments into
// it. A lost claim is a per-payment skip; a failed statement or item insert
// aborts the entire run.
func (s *Service) settleMerchant(ctx context.Context, tx pgx.Tx, run *models.SettlementRun, group *merchantGroup) (*StatementSummary, error) {
	commission, payout := models.ComputeCommission(group.totalSales, s.commissionRate)

	statement := &models.SettlementStatement{
		ID:               uuid.New(),
		MerchantID:       group.merchantID,
		PeriodStart:      run.PeriodStart,
		PeriodEnd:        run.PeriodEnd,
		TotalSales:       group.totalSales,
		CommissionRate:   s.commissionRate,
		CommissionAmount: commission,
		PayoutAmount:     payout,
		Status:           models.StatementPending,
		CreatedAt:        timeutil.Now(),
	}

	statementID, err := s.statements.CreateStatement(ctx, tx, statement)
	if err != nil {
		s.audit.RecordError(ctx, &models.SettlementError{
			ID:         uuid.New(),
			RunID:      run.ID,
			ErrorType:  models.ErrorTypeStatementInsertFailed,
			MerchantID: group.merchantID,
			Message:    err.Error(),
			CreatedAt:  timeutil.Now(),
		})
		return nil, err
	}

	summary := &StatementSummary{
		StatementID:      statementID,
		MerchantID:       group.merchantID,
		TotalSales:       group.totalSales,
		CommissionAmount: commission,
		PayoutAmount:     payout,
	}

	for _, payment := range group.payments {
		claimed, err := s.payments.ClaimForSettlement(ctx, tx, payment.ID, statementID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// A concurrent run settled this payment between our snapshot
			// and the claim. Skip it and keep folding the rest.
			paymentID := payment.ID
			s.audit.RecordError(ctx, &models.SettlementError{
				ID:          uuid.New(),
				RunID:       run.ID,
				ErrorType:   models.ErrorTypeAlreadySettled,
				PaymentID:   &paymentID,
				MerchantID:  group.merchantID,
				StatementID: &statementID,
				Message:     "payment already settled by a concurrent run",
				CreatedAt:   timeutil.Now(),
			})
			continue
		}

		item := &models.SettlementItem{
			ID:          uuid.New(),
			StatementID: statementID,
			PaymentID:   payment.ID,
			Amount:      payment.Amount,
			CreatedAt:   timeutil.Now(),
		}
		if err := s.statements.CreateItem(ctx, tx, item); err != nil {
			// A claimed payment without an item row would be orphaned,
			// so this aborts the whole run.
			paymentID := payment.ID
			s.audit.RecordError(ctx, &models.SettlementError{
				ID:          uuid.New(),
				RunID:       run.ID,
				ErrorType:   models.ErrorTypeItemInsertFailed,
				PaymentID:   &paymentID,
				MerchantID:  group.merchantID,
				StatementID: &statementID,
				Message:     err.Error(),
				CreatedAt:   timeutil.Now(),
			})
			return nil, err
		}

		summary.PaymentCount++
	}

	return summary, nil
}

// simulate computes the dry-run breakdown without touching the ledger
func (s *Service) simulate(report *Report, groups []*merchantGroup) {
	for _, group := range groups {
		if group.totalSales <= 0 {
			report.SkippedPaymentCount += len(group.payments)
			continue
		}
		commission, payout := models.ComputeCommission(group.totalSales, s.commissionRate)
		report.TotalStatements++
		report.SuccessPaymentCount += len(group.payments)
		report.TotalPayout += payout
		report.TotalCommission += commission
		report.Settlements = append(report.Settlements, StatementSummary{
			MerchantID:       group.merchantID,
			TotalSales:       group.totalSales,
			CommissionAmount: commission,
			PayoutAmount:     payout,
			PaymentCount:     len(group.payments),
		})
	}
}

// groupByMerchant partitions the ordered payment snapshot into per-merchant
// groups, preserving the (merchant, paid_at) ordering of the claim query.
func groupByMerchant(payments []*models.Payment) []*merchantGroup {
	var groups []*merchantGroup
	index := make(map[string]*merchantGroup)

	for _, payment := range payments {
		group, ok := index[payment.MerchantID]
		if !ok {
			group = &merchantGroup{merchantID: payment.MerchantID}
			index[payment.MerchantID] = group
			groups = append(groups, group)
		}
		group.payments = append(group.payments, payment)
		group.totalSales += payment.Amount
	}

	return groups
}

// finishRun writes the terminal run row for a committed batch
func (s *Service) finishRun(ctx context.Context, run *models.SettlementRun, report *Report) {
	now := timeutil.Now()
	run.Status = report.Status
	run.TotalPayments = report.TotalPayments
	run.TotalStatements = report.TotalStatements
	run.SuccessPaymentCount = report.SuccessPaymentCount
	run.SkippedPaymentCount = report.SkippedPaymentCount
	run.TotalPayout = report.TotalPayout
	run.TotalCommission = report.TotalCommission
	run.FinishedAt = &now

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		// The batch already committed; losing the log update must not fail
		// the run itself.
		s.logger.Error("failed to finalize settlement run log",
			zap.Error(err),
			zap.String("run_id", run.ID.String()),
		)
	}

	s.logger.Info("settlement run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.Int("total_payments", run.TotalPayments),
		zap.Int("total_statements", run.TotalStatements),
		zap.Int("success_payments", run.SuccessPaymentCount),
		zap.Int("skipped_payments", run.SkippedPaymentCount),
		zap.Int64("total_payout", run.TotalPayout),
		zap.Int64("total_commission", run.TotalCommission),
	)
}

// failRun best-effort marks the run failed after a rollback
func (s *Service) failRun(ctx context.Context, run *models.SettlementRun, runErr error) {
	now := timeutil.Now()
	run.Status = models.RunFailed
	run.ErrorMessage = truncate(runErr.Error(), maxErrorMessageLen)
	run.FinishedAt = &now

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.logger.Error("failed to mark settlement run as failed",
			zap.Error(err),
			zap.String("run_id", run.ID.String()),
		)
	}

	s.audit.RecordError(ctx, &models.SettlementError{
		ID:        uuid.New(),
		RunID:     run.ID,
		ErrorType: models.ErrorTypeRunFailed,
		Message:   truncate(runErr.Error(), maxErrorMessageLen),
		CreatedAt: now,
	})

	s.logger.Error("settlement run failed",
		zap.Error(runErr),
		zap.String("run_id", run.ID.String()),
	)
}

// truncate cuts s to at most max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
