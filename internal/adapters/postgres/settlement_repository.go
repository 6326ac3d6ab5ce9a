package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/reconciliation-service/internal/domain"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
)

// SettlementRepository implements ports.SettlementRepository over pgx
type SettlementRepository struct {
	db ports.DBPort
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db ports.DBPort) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

// CreateStatement inserts a settlement statement and returns its id.
// The id comes back from the insert itself so a driver that fails to report
// one surfaces as an explicit error, not a zero-valued field.
func (r *SettlementRepository) CreateStatement(ctx context.Context, tx ports.DBTX, statement *models.SettlementStatement) (uuid.UUID, error) {
	metadata, err := json.Marshal(statement.Metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal statement metadata: %w", err)
	}
	if statement.Metadata == nil {
		metadata = []byte("{}")
	}

	// pgx has no native shopspring encoding; go through pgtype.Numeric
	rate := pgtype.Numeric{}
	if err := rate.Scan(statement.CommissionRate.String()); err != nil {
		return uuid.Nil, fmt.Errorf("convert commission rate: %w", err)
	}

	query := `INSERT INTO settlement_statements
		(id, merchant_id, period_start, period_end, total_sales, commission_rate,
		 commission_amount, payout_amount, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id uuid.UUID
	err = r.executor(tx).QueryRow(ctx, query,
		statement.ID, statement.MerchantID, statement.PeriodStart, statement.PeriodEnd,
		statement.TotalSales, rate, statement.CommissionAmount,
		statement.PayoutAmount, string(statement.Status), metadata, statement.CreatedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, domain.WrapError(domain.ErrorCodeStatementInsertFailed, "insert settlement statement", err)
	}
	if id == uuid.Nil {
		return uuid.Nil, domain.ErrStatementNoID.WithDetail("merchant_id", statement.MerchantID)
	}

	return id, nil
}

// CreateItem inserts the line linking one payment to its statement.
// The (statement_id, payment_id) uniqueness constraint makes double-folding
// a hard failure rather than a silent duplicate.
func (r *SettlementRepository) CreateItem(ctx context.Context, tx ports.DBTX, item *models.SettlementItem) error {
	query := `INSERT INTO settlement_items
		(id, statement_id, payment_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.executor(tx).Exec(ctx, query,
		item.ID, item.StatementID, item.PaymentID, item.Amount, item.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeItemInsertFailed, "insert settlement item", err)
	}

	return nil
}
