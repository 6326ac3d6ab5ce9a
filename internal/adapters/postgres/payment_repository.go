package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/reconciliation-service/internal/domain"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
)

// PaymentRepository implements ports.PaymentRepository over pgx
type PaymentRepository struct {
	db ports.DBPort
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db ports.DBPort) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) executor(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

const paymentColumns = `id, merchant_id, user_id, reservation_id, amount, currency,
	provider, gateway_payment_key, gateway_order_id, gateway_payment_method,
	status, paid_at, canceled_at, is_settled, settlement_statement_id,
	created_at, updated_at`

// GetByOrderIDForUpdate looks up a payment by gateway order id with an
// exclusive row lock. The lock is held until the surrounding transaction ends.
func (r *PaymentRepository) GetByOrderIDForUpdate(ctx context.Context, tx ports.DBTX, gatewayOrderID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE gateway_order_id = $1 FOR UPDATE`, paymentColumns)

	row := r.executor(tx).QueryRow(ctx, query, gatewayOrderID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound.WithDetail("gateway_order_id", gatewayOrderID)
		}
		return nil, fmt.Errorf("get payment by order id: %w", err)
	}

	return payment, nil
}

// MarkSucceeded sets the payment to success and stores the gateway confirmation
func (r *PaymentRepository) MarkSucceeded(ctx context.Context, tx ports.DBTX, id uuid.UUID, paymentKey, method string, amount int64, paidAt time.Time) error {
	query := `UPDATE payments
		SET status = $2, gateway_payment_key = $3, gateway_payment_method = $4,
			amount = $5, paid_at = $6, updated_at = now()
		WHERE id = $1`

	_, err := r.executor(tx).Exec(ctx, query, id, string(models.StatusSuccess),
		nullText(paymentKey), nullText(method), amount, paidAt)
	if err != nil {
		return fmt.Errorf("mark payment succeeded: %w", err)
	}

	return nil
}

// MarkFailed sets the payment to failed
func (r *PaymentRepository) MarkFailed(ctx context.Context, tx ports.DBTX, id uuid.UUID) error {
	query := `UPDATE payments SET status = $2, updated_at = now() WHERE id = $1`

	_, err := r.executor(tx).Exec(ctx, query, id, string(models.StatusFailed))
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}

	return nil
}

// MarkCanceled sets the payment to canceled with the given timestamp
func (r *PaymentRepository) MarkCanceled(ctx context.Context, tx ports.DBTX, id uuid.UUID, canceledAt time.Time) error {
	query := `UPDATE payments
		SET status = $2, canceled_at = $3, updated_at = now()
		WHERE id = $1`

	_, err := r.executor(tx).Exec(ctx, query, id, string(models.StatusCanceled), canceledAt)
	if err != nil {
		return fmt.Errorf("mark payment canceled: %w", err)
	}

	return nil
}

// ListSettleableForUpdate selects and locks every successful, unsettled
// payment paid inside [periodStart, periodEnd). The FOR UPDATE on the full
// result set is the settlement concurrency gate: it serializes overlapping
// settlement runs and blocks webhook cancellations on the same rows.
func (r *PaymentRepository) ListSettleableForUpdate(ctx context.Context, tx ports.DBTX, periodStart, periodEnd time.Time) ([]*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments
		WHERE status = $1 AND is_settled = false
			AND paid_at >= $2 AND paid_at < $3
		ORDER BY merchant_id, paid_at
		FOR UPDATE`, paymentColumns)

	rows, err := r.executor(tx).Query(ctx, query, string(models.StatusSuccess), periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("list settleable payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settleable payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settleable payments: %w", err)
	}

	return payments, nil
}

// ClaimForSettlement conditionally claims a payment for a statement.
// Zero affected rows means a concurrent process settled it first.
func (r *PaymentRepository) ClaimForSettlement(ctx context.Context, tx ports.DBTX, paymentID, statementID uuid.UUID) (bool, error) {
	query := `UPDATE payments
		SET is_settled = true, settlement_statement_id = $2, updated_at = now()
		WHERE id = $1 AND is_settled = false`

	tag, err := r.executor(tx).Exec(ctx, query, paymentID, statementID)
	if err != nil {
		return false, fmt.Errorf("claim payment for settlement: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// scanPayment converts one payments row to the domain model
func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		p             models.Payment
		reservationID pgtype.UUID
		paymentKey    pgtype.Text
		method        pgtype.Text
		paidAt        pgtype.Timestamptz
		canceledAt    pgtype.Timestamptz
		statementID   pgtype.UUID
		status        string
	)

	err := row.Scan(&p.ID, &p.MerchantID, &p.UserID, &reservationID, &p.Amount,
		&p.Currency, &p.Provider, &paymentKey, &p.GatewayOrderID, &method,
		&status, &paidAt, &canceledAt, &p.IsSettled, &statementID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.ReservationID = fromNullUUID(reservationID)
	p.GatewayPaymentKey = paymentKey.String
	p.GatewayPaymentMethod = method.String
	p.Status = models.PaymentStatus(status)
	p.PaidAt = fromNullTime(paidAt)
	p.CanceledAt = fromNullTime(canceledAt)
	p.SettlementStatementID = fromNullUUID(statementID)

	return &p, nil
}
