package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
)

// SettlementRepository persists settlement statements and their line items.
type SettlementRepository interface {
	// CreateStatement inserts a statement and returns its identifier.
	// Callers must treat a missing identifier as a fatal error for the run;
	// the id is returned explicitly rather than written back into the model
	// so the failure path cannot be ignored.
	CreateStatement(ctx context.Context, tx DBTX, statement *models.SettlementStatement) (uuid.UUID, error)

	// CreateItem inserts the line linking one payment to its statement.
	CreateItem(ctx context.Context, tx DBTX, item *models.SettlementItem) error
}

// SettlementRunRepository persists batch run logs and their error rows.
// Implementations must execute against the pool, not the batch transaction:
// the forensic trail has to survive a rollback of the run it describes.
type SettlementRunRepository interface {
	// CreateRun inserts the placeholder log row for a run before any
	// computation happens and returns the run identifier.
	CreateRun(ctx context.Context, run *models.SettlementRun) (uuid.UUID, error)

	// UpdateRun writes the run's current counters and status.
	UpdateRun(ctx context.Context, run *models.SettlementRun) error

	// CreateError appends one diagnostic row referencing a run.
	CreateError(ctx context.Context, settlementError *models.SettlementError) error
}

// AuditSink records settlement anomalies best-effort. Implementations must
// swallow their own failures: an audit-logging fault can never abort a
// settlement run.
type AuditSink interface {
	RecordError(ctx context.Context, settlementError *models.SettlementError)
}
