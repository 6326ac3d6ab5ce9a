package domain_test

import (
	"sync"
	"testing"

	"github.com/kevin07696/reconciliation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetail_DoesNotMutateSharedInstance(t *testing.T) {
	enriched := domain.ErrPaymentNotFound.WithDetail("gateway_order_id", "order-123")

	require.NotSame(t, domain.ErrPaymentNotFound, enriched)
	assert.Empty(t, domain.ErrPaymentNotFound.Details)

	assert.Equal(t, domain.ErrorCodePaymentNotFound, enriched.Code)
	assert.Equal(t, domain.ErrPaymentNotFound.Message, enriched.Message)
	assert.Equal(t, "order-123", enriched.Details["gateway_order_id"])
}

func TestWithDetail_ChainAccumulatesOnCopies(t *testing.T) {
	first := domain.ErrInvalidPeriod.WithDetail("period_start", "2026-09-01")
	second := first.WithDetail("period_end", "2026-08-01")

	assert.Len(t, first.Details, 1)
	assert.Len(t, second.Details, 2)
	assert.Equal(t, "2026-09-01", second.Details["period_start"])
	assert.Empty(t, domain.ErrInvalidPeriod.Details)
}

func TestWithDetail_ConcurrentEnrichment(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				err := domain.ErrPaymentNotFound.WithDetail("gateway_order_id", n)
				assert.Equal(t, n, err.Details["gateway_order_id"])
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, domain.ErrPaymentNotFound.Details)
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, domain.ErrorCodePaymentNotFound, domain.GetErrorCode(domain.ErrPaymentNotFound))
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(assert.AnError))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, domain.IsValidationError(domain.ErrMissingEventType))
	assert.True(t, domain.IsValidationError(domain.ErrInvalidPeriod.WithDetail("period_start", "x")))
	assert.False(t, domain.IsValidationError(domain.ErrPaymentNotFound))
	assert.False(t, domain.IsValidationError(assert.AnError))
}

func TestIsIntegrityError(t *testing.T) {
	wrapped := domain.WrapError(domain.ErrorCodeItemInsertFailed, "create settlement item", assert.AnError)
	assert.True(t, domain.IsIntegrityError(wrapped))
	assert.True(t, domain.IsIntegrityError(domain.ErrStatementNoID))
	assert.False(t, domain.IsIntegrityError(domain.ErrInvalidPeriod))
}
