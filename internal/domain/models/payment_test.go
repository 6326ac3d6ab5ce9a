package models_test

import (
	"testing"

	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		gatewayStatus string
		want          models.PaymentStatus
	}{
		{"READY", models.StatusPending},
		{"IN_PROGRESS", models.StatusPending},
		{"WAITING_FOR_DEPOSIT", models.StatusPending},
		{"DONE", models.StatusSuccess},
		{"CANCELED", models.StatusCanceled},
		{"PARTIAL_CANCELED", models.StatusCanceled},
		{"ABORTED", models.StatusFailed},
		{"EXPIRED", models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.gatewayStatus, func(t *testing.T) {
			assert.Equal(t, tt.want, models.MapGatewayStatus(tt.gatewayStatus))
		})
	}
}

// Unknown gateway statuses must never map to a terminal state
func TestMapGatewayStatus_UnknownDefaultsToPending(t *testing.T) {
	assert.Equal(t, models.StatusPending, models.MapGatewayStatus("SOME_FUTURE_STATUS"))
	assert.Equal(t, models.StatusPending, models.MapGatewayStatus(""))
	assert.Equal(t, models.StatusPending, models.MapGatewayStatus("done")) // case sensitive
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  models.PaymentStatus
		proposed models.PaymentStatus
		want     bool
	}{
		{"pending to success", models.StatusPending, models.StatusSuccess, true},
		{"pending to failed", models.StatusPending, models.StatusFailed, true},
		{"pending to canceled", models.StatusPending, models.StatusCanceled, true},
		{"pending to refunded", models.StatusPending, models.StatusRefunded, false},
		{"success to canceled", models.StatusSuccess, models.StatusCanceled, true},
		{"success to refunded", models.StatusSuccess, models.StatusRefunded, true},
		{"success to pending", models.StatusSuccess, models.StatusPending, false},

		// late DONE after a failure must be rejected
		{"failed to success", models.StatusFailed, models.StatusSuccess, false},

		// terminal states allow nothing
		{"failed to canceled", models.StatusFailed, models.StatusCanceled, false},
		{"canceled to success", models.StatusCanceled, models.StatusSuccess, false},
		{"canceled to refunded", models.StatusCanceled, models.StatusRefunded, false},
		{"refunded to canceled", models.StatusRefunded, models.StatusCanceled, false},

		// self transitions are not in the adjacency table
		{"pending to pending", models.StatusPending, models.StatusPending, false},
		{"success to success", models.StatusSuccess, models.StatusSuccess, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, models.IsValidTransition(tt.current, tt.proposed))
		})
	}
}
