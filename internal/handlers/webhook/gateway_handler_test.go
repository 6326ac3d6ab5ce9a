package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/reconciliation-service/internal/domain"
	"github.com/kevin07696/reconciliation-service/internal/domain/models"
	"github.com/kevin07696/reconciliation-service/internal/domain/ports"
	webhookHandler "github.com/kevin07696/reconciliation-service/internal/handlers/webhook"
	webhookService "github.com/kevin07696/reconciliation-service/internal/services/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTransactionManager executes the callback with a nil transaction
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// MockPaymentRepository mocks the payment repository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByOrderIDForUpdate(ctx context.Context, tx ports.DBTX, gatewayOrderID string) (*models.Payment, error) {
	args := m.Called(ctx, tx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkSucceeded(ctx context.Context, tx ports.DBTX, id uuid.UUID, paymentKey, method string, amount int64, paidAt time.Time) error {
	args := m.Called(ctx, tx, id, paymentKey, method, amount, paidAt)
	return args.Error(0)
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, tx ports.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) MarkCanceled(ctx context.Context, tx ports.DBTX, id uuid.UUID, canceledAt time.Time) error {
	args := m.Called(ctx, tx, id, canceledAt)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListSettleableForUpdate(ctx context.Context, tx ports.DBTX, periodStart, periodEnd time.Time) ([]*models.Payment, error) {
	args := m.Called(ctx, tx, periodStart, periodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ClaimForSettlement(ctx context.Context, tx ports.DBTX, paymentID, statementID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, paymentID, statementID)
	return args.Bool(0), args.Error(1)
}

// MockWebhookRepository mocks the webhook event store
type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) Create(ctx context.Context, tx ports.DBTX, event *models.WebhookEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockWebhookRepository) ExistsRecent(ctx context.Context, tx ports.DBTX, gatewayOrderID, eventType, reportedStatus string, since time.Time) (bool, error) {
	args := m.Called(ctx, tx, gatewayOrderID, eventType, reportedStatus, since)
	return args.Bool(0), args.Error(1)
}

// MockReservationNotifier mocks the reservation cascade
type MockReservationNotifier struct {
	mock.Mock
}

func (m *MockReservationNotifier) PaymentConfirmed(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID) error {
	args := m.Called(ctx, tx, reservationID)
	return args.Error(0)
}

func (m *MockReservationNotifier) PaymentFailed(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID) error {
	args := m.Called(ctx, tx, reservationID)
	return args.Error(0)
}

func (m *MockReservationNotifier) PaymentCanceled(ctx context.Context, tx ports.DBTX, reservationID uuid.UUID) error {
	args := m.Called(ctx, tx, reservationID)
	return args.Error(0)
}

type handlerFixture struct {
	payments *MockPaymentRepository
	webhooks *MockWebhookRepository
	handler  *webhookHandler.GatewayHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		payments: new(MockPaymentRepository),
		webhooks: new(MockWebhookRepository),
	}
	reconciler := webhookService.NewReconciler(
		new(MockTransactionManager), f.payments, f.webhooks,
		new(MockReservationNotifier), time.Hour, zap.NewNop(),
	)
	f.handler = webhookHandler.NewGatewayHandler(reconciler, zap.NewNop())
	return f
}

func postWebhook(t *testing.T, f *handlerFixture, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-gateway", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.HandleWebhook(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleWebhook_AppliedEventReturns200(t *testing.T) {
	f := newHandlerFixture(t)
	payment := &models.Payment{
		ID:             uuid.New(),
		MerchantID:     "merchant-a",
		Amount:         15000,
		GatewayOrderID: "order-1",
		Status:         models.StatusPending,
	}

	f.payments.On("GetByOrderIDForUpdate", mock.Anything, mock.Anything, "order-1").
		Return(payment, nil)
	f.webhooks.On("ExistsRecent", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	f.webhooks.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.payments.On("MarkSucceeded", mock.Anything, mock.Anything, payment.ID,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := postWebhook(t, f, `{
		"eventType": "PAYMENT_STATUS_CHANGED",
		"data": {"orderId": "order-1", "status": "DONE", "paymentKey": "pay_1"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "applied", resp["message"])
	assert.NotContains(t, resp, "code")
}

// The gateway retries on any non-200, so even broken payloads are acknowledged
func TestHandleWebhook_MalformedPayloadStillReturns200(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postWebhook(t, f, `{not json`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, false, resp["success"])
}

func TestHandleWebhook_MissingFieldsStillReturns200(t *testing.T) {
	f := newHandlerFixture(t)

	rec := postWebhook(t, f, `{"data": {"status": "DONE"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, false, resp["success"])
}

func TestHandleWebhook_ProcessingErrorStillReturns200(t *testing.T) {
	f := newHandlerFixture(t)

	f.payments.On("GetByOrderIDForUpdate", mock.Anything, mock.Anything, "order-missing").
		Return((*models.Payment)(nil), domain.ErrPaymentNotFound)

	rec := postWebhook(t, f, `{
		"eventType": "PAYMENT_STATUS_CHANGED",
		"data": {"orderId": "order-missing", "status": "DONE"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, false, resp["success"])
}

func TestHandleWebhook_DuplicateReturns200WithReason(t *testing.T) {
	f := newHandlerFixture(t)
	payment := &models.Payment{
		ID:             uuid.New(),
		GatewayOrderID: "order-dup",
		Status:         models.StatusSuccess,
	}

	f.payments.On("GetByOrderIDForUpdate", mock.Anything, mock.Anything, "order-dup").
		Return(payment, nil)
	f.webhooks.On("ExistsRecent", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	rec := postWebhook(t, f, `{
		"eventType": "PAYMENT_STATUS_CHANGED",
		"data": {"orderId": "order-dup", "status": "DONE"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "already_processed", resp["message"])
	assert.Equal(t, string(domain.ErrorCodeAlreadyProcessed), resp["code"])
}

func TestHandleWebhook_GetNotAllowed(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/payment-gateway", nil)
	rec := httptest.NewRecorder()
	f.handler.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
