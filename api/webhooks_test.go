package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/payments"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockWebhookUseCase struct {
	mock.Mock
}

func (m *MockWebhookUseCase) HandleDelivery(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

func (m *MockWebhookUseCase) HandlePaymentSucceeded(ctx context.Context, providerEventID, registrationID, paymentRef string) error {
	args := m.Called(ctx, providerEventID, registrationID, paymentRef)
	return args.Error(0)
}

func (m *MockWebhookUseCase) HandlePaymentFailed(ctx context.Context, registrationID string) error {
	args := m.Called(ctx, registrationID)
	return args.Error(0)
}

func (m *MockWebhookUseCase) ResendConfirmation(ctx context.Context, registrationID string) error {
	args := m.Called(ctx, registrationID)
	return args.Error(0)
}

func newWebhookRouter(service payments.WebhookUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewWebhookHandler(service).Register(router.Group("/api"))
	return router
}

func TestWebhookHandler_HandleStripe_OK(t *testing.T) {
	mockService := &MockWebhookUseCase{}
	router := newWebhookRouter(mockService)

	payload := []byte(`{"id":"evt_1","type":"payment_succeeded","registration_id":"reg-1"}`)
	mockService.On("HandleDelivery", mock.Anything, payload, "t=1,v1=abc").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestWebhookHandler_HandleStripe_Unverified(t *testing.T) {
	mockService := &MockWebhookUseCase{}
	router := newWebhookRouter(mockService)

	mockService.On("HandleDelivery", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrUnverifiedSignature).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_HandleStripe_TransientErrorTriggersRetry(t *testing.T) {
	mockService := &MockWebhookUseCase{}
	router := newWebhookRouter(mockService)

	mockService.On("HandleDelivery", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookHandler_Resend_Accepted(t *testing.T) {
	mockService := &MockWebhookUseCase{}
	router := newWebhookRouter(mockService)

	mockService.On("ResendConfirmation", mock.Anything, "reg-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/registrations/reg-1/resend", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockService.AssertExpectations(t)
}

func TestWebhookHandler_Resend_NotPaid(t *testing.T) {
	mockService := &MockWebhookUseCase{}
	router := newWebhookRouter(mockService)

	mockService.On("ResendConfirmation", mock.Anything, "reg-1").Return(domain.ErrNotPaid).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/registrations/reg-1/resend", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWebhookHandler_Resend_NotFound(t *testing.T) {
	mockService := &MockWebhookUseCase{}
	router := newWebhookRouter(mockService)

	mockService.On("ResendConfirmation", mock.Anything, "missing").Return(domain.ErrRegistrationNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/registrations/missing/resend", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
