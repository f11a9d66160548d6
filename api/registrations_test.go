package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockReservationUseCase struct {
	mock.Mock
}

func (m *MockReservationUseCase) CreateOrRefreshHold(ctx context.Context, input reservation.CreateHoldInput) (*domain.Registration, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockReservationUseCase) GetCapacity(ctx context.Context, eventID string) (*domain.CapacityStatus, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CapacityStatus), args.Error(1)
}

func (m *MockReservationUseCase) Sweep(ctx context.Context) (reservation.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(reservation.SweepResult), args.Error(1)
}

func newRegistrationRouter(service reservation.ReservationUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewRegistrationHandler(service).Register(router.Group("/api"))
	return router
}

func TestRegistrationHandler_Create_Created(t *testing.T) {
	mockService := &MockReservationUseCase{}
	router := newRegistrationRouter(mockService)

	expiresAt := time.Date(2026, 5, 1, 12, 15, 0, 0, time.UTC)
	reg := &domain.Registration{
		ID:            "reg-1",
		EventID:       "event-1",
		VehicleID:     "vehicle-1",
		UserID:        "user-1",
		PaymentStatus: domain.PaymentStatusPending,
		ExpiresAt:     &expiresAt,
		CreatedAt:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	mockService.On("CreateOrRefreshHold", mock.Anything, reservation.CreateHoldInput{
		EventID: "event-1", VehicleID: "vehicle-1", UserID: "user-1",
	}).Return(reg, nil).Once()

	body := bytes.NewBufferString(`{"vehicle_id":"vehicle-1","user_id":"user-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/events/event-1/registrations", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp registrationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "reg-1", resp.ID)
	assert.Equal(t, "pending", resp.PaymentStatus)
	assert.Equal(t, "2026-05-01T12:15:00Z", resp.ExpiresAt)
	mockService.AssertExpectations(t)
}

func TestRegistrationHandler_Create_BadRequest(t *testing.T) {
	mockService := &MockReservationUseCase{}
	router := newRegistrationRouter(mockService)

	body := bytes.NewBufferString(`{"vehicle_id":"vehicle-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/events/event-1/registrations", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateOrRefreshHold")
}

func TestRegistrationHandler_Create_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrEventNotFound, http.StatusNotFound},
		{domain.ErrEventFull, http.StatusConflict},
		{domain.ErrAlreadyRegistered, http.StatusConflict},
		{domain.ErrEventStarted, http.StatusUnprocessableEntity},
		{domain.ErrReservationBusy, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		mockService := &MockReservationUseCase{}
		router := newRegistrationRouter(mockService)
		mockService.On("CreateOrRefreshHold", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

		body := bytes.NewBufferString(`{"vehicle_id":"vehicle-1","user_id":"user-1"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/events/event-1/registrations", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
	}
}

func TestRegistrationHandler_Capacity_OK(t *testing.T) {
	mockService := &MockReservationUseCase{}
	router := newRegistrationRouter(mockService)

	mockService.On("GetCapacity", mock.Anything, "event-1").
		Return(&domain.CapacityStatus{Capacity: 50, Active: 48, Available: 2, IsFull: false}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/events/event-1/capacity", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status domain.CapacityStatus
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Available)
	assert.False(t, status.IsFull)
}

func TestRegistrationHandler_Capacity_EventNotFound(t *testing.T) {
	mockService := &MockReservationUseCase{}
	router := newRegistrationRouter(mockService)

	mockService.On("GetCapacity", mock.Anything, "missing").Return(nil, domain.ErrEventNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/events/missing/capacity", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
