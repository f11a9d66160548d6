package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/events"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEventUseCase struct {
	mock.Mock
}

func (m *MockEventUseCase) List(ctx context.Context) ([]domain.Event, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventUseCase) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func newEventRouter(service events.EventUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewEventHandler(service).Register(router.Group("/api"))
	return router
}

func TestEventHandler_List(t *testing.T) {
	mockService := &MockEventUseCase{}
	router := newEventRouter(mockService)

	list := []domain.Event{
		{ID: "event-1", Name: "Saturday Meet", StartsAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC), Capacity: 50, VendorFee: decimal.NewFromInt(25)},
	}
	mockService.On("List", mock.Anything).Return(list, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got []domain.Event
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, "event-1", got[0].ID)
}

func TestEventHandler_Get_NotFound(t *testing.T) {
	mockService := &MockEventUseCase{}
	router := newEventRouter(mockService)

	mockService.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrEventNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/events/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
