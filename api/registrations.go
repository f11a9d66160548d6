package api

import (
	"net/http"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/reservation"
	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	service reservation.ReservationUseCase
}

type createHoldRequest struct {
	VehicleID string `json:"vehicle_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
}

type registrationResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	VehicleID     string `json:"vehicle_id"`
	UserID        string `json:"user_id"`
	PaymentStatus string `json:"payment_status"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	CheckedIn     bool   `json:"checked_in"`
	CheckedInAt   string `json:"checked_in_at,omitempty"`
	CheckedInBy   string `json:"checked_in_by,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func newRegistrationResponse(reg *domain.Registration) registrationResponse {
	resp := registrationResponse{
		ID:            reg.ID,
		EventID:       reg.EventID,
		VehicleID:     reg.VehicleID,
		UserID:        reg.UserID,
		PaymentStatus: string(reg.PaymentStatus),
		CheckedIn:     reg.CheckedIn,
		CheckedInBy:   reg.CheckedInBy,
		CreatedAt:     reg.CreatedAt.Format(time.RFC3339),
	}
	if reg.ExpiresAt != nil {
		resp.ExpiresAt = reg.ExpiresAt.Format(time.RFC3339)
	}
	if reg.CheckedInAt != nil {
		resp.CheckedInAt = reg.CheckedInAt.Format(time.RFC3339)
	}
	return resp
}

func NewRegistrationHandler(service reservation.ReservationUseCase) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) Register(router *gin.RouterGroup) {
	router.POST("/events/:eventId/registrations", h.create)
	router.GET("/events/:eventId/capacity", h.capacity)
}

func (h *RegistrationHandler) create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.CreateOrRefreshHold(c.Request.Context(), reservation.CreateHoldInput{
		EventID:   c.Param("eventId"),
		VehicleID: req.VehicleID,
		UserID:    req.UserID,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, newRegistrationResponse(reg))
}

func (h *RegistrationHandler) capacity(c *gin.Context) {
	status, err := h.service.GetCapacity(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}
