package api

import (
	"net/http"

	"github.com/Mnunley1/gearboxe-reservations/internal/service/checkin"
	"github.com/gin-gonic/gin"
)

type CheckinHandler struct {
	service checkin.CheckinUseCase
}

type checkInRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
}

type lookupResponse struct {
	State        string                `json:"state"`
	Registration *registrationResponse `json:"registration,omitempty"`
}

func NewCheckinHandler(service checkin.CheckinUseCase) *CheckinHandler {
	return &CheckinHandler{service: service}
}

func (h *CheckinHandler) Register(router *gin.RouterGroup) {
	router.GET("/checkin/:token", h.lookup)
	router.POST("/checkin/:token", h.checkIn)
}

func (h *CheckinHandler) lookup(c *gin.Context) {
	state, reg, err := h.service.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	resp := lookupResponse{State: string(state)}
	if reg != nil {
		r := newRegistrationResponse(reg)
		resp.Registration = &r
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckinHandler) checkIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.CheckIn(c.Request.Context(), c.Param("token"), req.StaffID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newRegistrationResponse(reg))
}
