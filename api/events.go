package api

import (
	"net/http"

	"github.com/Mnunley1/gearboxe-reservations/internal/service/events"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service events.EventUseCase
}

func NewEventHandler(service events.EventUseCase) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) Register(router *gin.RouterGroup) {
	router.GET("/events", h.list)
	router.GET("/events/:eventId", h.get)
}

func (h *EventHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *EventHandler) get(c *gin.Context) {
	event, err := h.service.GetByID(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}
